package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	"go.uber.org/zap"

	"microsocial/internal/auth"
	"microsocial/internal/config"
	"microsocial/internal/service"
)

type RealtimeServer interface {
	ServeWS(w http.ResponseWriter, r *http.Request, userID string)
}

type HealthChecker interface {
	HealthCheck(ctx context.Context) error
	CountTables(ctx context.Context) (int, error)
}

type Handlers struct {
	UserService    service.UserService
	AuthService    service.AuthService
	FollowService  service.FollowService
	PostService    service.PostService
	MessageService service.MessageService
	DraftService   service.DraftService
	Providers      auth.Providers
	RealtimeServer RealtimeServer
	Health         HealthChecker
	Cfg            *config.Config
	Validate       *validator.Validate
	Log            *zap.Logger
}

// realtime may be nil when no event bus is configured.
func NewHandlers(
	services *service.Service,
	providers auth.Providers,
	realtime RealtimeServer,
	health HealthChecker,
	cfg *config.Config,
	log *zap.Logger,
) *Handlers {
	return &Handlers{
		UserService:    services.User,
		AuthService:    services.Auth,
		FollowService:  services.Follow,
		PostService:    services.Post,
		MessageService: services.Message,
		DraftService:   services.Draft,
		Providers:      providers,
		RealtimeServer: realtime,
		Health:         health,
		Cfg:            cfg,
		Validate:       NewValidator(),
		Log:            log,
	}
}

func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterValidation("notblank", validators.NotBlank)
	v.RegisterValidation("appuserid", func(fl validator.FieldLevel) bool {
		return service.ValidAppUserID(fl.Field().String())
	})
	return v
}

func validationMessage(err error) string {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) || len(errs) == 0 {
		return "Invalid request"
	}

	fe := errs[0]
	switch fe.Tag() {
	case "required", "notblank":
		return fmt.Sprintf("%s is required", fe.Field())
	case "appuserid":
		return "User ID must be 3-20 characters: letters, digits, _ or -"
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "url":
		return fmt.Sprintf("%s must be a valid URL", fe.Field())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}

// callerID returns the authenticated user. Routes that call it sit behind
// AuthMiddleware, so a missing id is answered with 401.
func callerID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		WriteError(w, "Authentication required", http.StatusUnauthorized)
		return "", false
	}
	return userID, true
}
