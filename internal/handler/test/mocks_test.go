package test

import (
	"context"
	"net/http"

	"github.com/stretchr/testify/mock"

	"microsocial/internal/models"
	"microsocial/internal/service"
)

type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Register(ctx context.Context, req models.RegisterRequest) (*models.User, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockAuthService) ResolveIdentity(ctx context.Context, profile models.ProviderProfile) (*models.User, error) {
	args := m.Called(ctx, profile)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockAuthService) IssueTokens(ctx context.Context, user *models.User) (*service.Tokens, error) {
	args := m.Called(ctx, user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Tokens), args.Error(1)
}

func (m *MockAuthService) RefreshTokens(ctx context.Context, refreshToken string) (*models.User, *service.Tokens, error) {
	args := m.Called(ctx, refreshToken)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*models.User), args.Get(1).(*service.Tokens), args.Error(2)
}

func (m *MockAuthService) Logout(ctx context.Context, refreshToken string) error {
	args := m.Called(ctx, refreshToken)
	return args.Error(0)
}

type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) GetUser(ctx context.Context, userID string) (*models.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) ListUsers(ctx context.Context) ([]*models.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.User), args.Error(1)
}

func (m *MockUserService) ProviderStatuses(ctx context.Context, userID string) ([]service.ProviderStatus, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]service.ProviderStatus), args.Error(1)
}

func (m *MockUserService) RelatedUserIDs(ctx context.Context, userID string) ([]string, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockUserService) VerifyUserIDs(ctx context.Context, userIDs []string) (map[string]bool, error) {
	args := m.Called(ctx, userIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]bool), args.Error(1)
}

func (m *MockUserService) UpdateProfile(ctx context.Context, callerID, targetID string, req models.UpdateProfileRequest) (*models.User, error) {
	args := m.Called(ctx, callerID, targetID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) UploadImage(ctx context.Context, callerID, targetID, kind string, upload service.ImageUpload) (*models.User, error) {
	args := m.Called(ctx, callerID, targetID, kind, upload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) DeleteAccount(ctx context.Context, callerID string) error {
	args := m.Called(ctx, callerID)
	return args.Error(0)
}

type MockFollowService struct {
	mock.Mock
}

func (m *MockFollowService) Follow(ctx context.Context, callerID, targetID string) error {
	args := m.Called(ctx, callerID, targetID)
	return args.Error(0)
}

func (m *MockFollowService) Unfollow(ctx context.Context, callerID, targetID string) error {
	args := m.Called(ctx, callerID, targetID)
	return args.Error(0)
}

func (m *MockFollowService) IsFollowing(ctx context.Context, callerID, targetID string) (bool, error) {
	args := m.Called(ctx, callerID, targetID)
	return args.Bool(0), args.Error(1)
}

type MockPostService struct {
	mock.Mock
}

func (m *MockPostService) CreatePost(ctx context.Context, authorID, content string) (*models.Post, error) {
	args := m.Called(ctx, authorID, content)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Post), args.Error(1)
}

func (m *MockPostService) GetPost(ctx context.Context, callerID, postID string) (*models.Post, error) {
	args := m.Called(ctx, callerID, postID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Post), args.Error(1)
}

func (m *MockPostService) ListPosts(ctx context.Context, callerID, filter string) ([]*models.Post, error) {
	args := m.Called(ctx, callerID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Post), args.Error(1)
}

func (m *MockPostService) ListUserPosts(ctx context.Context, callerID, authorID string) ([]*models.Post, error) {
	args := m.Called(ctx, callerID, authorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Post), args.Error(1)
}

func (m *MockPostService) ListBookmarks(ctx context.Context, callerID string) ([]*models.Post, error) {
	args := m.Called(ctx, callerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Post), args.Error(1)
}

func (m *MockPostService) UpdatePost(ctx context.Context, callerID, postID, content string) (*models.Post, error) {
	args := m.Called(ctx, callerID, postID, content)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Post), args.Error(1)
}

func (m *MockPostService) DeletePost(ctx context.Context, callerID, postID string) error {
	args := m.Called(ctx, callerID, postID)
	return args.Error(0)
}

func (m *MockPostService) ToggleLike(ctx context.Context, userID, postID string) (*service.LikeResult, error) {
	args := m.Called(ctx, userID, postID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.LikeResult), args.Error(1)
}

func (m *MockPostService) ToggleBookmark(ctx context.Context, userID, postID string) (*service.BookmarkResult, error) {
	args := m.Called(ctx, userID, postID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.BookmarkResult), args.Error(1)
}

func (m *MockPostService) ToggleRepost(ctx context.Context, userID, postID string) (*service.RepostResult, error) {
	args := m.Called(ctx, userID, postID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.RepostResult), args.Error(1)
}

func (m *MockPostService) AddComment(ctx context.Context, userID, postID, content string) (models.Comments, error) {
	args := m.Called(ctx, userID, postID, content)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(models.Comments), args.Error(1)
}

type MockMessageService struct {
	mock.Mock
}

func (m *MockMessageService) SendMessage(ctx context.Context, senderID, receiverID, content string) (*models.Message, error) {
	args := m.Called(ctx, senderID, receiverID, content)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Message), args.Error(1)
}

func (m *MockMessageService) ListConversations(ctx context.Context, callerID string) ([]*models.Conversation, error) {
	args := m.Called(ctx, callerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Conversation), args.Error(1)
}

func (m *MockMessageService) GetConversation(ctx context.Context, callerID, counterpartID string) ([]*models.Message, error) {
	args := m.Called(ctx, callerID, counterpartID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Message), args.Error(1)
}

type MockDraftService struct {
	mock.Mock
}

func (m *MockDraftService) SaveDraft(ctx context.Context, ownerID, content string) (*models.Draft, error) {
	args := m.Called(ctx, ownerID, content)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Draft), args.Error(1)
}

func (m *MockDraftService) ListDrafts(ctx context.Context, ownerID string) ([]*models.Draft, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Draft), args.Error(1)
}

func (m *MockDraftService) DeleteDraft(ctx context.Context, ownerID, draftID string) error {
	args := m.Called(ctx, ownerID, draftID)
	return args.Error(0)
}

type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) Name() string {
	return m.Called().String(0)
}

func (m *MockProvider) AuthURL(state string) string {
	return m.Called(state).String(0)
}

func (m *MockProvider) Exchange(ctx context.Context, code string) (*models.ProviderProfile, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ProviderProfile), args.Error(1)
}

type MockHealthChecker struct {
	mock.Mock
}

func (m *MockHealthChecker) HealthCheck(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockHealthChecker) CountTables(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

type MockRealtimeServer struct {
	mock.Mock
}

func (m *MockRealtimeServer) ServeWS(w http.ResponseWriter, r *http.Request, userID string) {
	m.Called(w, r, userID)
}
