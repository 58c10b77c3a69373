package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/lib/pq"
)

type User struct {
	ID             string         `json:"-" db:"id"`
	UserID         string         `json:"userId" db:"user_id"`
	Name           string         `json:"name" db:"name"`
	Provider       string         `json:"provider" db:"provider"`
	ProviderID     *string        `json:"-" db:"provider_id"`
	Email          string         `json:"email,omitempty" db:"email"`
	Image          string         `json:"image,omitempty" db:"image"`
	Bio            string         `json:"bio,omitempty" db:"bio"`
	BannerImage    string         `json:"bannerImage,omitempty" db:"banner_image"`
	OAuthCompleted bool           `json:"oauthCompleted" db:"oauth_completed"`
	Following      pq.StringArray `json:"following" db:"following"`
	Followers      pq.StringArray `json:"followers" db:"followers"`
	CreatedAt      time.Time      `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time      `json:"updatedAt" db:"updated_at"`
}

func (u *User) IsFollowing(userID string) bool {
	return slices.Contains(u.Following, userID)
}

type ProviderProfile struct {
	Provider          string
	ProviderAccountID string
	Email             string
	Name              string
	Image             string
}

type Session struct {
	ID          string    `db:"id"`
	UserID      string    `db:"user_id"`
	Provider    string    `db:"provider"`
	RefreshHash string    `db:"refresh_hash"`
	ExpiresAt   time.Time `db:"expires_at"`
	CreatedAt   time.Time `db:"created_at"`
}

type Comment struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"authorId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// Comments is stored as a JSONB array on the post row.
type Comments []Comment

func (c Comments) Value() (driver.Value, error) {
	if c == nil {
		return "[]", nil
	}
	b, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (c *Comments) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*c = Comments{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported comments type %T", src)
	}
	return json.Unmarshal(data, c)
}

type Post struct {
	ID                string         `json:"id" db:"id"`
	AuthorID          string         `json:"authorId" db:"author_id"`
	AuthorName        string         `json:"authorName,omitempty" db:"author_name"`
	AuthorImage       string         `json:"authorImage,omitempty" db:"author_image"`
	Content           string         `json:"content" db:"content"`
	Likes             pq.StringArray `json:"likes" db:"likes"`
	Bookmarks         pq.StringArray `json:"bookmarks" db:"bookmarks"`
	Comments          Comments       `json:"comments" db:"comments"`
	RepostCount       int            `json:"repostCount" db:"repost_count"`
	RepostOf          *string        `json:"repostOf,omitempty" db:"repost_of"`
	OriginalAuthorID  *string        `json:"originalAuthorId,omitempty" db:"original_author_id"`
	OriginalContent   *string        `json:"originalContent,omitempty" db:"original_content"`
	OriginalCreatedAt *time.Time     `json:"originalCreatedAt,omitempty" db:"original_created_at"`
	CreatedAt         time.Time      `json:"createdAt" db:"created_at"`
	UpdatedAt         *time.Time     `json:"updatedAt,omitempty" db:"updated_at"`
	IsReposted        bool           `json:"isReposted" db:"-"`
}

func (p *Post) LikedBy(userID string) bool {
	return slices.Contains(p.Likes, userID)
}

func (p *Post) BookmarkedBy(userID string) bool {
	return slices.Contains(p.Bookmarks, userID)
}

func (p *Post) IsRepost() bool {
	return p.RepostOf != nil
}

type Message struct {
	ID         string    `json:"id" db:"id"`
	SenderID   string    `json:"senderId" db:"sender_id"`
	ReceiverID string    `json:"receiverId" db:"receiver_id"`
	Content    string    `json:"content" db:"content"`
	Read       bool      `json:"read" db:"read"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`
}

// Conversation is one row of the inbox: the latest message exchanged with a
// counterpart and how many of their messages are still unread.
type Conversation struct {
	CounterpartID string  `json:"counterpartId"`
	Name          string  `json:"name,omitempty"`
	Image         string  `json:"image,omitempty"`
	LastMessage   Message `json:"lastMessage"`
	UnreadCount   int     `json:"unreadCount"`
}

type Draft struct {
	ID        string    `json:"id" db:"id"`
	OwnerID   string    `json:"ownerId" db:"owner_id"`
	Content   string    `json:"content" db:"content"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

type RegisterRequest struct {
	UserID   string `json:"userId" validate:"required,appuserid"`
	Name     string `json:"name" validate:"required,notblank,max=50"`
	Provider string `json:"provider" validate:"required"`
}

type UpdateProfileRequest struct {
	Name        *string `json:"name" validate:"omitempty,notblank,max=50"`
	Bio         *string `json:"bio" validate:"omitempty,max=160"`
	Image       *string `json:"image" validate:"omitempty,url"`
	BannerImage *string `json:"bannerImage" validate:"omitempty,url"`
}

type ContentRequest struct {
	Content string `json:"content"`
}

type SendMessageRequest struct {
	ReceiverID string `json:"receiverId" validate:"required"`
	Content    string `json:"content"`
}

type VerifyUsersRequest struct {
	UserIDs []string `json:"userIds" validate:"required,max=100"`
}
