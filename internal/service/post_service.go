package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"microsocial/internal/apperror"
	"microsocial/internal/models"
	"microsocial/internal/realtime"
	"microsocial/internal/repository"
)

const (
	FilterAll       = "all"
	FilterFollowing = "following"
)

type LikeResult struct {
	PostID string `json:"postId"`
	Liked  bool   `json:"liked"`
	Likes  int    `json:"likes"`
}

type BookmarkResult struct {
	PostID     string `json:"postId"`
	Bookmarked bool   `json:"bookmarked"`
	Bookmarks  int    `json:"bookmarks"`
}

type RepostResult struct {
	PostID      string       `json:"postId"`
	Reposted    bool         `json:"reposted"`
	RepostCount int          `json:"repostCount"`
	Repost      *models.Post `json:"repost,omitempty"`
}

type PostService interface {
	CreatePost(ctx context.Context, authorID, content string) (*models.Post, error)
	GetPost(ctx context.Context, callerID, postID string) (*models.Post, error)
	ListPosts(ctx context.Context, callerID, filter string) ([]*models.Post, error)
	ListUserPosts(ctx context.Context, callerID, authorID string) ([]*models.Post, error)
	ListBookmarks(ctx context.Context, callerID string) ([]*models.Post, error)
	UpdatePost(ctx context.Context, callerID, postID, content string) (*models.Post, error)
	DeletePost(ctx context.Context, callerID, postID string) error
	ToggleLike(ctx context.Context, userID, postID string) (*LikeResult, error)
	ToggleBookmark(ctx context.Context, userID, postID string) (*BookmarkResult, error)
	ToggleRepost(ctx context.Context, userID, postID string) (*RepostResult, error)
	AddComment(ctx context.Context, userID, postID, content string) (models.Comments, error)
}

type postService struct {
	postRepo repository.PostRepository
	userRepo repository.UserRepository
	notifier realtime.Notifier
	log      *zap.Logger
}

func NewPostService(postRepo repository.PostRepository, userRepo repository.UserRepository, notifier realtime.Notifier, log *zap.Logger) PostService {
	return &postService{
		postRepo: postRepo,
		userRepo: userRepo,
		notifier: notifier,
		log:      log,
	}
}

func (p *postService) CreatePost(ctx context.Context, authorID, content string) (*models.Post, error) {
	content, err := normalizeContent(content)
	if err != nil {
		return nil, err
	}
	if err := requireAccount(ctx, p.userRepo, authorID); err != nil {
		return nil, err
	}

	post := &models.Post{
		AuthorID: authorID,
		Content:  content,
	}
	if err := p.postRepo.Create(ctx, post); err != nil {
		return nil, err
	}

	p.notifier.Notify(ctx, realtime.ChannelPosts, realtime.EventNewPost, post)
	return post, nil
}

func (p *postService) GetPost(ctx context.Context, callerID, postID string) (*models.Post, error) {
	post, err := p.postRepo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}

	posts, err := p.markReposted(ctx, callerID, []*models.Post{post})
	if err != nil {
		return nil, err
	}
	return posts[0], nil
}

func (p *postService) ListPosts(ctx context.Context, callerID, filter string) ([]*models.Post, error) {
	var authors []string

	switch filter {
	case "", FilterAll:
	case FilterFollowing:
		caller, err := p.userRepo.GetByUserID(ctx, callerID)
		if err != nil {
			return nil, err
		}
		if len(caller.Following) == 0 {
			return []*models.Post{}, nil
		}
		authors = caller.Following
	default:
		return nil, apperror.ValidationFailed("filter", "filter must be all or following")
	}

	posts, err := p.postRepo.List(ctx, authors, feedLimit)
	if err != nil {
		return nil, err
	}
	return p.markReposted(ctx, callerID, posts)
}

func (p *postService) ListUserPosts(ctx context.Context, callerID, authorID string) ([]*models.Post, error) {
	posts, err := p.postRepo.List(ctx, []string{authorID}, feedLimit)
	if err != nil {
		return nil, err
	}
	return p.markReposted(ctx, callerID, posts)
}

func (p *postService) ListBookmarks(ctx context.Context, callerID string) ([]*models.Post, error) {
	posts, err := p.postRepo.ListBookmarked(ctx, callerID, feedLimit)
	if err != nil {
		return nil, err
	}
	return p.markReposted(ctx, callerID, posts)
}

func (p *postService) markReposted(ctx context.Context, callerID string, posts []*models.Post) ([]*models.Post, error) {
	ids := make([]string, 0, len(posts))
	for _, post := range posts {
		if !post.IsRepost() {
			ids = append(ids, post.ID)
		}
	}

	reposted, err := p.postRepo.RepostedOriginals(ctx, callerID, ids)
	if err != nil {
		return nil, err
	}

	set := make(map[string]struct{}, len(reposted))
	for _, id := range reposted {
		set[id] = struct{}{}
	}
	for _, post := range posts {
		_, post.IsReposted = set[post.ID]
	}
	return posts, nil
}

func (p *postService) UpdatePost(ctx context.Context, callerID, postID, content string) (*models.Post, error) {
	post, err := p.authorize(ctx, callerID, postID)
	if err != nil {
		return nil, err
	}
	if post.IsRepost() {
		return nil, apperror.ValidationFailed("postId", "reposts cannot be edited")
	}

	content, err = normalizeContent(content)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if err := p.postRepo.UpdateContent(ctx, postID, content, now); err != nil {
		return nil, err
	}
	post.Content = content
	post.UpdatedAt = &now

	p.notifier.Notify(ctx, realtime.ChannelPosts, realtime.EventUpdatePost, map[string]any{
		"postId":    post.ID,
		"content":   post.Content,
		"updatedAt": now,
	})
	return post, nil
}

// DeletePost removes a post owned by the caller. Deleting an original also
// deletes every repost of it.
func (p *postService) DeletePost(ctx context.Context, callerID, postID string) error {
	post, err := p.authorize(ctx, callerID, postID)
	if err != nil {
		return err
	}

	if err := p.postRepo.Delete(ctx, post.ID); err != nil {
		return err
	}
	p.notifyDeleted(ctx, post.ID)

	if post.IsRepost() {
		if _, err := p.postRepo.AdjustRepostCount(ctx, *post.RepostOf, -1); err != nil && !errors.Is(err, apperror.ErrNotFound) {
			p.log.Warn("failed to release repost count", zap.String("postId", *post.RepostOf), zap.Error(err))
		}
		return nil
	}

	reposts, err := p.postRepo.DeleteRepostsOf(ctx, post.ID)
	if err != nil {
		p.log.Warn("failed to delete reposts", zap.String("postId", post.ID), zap.Error(err))
		return nil
	}
	for _, id := range reposts {
		p.notifyDeleted(ctx, id)
	}
	return nil
}

func (p *postService) authorize(ctx context.Context, callerID, postID string) (*models.Post, error) {
	post, err := p.postRepo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.AuthorID != callerID {
		return nil, apperror.Forbidden("only the author can modify this post")
	}
	return post, nil
}

func (p *postService) notifyDeleted(ctx context.Context, postID string) {
	p.notifier.Notify(ctx, realtime.ChannelPosts, realtime.EventDeletePost, map[string]string{"postId": postID})
}

func (p *postService) ToggleLike(ctx context.Context, userID, postID string) (*LikeResult, error) {
	if err := requireAccount(ctx, p.userRepo, userID); err != nil {
		return nil, err
	}

	post, err := p.postRepo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}

	result := &LikeResult{PostID: post.ID}
	if post.LikedBy(userID) {
		result.Likes, err = p.postRepo.RemoveLike(ctx, post.ID, userID)
	} else {
		result.Likes, err = p.postRepo.AddLike(ctx, post.ID, userID)
		result.Liked = true
	}
	if err != nil {
		return nil, err
	}

	p.notifier.Notify(ctx, realtime.ChannelPosts, realtime.EventUpdateLike, map[string]any{
		"postId": post.ID,
		"userId": userID,
		"liked":  result.Liked,
		"likes":  result.Likes,
	})
	return result, nil
}

func (p *postService) ToggleBookmark(ctx context.Context, userID, postID string) (*BookmarkResult, error) {
	if err := requireAccount(ctx, p.userRepo, userID); err != nil {
		return nil, err
	}

	post, err := p.postRepo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}

	result := &BookmarkResult{PostID: post.ID}
	if post.BookmarkedBy(userID) {
		result.Bookmarks, err = p.postRepo.RemoveBookmark(ctx, post.ID, userID)
	} else {
		result.Bookmarks, err = p.postRepo.AddBookmark(ctx, post.ID, userID)
		result.Bookmarked = true
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ToggleRepost creates the caller's repost of a post or removes the existing
// one. Reposting a repost targets its original.
func (p *postService) ToggleRepost(ctx context.Context, userID, postID string) (*RepostResult, error) {
	if err := requireAccount(ctx, p.userRepo, userID); err != nil {
		return nil, err
	}

	original, err := p.postRepo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if original.IsRepost() {
		if original, err = p.postRepo.GetByID(ctx, *original.RepostOf); err != nil {
			return nil, err
		}
	}

	existing, err := p.postRepo.FindRepost(ctx, userID, original.ID)
	switch {
	case err == nil:
		return p.undoRepost(ctx, original, existing)
	case !errors.Is(err, apperror.ErrNotFound):
		return nil, err
	}

	originalID := original.ID
	repost := &models.Post{
		AuthorID:          userID,
		RepostOf:          &originalID,
		OriginalAuthorID:  &original.AuthorID,
		OriginalContent:   &original.Content,
		OriginalCreatedAt: &original.CreatedAt,
	}
	if err := p.postRepo.Create(ctx, repost); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			// a concurrent toggle created it first
			return &RepostResult{PostID: original.ID, Reposted: true, RepostCount: original.RepostCount}, nil
		}
		return nil, err
	}

	count, err := p.postRepo.AdjustRepostCount(ctx, original.ID, 1)
	if err != nil {
		return nil, err
	}

	p.notifier.Notify(ctx, realtime.ChannelPosts, realtime.EventNewPost, repost)
	return &RepostResult{PostID: original.ID, Reposted: true, RepostCount: count, Repost: repost}, nil
}

func (p *postService) undoRepost(ctx context.Context, original, repost *models.Post) (*RepostResult, error) {
	if err := p.postRepo.Delete(ctx, repost.ID); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return &RepostResult{PostID: original.ID, RepostCount: original.RepostCount}, nil
		}
		return nil, err
	}

	count, err := p.postRepo.AdjustRepostCount(ctx, original.ID, -1)
	if err != nil {
		return nil, err
	}

	p.notifyDeleted(ctx, repost.ID)
	return &RepostResult{PostID: original.ID, RepostCount: count}, nil
}

func (p *postService) AddComment(ctx context.Context, userID, postID, content string) (models.Comments, error) {
	content, err := normalizeContent(content)
	if err != nil {
		return nil, err
	}

	comment := models.Comment{
		ID:        uuid.New().String(),
		AuthorID:  userID,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}

	if _, err := uuid.Parse(postID); err != nil {
		return nil, apperror.NotFound("post", postID)
	}
	if err := requireAccount(ctx, p.userRepo, userID); err != nil {
		return nil, err
	}

	comments, err := p.postRepo.AddComment(ctx, postID, comment)
	if err != nil {
		return nil, err
	}

	p.notifier.Notify(ctx, realtime.ChannelPosts, realtime.EventNewComment, map[string]any{
		"postId":   postID,
		"comment":  comment,
		"comments": len(comments),
	})
	return comments, nil
}
