package service

import (
	"context"
	"fmt"
	"io"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"microsocial/internal/apperror"
	"microsocial/internal/models"
	"microsocial/internal/realtime"
	"microsocial/internal/repository"
)

// memStore backs every fake repository with plain maps guarded by one mutex.
type memStore struct {
	mu       sync.Mutex
	clock    time.Time
	users    []*models.User
	sessions map[string]*models.Session
	posts    map[string]*models.Post
	messages []*models.Message
	drafts   map[string]*models.Draft
}

func newMemStore() *memStore {
	return &memStore{
		clock:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		sessions: map[string]*models.Session{},
		posts:    map[string]*models.Post{},
		drafts:   map[string]*models.Draft{},
	}
}

// tick hands out strictly increasing timestamps so ordering is deterministic.
func (s *memStore) tick() time.Time {
	s.clock = s.clock.Add(time.Second)
	return s.clock
}

func (s *memStore) repository() *repository.Repository {
	return &repository.Repository{
		User:    &fakeUserRepo{s},
		Session: &fakeSessionRepo{s},
		Post:    &fakePostRepo{s},
		Message: &fakeMessageRepo{s},
		Draft:   &fakeDraftRepo{s},
	}
}

// addUser inserts a completed user directly.
func (s *memStore) addUser(userID, provider string) *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()

	accountID := userID + "-account"
	u := &models.User{
		ID:             uuid.New().String(),
		UserID:         userID,
		Name:           userID,
		Provider:       provider,
		ProviderID:     &accountID,
		OAuthCompleted: true,
		Following:      pq.StringArray{},
		Followers:      pq.StringArray{},
		CreatedAt:      s.tick(),
	}
	s.users = append(s.users, u)
	return u
}

func (s *memStore) user(userID string) *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.UserID == userID && u.OAuthCompleted {
			return u
		}
	}
	return nil
}

type fakeUserRepo struct{ s *memStore }

func copyUser(u *models.User) *models.User {
	c := *u
	c.Following = slices.Clone(u.Following)
	c.Followers = slices.Clone(u.Followers)
	return &c
}

func (r *fakeUserRepo) find(match func(u *models.User) bool) *models.User {
	for _, u := range r.s.users {
		if match(u) {
			return u
		}
	}
	return nil
}

func (r *fakeUserRepo) conflicts(candidate *models.User, skipID string) bool {
	for _, u := range r.s.users {
		if u.ID == skipID {
			continue
		}
		if u.UserID == candidate.UserID && u.Provider == candidate.Provider {
			return true
		}
		if candidate.OAuthCompleted && u.OAuthCompleted && u.UserID == candidate.UserID {
			return true
		}
		if candidate.ProviderID != nil && u.ProviderID != nil &&
			u.Provider == candidate.Provider && *u.ProviderID == *candidate.ProviderID {
			return true
		}
	}
	return false
}

func (r *fakeUserRepo) Create(_ context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if r.conflicts(user, "") {
		return apperror.Conflict(fmt.Sprintf("user id %s is already taken", user.UserID))
	}
	user.CreatedAt = r.s.tick()
	if user.Following == nil {
		user.Following = pq.StringArray{}
	}
	if user.Followers == nil {
		user.Followers = pq.StringArray{}
	}
	r.s.users = append(r.s.users, copyUser(user))
	return nil
}

func (r *fakeUserRepo) lookup(what string, match func(u *models.User) bool) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if u := r.find(match); u != nil {
		return copyUser(u), nil
	}
	return nil, apperror.NotFound("user", what)
}

func (r *fakeUserRepo) GetByUserID(_ context.Context, userID string) (*models.User, error) {
	return r.lookup(userID, func(u *models.User) bool { return u.UserID == userID && u.OAuthCompleted })
}

func (r *fakeUserRepo) GetByUserIDAndProvider(_ context.Context, userID, provider string) (*models.User, error) {
	return r.lookup(userID, func(u *models.User) bool { return u.UserID == userID && u.Provider == provider })
}

func (r *fakeUserRepo) GetByProviderAccount(_ context.Context, provider, providerID string) (*models.User, error) {
	return r.lookup(providerID, func(u *models.User) bool {
		return u.OAuthCompleted && u.Provider == provider && u.ProviderID != nil && *u.ProviderID == providerID
	})
}

func (r *fakeUserRepo) GetLatestPending(_ context.Context, provider string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var latest *models.User
	for _, u := range r.s.users {
		if u.Provider == provider && !u.OAuthCompleted && (latest == nil || u.CreatedAt.After(latest.CreatedAt)) {
			latest = u
		}
	}
	if latest == nil {
		return nil, apperror.NotFound("user", "pending:"+provider)
	}
	return copyUser(latest), nil
}

func (r *fakeUserRepo) filter(match func(u *models.User) bool) []*models.User {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := []*models.User{}
	for _, u := range r.s.users {
		if match(u) {
			out = append(out, copyUser(u))
		}
	}
	return out
}

func (r *fakeUserRepo) ListByUserID(_ context.Context, userID string) ([]*models.User, error) {
	return r.filter(func(u *models.User) bool { return u.UserID == userID }), nil
}

func (r *fakeUserRepo) ListByEmail(_ context.Context, email string) ([]*models.User, error) {
	return r.filter(func(u *models.User) bool { return u.OAuthCompleted && u.Email == email }), nil
}

func (r *fakeUserRepo) List(_ context.Context, limit int) ([]*models.User, error) {
	users := r.filter(func(u *models.User) bool { return u.OAuthCompleted })
	slices.Reverse(users)
	if len(users) > limit {
		users = users[:limit]
	}
	return users, nil
}

func (r *fakeUserRepo) ExistingUserIDs(_ context.Context, userIDs []string) ([]string, error) {
	out := []string{}
	for _, u := range r.filter(func(u *models.User) bool { return u.OAuthCompleted }) {
		if slices.Contains(userIDs, u.UserID) {
			out = append(out, u.UserID)
		}
	}
	return out, nil
}

func (r *fakeUserRepo) CompletePending(_ context.Context, id, userID string, profile models.ProviderProfile) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u := r.find(func(u *models.User) bool { return u.ID == id && !u.OAuthCompleted })
	if u == nil {
		return apperror.NotFound("pending user", id)
	}

	accountID := profile.ProviderAccountID
	candidate := *u
	candidate.UserID = userID
	candidate.ProviderID = &accountID
	candidate.OAuthCompleted = true
	if r.conflicts(&candidate, u.ID) {
		return apperror.Conflict(fmt.Sprintf("user id %s is already taken", userID))
	}

	u.UserID = userID
	u.ProviderID = &accountID
	u.Email = profile.Email
	if u.Image == "" {
		u.Image = profile.Image
	}
	u.OAuthCompleted = true
	return nil
}

func (r *fakeUserRepo) UpdateProfile(_ context.Context, userID string, req models.UpdateProfileRequest) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u := r.find(func(u *models.User) bool { return u.UserID == userID && u.OAuthCompleted })
	if u == nil {
		return nil, apperror.NotFound("user", userID)
	}
	if req.Name != nil {
		u.Name = *req.Name
	}
	if req.Bio != nil {
		u.Bio = *req.Bio
	}
	if req.Image != nil {
		u.Image = *req.Image
	}
	if req.BannerImage != nil {
		u.BannerImage = *req.BannerImage
	}
	return copyUser(u), nil
}

func (r *fakeUserRepo) mutate(userID string, fn func(u *models.User)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if u := r.find(func(u *models.User) bool { return u.UserID == userID && u.OAuthCompleted }); u != nil {
		fn(u)
	}
	return nil
}

func addIfAbsent(set pq.StringArray, v string) pq.StringArray {
	if slices.Contains(set, v) {
		return set
	}
	return append(set, v)
}

func remove(set pq.StringArray, v string) pq.StringArray {
	return slices.DeleteFunc(set, func(s string) bool { return s == v })
}

func (r *fakeUserRepo) AddFollowing(_ context.Context, userID, targetID string) error {
	return r.mutate(userID, func(u *models.User) { u.Following = addIfAbsent(u.Following, targetID) })
}

func (r *fakeUserRepo) RemoveFollowing(_ context.Context, userID, targetID string) error {
	return r.mutate(userID, func(u *models.User) { u.Following = remove(u.Following, targetID) })
}

func (r *fakeUserRepo) AddFollower(_ context.Context, userID, followerID string) error {
	return r.mutate(userID, func(u *models.User) { u.Followers = addIfAbsent(u.Followers, followerID) })
}

func (r *fakeUserRepo) RemoveFollower(_ context.Context, userID, followerID string) error {
	return r.mutate(userID, func(u *models.User) { u.Followers = remove(u.Followers, followerID) })
}

func (r *fakeUserRepo) RemoveFromFollowSets(_ context.Context, userID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		u.Following = remove(u.Following, userID)
		u.Followers = remove(u.Followers, userID)
	}
	return nil
}

func (r *fakeUserRepo) Delete(_ context.Context, userID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	before := len(r.s.users)
	r.s.users = slices.DeleteFunc(r.s.users, func(u *models.User) bool {
		return u.UserID == userID && u.OAuthCompleted
	})
	if len(r.s.users) == before {
		return apperror.NotFound("user", userID)
	}
	return nil
}

type fakeSessionRepo struct{ s *memStore }

func (r *fakeSessionRepo) Create(_ context.Context, session *models.Session) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c := *session
	r.s.sessions[session.ID] = &c
	return nil
}

func (r *fakeSessionRepo) GetByID(_ context.Context, id string) (*models.Session, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	session, ok := r.s.sessions[id]
	if !ok {
		return nil, apperror.NotFound("session", id)
	}
	c := *session
	return &c, nil
}

func (r *fakeSessionRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.sessions, id)
	return nil
}

func (r *fakeSessionRepo) DeleteByUserID(_ context.Context, userID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, session := range r.s.sessions {
		if session.UserID == userID {
			delete(r.s.sessions, id)
		}
	}
	return nil
}

type fakePostRepo struct{ s *memStore }

func copyPost(p *models.Post) *models.Post {
	c := *p
	c.Likes = slices.Clone(p.Likes)
	c.Bookmarks = slices.Clone(p.Bookmarks)
	c.Comments = slices.Clone(p.Comments)
	return &c
}

func (r *fakePostRepo) Create(_ context.Context, post *models.Post) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if post.RepostOf != nil {
		for _, p := range r.s.posts {
			if p.AuthorID == post.AuthorID && p.RepostOf != nil && *p.RepostOf == *post.RepostOf {
				return apperror.Conflict("post already reposted")
			}
		}
	}

	if post.ID == "" {
		post.ID = uuid.New().String()
	}
	post.CreatedAt = r.s.tick()
	if post.Likes == nil {
		post.Likes = pq.StringArray{}
	}
	if post.Bookmarks == nil {
		post.Bookmarks = pq.StringArray{}
	}
	if post.Comments == nil {
		post.Comments = models.Comments{}
	}
	r.s.posts[post.ID] = copyPost(post)
	return nil
}

func (r *fakePostRepo) GetByID(_ context.Context, postID string) (*models.Post, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.posts[postID]
	if !ok {
		return nil, apperror.NotFound("post", postID)
	}
	return copyPost(p), nil
}

func (r *fakePostRepo) sorted(match func(p *models.Post) bool, limit int) []*models.Post {
	out := []*models.Post{}
	for _, p := range r.s.posts {
		if match(p) {
			out = append(out, copyPost(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (r *fakePostRepo) List(_ context.Context, authorIDs []string, limit int) ([]*models.Post, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.sorted(func(p *models.Post) bool {
		return authorIDs == nil || slices.Contains(authorIDs, p.AuthorID)
	}, limit), nil
}

func (r *fakePostRepo) ListBookmarked(_ context.Context, userID string, limit int) ([]*models.Post, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.sorted(func(p *models.Post) bool { return slices.Contains(p.Bookmarks, userID) }, limit), nil
}

func (r *fakePostRepo) UpdateContent(_ context.Context, postID, content string, updatedAt time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.posts[postID]
	if !ok {
		return apperror.NotFound("post", postID)
	}
	p.Content = content
	p.UpdatedAt = &updatedAt
	return nil
}

func (r *fakePostRepo) Delete(_ context.Context, postID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.posts[postID]; !ok {
		return apperror.NotFound("post", postID)
	}
	delete(r.s.posts, postID)
	return nil
}

func (r *fakePostRepo) DeleteByAuthor(_ context.Context, authorID string) ([]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	owned := map[string]bool{}
	for id, p := range r.s.posts {
		if p.AuthorID != authorID {
			continue
		}
		owned[id] = true
		if p.RepostOf != nil {
			if original, ok := r.s.posts[*p.RepostOf]; ok && original.RepostCount > 0 {
				original.RepostCount--
			}
		}
	}

	ids := []string{}
	for id, p := range r.s.posts {
		if owned[id] || (p.RepostOf != nil && owned[*p.RepostOf]) {
			ids = append(ids, id)
		}
	}
	for _, id := range ids {
		delete(r.s.posts, id)
	}
	return ids, nil
}

func (r *fakePostRepo) updateSet(postID string, fn func(p *models.Post) int) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.posts[postID]
	if !ok {
		return 0, apperror.NotFound("post", postID)
	}
	return fn(p), nil
}

func (r *fakePostRepo) AddLike(_ context.Context, postID, userID string) (int, error) {
	return r.updateSet(postID, func(p *models.Post) int {
		p.Likes = addIfAbsent(p.Likes, userID)
		return len(p.Likes)
	})
}

func (r *fakePostRepo) RemoveLike(_ context.Context, postID, userID string) (int, error) {
	return r.updateSet(postID, func(p *models.Post) int {
		p.Likes = remove(p.Likes, userID)
		return len(p.Likes)
	})
}

func (r *fakePostRepo) AddBookmark(_ context.Context, postID, userID string) (int, error) {
	return r.updateSet(postID, func(p *models.Post) int {
		p.Bookmarks = addIfAbsent(p.Bookmarks, userID)
		return len(p.Bookmarks)
	})
}

func (r *fakePostRepo) RemoveBookmark(_ context.Context, postID, userID string) (int, error) {
	return r.updateSet(postID, func(p *models.Post) int {
		p.Bookmarks = remove(p.Bookmarks, userID)
		return len(p.Bookmarks)
	})
}

func (r *fakePostRepo) AddComment(_ context.Context, postID string, comment models.Comment) (models.Comments, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.posts[postID]
	if !ok {
		return nil, apperror.NotFound("post", postID)
	}
	p.Comments = append(p.Comments, comment)
	return slices.Clone(p.Comments), nil
}

func (r *fakePostRepo) FindRepost(_ context.Context, authorID, originalID string) (*models.Post, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.posts {
		if p.AuthorID == authorID && p.RepostOf != nil && *p.RepostOf == originalID {
			return copyPost(p), nil
		}
	}
	return nil, apperror.NotFound("repost", originalID)
}

func (r *fakePostRepo) AdjustRepostCount(_ context.Context, postID string, delta int) (int, error) {
	return r.updateSet(postID, func(p *models.Post) int {
		p.RepostCount = max(p.RepostCount+delta, 0)
		return p.RepostCount
	})
}

func (r *fakePostRepo) DeleteRepostsOf(_ context.Context, originalID string) ([]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ids := []string{}
	for id, p := range r.s.posts {
		if p.RepostOf != nil && *p.RepostOf == originalID {
			ids = append(ids, id)
			delete(r.s.posts, id)
		}
	}
	return ids, nil
}

func (r *fakePostRepo) RepostedOriginals(_ context.Context, userID string, originalIDs []string) ([]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ids := []string{}
	for _, p := range r.s.posts {
		if p.AuthorID == userID && p.RepostOf != nil && slices.Contains(originalIDs, *p.RepostOf) {
			ids = append(ids, *p.RepostOf)
		}
	}
	return ids, nil
}

type fakeMessageRepo struct{ s *memStore }

func (r *fakeMessageRepo) Create(_ context.Context, msg *models.Message) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	msg.CreatedAt = r.s.tick()
	c := *msg
	r.s.messages = append(r.s.messages, &c)
	return nil
}

func (r *fakeMessageRepo) ListInvolving(_ context.Context, userID string) ([]*models.Message, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*models.Message{}
	for i := len(r.s.messages) - 1; i >= 0; i-- {
		m := r.s.messages[i]
		if m.SenderID == userID || m.ReceiverID == userID {
			c := *m
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r *fakeMessageRepo) ListBetween(_ context.Context, userID, counterpartID string) ([]*models.Message, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*models.Message{}
	for _, m := range r.s.messages {
		if (m.SenderID == userID && m.ReceiverID == counterpartID) ||
			(m.SenderID == counterpartID && m.ReceiverID == userID) {
			c := *m
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r *fakeMessageRepo) MarkRead(_ context.Context, senderID, receiverID string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, m := range r.s.messages {
		if m.SenderID == senderID && m.ReceiverID == receiverID && !m.Read {
			m.Read = true
			n++
		}
	}
	return n, nil
}

func (r *fakeMessageRepo) DeleteByUser(_ context.Context, userID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.messages = slices.DeleteFunc(r.s.messages, func(m *models.Message) bool {
		return m.SenderID == userID || m.ReceiverID == userID
	})
	return nil
}

type fakeDraftRepo struct{ s *memStore }

func (r *fakeDraftRepo) Create(_ context.Context, draft *models.Draft) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if draft.ID == "" {
		draft.ID = uuid.New().String()
	}
	draft.CreatedAt = r.s.tick()
	c := *draft
	r.s.drafts[draft.ID] = &c
	return nil
}

func (r *fakeDraftRepo) ListByOwner(_ context.Context, ownerID string, limit int) ([]*models.Draft, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*models.Draft{}
	for _, d := range r.s.drafts {
		if d.OwnerID == ownerID {
			c := *d
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeDraftRepo) Delete(_ context.Context, draftID, ownerID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.drafts[draftID]
	if !ok || d.OwnerID != ownerID {
		return apperror.NotFound("draft", draftID)
	}
	delete(r.s.drafts, draftID)
	return nil
}

func (r *fakeDraftRepo) DeleteByOwner(_ context.Context, ownerID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, d := range r.s.drafts {
		if d.OwnerID == ownerID {
			delete(r.s.drafts, id)
		}
	}
	return nil
}

// recordingNotifier keeps every event it was asked to deliver.
type recordingNotifier struct {
	mu     sync.Mutex
	events []realtime.Event
}

func (n *recordingNotifier) Notify(_ context.Context, channel, event string, data any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, realtime.Event{Channel: channel, Name: event, Data: data})
}

func (n *recordingNotifier) names() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.events))
	for _, ev := range n.events {
		out = append(out, ev.Name)
	}
	return out
}

type fakeStorage struct {
	uploaded []string
	deleted  []string
	err      error
}

func (f *fakeStorage) UploadImage(_ context.Context, userID, kind, fileName, _ string, file io.Reader, _ int64) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if _, err := io.ReadAll(file); err != nil {
		return "", err
	}
	url := fmt.Sprintf("http://files.test/images/%s/%s/%d-%s", userID, kind, len(f.uploaded), fileName)
	f.uploaded = append(f.uploaded, url)
	return url, nil
}

func (f *fakeStorage) DeleteImage(_ context.Context, imageURL string) error {
	f.deleted = append(f.deleted, imageURL)
	return nil
}

func nopLogger() *zap.Logger {
	return zap.NewNop()
}
