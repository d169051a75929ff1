package services

import (
	"context"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/inkpress/apiserver/internal/apperr"
	"github.com/inkpress/apiserver/types"
)

// PostRepository defines persistence operations for posts.
type PostRepository interface {
	List(ctx context.Context) ([]types.Post, error)
	Get(ctx context.Context, id string) (types.Post, error)
	Create(ctx context.Context, post types.Post) (types.Post, error)
	Update(ctx context.Context, post types.Post) (types.Post, error)
	Delete(ctx context.Context, id string) error
}

// PostInput carries the client-controlled fields of a new post. Author
// fields are always taken from the caller.
type PostInput struct {
	Title      string   `json:"title"`
	Content    string   `json:"content"`
	Excerpt    string   `json:"excerpt"`
	Image      string   `json:"image"`
	Tags       []string `json:"tags"`
	Categories []string `json:"categories"`
	Status     string   `json:"status"`
	Featured   bool     `json:"featured"`
}

// PostPatch carries the fields an update may change. Nil fields are left
// untouched.
type PostPatch struct {
	Title      *string   `json:"title"`
	Content    *string   `json:"content"`
	Excerpt    *string   `json:"excerpt"`
	Image      *string   `json:"image"`
	Tags       *[]string `json:"tags"`
	Categories *[]string `json:"categories"`
	Status     *string   `json:"status"`
	Featured   *bool     `json:"featured"`
}

// PostService encapsulates post use-cases. Every listing is computed from a
// full scan of the post key range.
type PostService struct {
	posts  PostRepository
	users  UserRepository
	events *Events
	now    func() time.Time
}

func NewPostService(posts PostRepository, users UserRepository, events *Events) *PostService {
	return &PostService{posts: posts, users: users, events: events, now: time.Now}
}

// List returns posts matching filter, newest first. Anonymous callers only
// see published posts; any authenticated caller sees every status.
func (s *PostService) List(ctx context.Context, callerID string, filter types.PostFilter) ([]types.Post, error) {
	posts, err := s.posts.List(ctx)
	if err != nil {
		return nil, apperr.Storage(err)
	}

	search := strings.ToLower(strings.TrimSpace(filter.Search))
	result := make([]types.Post, 0, len(posts))
	for _, post := range posts {
		if callerID == "" && !post.IsPublished() {
			continue
		}
		if filter.Category != "" && !slices.Contains(post.Categories, filter.Category) {
			continue
		}
		if filter.Tag != "" && !slices.Contains(post.Tags, filter.Tag) {
			continue
		}
		if search != "" && !matchesSearch(post, search) {
			continue
		}
		if filter.Featured != nil && post.Featured != *filter.Featured {
			continue
		}
		result = append(result, post)
	}

	sort.SliceStable(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})
	return result, nil
}

func (s *PostService) Get(ctx context.Context, id string) (types.Post, error) {
	post, err := s.posts.Get(ctx, id)
	if err != nil {
		return types.Post{}, lookupError(err, "post")
	}
	return post, nil
}

// Create stores a new post authored by the caller. The author name is a
// snapshot of the caller's username and is never refreshed.
func (s *PostService) Create(ctx context.Context, callerID string, in PostInput) (types.Post, error) {
	author, err := loadCaller(ctx, s.users, callerID)
	if err != nil {
		return types.Post{}, err
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		return types.Post{}, apperr.Validation("title is required")
	}
	status := strings.TrimSpace(in.Status)
	if status == "" {
		status = types.PostStatusDraft
	}
	if !types.ValidPostStatus(status) {
		return types.Post{}, apperr.Validation("status must be draft or published")
	}

	now := s.now().UTC()
	id, err := newRecordID(postIDPrefix, now)
	if err != nil {
		return types.Post{}, apperr.Internal(err)
	}

	excerpt := truncateExcerpt(in.Excerpt)
	if excerpt == "" {
		excerpt = excerptFromHTML(in.Content)
	}

	post := types.Post{
		ID:         id,
		Title:      title,
		Content:    in.Content,
		Excerpt:    excerpt,
		AuthorID:   author.ID,
		AuthorName: author.Username,
		Image:      strings.TrimSpace(in.Image),
		Tags:       normalizeLabels(in.Tags),
		Categories: normalizeLabels(in.Categories),
		Status:     status,
		Featured:   in.Featured,
		Likes:      0,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	created, err := s.posts.Create(ctx, post)
	if err != nil {
		return types.Post{}, apperr.Storage(err)
	}
	s.events.emit(ctx, Event{Type: EventPostCreated, ID: created.ID, ActorID: author.ID, At: now})
	return created, nil
}

// Update merges patch onto the post. Only the author or an admin may update.
// The id, author fields, creation time and like counter never change.
func (s *PostService) Update(ctx context.Context, callerID, id string, patch PostPatch) (types.Post, error) {
	caller, err := loadCaller(ctx, s.users, callerID)
	if err != nil {
		return types.Post{}, err
	}

	post, err := s.posts.Get(ctx, id)
	if err != nil {
		return types.Post{}, lookupError(err, "post")
	}
	if !canModify(caller, post.AuthorID) {
		return types.Post{}, apperr.Authorization("only the author or an admin can update this post")
	}

	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return types.Post{}, apperr.Validation("title cannot be empty")
		}
		post.Title = title
	}
	if patch.Status != nil {
		status := strings.TrimSpace(*patch.Status)
		if !types.ValidPostStatus(status) {
			return types.Post{}, apperr.Validation("status must be draft or published")
		}
		post.Status = status
	}
	if patch.Content != nil {
		post.Content = *patch.Content
		if patch.Excerpt == nil {
			post.Excerpt = excerptFromHTML(post.Content)
		}
	}
	if patch.Excerpt != nil {
		post.Excerpt = truncateExcerpt(*patch.Excerpt)
		if post.Excerpt == "" {
			post.Excerpt = excerptFromHTML(post.Content)
		}
	}
	if patch.Image != nil {
		post.Image = strings.TrimSpace(*patch.Image)
	}
	if patch.Tags != nil {
		post.Tags = normalizeLabels(*patch.Tags)
	}
	if patch.Categories != nil {
		post.Categories = normalizeLabels(*patch.Categories)
	}
	if patch.Featured != nil {
		post.Featured = *patch.Featured
	}
	post.UpdatedAt = s.now().UTC()

	updated, err := s.posts.Update(ctx, post)
	if err != nil {
		return types.Post{}, lookupError(err, "post")
	}
	s.events.emit(ctx, Event{Type: EventPostUpdated, ID: updated.ID, ActorID: caller.ID, At: updated.UpdatedAt})
	return updated, nil
}

// Delete removes the post. Only the author or an admin may delete. Comments
// on the post are left in place.
func (s *PostService) Delete(ctx context.Context, callerID, id string) error {
	caller, err := loadCaller(ctx, s.users, callerID)
	if err != nil {
		return err
	}

	post, err := s.posts.Get(ctx, id)
	if err != nil {
		return lookupError(err, "post")
	}
	if !canModify(caller, post.AuthorID) {
		return apperr.Authorization("only the author or an admin can delete this post")
	}

	if err := s.posts.Delete(ctx, id); err != nil {
		return lookupError(err, "post")
	}
	s.events.emit(ctx, Event{Type: EventPostDeleted, ID: id, ActorID: caller.ID, At: s.now().UTC()})
	return nil
}

// Like increments the like counter without any ownership check. The
// read-modify-write is not atomic; concurrent likes may be lost.
func (s *PostService) Like(ctx context.Context, id string) (int64, error) {
	post, err := s.posts.Get(ctx, id)
	if err != nil {
		return 0, lookupError(err, "post")
	}
	post.Likes++
	if _, err := s.posts.Update(ctx, post); err != nil {
		return 0, lookupError(err, "post")
	}
	return post.Likes, nil
}

// Categories returns the sorted union of every post's categories.
func (s *PostService) Categories(ctx context.Context) ([]string, error) {
	return s.collectLabels(ctx, func(p types.Post) []string { return p.Categories })
}

// Tags returns the sorted union of every post's tags.
func (s *PostService) Tags(ctx context.Context) ([]string, error) {
	return s.collectLabels(ctx, func(p types.Post) []string { return p.Tags })
}

func (s *PostService) collectLabels(ctx context.Context, labels func(types.Post) []string) ([]string, error) {
	posts, err := s.posts.List(ctx)
	if err != nil {
		return nil, apperr.Storage(err)
	}
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, post := range posts {
		for _, label := range labels(post) {
			if _, ok := seen[label]; ok {
				continue
			}
			seen[label] = struct{}{}
			out = append(out, label)
		}
	}
	sort.Strings(out)
	return out, nil
}

func canModify(caller types.User, ownerID string) bool {
	return caller.ID == ownerID || caller.IsAdmin()
}

func matchesSearch(post types.Post, needle string) bool {
	return strings.Contains(strings.ToLower(post.Title), needle) ||
		strings.Contains(strings.ToLower(post.Content), needle) ||
		strings.Contains(strings.ToLower(post.Excerpt), needle)
}

// normalizeLabels trims labels and drops empties and duplicates, keeping
// first-seen order.
func normalizeLabels(labels []string) []string {
	out := make([]string, 0, len(labels))
	seen := make(map[string]struct{}, len(labels))
	for _, label := range labels {
		label = strings.TrimSpace(label)
		if label == "" {
			continue
		}
		if _, ok := seen[label]; ok {
			continue
		}
		seen[label] = struct{}{}
		out = append(out, label)
	}
	return out
}
