package services

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/inkpress/apiserver/internal/apperr"
	"github.com/inkpress/apiserver/types"
)

// CommentRepository defines persistence operations for comments.
type CommentRepository interface {
	List(ctx context.Context) ([]types.Comment, error)
	ListByPost(ctx context.Context, postID string) ([]types.Comment, error)
	Get(ctx context.Context, id string) (types.Comment, error)
	Create(ctx context.Context, comment types.Comment) (types.Comment, error)
	Update(ctx context.Context, comment types.Comment) (types.Comment, error)
	Delete(ctx context.Context, id string) error
}

// CommentInput carries the client-controlled fields of a new comment.
type CommentInput struct {
	PostID   string  `json:"postId"`
	Content  string  `json:"content"`
	ParentID *string `json:"parentId"`
}

// CommentService encapsulates comment use-cases.
type CommentService struct {
	comments CommentRepository
	users    UserRepository
	events   *Events
	now      func() time.Time
}

func NewCommentService(comments CommentRepository, users UserRepository, events *Events) *CommentService {
	return &CommentService{comments: comments, users: users, events: events, now: time.Now}
}

// ListForPost returns the post's comments oldest first.
func (s *CommentService) ListForPost(ctx context.Context, postID string) ([]types.Comment, error) {
	comments, err := s.comments.ListByPost(ctx, postID)
	if err != nil {
		return nil, apperr.Storage(err)
	}
	sortComments(comments, false)
	return comments, nil
}

// Create stores a comment by the caller. Username and avatar are copied
// from the caller's profile at this moment.
func (s *CommentService) Create(ctx context.Context, callerID string, in CommentInput) (types.Comment, error) {
	author, err := loadCaller(ctx, s.users, callerID)
	if err != nil {
		return types.Comment{}, err
	}

	postID := strings.TrimSpace(in.PostID)
	content := strings.TrimSpace(in.Content)
	if postID == "" || content == "" {
		return types.Comment{}, apperr.Validation("postId and content are required")
	}

	var parentID *string
	if in.ParentID != nil && strings.TrimSpace(*in.ParentID) != "" {
		parent := strings.TrimSpace(*in.ParentID)
		parentID = &parent
	}

	now := s.now().UTC()
	id, err := newRecordID(commentIDPrefix, now)
	if err != nil {
		return types.Comment{}, apperr.Internal(err)
	}

	created, err := s.comments.Create(ctx, types.Comment{
		ID:        id,
		PostID:    postID,
		UserID:    author.ID,
		Username:  author.Username,
		Avatar:    author.Avatar,
		Content:   content,
		ParentID:  parentID,
		Likes:     0,
		CreatedAt: now,
	})
	if err != nil {
		return types.Comment{}, apperr.Storage(err)
	}
	s.events.emit(ctx, Event{Type: EventCommentCreated, ID: created.ID, PostID: postID, ActorID: author.ID, At: now})
	return created, nil
}

// Delete removes a comment. Only its author or an admin may delete it.
// Replies to it are left in place.
func (s *CommentService) Delete(ctx context.Context, callerID, id string) error {
	caller, err := loadCaller(ctx, s.users, callerID)
	if err != nil {
		return err
	}

	comment, err := s.comments.Get(ctx, id)
	if err != nil {
		return lookupError(err, "comment")
	}
	if !canModify(caller, comment.UserID) {
		return apperr.Authorization("only the author or an admin can delete this comment")
	}

	if err := s.comments.Delete(ctx, id); err != nil {
		return lookupError(err, "comment")
	}
	s.events.emit(ctx, Event{Type: EventCommentDeleted, ID: id, PostID: comment.PostID, ActorID: caller.ID, At: s.now().UTC()})
	return nil
}

// Like increments the like counter. Concurrent likes may be lost.
func (s *CommentService) Like(ctx context.Context, id string) (int64, error) {
	comment, err := s.comments.Get(ctx, id)
	if err != nil {
		return 0, lookupError(err, "comment")
	}
	comment.Likes++
	if _, err := s.comments.Update(ctx, comment); err != nil {
		return 0, lookupError(err, "comment")
	}
	return comment.Likes, nil
}

func sortComments(comments []types.Comment, newestFirst bool) {
	sort.SliceStable(comments, func(i, j int) bool {
		a, b := comments[i], comments[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			if newestFirst {
				return a.CreatedAt.After(b.CreatedAt)
			}
			return a.CreatedAt.Before(b.CreatedAt)
		}
		if newestFirst {
			return a.ID > b.ID
		}
		return a.ID < b.ID
	})
}
