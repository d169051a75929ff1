package services

import (
	"context"
	"sort"
	"strings"

	"github.com/inkpress/apiserver/internal/apperr"
	"github.com/inkpress/apiserver/types"
)

// AdminService serves the moderation dashboard. Every operation checks the
// admin role on the caller's own user record, never on a token claim.
type AdminService struct {
	users    UserRepository
	posts    PostRepository
	comments CommentRepository
}

func NewAdminService(users UserRepository, posts PostRepository, comments CommentRepository) *AdminService {
	return &AdminService{users: users, posts: posts, comments: comments}
}

func (s *AdminService) requireAdmin(ctx context.Context, callerID string) error {
	caller, err := loadCaller(ctx, s.users, callerID)
	if err != nil {
		return err
	}
	if !caller.IsAdmin() {
		return apperr.Authorization("admin access required")
	}
	return nil
}

// Stats counts records across all three key ranges.
func (s *AdminService) Stats(ctx context.Context, callerID string) (types.Stats, error) {
	if err := s.requireAdmin(ctx, callerID); err != nil {
		return types.Stats{}, err
	}

	users, err := s.users.List(ctx)
	if err != nil {
		return types.Stats{}, apperr.Storage(err)
	}
	posts, err := s.posts.List(ctx)
	if err != nil {
		return types.Stats{}, apperr.Storage(err)
	}
	comments, err := s.comments.List(ctx)
	if err != nil {
		return types.Stats{}, apperr.Storage(err)
	}

	stats := types.Stats{
		TotalUsers:    len(users),
		TotalPosts:    len(posts),
		TotalComments: len(comments),
	}
	for _, user := range users {
		if user.IsAdmin() {
			stats.AdminUsers++
		}
	}
	for _, post := range posts {
		if post.IsPublished() {
			stats.PublishedPosts++
		} else {
			stats.DraftPosts++
		}
		if post.Featured {
			stats.FeaturedPosts++
		}
		stats.TotalLikes += post.Likes
	}
	return stats, nil
}

// Users returns every user, newest first.
func (s *AdminService) Users(ctx context.Context, callerID string) ([]types.User, error) {
	if err := s.requireAdmin(ctx, callerID); err != nil {
		return nil, err
	}
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, apperr.Storage(err)
	}
	sort.SliceStable(users, func(i, j int) bool {
		if !users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].CreatedAt.After(users[j].CreatedAt)
		}
		return users[i].ID < users[j].ID
	})
	return users, nil
}

// Comments returns every comment across all posts, newest first.
func (s *AdminService) Comments(ctx context.Context, callerID string) ([]types.Comment, error) {
	if err := s.requireAdmin(ctx, callerID); err != nil {
		return nil, err
	}
	comments, err := s.comments.List(ctx)
	if err != nil {
		return nil, apperr.Storage(err)
	}
	sortComments(comments, true)
	return comments, nil
}

// ChangeRole sets the target user's role. The read-modify-write is not
// protected against a concurrent profile update.
func (s *AdminService) ChangeRole(ctx context.Context, callerID, userID, role string) (types.User, error) {
	if err := s.requireAdmin(ctx, callerID); err != nil {
		return types.User{}, err
	}
	role = strings.TrimSpace(role)
	if !types.ValidRole(role) {
		return types.User{}, apperr.Validation("role must be user or admin")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return types.User{}, lookupError(err, "user")
	}
	user.Role = role

	updated, err := s.users.Update(ctx, user)
	if err != nil {
		return types.User{}, lookupError(err, "user")
	}
	return updated, nil
}
