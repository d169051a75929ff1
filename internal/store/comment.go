package store

import (
	"context"

	"github.com/inkpress/apiserver/internal/kv"
	"github.com/inkpress/apiserver/types"
)

// CommentRepository handles persistence for comments.
type CommentRepository struct {
	kv kv.Store
}

func NewCommentRepository(store kv.Store) *CommentRepository {
	return &CommentRepository{kv: store}
}

func (r *CommentRepository) List(ctx context.Context) ([]types.Comment, error) {
	return listRecords[types.Comment](ctx, r.kv, CommentPrefix)
}

// ListByPost scans every comment and keeps those attached to postID.
func (r *CommentRepository) ListByPost(ctx context.Context, postID string) ([]types.Comment, error) {
	comments, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	filtered := comments[:0]
	for _, comment := range comments {
		if comment.PostID == postID {
			filtered = append(filtered, comment)
		}
	}
	return filtered, nil
}

func (r *CommentRepository) Get(ctx context.Context, id string) (types.Comment, error) {
	return getRecord[types.Comment](ctx, r.kv, CommentPrefix+id)
}

func (r *CommentRepository) Create(ctx context.Context, comment types.Comment) (types.Comment, error) {
	if err := putRecord(ctx, r.kv, CommentPrefix+comment.ID, comment); err != nil {
		return types.Comment{}, err
	}
	return comment, nil
}

func (r *CommentRepository) Update(ctx context.Context, comment types.Comment) (types.Comment, error) {
	if err := exists(ctx, r.kv, CommentPrefix+comment.ID); err != nil {
		return types.Comment{}, err
	}
	if err := putRecord(ctx, r.kv, CommentPrefix+comment.ID, comment); err != nil {
		return types.Comment{}, err
	}
	return comment, nil
}

func (r *CommentRepository) Delete(ctx context.Context, id string) error {
	if err := exists(ctx, r.kv, CommentPrefix+id); err != nil {
		return err
	}
	return r.kv.Delete(ctx, CommentPrefix+id)
}
