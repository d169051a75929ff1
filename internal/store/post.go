package store

import (
	"context"

	"github.com/inkpress/apiserver/internal/kv"
	"github.com/inkpress/apiserver/types"
)

// PostRepository handles persistence for posts.
type PostRepository struct {
	kv kv.Store
}

func NewPostRepository(store kv.Store) *PostRepository {
	return &PostRepository{kv: store}
}

// List returns every post in key order.
func (r *PostRepository) List(ctx context.Context) ([]types.Post, error) {
	return listRecords[types.Post](ctx, r.kv, PostPrefix)
}

func (r *PostRepository) Get(ctx context.Context, id string) (types.Post, error) {
	return getRecord[types.Post](ctx, r.kv, PostPrefix+id)
}

func (r *PostRepository) Create(ctx context.Context, post types.Post) (types.Post, error) {
	if err := putRecord(ctx, r.kv, PostPrefix+post.ID, post); err != nil {
		return types.Post{}, err
	}
	return post, nil
}

func (r *PostRepository) Update(ctx context.Context, post types.Post) (types.Post, error) {
	if err := exists(ctx, r.kv, PostPrefix+post.ID); err != nil {
		return types.Post{}, err
	}
	if err := putRecord(ctx, r.kv, PostPrefix+post.ID, post); err != nil {
		return types.Post{}, err
	}
	return post, nil
}

func (r *PostRepository) Delete(ctx context.Context, id string) error {
	if err := exists(ctx, r.kv, PostPrefix+id); err != nil {
		return err
	}
	return r.kv.Delete(ctx, PostPrefix+id)
}
