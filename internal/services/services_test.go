package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/inkpress/apiserver/internal/apperr"
	"github.com/inkpress/apiserver/internal/identity"
	"github.com/inkpress/apiserver/internal/kv"
	"github.com/inkpress/apiserver/internal/store"
	"github.com/inkpress/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

// Now advances one second per call so creation order is unambiguous.
func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *recordingPublisher) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, attrs[eventTypeAttribute])
	return "id", nil
}

type fixture struct {
	kv        *kv.MemoryStore
	userRepo  *store.UserRepository
	postRepo  *store.PostRepository
	users     *UserService
	posts     *PostService
	comments  *CommentService
	admin     *AdminService
	published *recordingPublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	memory := kv.NewMemoryStore()
	userRepo := store.NewUserRepository(memory)
	postRepo := store.NewPostRepository(memory)
	commentRepo := store.NewCommentRepository(memory)
	publisher := &recordingPublisher{}
	events := NewEvents(publisher, "content-events")
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}

	f := &fixture{
		kv:        memory,
		userRepo:  userRepo,
		postRepo:  postRepo,
		users:     NewUserService(userRepo, identity.NewLocalProvider(memory, "test-secret", time.Hour)),
		posts:     NewPostService(postRepo, userRepo, events),
		comments:  NewCommentService(commentRepo, userRepo, events),
		admin:     NewAdminService(userRepo, postRepo, commentRepo),
		published: publisher,
	}
	f.users.now = clock.Now
	f.posts.now = clock.Now
	f.comments.now = clock.Now
	return f
}

func (f *fixture) signup(t *testing.T, username string) string {
	t.Helper()
	id, err := f.users.Signup(context.Background(), SignupInput{
		Email:    username + "@example.com",
		Password: "hunter22",
		Username: username,
	})
	require.NoError(t, err)
	return id
}

func (f *fixture) promote(t *testing.T, id string) {
	t.Helper()
	user, err := f.userRepo.GetByID(context.Background(), id)
	require.NoError(t, err)
	user.Role = types.RoleAdmin
	_, err = f.userRepo.Update(context.Background(), user)
	require.NoError(t, err)
}

func (f *fixture) createPost(t *testing.T, callerID string, in PostInput) types.Post {
	t.Helper()
	post, err := f.posts.Create(context.Background(), callerID, in)
	require.NoError(t, err)
	return post
}

func assertKind(t *testing.T, err error, kind apperr.Kind) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, kind, apperr.KindOf(err), err.Error())
}

func strPtr(s string) *string { return &s }

func boolPtr(b bool) *bool { return &b }
