package services

import (
	"context"
	"strings"
	"testing"

	"github.com/inkpress/apiserver/internal/apperr"
	"github.com/inkpress/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreatePostRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ada := f.signup(t, "ada")

	created := f.createPost(t, ada, PostInput{
		Title:   "T",
		Content: "<p>hi</p>",
		Tags:    []string{"x", "y"},
	})
	assert.Regexp(t, `^post_\d+_[a-z0-9]+$`, created.ID)

	fetched, err := f.posts.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "T", fetched.Title)
	assert.Equal(t, "<p>hi</p>", fetched.Content)
	assert.Equal(t, []string{"x", "y"}, fetched.Tags)
	assert.Equal(t, "hi", fetched.Excerpt)
	assert.Equal(t, types.PostStatusDraft, fetched.Status)
	assert.Equal(t, int64(0), fetched.Likes)
	assert.Equal(t, fetched.CreatedAt, fetched.UpdatedAt)
}

func TestCreatePostIgnoresClientAuthor(t *testing.T) {
	f := newFixture(t)
	ada := f.signup(t, "ada")

	var in PostInput
	in.Title = "Mine"
	post := f.createPost(t, ada, in)

	assert.Equal(t, ada, post.AuthorID)
	assert.Equal(t, "ada", post.AuthorName)
}

func TestCreatePostRequiresCaller(t *testing.T) {
	f := newFixture(t)

	_, err := f.posts.Create(context.Background(), "", PostInput{Title: "T"})
	assertKind(t, err, apperr.KindAuthentication)
}

func TestCreatePostValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ada := f.signup(t, "ada")

	_, err := f.posts.Create(ctx, ada, PostInput{Title: " "})
	assertKind(t, err, apperr.KindValidation)

	_, err = f.posts.Create(ctx, ada, PostInput{Title: "T", Status: "archived"})
	assertKind(t, err, apperr.KindValidation)
}

func TestExcerptIsBounded(t *testing.T) {
	f := newFixture(t)
	ada := f.signup(t, "ada")

	body := "<h1>Title</h1><script>alert(1)</script><p>" + strings.Repeat("word ", 100) + "</p>"
	post := f.createPost(t, ada, PostInput{Title: "Long", Content: body})

	assert.LessOrEqual(t, len([]rune(post.Excerpt)), types.MaxExcerptLength)
	assert.True(t, strings.HasPrefix(post.Excerpt, "Title word word"))
	assert.NotContains(t, post.Excerpt, "alert")
}

func TestUpdatePostKeepsStatusValid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ada := f.signup(t, "ada")
	post := f.createPost(t, ada, PostInput{Title: "T"})

	_, err := f.posts.Update(ctx, ada, post.ID, PostPatch{Status: strPtr("pending")})
	assertKind(t, err, apperr.KindValidation)

	unchanged, err := f.posts.Get(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, types.PostStatusDraft, unchanged.Status)

	published, err := f.posts.Update(ctx, ada, post.ID, PostPatch{Status: strPtr(types.PostStatusPublished)})
	require.NoError(t, err)
	assert.Equal(t, types.PostStatusPublished, published.Status)
	assert.True(t, published.UpdatedAt.After(post.UpdatedAt))

	drafted, err := f.posts.Update(ctx, ada, post.ID, PostPatch{Status: strPtr(types.PostStatusDraft)})
	require.NoError(t, err)
	assert.Equal(t, types.PostStatusDraft, drafted.Status)

	padded, err := f.posts.Update(ctx, ada, post.ID, PostPatch{Status: strPtr(" published ")})
	require.NoError(t, err)
	assert.Equal(t, types.PostStatusPublished, padded.Status)

	stored, err := f.posts.Get(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, types.PostStatusPublished, stored.Status)
}

func TestUpdatePostMergesFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ada := f.signup(t, "ada")
	post := f.createPost(t, ada, PostInput{Title: "T", Content: "<p>old</p>", Tags: []string{"go"}})
	_, err := f.posts.Like(ctx, post.ID)
	require.NoError(t, err)

	updated, err := f.posts.Update(ctx, ada, post.ID, PostPatch{
		Content:    strPtr("<p>new body</p>"),
		Categories: &[]string{"B", "A", "B"},
		Featured:   boolPtr(true),
	})
	require.NoError(t, err)
	assert.Equal(t, "T", updated.Title)
	assert.Equal(t, "new body", updated.Excerpt)
	assert.Equal(t, []string{"go"}, updated.Tags)
	assert.Equal(t, []string{"B", "A"}, updated.Categories)
	assert.True(t, updated.Featured)
	assert.Equal(t, int64(1), updated.Likes)
	assert.Equal(t, post.CreatedAt, updated.CreatedAt)
	assert.Equal(t, ada, updated.AuthorID)
}

func TestNonOwnerCannotModifyPost(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ada := f.signup(t, "ada")
	bob := f.signup(t, "bob")
	post := f.createPost(t, ada, PostInput{Title: "Original"})

	_, err := f.posts.Update(ctx, bob, post.ID, PostPatch{Title: strPtr("Hacked")})
	assertKind(t, err, apperr.KindAuthorization)

	err = f.posts.Delete(ctx, bob, post.ID)
	assertKind(t, err, apperr.KindAuthorization)

	unchanged, err := f.posts.Get(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, post, unchanged)
}

func TestAdminCanModifyAnyPost(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ada := f.signup(t, "ada")
	root := f.signup(t, "root")
	f.promote(t, root)
	post := f.createPost(t, ada, PostInput{Title: "Original"})

	updated, err := f.posts.Update(ctx, root, post.ID, PostPatch{Featured: boolPtr(true)})
	require.NoError(t, err)
	assert.True(t, updated.Featured)
	assert.Equal(t, ada, updated.AuthorID)

	require.NoError(t, f.posts.Delete(ctx, root, post.ID))
}

func TestDeletePostThenGetIsNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ada := f.signup(t, "ada")
	post := f.createPost(t, ada, PostInput{Title: "Doomed"})

	require.NoError(t, f.posts.Delete(ctx, ada, post.ID))

	_, err := f.posts.Get(ctx, post.ID)
	assertKind(t, err, apperr.KindNotFound)

	err = f.posts.Delete(ctx, ada, post.ID)
	assertKind(t, err, apperr.KindNotFound)
}

func TestLikePostSequentially(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ada := f.signup(t, "ada")
	post := f.createPost(t, ada, PostInput{Title: "Popular"})

	const n = 7
	var last int64
	for i := 0; i < n; i++ {
		count, err := f.posts.Like(ctx, post.ID)
		require.NoError(t, err)
		last = count
	}
	assert.Equal(t, int64(n), last)

	fetched, err := f.posts.Get(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(n), fetched.Likes)

	_, err = f.posts.Like(ctx, "post_0_missing")
	assertKind(t, err, apperr.KindNotFound)
}

func TestListPostsVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ada := f.signup(t, "ada")
	bob := f.signup(t, "bob")
	f.createPost(t, ada, PostInput{Title: "Draft"})
	f.createPost(t, ada, PostInput{Title: "Live", Status: types.PostStatusPublished})

	anonymous, err := f.posts.List(ctx, "", types.PostFilter{})
	require.NoError(t, err)
	require.Len(t, anonymous, 1)
	for _, post := range anonymous {
		assert.NotEqual(t, types.PostStatusDraft, post.Status)
	}

	// Any signed-in user sees every draft, including other authors'.
	signedIn, err := f.posts.List(ctx, bob, types.PostFilter{})
	require.NoError(t, err)
	assert.Len(t, signedIn, 2)
}

func TestListPostsFiltersAndOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ada := f.signup(t, "ada")

	first := f.createPost(t, ada, PostInput{
		Title:      "Go generics",
		Content:    "<p>Type parameters</p>",
		Tags:       []string{"go"},
		Categories: []string{"Programming"},
		Status:     types.PostStatusPublished,
	})
	second := f.createPost(t, ada, PostInput{
		Title:      "Sourdough",
		Content:    "<p>Bread with GO-getter attitude</p>",
		Tags:       []string{"baking"},
		Categories: []string{"Food"},
		Status:     types.PostStatusPublished,
		Featured:   true,
	})
	third := f.createPost(t, ada, PostInput{
		Title:      "Rust vs Go",
		Tags:       []string{"go", "rust"},
		Categories: []string{"Programming"},
		Status:     types.PostStatusPublished,
	})

	all, err := f.posts.List(ctx, "", types.PostFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{third.ID, second.ID, first.ID}, postIDs(all))

	byCategory, err := f.posts.List(ctx, "", types.PostFilter{Category: "Programming"})
	require.NoError(t, err)
	assert.Equal(t, []string{third.ID, first.ID}, postIDs(byCategory))

	byTag, err := f.posts.List(ctx, "", types.PostFilter{Tag: "rust"})
	require.NoError(t, err)
	assert.Equal(t, []string{third.ID}, postIDs(byTag))

	bySearch, err := f.posts.List(ctx, "", types.PostFilter{Search: "go"})
	require.NoError(t, err)
	assert.Equal(t, []string{third.ID, second.ID, first.ID}, postIDs(bySearch))

	byExcerpt, err := f.posts.List(ctx, "", types.PostFilter{Search: "TYPE PARAM"})
	require.NoError(t, err)
	assert.Equal(t, []string{first.ID}, postIDs(byExcerpt))

	featured, err := f.posts.List(ctx, "", types.PostFilter{Featured: boolPtr(true)})
	require.NoError(t, err)
	assert.Equal(t, []string{second.ID}, postIDs(featured))

	notFeatured, err := f.posts.List(ctx, "", types.PostFilter{Featured: boolPtr(false), Tag: "go"})
	require.NoError(t, err)
	assert.Equal(t, []string{third.ID, first.ID}, postIDs(notFeatured))
}

func TestCategoriesAndTagsAreSortedUnions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ada := f.signup(t, "ada")
	f.createPost(t, ada, PostInput{Title: "one", Categories: []string{"B"}, Tags: []string{"z", "m"}})
	f.createPost(t, ada, PostInput{Title: "two", Categories: []string{"A", "B"}, Tags: []string{"m", "a"}})

	categories, err := f.posts.Categories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, categories)

	tags, err := f.posts.Tags(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "m", "z"}, tags)
}

func TestPostEventsArePublished(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ada := f.signup(t, "ada")
	post := f.createPost(t, ada, PostInput{Title: "T"})

	_, err := f.posts.Update(ctx, ada, post.ID, PostPatch{Title: strPtr("T2")})
	require.NoError(t, err)
	require.NoError(t, f.posts.Delete(ctx, ada, post.ID))

	assert.Equal(t, []string{EventPostCreated, EventPostUpdated, EventPostDeleted}, f.published.events)
}

func postIDs(posts []types.Post) []string {
	ids := make([]string, 0, len(posts))
	for _, post := range posts {
		ids = append(ids, post.ID)
	}
	return ids
}
