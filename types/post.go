package types

import "time"

// Supported post statuses. Transitions between them are unrestricted.
const (
	PostStatusDraft     = "draft"
	PostStatusPublished = "published"
)

// MaxExcerptLength bounds the plain-text excerpt of a post, in characters.
const MaxExcerptLength = 200

// Post represents a blog article.
type Post struct {
	// ID is generated as post_{unix millis}_{random} and never changes.
	ID string `json:"id"`

	// Title is the headline of the post.
	Title string `json:"title"`

	// Content is the article body as an HTML string.
	Content string `json:"content"`

	// Excerpt is a plain-text prefix of the content, at most
	// MaxExcerptLength characters.
	Excerpt string `json:"excerpt"`

	// AuthorID is the subject id of the user who created the post.
	AuthorID string `json:"authorId"`

	// AuthorName is a snapshot of the author's username taken at creation.
	AuthorName string `json:"authorName"`

	// Image is the URL of the cover image, if any.
	Image string `json:"image"`

	// Tags are free-form labels. Order is preserved but carries no meaning.
	Tags []string `json:"tags"`

	// Categories group posts for browsing. Order is preserved but carries
	// no meaning.
	Categories []string `json:"categories"`

	// Status is either "draft" or "published".
	Status string `json:"status"`

	// Featured marks posts highlighted by editors.
	Featured bool `json:"featured"`

	// Likes counts like actions. It never decreases.
	Likes int64 `json:"likes"`

	// CreatedAt is the timestamp at which the post was created.
	CreatedAt time.Time `json:"createdAt"`

	// UpdatedAt is the timestamp of the most recent update to the post.
	UpdatedAt time.Time `json:"updatedAt"`
}

// IsPublished reports whether the post is visible to anonymous readers.
func (p Post) IsPublished() bool {
	return p.Status == PostStatusPublished
}

// ValidPostStatus reports whether status is one of the supported statuses.
func ValidPostStatus(status string) bool {
	return status == PostStatusDraft || status == PostStatusPublished
}

// PostFilter narrows a post listing. Zero values do not filter.
type PostFilter struct {
	Category string
	Tag      string
	Search   string
	Featured *bool
}
