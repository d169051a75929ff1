package types

import "time"

// Comment represents a reader's response to a post.
type Comment struct {
	ID string `json:"id"`

	// PostID references the post. The store does not enforce it.
	PostID string `json:"postId"`

	UserID string `json:"userId"`

	// Username and Avatar are snapshots of the commenter's profile taken
	// when the comment was written.
	Username string `json:"username"`
	Avatar   string `json:"avatar"`

	Content string `json:"content"`

	// ParentID is nil for top-level comments and otherwise references
	// another comment's id.
	ParentID *string `json:"parentId"`

	Likes     int64     `json:"likes"`
	CreatedAt time.Time `json:"createdAt"`
}
