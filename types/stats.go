package types

// Stats is the aggregate view shown on the admin dashboard.
type Stats struct {
	TotalUsers     int   `json:"totalUsers"`
	AdminUsers     int   `json:"adminUsers"`
	TotalPosts     int   `json:"totalPosts"`
	PublishedPosts int   `json:"publishedPosts"`
	DraftPosts     int   `json:"draftPosts"`
	FeaturedPosts  int   `json:"featuredPosts"`
	TotalComments  int   `json:"totalComments"`
	TotalLikes     int64 `json:"totalLikes"`
}
