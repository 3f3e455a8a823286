package schema

// CoreReviewTable represents the 'core.review' table
type CoreReviewTable struct {
	Table     string
	ID        string
	Review    string
	Rating    string
	TourID    string
	UserID    string
	CreatedAt string
	UpdatedAt string
	Version   string
}

// CoreReview is the schema definition for core.review
var CoreReview = CoreReviewTable{
	Table:     "core.review",
	ID:        "id",
	Review:    "review",
	Rating:    "rating",
	TourID:    "tourid",
	UserID:    "userid",
	CreatedAt: "createdat",
	UpdatedAt: "updatedat",
	Version:   "version",
}
