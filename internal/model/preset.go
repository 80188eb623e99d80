package model

// FilterPreset is a saved (years, buckets) selection keyed by user and name.
// CreatedAt is kept as an ISO-8601 string.
type FilterPreset struct {
	ID        int
	UserEmail string
	Name      string
	Years     []int
	Buckets   []string
	CreatedAt string
}

// DefaultBucketIcon is assigned to buckets without an explicit icon.
const DefaultBucketIcon = "📌"

// BucketIcon maps a planner bucket to its display icon.
type BucketIcon struct {
	Bucket string
	Icon   string
}
