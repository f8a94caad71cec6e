// Package models defines data structures shared across the pipeline.
package models

// Article is a normalized search result. Title is the dedup key.
type Article struct {
	Title   string `json:"title" bson:"title"`
	URL     string `json:"url" bson:"url"`
	Snippet string `json:"snippet" bson:"snippet"`
}

// String returns the article title.
func (a Article) String() string {
	return a.Title
}
