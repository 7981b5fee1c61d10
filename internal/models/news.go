package models

import "time"

// Article is one news item mapped from the news provider's schema.
// Image is always an https URL, or empty when the provider supplied none.
type Article struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Source      string    `json:"source"`
	PublishedAt time.Time `json:"published_at"`
	Image       string    `json:"image,omitempty"`
	Content     string    `json:"content,omitempty"`
	URL         string    `json:"url"`
}
