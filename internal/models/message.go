package models

import "time"

// Message is one community feed entry. Messages are immutable once
// created; the feed is append-only and ordered by CreatedAt descending.
// CreatedAt is assigned by the store and may be nil on a freshly posted
// message until the next feed delivery arrives.
type Message struct {
	ID        string     `json:"id"`
	Text      string     `json:"text"`
	UserID    string     `json:"user_id"`
	Author    string     `json:"author"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

// AuthorLabel derives the display label for a feed author from an email
// address: the local part before "@", or "Anonymous" when empty.
func AuthorLabel(email string) string {
	if email == "" {
		return "Anonymous"
	}
	for i := 0; i < len(email); i++ {
		if email[i] == '@' {
			if i == 0 {
				return "Anonymous"
			}
			return email[:i]
		}
	}
	return email
}
