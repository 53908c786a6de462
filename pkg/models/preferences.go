package models

import "time"

// UserPreferences are a signed-in user's stored catalog filters.
type UserPreferences struct {
	UserID           string    `json:"userId"`
	BlockedGenres    []string  `json:"blockedGenres"`
	BlockedTags      []string  `json:"blockedTags"`
	ShowAdultContent bool      `json:"showAdultContent"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// DefaultPreferences is what a user without a stored row gets.
func DefaultPreferences(userID string) UserPreferences {
	return UserPreferences{
		UserID:        userID,
		BlockedGenres: []string{},
		BlockedTags:   []string{},
	}
}
