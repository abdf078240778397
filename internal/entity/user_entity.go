package entity

import "time"

type User struct {
	Id            string    `json:"id"`
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	EmailVerified bool      `json:"emailVerified"`
	Password      string    `json:"-"` // Don't expose password in JSON
	Name          string    `json:"name"`
	Image         string    `json:"image"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

type UserIndexFilter struct {
	Ids []string
}

// UserSummary is the slice of a user embedded in conversation payloads.
type UserSummary struct {
	Id       string `json:"id"`
	Username string `json:"username"`
}
