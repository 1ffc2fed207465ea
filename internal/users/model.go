package users

import "time"

// User is a buyer account. The analysis core only ever reads users.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Tier      string    `json:"tier"`
	CreatedAt time.Time `json:"createdAt"`
}
