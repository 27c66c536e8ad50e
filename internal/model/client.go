// internal/model/client.go
package model

import "time"

type Client struct {
	ID        int64     `db:"id" json:"id"`
	OwnerID   int64     `db:"owner_id" json:"owner_id"`
	Name      string    `db:"name" json:"name"`
	Email     string    `db:"email" json:"email"` // required for reminder eligibility
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
