package models

import "time"

// Room is a teaching space.
type Room struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Building  *string   `db:"building" json:"building,omitempty"`
	Capacity  int       `db:"capacity" json:"capacity"`
	IsSpecial bool      `db:"is_special" json:"is_special"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
