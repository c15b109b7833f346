package models

import "time"

// Student represents a learner tracked by the tutoring desk.
type Student struct {
	ID        int64     `db:"id" json:"id"`
	NIM       string    `db:"nim" json:"nim"`
	NoHP      string    `db:"no_hp" json:"noHp"`
	Nama      string    `db:"nama" json:"nama"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}
