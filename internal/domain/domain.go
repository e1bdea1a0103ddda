package domain

import "time"

type Advertisement struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Version is the optimistic-lock token handed to clients with every record.
func (a *Advertisement) Version() string {
	return FormatVersion(a.UpdatedAt)
}

func FormatVersion(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
