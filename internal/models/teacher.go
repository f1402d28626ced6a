package models

// Teacher is identified by display name only; two people sharing a name are merged.
type Teacher struct {
	ID   string `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}
