package models

// Guest is read-only here; profile management lives elsewhere.
type Guest struct {
	ID    string `json:"id" yaml:"id"`
	Name  string `json:"name" yaml:"name"`
	Email string `json:"email" yaml:"email"`
}
