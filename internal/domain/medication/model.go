package medication

import (
	"time"

	"github.com/google/uuid"
)

// Entry is a catalog medication. Entries without an owner are shared by every
// practitioner.
type Entry struct {
	ID               uuid.UUID `json:"id"`
	PractitionerID   *string   `json:"-"`
	Name             string    `json:"name"`
	ActiveIngredient string    `json:"active_ingredient"`
	Category         string    `json:"category"`
	Presentation     string    `json:"presentation"`
	DefaultDosage    string    `json:"default_dosage"`
	Shared           bool      `json:"shared"`
	CreatedAt        time.Time `json:"created_at"`
}

type EntryInput struct {
	Name             string `json:"name"`
	ActiveIngredient string `json:"active_ingredient"`
	Category         string `json:"category"`
	Presentation     string `json:"presentation"`
	DefaultDosage    string `json:"default_dosage"`
}
