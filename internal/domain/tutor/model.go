package tutor

import (
	"time"

	"github.com/google/uuid"

	"github.com/rdv/rdv/pkg/brdoc"
)

// Tutor is the animal's owner or guardian.
type Tutor struct {
	ID             uuid.UUID     `json:"id"`
	PractitionerID string        `json:"-"`
	Name           string        `json:"name"`
	Phone          string        `json:"phone"`
	Email          string        `json:"email"`
	CPF            string        `json:"cpf"`
	Address        brdoc.Address `json:"address"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

type TutorInput struct {
	Name    string        `json:"name"`
	Phone   string        `json:"phone"`
	Email   string        `json:"email"`
	CPF     string        `json:"cpf"`
	Address brdoc.Address `json:"address"`
}
