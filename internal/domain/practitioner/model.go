package practitioner

import (
	"strings"
	"time"

	"github.com/rdv/rdv/pkg/brdoc"
)

// Profile is the professional identity printed on every issued document.
// It is keyed by the identity provider's subject and never deleted.
type Profile struct {
	PractitionerID        string        `json:"practitioner_id"`
	Name                  string        `json:"name"`
	RegistrationNumber    string        `json:"registration_number"`
	RegistrationRegion    string        `json:"registration_region"`
	SecondaryRegistration string        `json:"secondary_registration"`
	Phone                 string        `json:"phone"`
	Email                 string        `json:"email"`
	ClinicName            string        `json:"clinic_name"`
	Specialty             string        `json:"specialty"`
	Address               brdoc.Address `json:"address"`
	CreatedAt             time.Time     `json:"created_at"`
	UpdatedAt             time.Time     `json:"updated_at"`
}

// ProfileInput carries the editable fields of a profile. The email is not
// editable; it always comes from the token.
type ProfileInput struct {
	Name                  string        `json:"name"`
	RegistrationNumber    string        `json:"registration_number"`
	RegistrationRegion    string        `json:"registration_region"`
	SecondaryRegistration string        `json:"secondary_registration"`
	Phone                 string        `json:"phone"`
	ClinicName            string        `json:"clinic_name"`
	Specialty             string        `json:"specialty"`
	Address               brdoc.Address `json:"address"`
}

// Status answers GET /profile/status.
type Status struct {
	Complete      bool     `json:"complete"`
	MissingFields []string `json:"missing_fields"`
}

// Registration renders the council registration, e.g. "CRMV-SP 12345".
func (p *Profile) Registration() string {
	number := strings.TrimSpace(p.RegistrationNumber)
	if number == "" {
		return ""
	}
	if region := strings.TrimSpace(p.RegistrationRegion); region != "" {
		return "CRMV-" + region + " " + number
	}
	return "CRMV " + number
}

// MissingFields lists the fields that keep p from issuing documents.
func MissingFields(p *Profile) []string {
	if p == nil {
		return []string{"name", "registration_number", "phone"}
	}
	missing := []string{}
	if strings.TrimSpace(p.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(p.RegistrationNumber) == "" {
		missing = append(missing, "registration_number")
	}
	if strings.TrimSpace(p.Phone) == "" {
		missing = append(missing, "phone")
	}
	return missing
}

// IsComplete reports whether p may issue documents.
func IsComplete(p *Profile) bool {
	return len(MissingFields(p)) == 0
}
