package patient

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	SpeciesCanine  = "canine"
	SpeciesFeline  = "feline"
	SpeciesBovine  = "bovine"
	SpeciesEquine  = "equine"
	SpeciesReptile = "reptile"
	SpeciesAvian   = "avian"
	SpeciesOther   = "other"
)

var speciesLabels = map[string]string{
	SpeciesCanine:  "Canino",
	SpeciesFeline:  "Felino",
	SpeciesBovine:  "Bovino",
	SpeciesEquine:  "Equino",
	SpeciesReptile: "Réptil",
	SpeciesAvian:   "Ave",
	SpeciesOther:   "Outro",
}

// Portuguese names accepted on input.
var speciesAliases = map[string]string{
	"canino": SpeciesCanine, "canina": SpeciesCanine, "cao": SpeciesCanine, "cão": SpeciesCanine,
	"felino": SpeciesFeline, "felina": SpeciesFeline, "gato": SpeciesFeline,
	"bovino": SpeciesBovine, "bovina": SpeciesBovine,
	"equino": SpeciesEquine, "equina": SpeciesEquine,
	"reptil": SpeciesReptile, "réptil": SpeciesReptile, "repteis": SpeciesReptile, "répteis": SpeciesReptile,
	"ave": SpeciesAvian, "aves": SpeciesAvian,
	"outro": SpeciesOther, "outra": SpeciesOther,
}

var validSexes = map[string]bool{
	"": true, "male": true, "female": true, "unknown": true,
}

// NormalizeSpecies maps case-insensitive input onto the species enum.
func NormalizeSpecies(s string) (string, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if _, ok := speciesLabels[s]; ok {
		return s, true
	}
	if v, ok := speciesAliases[s]; ok {
		return v, true
	}
	return "", false
}

// SpeciesLabel returns the Portuguese label printed on documents.
func SpeciesLabel(species string) string {
	if l, ok := speciesLabels[species]; ok {
		return l
	}
	return species
}

type Patient struct {
	ID             uuid.UUID  `json:"id"`
	PractitionerID string     `json:"-"`
	TutorID        uuid.UUID  `json:"tutor_id"`
	Name           string     `json:"name"`
	Species        string     `json:"species"`
	Breed          string     `json:"breed"`
	Sex            string     `json:"sex"`
	BirthDate      *time.Time `json:"birth_date,omitempty"`
	AgeText        string     `json:"age_text"`
	Age            string     `json:"age,omitempty"`
	WeightKg       *float64   `json:"weight_kg,omitempty"`
	CoatColor      string     `json:"coat_color"`
	Microchip      string     `json:"microchip"`
	Neutered       bool       `json:"neutered"`
	Notes          string     `json:"notes"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

type PatientInput struct {
	Name      string   `json:"name"`
	Species   string   `json:"species"`
	Breed     string   `json:"breed"`
	Sex       string   `json:"sex"`
	BirthDate string   `json:"birth_date"`
	AgeText   string   `json:"age_text"`
	WeightKg  *float64 `json:"weight_kg"`
	CoatColor string   `json:"coat_color"`
	Microchip string   `json:"microchip"`
	Neutered  bool     `json:"neutered"`
	Notes     string   `json:"notes"`
}

// DisplayAge derives the age shown on documents: whole years, or months
// under one year. Without a usable birth date it falls back to AgeText, as it
// does for patients younger than a month.
func DisplayAge(p *Patient, now time.Time) string {
	if p == nil {
		return ""
	}
	if p.BirthDate == nil || p.BirthDate.After(now) {
		return strings.TrimSpace(p.AgeText)
	}
	b := p.BirthDate.UTC()
	n := now.UTC()
	months := (n.Year()-b.Year())*12 + int(n.Month()) - int(b.Month())
	if n.Day() < b.Day() {
		months--
	}
	if months < 1 {
		if text := strings.TrimSpace(p.AgeText); text != "" {
			return text
		}
		return "recém-nascido"
	}
	if months < 12 {
		if months == 1 {
			return "1 mês"
		}
		return strconv.Itoa(months) + " meses"
	}
	years := months / 12
	if years == 1 {
		return "1 ano"
	}
	return strconv.Itoa(years) + " anos"
}
