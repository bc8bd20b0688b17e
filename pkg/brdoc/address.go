package brdoc

import "strings"

// Address is a Brazilian street address. Every field is optional.
type Address struct {
	PostalCode   string `json:"postal_code"`
	Street       string `json:"street"`
	Number       string `json:"number"`
	Neighborhood string `json:"neighborhood"`
	City         string `json:"city"`
	State        string `json:"state"`
}

// Normalize trims every field, formats the postal code as 00000-000 and
// upper-cases the state. It returns the names of fields that are present
// but malformed.
func (a *Address) Normalize() []string {
	a.PostalCode = strings.TrimSpace(a.PostalCode)
	a.Street = strings.TrimSpace(a.Street)
	a.Number = strings.TrimSpace(a.Number)
	a.Neighborhood = strings.TrimSpace(a.Neighborhood)
	a.City = strings.TrimSpace(a.City)
	a.State = strings.TrimSpace(a.State)

	var bad []string
	if a.PostalCode != "" {
		d := Digits(a.PostalCode)
		if len(d) != 8 {
			bad = append(bad, "postal_code")
		} else {
			a.PostalCode = d[:5] + "-" + d[5:]
		}
	}
	if a.State != "" {
		uf, ok := NormalizeUF(a.State)
		if !ok {
			bad = append(bad, "state")
		}
		a.State = uf
	}
	return bad
}

// Line renders the address on one line, e.g. "Rua A, 10 - Centro - Campinas/SP".
func (a Address) Line() string {
	street := a.Street
	if street != "" && a.Number != "" {
		street += ", " + a.Number
	}
	city := a.City
	if a.State != "" {
		if city != "" {
			city += "/" + a.State
		} else {
			city = a.State
		}
	}
	var parts []string
	for _, p := range []string{street, a.Neighborhood, city} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " - ")
}
