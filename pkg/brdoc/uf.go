package brdoc

import "strings"

var states = map[string]string{
	"AC": "Acre", "AL": "Alagoas", "AP": "Amapá", "AM": "Amazonas",
	"BA": "Bahia", "CE": "Ceará", "DF": "Distrito Federal", "ES": "Espírito Santo",
	"GO": "Goiás", "MA": "Maranhão", "MT": "Mato Grosso", "MS": "Mato Grosso do Sul",
	"MG": "Minas Gerais", "PA": "Pará", "PB": "Paraíba", "PR": "Paraná",
	"PE": "Pernambuco", "PI": "Piauí", "RJ": "Rio de Janeiro", "RN": "Rio Grande do Norte",
	"RS": "Rio Grande do Sul", "RO": "Rondônia", "RR": "Roraima", "SC": "Santa Catarina",
	"SP": "São Paulo", "SE": "Sergipe", "TO": "Tocantins",
}

// NormalizeUF upper-cases s and reports whether it is one of the 27 federal
// units.
func NormalizeUF(s string) (string, bool) {
	uf := strings.ToUpper(strings.TrimSpace(s))
	_, ok := states[uf]
	return uf, ok
}

// StateName returns the full name for a UF code, or "" when unknown.
func StateName(uf string) string {
	return states[strings.ToUpper(uf)]
}
