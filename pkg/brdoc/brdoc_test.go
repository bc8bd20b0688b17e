package brdoc

import (
	"errors"
	"testing"
)

func TestNormalizeCPF(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"52998224725", "529.982.247-25", false},
		{"529.982.247-25", "529.982.247-25", false},
		{" 111.444.777-35 ", "111.444.777-35", false},
		{"52998224724", "", true},
		{"11111111111", "", true},
		{"1234567890", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := NormalizeCPF(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidCPF) {
				t.Errorf("NormalizeCPF(%q): expected ErrInvalidCPF, got %v", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("NormalizeCPF(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}
}

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"(11) 98765-4321", "+5511987654321", false},
		{"11 3333-4444", "+551133334444", false},
		{"+55 21 99876-5432", "+5521998765432", false},
		{"12345", "", true},
		{"abc", "", true},
	}
	for _, tt := range tests {
		got, err := NormalizePhone(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("NormalizePhone(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("NormalizePhone(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}
}

func TestWhatsAppDigits(t *testing.T) {
	tests := map[string]string{
		"(11) 98765-4321": "5511987654321",
		"1133334444":      "551133334444",
		"+5511987654321":  "5511987654321",
		"":                "",
	}
	for in, want := range tests {
		if got := WhatsAppDigits(in); got != want {
			t.Errorf("WhatsAppDigits(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatPhoneNational(t *testing.T) {
	if got := FormatPhoneNational("+5511987654321"); got != "(11) 98765-4321" {
		t.Errorf("unexpected national format %q", got)
	}
}

func TestNormalizeUF(t *testing.T) {
	if uf, ok := NormalizeUF(" sp "); !ok || uf != "SP" {
		t.Errorf("expected SP, got %q %v", uf, ok)
	}
	if _, ok := NormalizeUF("XX"); ok {
		t.Error("expected XX to be rejected")
	}
	if StateName("rj") != "Rio de Janeiro" {
		t.Error("unexpected state name")
	}
}

func TestAddress_Normalize(t *testing.T) {
	a := Address{PostalCode: "13015904", Street: " Rua A ", Number: "10", City: "Campinas", State: "sp"}
	if bad := a.Normalize(); len(bad) != 0 {
		t.Fatalf("unexpected invalid fields %v", bad)
	}
	if a.PostalCode != "13015-904" || a.State != "SP" || a.Street != "Rua A" {
		t.Errorf("unexpected normalized address %+v", a)
	}
	if got := a.Line(); got != "Rua A, 10 - Campinas/SP" {
		t.Errorf("unexpected line %q", got)
	}

	b := Address{PostalCode: "123", State: "ZZ"}
	bad := b.Normalize()
	if len(bad) != 2 || bad[0] != "postal_code" || bad[1] != "state" {
		t.Errorf("expected postal_code and state to be flagged, got %v", bad)
	}
}
