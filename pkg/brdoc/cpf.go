// Package brdoc validates and formats Brazilian identifiers: CPF numbers,
// phone numbers and state codes.
package brdoc

import (
	"errors"
	"strings"
)

var ErrInvalidCPF = errors.New("invalid CPF")

// Digits returns only the ASCII digits of s.
func Digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizeCPF validates the check digits of s and returns it formatted as
// XXX.XXX.XXX-XX. Punctuation in the input is ignored.
func NormalizeCPF(s string) (string, error) {
	d := Digits(s)
	if len(d) != 11 || allSame(d) {
		return "", ErrInvalidCPF
	}
	if checkDigit(d[:9], 10) != d[9] || checkDigit(d[:10], 11) != d[10] {
		return "", ErrInvalidCPF
	}
	return d[0:3] + "." + d[3:6] + "." + d[6:9] + "-" + d[9:11], nil
}

// ValidCPF reports whether s carries valid CPF check digits.
func ValidCPF(s string) bool {
	_, err := NormalizeCPF(s)
	return err == nil
}

func checkDigit(d string, weight int) byte {
	sum := 0
	for i := 0; i < len(d); i++ {
		sum += int(d[i]-'0') * (weight - i)
	}
	r := (sum * 10) % 11
	if r == 10 {
		r = 0
	}
	return byte('0' + r)
}

func allSame(d string) bool {
	for i := 1; i < len(d); i++ {
		if d[i] != d[0] {
			return false
		}
	}
	return true
}
