package brdoc

import (
	"errors"

	"github.com/nyaruka/phonenumbers"
)

var ErrInvalidPhone = errors.New("invalid phone number")

// DefaultRegion is used for numbers written without a country code.
const DefaultRegion = "BR"

// NormalizePhone parses s in the BR region and returns it in E.164. Numbers
// with fewer than ten digits are rejected before parsing.
func NormalizePhone(s string) (string, error) {
	if len(Digits(s)) < 10 {
		return "", ErrInvalidPhone
	}
	num, err := phonenumbers.Parse(s, DefaultRegion)
	if err != nil {
		return "", ErrInvalidPhone
	}
	if !phonenumbers.IsPossibleNumber(num) {
		return "", ErrInvalidPhone
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}

// FormatPhoneNational renders an E.164 number the way Brazilians write it,
// for example (11) 98765-4321. Unparseable input is returned unchanged.
func FormatPhoneNational(e164 string) string {
	num, err := phonenumbers.Parse(e164, DefaultRegion)
	if err != nil {
		return e164
	}
	return phonenumbers.Format(num, phonenumbers.NATIONAL)
}

// WhatsAppDigits reduces a phone to the digits wa.me expects. Ten or eleven
// digit national numbers get the 55 country code.
func WhatsAppDigits(phone string) string {
	d := Digits(phone)
	if len(d) == 10 || len(d) == 11 {
		return "55" + d
	}
	return d
}
