// Package phone normalises customer-entered phone numbers to E.164 so lookups
// by phone match regardless of how the number was typed.
package phone

import (
	"errors"
	"strings"

	"github.com/ttacon/libphonenumber"
)

var ErrInvalid = errors.New("phone number is not valid")

// Normalize parses raw in the context of region (ISO 3166 alpha-2, used when the
// number has no leading +) and returns it in E.164 form.
func Normalize(raw, region string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrInvalid
	}
	if region == "" {
		region = "US"
	}
	num, err := libphonenumber.Parse(raw, strings.ToUpper(region))
	if err != nil {
		return "", ErrInvalid
	}
	if !libphonenumber.IsValidNumber(num) {
		return "", ErrInvalid
	}
	return libphonenumber.Format(num, libphonenumber.E164), nil
}

// Display formats an E.164 number in international notation for emails.
func Display(e164 string) string {
	num, err := libphonenumber.Parse(e164, "")
	if err != nil {
		return e164
	}
	return libphonenumber.Format(num, libphonenumber.INTERNATIONAL)
}
