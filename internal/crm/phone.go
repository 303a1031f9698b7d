// Package crm holds the side-effect free business rules shared by the
// handlers: phone normalization, company matching, masking and pipeline
// stages.
package crm

import "strings"

// Digits strips everything but ASCII digits from s.
func Digits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// PhoneKey is the duplicate-detection key of a phone number: the digits of
// the country code followed by the digits of the number. A number without
// digits has no key, whatever the country.
func PhoneKey(country, number string) string {
	n := Digits(number)
	if n == "" {
		return ""
	}
	return Digits(country) + n
}

// CompanyKey folds a company name for duplicate matching: surrounding
// whitespace dropped, lower case.
func CompanyKey(company string) string {
	return strings.ToLower(strings.TrimSpace(company))
}
