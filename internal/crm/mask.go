package crm

import "unicode/utf8"

// Mask replaces redacted values.
const Mask = "******"

const phonePrefixLen = 4

// MaskPhone keeps the first four characters of a phone number and masks the
// rest. Numbers too short to keep a prefix are masked entirely.
func MaskPhone(phone string) string {
	if phone == "" {
		return ""
	}
	if utf8.RuneCountInString(phone) <= phonePrefixLen {
		return Mask
	}
	return string([]rune(phone)[:phonePrefixLen]) + Mask
}

// MaskText hides a non-empty value completely.
func MaskText(s string) string {
	if s == "" {
		return ""
	}
	return Mask
}
