// Package normalizers provides text normalization for identity matching
package normalizers

import (
	"regexp"
	"strings"
	"unicode"
)

// mobilePattern is the domestic mobile format: 11 digits, leading 1, second digit 3-9.
var mobilePattern = regexp.MustCompile(`1[3-9][0-9]{9}`)

// ExtractPhoneNumbers returns the distinct mobile numbers found in text,
// in order of first appearance.
func ExtractPhoneNumbers(text string) []string {
	if text == "" {
		return nil
	}

	found := mobilePattern.FindAllString(text, -1)
	if len(found) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(found))
	phones := make([]string, 0, len(found))
	for _, phone := range found {
		if seen[phone] {
			continue
		}
		seen[phone] = true
		phones = append(phones, phone)
	}
	return phones
}

// identityNoise matches every rune that is neither a CJK ideograph nor a Latin letter.
var identityNoise = regexp.MustCompile(`[^\x{4e00}-\x{9fa5}a-zA-Z]+`)

// NormalizeIdentityText keeps only CJK ideographs and Latin letters.
// Used for both names and addresses before similarity scoring.
func NormalizeIdentityText(s string) string {
	if s == "" {
		return ""
	}
	return strings.TrimSpace(identityNoise.ReplaceAllString(s, ""))
}

// DigitsOnly keeps ASCII digits only
func DigitsOnly(s string) string {
	var result strings.Builder
	for _, r := range s {
		if r < unicode.MaxASCII && unicode.IsDigit(r) {
			result.WriteRune(r)
		}
	}
	return result.String()
}
