// Package barcode validates retail barcodes and looks products up in the
// Open Food Facts family of databases.
package barcode

import (
	"regexp"
	"strings"
)

var digitRun = regexp.MustCompile(`\d[\d \-]{6,17}\d`)

// Normalize strips spaces and dashes.
func Normalize(code string) string {
	return strings.Map(func(r rune) rune {
		if r == ' ' || r == '-' {
			return -1
		}
		return r
	}, strings.TrimSpace(code))
}

// Valid reports whether code is an EAN-8, UPC-A, EAN-13 or GTIN-14 with a
// correct check digit.
func Valid(code string) bool {
	switch len(code) {
	case 8, 12, 13, 14:
	default:
		return false
	}
	sum := 0
	for i := 0; i < len(code); i++ {
		c := code[i]
		if c < '0' || c > '9' {
			return false
		}
		if i == len(code)-1 {
			break
		}
		d := int(c - '0')
		// weights alternate 3,1 counting from the digit left of the check digit
		if (len(code)-2-i)%2 == 0 {
			d *= 3
		}
		sum += d
	}
	check := (10 - sum%10) % 10
	return int(code[len(code)-1]-'0') == check
}

// Find returns the first valid barcode printed in text, or "". Digit groups
// separated by spaces are tried joined first ("0 36000 29145 2"), then alone.
func Find(text string) string {
	for _, m := range digitRun.FindAllString(text, -1) {
		if code := Normalize(m); Valid(code) {
			return code
		}
		for _, f := range strings.Fields(m) {
			if code := Normalize(f); Valid(code) {
				return code
			}
		}
	}
	return ""
}
