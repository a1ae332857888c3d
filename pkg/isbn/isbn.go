package isbn

import (
	"regexp"
	"strings"
)

// Kind is the shape of a normalized identifier.
type Kind string

const (
	KindInvalid Kind = ""
	KindISBN10  Kind = "isbn10"
	KindISBN13  Kind = "isbn13"
)

// bookland is the EAN prefix that every ISBN-10 maps to.
const bookland = "978"

var (
	isbn10Pattern = regexp.MustCompile(`^[0-9]{9}[0-9X]$`)
	isbn13Pattern = regexp.MustCompile(`^[0-9]{13}$`)
)

// Normalize upper-cases s and drops every character that is not a digit or X.
func Normalize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9', r == 'X':
			return r
		case r == 'x':
			return 'X'
		}
		return -1
	}, s)
}

// Valid reports whether s holds a well formed ISBN-10 or ISBN-13 with a
// matching check character. Formatting noise is ignored.
func Valid(s string) bool {
	return validNormalized(Normalize(s)) != KindInvalid
}

// KindOf reports which form s validates as, or KindInvalid.
func KindOf(s string) Kind {
	return validNormalized(Normalize(s))
}

func validNormalized(n string) Kind {
	switch len(n) {
	case 10:
		if isbn10Pattern.MatchString(n) && n[9] == CheckDigit10(n[:9]) {
			return KindISBN10
		}
	case 13:
		if isbn13Pattern.MatchString(n) && n[12] == CheckDigit13(n[:12]) {
			return KindISBN13
		}
	}
	return KindInvalid
}

// To13 returns the ISBN-13 form of a valid ISBN. An ISBN-10 gets the 978
// prefix and a recomputed check digit.
func To13(s string) (string, bool) {
	n := Normalize(s)
	switch validNormalized(n) {
	case KindISBN13:
		return n, true
	case KindISBN10:
		body := bookland + n[:9]
		return body + string(CheckDigit13(body)), true
	}
	return "", false
}

// To10 returns the ISBN-10 form of a valid ISBN. Only 978-prefixed ISBN-13
// values have one; 979 values report false.
func To10(s string) (string, bool) {
	n := Normalize(s)
	switch validNormalized(n) {
	case KindISBN10:
		return n, true
	case KindISBN13:
		if !strings.HasPrefix(n, bookland) {
			return "", false
		}
		body := n[3:12]
		return body + string(CheckDigit10(body)), true
	}
	return "", false
}

// Convert returns the form of s with the requested length (10 or 13).
func Convert(s string, length int) (string, bool) {
	switch length {
	case 10:
		return To10(s)
	case 13:
		return To13(s)
	}
	return "", false
}
