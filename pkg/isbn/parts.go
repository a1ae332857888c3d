package isbn

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrInvalid is returned when the input is not a valid ISBN of the
	// expected form.
	ErrInvalid = errors.New("invalid ISBN")
	// ErrUncategorizable is returned for a valid ISBN-13 that no group and
	// rule of the range table covers.
	ErrUncategorizable = errors.New("ISBN not covered by range table")
)

// Parts is the structural decomposition of an ISBN-13.
type Parts struct {
	EAN         string `json:"ean" yaml:"ean"`
	Group       string `json:"group" yaml:"group"`
	Registrant  string `json:"registrant" yaml:"registrant"`
	Publication string `json:"publication" yaml:"publication"`
	Check       string `json:"check" yaml:"check"`
	Agency      string `json:"agency,omitempty" yaml:"agency,omitempty"`
}

// String renders the hyphenated form, e.g. 978-0-596-52812-6.
func (p Parts) String() string {
	return strings.Join([]string{p.EAN, p.Group, p.Registrant, p.Publication, p.Check}, "-")
}

// ISBN13 concatenates the parts back into the plain identifier.
func (p Parts) ISBN13() string {
	return p.EAN + p.Group + p.Registrant + p.Publication + p.Check
}

// Decompose splits a valid ISBN-13 into its parts using t. The first group
// whose prefix starts the identifier is used, then the first of its rules
// whose range holds the following digits.
func Decompose(t *RangeTable, isbn13 string) (Parts, error) {
	n := Normalize(isbn13)
	if validNormalized(n) != KindISBN13 {
		return Parts{}, fmt.Errorf("%q: %w", isbn13, ErrInvalid)
	}
	if t == nil {
		return Parts{}, fmt.Errorf("%s: %w", n, ErrUncategorizable)
	}

	for _, g := range t.groups {
		if !strings.HasPrefix(n, g.Prefix) {
			continue
		}

		start := len(g.Prefix)
		for _, r := range g.Rules {
			// the check digit is never part of the registrant
			end := start + r.Length
			if end >= len(n) {
				continue
			}
			number, err := strconv.Atoi(n[start:end])
			if err != nil || !r.Contains(number) {
				continue
			}

			registrant := fmt.Sprintf("%0*d", r.Length, number)
			return Parts{
				EAN:         n[:3],
				Group:       g.Prefix[3:],
				Registrant:  registrant,
				Publication: n[end : len(n)-1],
				Check:       n[len(n)-1:],
				Agency:      g.Agency,
			}, nil
		}
		break
	}

	return Parts{}, fmt.Errorf("%s: %w", n, ErrUncategorizable)
}

// Parts decomposes any valid ISBN, converting an ISBN-10 to its ISBN-13
// form first.
func (t *RangeTable) Parts(s string) (Parts, error) {
	n, ok := To13(s)
	if !ok {
		return Parts{}, fmt.Errorf("%q: %w", s, ErrInvalid)
	}
	return Decompose(t, n)
}

// Hyphenate returns the hyphenated ISBN-13 form of s.
func (t *RangeTable) Hyphenate(s string) (string, error) {
	p, err := t.Parts(s)
	if err != nil {
		return "", err
	}
	return p.String(), nil
}
