// Package rangemsg reads the ISBN range message published by the
// International ISBN Agency (RangeMessage.xml) into an isbn.RangeTable.
package rangemsg

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/iziplay/isbn-api/pkg/isbn"
	"go.uber.org/multierr"
	"golang.org/x/net/html/charset"
)

// Message is a parsed range message.
type Message struct {
	Metadata isbn.Metadata
	// Prefixes holds the EAN.UCC prefix level (978, 979) of the message.
	Prefixes []isbn.Group
	// Groups holds the registration groups in document order.
	Groups []isbn.Group
	// Warnings collects rules that were skipped while parsing, nil when
	// every rule was usable.
	Warnings error
}

// Table builds the range table for the registration groups of the message.
func (m *Message) Table() (*isbn.RangeTable, error) {
	return isbn.NewRangeTable(m.Metadata, m.Groups)
}

// ParseFile reads a range message from disk.
func ParseFile(path string) (*Message, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open range message: %w", err)
	}
	defer f.Close()

	return Parse(f)
}

// Parse reads a range message from r.
func Parse(r io.Reader) (*Message, error) {
	doc := etree.NewDocument()
	doc.ReadSettings = etree.ReadSettings{
		CharsetReader: charset.NewReaderLabel,
		Permissive:    true,
	}
	if _, err := doc.ReadFrom(r); err != nil {
		return nil, fmt.Errorf("unable to read range message: %w", err)
	}
	return parseDocument(doc)
}

func parseDocument(doc *etree.Document) (*Message, error) {
	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("document has no root element")
	}
	if root.Tag != "ISBNRangeMessage" {
		return nil, fmt.Errorf("unexpected root element %q", root.Tag)
	}

	msg := &Message{}
	hasGroups := false
	for _, child := range root.ChildElements() {
		switch child.Tag {
		case "MessageSource":
			msg.Metadata.Source = strings.TrimSpace(child.Text())
		case "MessageSerialNumber":
			msg.Metadata.Serial = strings.TrimSpace(child.Text())
		case "MessageDate":
			date, err := parseDate(child.Text())
			if err != nil {
				msg.Warnings = multierr.Append(msg.Warnings, err)
				continue
			}
			msg.Metadata.Date = date
		case "EAN.UCCPrefixes":
			groups, err := parseGroups(child, "EAN.UCC", &msg.Warnings)
			if err != nil {
				return nil, fmt.Errorf("EAN.UCCPrefixes: %w", err)
			}
			msg.Prefixes = groups
		case "RegistrationGroups":
			groups, err := parseGroups(child, "Group", &msg.Warnings)
			if err != nil {
				return nil, fmt.Errorf("RegistrationGroups: %w", err)
			}
			msg.Groups = groups
			hasGroups = true
		}
	}

	if !hasGroups {
		return nil, fmt.Errorf("range message has no registration groups")
	}
	return msg, nil
}

func parseGroups(el *etree.Element, tag string, warnings *error) ([]isbn.Group, error) {
	var groups []isbn.Group
	for _, child := range el.SelectElements(tag) {
		g, err := parseGroup(child, warnings)
		if err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, nil
}

func parseGroup(el *etree.Element, warnings *error) (isbn.Group, error) {
	g := isbn.Group{}
	if p := el.SelectElement("Prefix"); p != nil {
		g.Prefix = strings.ReplaceAll(strings.TrimSpace(p.Text()), "-", "")
	}
	if g.Prefix == "" {
		return g, fmt.Errorf("group without prefix")
	}
	if a := el.SelectElement("Agency"); a != nil {
		g.Agency = strings.TrimSpace(a.Text())
	}

	rules := el.SelectElement("Rules")
	if rules == nil {
		return g, nil
	}
	for i, r := range rules.SelectElements("Rule") {
		rule, err := parseRule(r)
		if err != nil {
			return g, fmt.Errorf("group %s rule %d: %w", g.Prefix, i, err)
		}
		if rule.Length == 0 {
			// zero length marks a range not yet allocated to registrants
			*warnings = multierr.Append(*warnings, fmt.Errorf("group %s rule %d: range %d-%d is unassigned, skipped", g.Prefix, i, rule.Low, rule.High))
			continue
		}
		g.Rules = append(g.Rules, rule)
	}
	return g, nil
}

func parseRule(el *etree.Element) (isbn.Rule, error) {
	var rule isbn.Rule

	lengthEl, rangeEl := el.SelectElement("Length"), el.SelectElement("Range")
	if lengthEl == nil || rangeEl == nil {
		return rule, fmt.Errorf("rule needs both Range and Length")
	}

	length, err := strconv.Atoi(strings.TrimSpace(lengthEl.Text()))
	if err != nil || length < 0 {
		return rule, fmt.Errorf("bad length %q", lengthEl.Text())
	}
	rule.Length = length

	bounds := strings.Split(strings.TrimSpace(rangeEl.Text()), "-")
	if len(bounds) != 2 {
		return rule, fmt.Errorf("bad range %q", rangeEl.Text())
	}
	if length == 0 {
		return rule, nil
	}
	if rule.Low, err = truncate(bounds[0], length); err != nil {
		return rule, err
	}
	if rule.High, err = truncate(bounds[1], length); err != nil {
		return rule, err
	}
	if rule.Low > rule.High {
		return rule, fmt.Errorf("inverted range %q", rangeEl.Text())
	}
	return rule, nil
}

// truncate keeps the first length digits of a range bound.
func truncate(bound string, length int) (int, error) {
	if len(bound) < length {
		return 0, fmt.Errorf("range bound %q is shorter than length %d", bound, length)
	}
	n, err := strconv.Atoi(bound[:length])
	if err != nil {
		return 0, fmt.Errorf("bad range bound %q: %w", bound, err)
	}
	return n, nil
}

var dateLayouts = []string{time.RFC1123, time.RFC1123Z, time.RFC3339}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized message date %q", s)
}
