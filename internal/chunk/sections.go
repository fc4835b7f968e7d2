package chunk

import (
	"fmt"
	"regexp"
	"strings"
)

// Splitter names accepted by NewSplitter.
const (
	SplitterTravel   = "travel"
	SplitterMarkdown = "markdown"
	SplitterNone     = "none"
)

// headerSection is the name of the text before the first marker.
const headerSection = "header"

// NewSplitter returns the SectionSplitter registered under name.
func NewSplitter(name string) (SectionSplitter, error) {
	switch name {
	case "", SplitterTravel:
		return TravelSplitter{}, nil
	case SplitterMarkdown:
		return MarkdownSplitter{}, nil
	case SplitterNone:
		return NoSplit{}, nil
	default:
		return nil, fmt.Errorf("unknown section splitter %q", name)
	}
}

// TravelSplitter recognises the markers used in itinerary and customer files:
//
//   - a line starting with "===" (a banner under a title line),
//   - a line starting with "DAY" that contains ":" (e.g. "DAY 3: Kyoto"),
//   - a line starting with "CUSTOMER" that contains ":".
//
// The marker line opens the new section. A banner takes its name from the
// line above it; a DAY marker from the text before ":"; a CUSTOMER marker
// becomes customer_{last word before ":"}.
type TravelSplitter struct{}

func (TravelSplitter) Split(text string) []Section {
	var sections []Section
	name := headerSection
	var lines []string

	flush := func() {
		if len(lines) > 0 {
			sections = append(sections, Section{Name: name, Text: strings.Join(lines, "\n")})
		}
	}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "===") || (strings.HasPrefix(trimmed, "DAY") && strings.Contains(line, ":")):
			flush()
			if strings.Contains(line, "DAY") {
				name = dayName(trimmed)
			} else if len(lines) > 0 {
				if title := slug(lines[len(lines)-1], 50); title != "" {
					name = title
				}
			}
			lines = []string{line}
		case strings.HasPrefix(trimmed, "CUSTOMER") && strings.Contains(line, ":"):
			flush()
			name = customerName(line)
			lines = []string{line}
		default:
			lines = append(lines, line)
		}
	}
	flush()
	return sections
}

func dayName(trimmed string) string {
	head, _, _ := strings.Cut(trimmed, ":")
	return strings.ReplaceAll(strings.ToLower(head), " ", "_")
}

func customerName(line string) string {
	head, _, _ := strings.Cut(line, ":")
	fields := strings.Fields(head)
	if len(fields) == 0 {
		return "customer"
	}
	return "customer_" + fields[len(fields)-1]
}

// slug lowercases s, replaces spaces with underscores and truncates to max runes.
func slug(s string, max int) string {
	out := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "_")
	if r := []rune(out); len(r) > max {
		out = string(r[:max])
	}
	return out
}

// headingPattern matches ATX headings: # Title, ## Title, ...
var headingPattern = regexp.MustCompile(`^(#{1,6})\s+(.+)$`)

// MarkdownSplitter splits on ATX headings. A section is named by its heading
// path, e.g. "## Day 2" under "# Japan" becomes "japan_day_2".
type MarkdownSplitter struct{}

func (MarkdownSplitter) Split(text string) []Section {
	var sections []Section
	var stack [6]string
	name := headerSection
	var lines []string

	flush := func() {
		if len(lines) > 0 {
			sections = append(sections, Section{Name: name, Text: strings.Join(lines, "\n")})
		}
	}

	for _, line := range strings.Split(text, "\n") {
		m := headingPattern.FindStringSubmatch(strings.TrimRight(line, " \t\r"))
		if m == nil {
			lines = append(lines, line)
			continue
		}
		flush()
		level := len(m[1])
		stack[level-1] = strings.TrimSpace(m[2])
		for i := level; i < len(stack); i++ {
			stack[i] = ""
		}
		var parts []string
		for _, p := range stack[:level] {
			if p != "" {
				parts = append(parts, slug(p, 50))
			}
		}
		name = strings.Join(parts, "_")
		lines = []string{line}
	}
	flush()
	return sections
}

// NoSplit keeps the whole file as one "header" section.
type NoSplit struct{}

func (NoSplit) Split(text string) []Section {
	return []Section{{Name: headerSection, Text: text}}
}
