package script

import (
	"regexp"
	"strconv"
	"strings"
)

// EmptyPlaceholder is the text of the single segment callers show when a
// script has no content at all.
const EmptyPlaceholder = "(empty)"

var slideMarker = regexp.MustCompile(`(?i)\[slide\s*(\d+)\]`)

// Segment is a contiguous span of script text attributed to one slide.
type Segment struct {
	Slide int    `json:"slide"`
	Text  string `json:"text"`
}

// Split cuts raw script text on [Slide N] markers. Text before the first
// marker belongs to slide 1; every chunk belongs to the marker that precedes
// it. Slide numbers are kept in source order, repeats and all. Blank chunks
// are dropped, so blank input yields no segments.
func Split(raw string) []Segment {
	matches := slideMarker.FindAllStringSubmatchIndex(raw, -1)

	var out []Segment
	last, current := 0, 1
	found := false
	for _, m := range matches {
		n, err := strconv.Atoi(raw[m[2]:m[3]])
		if err != nil || n < 1 {
			// [Slide 0] and numbers that overflow int stay in the text.
			continue
		}
		found = true
		if m[0] > last {
			out = appendChunk(out, current, raw[last:m[0]])
		}
		current = n
		last = m[1]
	}

	if !found {
		if text := strings.TrimSpace(raw); text != "" {
			return []Segment{{Slide: 1, Text: text}}
		}
		return nil
	}

	return appendChunk(out, current, raw[last:])
}

// SplitOrPlaceholder is Split with the caller-side fallback applied: it never
// returns an empty slice.
func SplitOrPlaceholder(raw string) []Segment {
	segments := Split(raw)
	if len(segments) == 0 {
		return []Segment{{Slide: 1, Text: EmptyPlaceholder}}
	}
	return segments
}

func appendChunk(out []Segment, slide int, chunk string) []Segment {
	text := strings.TrimSpace(chunk)
	if text == "" {
		return out
	}
	return append(out, Segment{Slide: slide, Text: text})
}
