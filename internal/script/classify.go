package script

import (
	"encoding/json"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ShowAllMode disables mode filtering when present in the requested modes.
const ShowAllMode = "full-highlight-script"

// FallbackKey holds the raw-text preview when nothing in a segment looks like
// a section header.
const FallbackKey = "script"

const fallbackPreviewRunes = 160

var (
	blankLines    = regexp.MustCompile(`\n{2,}`)
	lineBreaks    = regexp.MustCompile(`\n+`)
	whitespaceRun = regexp.MustCompile(`\s+`)
	blockHeader   = regexp.MustCompile(`^\s*\*{0,2}([\w\- ]+?)\*{0,2}\s*:`)
	flatLine      = regexp.MustCompile(`^\s*([\w\- ]+?):\s*(.+)$`)
	numberedItem  = regexp.MustCompile(`\n\d+\)`)
	purposeMarker = regexp.MustCompile(`(?i)\n\s*Purpose:`)
)

var canonicalKeys = map[string]string{
	"hook":           "hooks",
	"hooks":          "hooks",
	"punchline":      "punchlines",
	"punchline idea": "punchlines",
	"punchlines":     "punchlines",
	"act":            "acts",
	"acts":           "acts",
	"vibe reset":     "vibe-reset",
	"vibe-reset":     "vibe-reset",
	"clarifying":     "clarifying-qs",
	"clarifying qs":  "clarifying-qs",
	"clarifying-q":   "clarifying-qs",
	"clarifying-qs":  "clarifying-qs",
}

var labels = map[string]string{
	"hooks":         "Hooks",
	"punchlines":    "Punchlines",
	"acts":          "Acts",
	"q":             "Questions",
	"vibe-reset":    "Vibe Reset",
	"clarifying-qs": "Questions",
	"script":        "Script",
}

// Item is one selectable entry of a section.
type Item struct {
	Summary string `json:"summary"`
	Purpose string `json:"purpose"`
}

// Section is a named list of items.
type Section struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Items []Item `json:"items"`
}

// SectionMap maps canonical section keys to their items. Keys keep the order
// in which they were first seen.
type SectionMap struct {
	sections []Section
	index    map[string]int
}

func (m *SectionMap) add(key string, items ...Item) {
	if len(items) == 0 {
		return
	}
	if m.index == nil {
		m.index = make(map[string]int)
	}
	i, ok := m.index[key]
	if !ok {
		m.index[key] = len(m.sections)
		m.sections = append(m.sections, Section{Key: key, Label: Label(key)})
		i = len(m.sections) - 1
	}
	m.sections[i].Items = append(m.sections[i].Items, items...)
}

// Keys returns the section keys in first-seen order.
func (m SectionMap) Keys() []string {
	keys := make([]string, len(m.sections))
	for i, s := range m.sections {
		keys[i] = s.Key
	}
	return keys
}

// Items returns the items of key, or nil.
func (m SectionMap) Items(key string) []Item {
	if i, ok := m.index[key]; ok {
		return m.sections[i].Items
	}
	return nil
}

// Sections returns every section in order.
func (m SectionMap) Sections() []Section {
	return m.sections
}

func (m SectionMap) Len() int {
	return len(m.sections)
}

func (m SectionMap) MarshalJSON() ([]byte, error) {
	if m.sections == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(m.sections)
}

// ModeFilter restricts which section keys Classify keeps. An empty filter
// keeps everything.
type ModeFilter struct {
	Modes   []string
	ShowAll bool
}

// NewModeFilter lowercases the requested modes. Asking for the full
// highlight script turns filtering off.
func NewModeFilter(modes []string) ModeFilter {
	f := ModeFilter{Modes: make([]string, 0, len(modes))}
	for _, mode := range modes {
		mode = strings.ToLower(strings.TrimSpace(mode))
		if mode == "" {
			continue
		}
		if mode == ShowAllMode {
			f.ShowAll = true
		}
		f.Modes = append(f.Modes, mode)
	}
	return f
}

func (f ModeFilter) Allows(key string) bool {
	if f.ShowAll || len(f.Modes) == 0 {
		return true
	}
	for _, mode := range f.Modes {
		if mode == key {
			return true
		}
	}
	return false
}

// CanonicalKey maps a section header onto its canonical key. Unknown headers
// become lowercase slugs.
func CanonicalKey(header string) string {
	h := strings.ToLower(strings.TrimSpace(header))
	if key, ok := canonicalKeys[h]; ok {
		return key
	}
	return whitespaceRun.ReplaceAllString(h, "-")
}

// Label is the card title shown for a section key.
func Label(key string) string {
	if label, ok := labels[key]; ok {
		return label
	}
	r, size := utf8.DecodeRuneInString(key)
	if r == utf8.RuneError {
		return key
	}
	return string(unicode.ToUpper(r)) + key[size:]
}

// Classify parses a segment into sections. A block pass reads
// "Header:\n1) item\nPurpose: why" groups separated by blank lines, then a
// flat pass reads every "Header: text" line. Both passes feed the same map,
// so a line matched by both contributes twice.
func Classify(text string, filter ModeFilter) SectionMap {
	var out SectionMap
	structured := false

	for _, block := range blankLines.Split(text, -1) {
		trimmed := strings.TrimSpace(block)
		// A single "Header: text" line is left to the flat pass. Emphasized
		// headers like "**Hook**: x" only match here.
		if !strings.Contains(trimmed, "\n") && flatLine.MatchString(trimmed) {
			continue
		}
		loc := blockHeader.FindStringSubmatchIndex(block)
		if loc == nil {
			continue
		}
		structured = true
		key := CanonicalKey(block[loc[2]:loc[3]])
		if !filter.Allows(key) {
			continue
		}
		out.add(key, blockItems(block[loc[1]:])...)
	}

	for _, line := range lineBreaks.Split(text, -1) {
		m := flatLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		structured = true
		key := CanonicalKey(m[1])
		if !filter.Allows(key) {
			continue
		}
		out.add(key, Item{Summary: strings.TrimSpace(m[2])})
	}

	if !structured && strings.TrimSpace(text) != "" {
		out.add(FallbackKey, Item{Summary: preview(text)})
	}
	return out
}

func blockItems(body string) []Item {
	body = "\n" + strings.TrimSpace(body)

	var items []Item
	for _, part := range numberedItem.Split(body, -1) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		fields := purposeMarker.Split(part, 2)
		item := Item{Summary: strings.TrimSpace(fields[0])}
		if len(fields) > 1 {
			item.Purpose = strings.TrimSpace(fields[1])
		}
		if item.Summary == "" {
			continue
		}
		items = append(items, item)
	}
	return items
}

func preview(text string) string {
	if utf8.RuneCountInString(text) <= fallbackPreviewRunes {
		return text
	}
	runes := []rune(text)
	return string(runes[:fallbackPreviewRunes]) + " …"
}
