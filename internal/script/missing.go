package script

import (
	"regexp"
	"strings"
)

var (
	missingSupportBlock = regexp.MustCompile(`(?is)Missing support.*`)
	slidesNeededList    = regexp.MustCompile(`slides_needed\s*:\s*\[([^\]]*)\]`)
	propsList           = regexp.MustCompile(`props\s*:\s*\[([^\]]*)\]`)
)

// MissingSupport lists what a generated script says the presenter still
// needs: extra slides and physical props.
type MissingSupport struct {
	SlidesNeeded []string `json:"slidesNeeded"`
	Props        []string `json:"props"`
}

// ParseMissingSupport reads the trailing "Missing support" block of a
// generated script. Both lists are empty when the block is absent.
func ParseMissingSupport(text string) MissingSupport {
	ms := MissingSupport{SlidesNeeded: []string{}, Props: []string{}}
	block := missingSupportBlock.FindString(text)
	if block == "" {
		return ms
	}
	if m := slidesNeededList.FindStringSubmatch(block); m != nil {
		ms.SlidesNeeded = splitList(m[1])
	}
	if m := propsList.FindStringSubmatch(block); m != nil {
		ms.Props = splitList(m[1])
	}
	return ms
}

func splitList(raw string) []string {
	out := []string{}
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.Trim(strings.TrimSpace(entry), `"'`)
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		out = append(out, entry)
	}
	return out
}
