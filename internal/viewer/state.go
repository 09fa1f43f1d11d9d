package viewer

import (
	"fmt"

	"github.com/slidecue/slidecue/internal/script"
)

// NoScriptPlaceholder is shown when a state carries no segments at all.
const NoScriptPlaceholder = "(no script)"

// State is everything one viewer page renders from. CurrentIndex is the only
// field that changes after construction.
type State struct {
	CurrentIndex int
	Images       []string
	Segments     []script.Segment
	Modes        script.ModeFilter
}

// NewState parses raw once and starts on the first slide.
func NewState(images []string, raw string, modes []string) *State {
	return &State{
		Images:   images,
		Segments: script.SplitOrPlaceholder(raw),
		Modes:    script.NewModeFilter(modes),
	}
}

// Bound is the number of navigable slides.
func (s *State) Bound() int {
	return max(len(s.Images), len(s.Segments), 1)
}

// Goto moves to slide index i. Requests outside [0, Bound) are ignored.
func (s *State) Goto(i int) bool {
	if i < 0 || i >= s.Bound() {
		return false
	}
	s.CurrentIndex = i
	return true
}

func (s *State) Next() bool { return s.Goto(s.CurrentIndex + 1) }
func (s *State) Prev() bool { return s.Goto(s.CurrentIndex - 1) }

// Slide is the 1-based number of the current slide.
func (s *State) Slide() int {
	return s.CurrentIndex + 1
}

func (s *State) HasPrev() bool { return s.CurrentIndex > 0 }
func (s *State) HasNext() bool { return s.CurrentIndex+1 < s.Bound() }

func (s *State) Counter() string {
	return fmt.Sprintf("%d / %d", s.Slide(), s.Bound())
}

// CurrentImage returns the image URL for the current slide, if any.
func (s *State) CurrentImage() (string, bool) {
	if s.CurrentIndex < len(s.Images) && s.Images[s.CurrentIndex] != "" {
		return s.Images[s.CurrentIndex], true
	}
	return "", false
}

// CurrentSegment picks the script text for the current slide: an exact slide
// match, else the closest earlier slide, else the first segment.
func (s *State) CurrentSegment() (script.Segment, bool) {
	if len(s.Segments) == 0 {
		return script.Segment{}, false
	}
	slide := s.Slide()
	best := -1
	for i, seg := range s.Segments {
		if seg.Slide == slide {
			return seg, true
		}
		if seg.Slide < slide && (best < 0 || seg.Slide > s.Segments[best].Slide) {
			best = i
		}
	}
	if best >= 0 {
		return s.Segments[best], true
	}
	return s.Segments[0], true
}

// Sections classifies the current segment. It is rebuilt on every call.
func (s *State) Sections() script.SectionMap {
	seg, ok := s.CurrentSegment()
	if !ok {
		return script.SectionMap{}
	}
	return script.Classify(seg.Text, s.Modes)
}
