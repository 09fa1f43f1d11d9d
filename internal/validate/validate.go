package validate

import "fmt"

// Text field length limits, shared by the JSON API and the viewer.
const (
	MaxSessionNameLength = 200
	MaxScriptLength      = 1024 * 1024
	MaxModeLength        = 64
	MaxModes             = 20
	MaxImageKeys         = 500
	MaxSubjectLength     = 300
	MaxEmailHTMLLength   = 512 * 1024
)

func checkLen(value string, max int, field string) string {
	if len(value) > max {
		return fmt.Sprintf("%s must be %d characters or fewer", field, max)
	}
	return ""
}

func SessionName(s string) string { return checkLen(s, MaxSessionNameLength, "name") }
func Subject(s string) string     { return checkLen(s, MaxSubjectLength, "subject") }
func EmailHTML(s string) string   { return checkLen(s, MaxEmailHTMLLength, "html") }

// Modes checks the requested mode list of a session.
func Modes(modes []string) string {
	if len(modes) > MaxModes {
		return fmt.Sprintf("at most %d modes allowed", MaxModes)
	}
	for _, m := range modes {
		if msg := checkLen(m, MaxModeLength, "mode"); msg != "" {
			return msg
		}
	}
	return ""
}

// FieldLimits returns a map of field names to max lengths for the /api/limits endpoint.
func FieldLimits() map[string]int {
	return map[string]int{
		"sessionName": MaxSessionNameLength,
		"script":      MaxScriptLength,
		"mode":        MaxModeLength,
		"modes":       MaxModes,
		"imageKeys":   MaxImageKeys,
		"subject":     MaxSubjectLength,
		"emailHtml":   MaxEmailHTMLLength,
	}
}
