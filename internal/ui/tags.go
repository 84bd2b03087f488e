package ui

import (
	"strings"

	"github.com/hughe/shiori-share/internal/shiori"
)

const (
	// maxChips is how many recent tags are offered below the keywords field.
	maxChips = 10
	// maxSuggestions bounds completions for the tag being typed.
	maxSuggestions = 5
)

// lastKeyword returns the normalised tag currently being typed: the text
// after the last comma.
func lastKeyword(keywords string) string {
	parts := strings.Split(keywords, ",")
	return shiori.NormalizeTag(parts[len(parts)-1])
}

// Suggestions returns recent tags that complete the tag being typed and are
// not already present in keywords.
func Suggestions(recent []string, keywords string) []string {
	partial := lastKeyword(keywords)
	if partial == "" {
		return nil
	}
	lowered := strings.ToLower(keywords)
	var out []string
	for _, tag := range recent {
		name := strings.ToLower(tag)
		if !strings.HasPrefix(name, partial) || strings.Contains(lowered, name) {
			continue
		}
		out = append(out, tag)
		if len(out) == maxSuggestions {
			break
		}
	}
	return out
}

// CompleteTag replaces the tag being typed with tag and leaves the input
// ready for the next one.
func CompleteTag(keywords, tag string) string {
	parts := strings.Split(keywords, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	parts[len(parts)-1] = tag
	return strings.Join(parts, ", ") + ", "
}

// AddTag appends tag unless it is already present.
func AddTag(keywords, tag string) string {
	trimmed := strings.TrimSpace(keywords)
	trimmed = strings.TrimSuffix(trimmed, ",")
	if trimmed == "" {
		return tag
	}
	for _, existing := range strings.Split(trimmed, ",") {
		if strings.EqualFold(strings.TrimSpace(existing), tag) {
			return keywords
		}
	}
	return trimmed + ", " + tag
}

func chips(recent []string) []string {
	if len(recent) > maxChips {
		return recent[:maxChips]
	}
	return recent
}
