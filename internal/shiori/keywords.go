package shiori

import "strings"

// NormalizeTag trims and lowercases a tag name.
func NormalizeTag(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// ParseKeywords turns a comma separated keyword string into tags.
// Pieces are trimmed and lowercased; empty pieces and repeats are dropped,
// keeping the first occurrence. It returns nil when no tag remains so
// callers can omit the field entirely.
func ParseKeywords(csv string) []TagName {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	var tags []TagName
	seen := make(map[string]bool)
	for _, piece := range strings.Split(csv, ",") {
		name := NormalizeTag(piece)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		tags = append(tags, TagName{Name: name})
	}
	if len(tags) == 0 {
		return nil
	}
	return tags
}

func tagNames(tags []TagName) []string {
	names := make([]string, 0, len(tags))
	for _, t := range tags {
		names = append(names, t.Name)
	}
	return names
}
