// Package extract finds the URL and an optional title in shared text.
package extract

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/atotto/clipboard"
	"mvdan.cc/xurls/v2"

	"github.com/hughe/shiori-share/internal/shiori"
)

// MaxTitleLength bounds text that may be used as a title. Longer text is
// treated as a body, not a title.
const MaxTitleLength = 200

// ErrNoURL is returned when the input holds no http or https URL.
var ErrNoURL = errors.New("no URL found")

// Content is what was extracted from the input.
type Content struct {
	URL   string
	Title string
}

var urlPattern = xurls.Strict()

// FromText extracts the first http(s) URL from text. When text is a single
// URL it is used as-is. Otherwise the first line that is not itself a URL
// and is shorter than MaxTitleLength becomes the title.
func FromText(text string) (Content, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Content{}, ErrNoURL
	}
	if shiori.IsValidHTTPURL(trimmed) && !strings.ContainsAny(trimmed, " \t\r\n") {
		return Content{URL: trimmed}, nil
	}

	found := FindURL(trimmed)
	if found == "" {
		return Content{}, ErrNoURL
	}
	return Content{URL: found, Title: titleFrom(trimmed)}, nil
}

// FindURL returns the first http(s) URL in text, or "" when none is found.
// Trailing sentence punctuation and unbalanced closing brackets are not
// part of the URL.
func FindURL(text string) string {
	for _, match := range urlPattern.FindAllString(text, -1) {
		if shiori.IsValidHTTPURL(match) {
			return match
		}
	}
	return ""
}

func titleFrom(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || utf8.RuneCountInString(line) >= MaxTitleLength {
			continue
		}
		if FindURL(line) != "" {
			continue
		}
		return line
	}
	return ""
}

var readClipboard = clipboard.ReadAll

// FromClipboard extracts content from the system clipboard.
func FromClipboard() (Content, error) {
	if clipboard.Unsupported {
		return Content{}, errors.New("clipboard is not supported on this system")
	}
	text, err := readClipboard()
	if err != nil {
		return Content{}, fmt.Errorf("read clipboard: %w", err)
	}
	return FromText(text)
}
