// Package ui provides the Bubble Tea share form.
//
// The form is prefilled with the extracted URL and title and the archive
// and public defaults from prefs. Tags are offered two ways: completions for
// the tag being typed (tab takes the first) and the most recent tags as
// numbered chips (alt+N appends one). ctrl+s saves.
//
// While saving, esc cancels the in-flight request. A successful save closes
// the form after DefaultAutoClose. On failure the error message is shown
// and r retries, offered only for retryable errors.
package ui
