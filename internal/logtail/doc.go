// Package logtail reads and formats the shiori-share log files.
//
// # Reading
//
// Read extracts the last N lines of a single file with a ring buffer, using
// O(N) memory regardless of file size. Tail does the same across the daily
// files in the log directory, reading newest first and stopping once enough
// lines are collected.
//
// Read returns nil, nil for non-existent files. Other errors (permission
// denied, I/O errors) are returned wrapped.
//
// # Formatting
//
// Log files hold one JSON object per line. Format turns a line into
//
//	12:00:03 INFO  bookmark saved id=42 tags=["go","tui"]
//
// with field keys sorted. Lines that are not JSON are passed through
// unchanged. When color is requested the timestamp is dimmed, the level is
// color coded (DEBUG cyan, INFO green, WARN yellow, ERROR red) and field
// keys are cornflower blue.
package logtail
