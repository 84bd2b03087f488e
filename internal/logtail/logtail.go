package logtail

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/hughe/shiori-share/internal/logger"
)

// Read returns at most maxLines from the end of the file at path.
// maxLines <= 0 returns every line.
func Read(path string, maxLines int) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	if maxLines <= 0 {
		var lines []string
		for scanner.Scan() {
			lines = append(lines, scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read log: %w", err)
		}
		return lines, nil
	}

	ring := make([]string, maxLines)
	count := 0
	idx := 0
	for scanner.Scan() {
		ring[idx] = scanner.Text()
		idx = (idx + 1) % maxLines
		if count < maxLines {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}

	lines := make([]string, count)
	if count == maxLines {
		for i := 0; i < count; i++ {
			lines[i] = ring[(idx+i)%maxLines]
		}
	} else {
		copy(lines, ring[:count])
	}
	return lines, nil
}

// Tail returns the last maxLines across every daily log file in dir,
// oldest first. Files are read newest first until enough lines are found.
func Tail(dir string, maxLines int) ([]string, error) {
	files, err := logger.Files(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for i := len(files) - 1; i >= 0; i-- {
		want := 0
		if maxLines > 0 {
			want = maxLines - len(out)
			if want <= 0 {
				break
			}
		}
		lines, err := Read(files[i], want)
		if err != nil {
			return nil, err
		}
		out = append(lines, out...)
	}
	return out, nil
}

// Entry is one decoded JSON log line.
type Entry struct {
	Time    time.Time
	Level   string
	Message string
	Fields  map[string]any
}

var reservedKeys = map[string]bool{"ts": true, "level": true, "msg": true, "caller": true, "stacktrace": true}

// Parse decodes a JSON log line. ok is false for anything else, such as
// a line written by a crashing process.
func Parse(line string) (Entry, bool) {
	var raw map[string]any
	if err := json.Unmarshal([]byte(line), &raw); err != nil {
		return Entry{}, false
	}
	entry := Entry{Fields: map[string]any{}}
	if ts, ok := raw["ts"].(string); ok {
		entry.Time, _ = time.Parse("2006-01-02T15:04:05.000Z0700", ts)
	}
	entry.Level, _ = raw["level"].(string)
	entry.Message, _ = raw["msg"].(string)
	for k, v := range raw {
		if !reservedKeys[k] {
			entry.Fields[k] = v
		}
	}
	return entry, true
}

var (
	timeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666"))
	keyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6495ED"))
	levelStyle = map[string]lipgloss.Style{
		"DEBUG": lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Bold(true),
		"INFO":  lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true),
		"WARN":  lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Bold(true),
		"ERROR": lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
	}
)

// Format renders a JSON log line as "15:04:05 LEVEL message key=value".
// Lines that are not JSON are returned unchanged. With color set, the
// timestamp, level and field keys are styled.
func Format(line string, color bool) string {
	entry, ok := Parse(line)
	if !ok {
		return line
	}

	level := strings.ToUpper(entry.Level)
	stamp := "--:--:--"
	if !entry.Time.IsZero() {
		stamp = entry.Time.Format("15:04:05")
	}
	padded := fmt.Sprintf("%-5s", level)
	if color {
		stamp = timeStyle.Render(stamp)
		if style, ok := levelStyle[level]; ok {
			padded = style.Render(padded)
		}
	}

	var b strings.Builder
	b.WriteString(stamp)
	b.WriteByte(' ')
	b.WriteString(padded)
	b.WriteByte(' ')
	b.WriteString(entry.Message)

	keys := make([]string, 0, len(entry.Fields))
	for k := range entry.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		key := k
		if color {
			key = keyStyle.Render(k)
		}
		fmt.Fprintf(&b, " %s=%s", key, formatValue(entry.Fields[k]))
	}
	return b.String()
}

// FormatLines applies Format to every line.
func FormatLines(lines []string, color bool) []string {
	out := make([]string, len(lines))
	for i, line := range lines {
		out[i] = Format(line, color)
	}
	return out
}

func formatValue(v any) string {
	switch val := v.(type) {
	case string:
		if strings.ContainsAny(val, " \t") {
			return fmt.Sprintf("%q", val)
		}
		return val
	case nil:
		return "null"
	default:
		encoded, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(encoded)
	}
}
