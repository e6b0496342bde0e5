package logtail

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap/zapcore"
)

// Read returns at most maxLines from the end of the file at path. A
// non-positive maxLines returns every line.
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

// Entry is one decoded JSON log record.
type Entry struct {
	Time    time.Time
	Level   zapcore.Level
	Message string
	Caller  string
	Fields  map[string]any
}

// Parse decodes a JSON log line. Lines that are not JSON objects, such as
// console-format output, report ok=false.
func Parse(line string) (Entry, bool) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "{") {
		return Entry{}, false
	}
	var raw map[string]any
	if err := json.Unmarshal([]byte(trimmed), &raw); err != nil {
		return Entry{}, false
	}

	e := Entry{Level: zapcore.InfoLevel, Fields: make(map[string]any)}
	for k, v := range raw {
		switch k {
		case "level":
			if s, ok := v.(string); ok {
				_ = e.Level.UnmarshalText([]byte(s))
			}
		case "ts":
			e.Time = parseTimestamp(v)
		case "msg":
			e.Message, _ = v.(string)
		case "caller":
			e.Caller, _ = v.(string)
		case "stacktrace":
		default:
			e.Fields[k] = v
		}
	}
	return e, true
}

func parseTimestamp(v any) time.Time {
	switch ts := v.(type) {
	case float64:
		sec, frac := math.Modf(ts)
		return time.Unix(int64(sec), int64(frac*1e9))
	case string:
		if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			return t
		}
	}
	return time.Time{}
}

// Formatter renders log lines for a terminal.
type Formatter struct {
	// MinLevel drops decoded entries below this level.
	MinLevel zapcore.Level
	// Color enables level styling.
	Color bool
}

var levelStyles = map[zapcore.Level]lipgloss.Style{
	zapcore.DebugLevel: lipgloss.NewStyle().Foreground(lipgloss.Color("#87CEEB")).Bold(true),
	zapcore.InfoLevel:  lipgloss.NewStyle().Foreground(lipgloss.Color("#5FD75F")).Bold(true),
	zapcore.WarnLevel:  lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD700")).Bold(true),
	zapcore.ErrorLevel: lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true),
}

var dimStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#808080"))

// Format renders one line. Decoded entries below MinLevel are dropped
// (ok=false); undecodable lines are passed through unchanged.
func (f Formatter) Format(line string) (string, bool) {
	e, ok := Parse(line)
	if !ok {
		return line, strings.TrimSpace(line) != ""
	}
	if e.Level < f.MinLevel {
		return "", false
	}

	stamp := "--:--:--"
	if !e.Time.IsZero() {
		stamp = e.Time.Local().Format(time.TimeOnly)
	}
	level := fmt.Sprintf("%-5s", e.Level.CapitalString())

	var b strings.Builder
	b.WriteString(f.style(dimStyle, stamp))
	b.WriteByte(' ')
	b.WriteString(f.style(levelStyles[e.Level], level))
	b.WriteByte(' ')
	b.WriteString(e.Message)

	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteByte(' ')
		b.WriteString(f.style(dimStyle, k+"="))
		b.WriteString(fmt.Sprint(e.Fields[k]))
	}
	return b.String(), true
}

// FormatLines formats and filters a batch of lines.
func (f Formatter) FormatLines(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if s, ok := f.Format(line); ok {
			out = append(out, s)
		}
	}
	return out
}

func (f Formatter) style(s lipgloss.Style, text string) string {
	if !f.Color {
		return text
	}
	return s.Render(text)
}
