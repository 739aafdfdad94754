// Package lineedit makes single-line edits to text files, keeping every
// other line and the trailing newline as they were.
package lineedit

import (
	"regexp"
	"strings"
)

// MatchResult describes where a pattern matched.
type MatchResult struct {
	LineNumbers  []int
	MatchedLines []string
}

// Matched reports whether any line matched.
func (m MatchResult) Matched() bool {
	return len(m.LineNumbers) > 0
}

// Find returns every line of content matching pattern.
func Find(content []byte, pattern *regexp.Regexp) MatchResult {
	var result MatchResult
	if pattern == nil {
		return result
	}
	lines, _ := splitLines(string(content))
	for idx, line := range lines {
		if pattern.MatchString(line) {
			result.LineNumbers = append(result.LineNumbers, idx)
			result.MatchedLines = append(result.MatchedLines, line)
		}
	}
	return result
}

// Contains reports whether content has exactly line.
func Contains(content []byte, line string) bool {
	lines, _ := splitLines(string(content))
	for _, existing := range lines {
		if existing == line {
			return true
		}
	}
	return false
}

// Ensure makes line present in content. The first line matching pattern is
// replaced and later matches are dropped; without a match the line is
// appended. It reports whether the content changed.
func Ensure(content []byte, pattern *regexp.Regexp, line string) ([]byte, bool) {
	lines, trailing := splitLines(string(content))
	if len(lines) == 0 {
		trailing = true
	}

	match := Find(content, pattern)
	if !match.Matched() {
		if Contains(content, line) {
			return content, false
		}
		return []byte(joinLines(append(lines, line), true)), true
	}

	out := make([]string, 0, len(lines))
	changed := false
	for idx, existing := range lines {
		switch {
		case idx == match.LineNumbers[0]:
			if existing != line {
				changed = true
			}
			out = append(out, line)
		case pattern.MatchString(existing):
			changed = true
		default:
			out = append(out, existing)
		}
	}
	if !changed {
		return content, false
	}
	return []byte(joinLines(out, trailing)), true
}

func splitLines(content string) ([]string, bool) {
	if content == "" {
		return []string{}, false
	}
	trailing := strings.HasSuffix(content, "\n")
	trimmed := strings.TrimSuffix(content, "\n")
	if trimmed == "" {
		return []string{}, trailing
	}
	return strings.Split(trimmed, "\n"), trailing
}

func joinLines(lines []string, trailing bool) string {
	if len(lines) == 0 {
		if trailing {
			return "\n"
		}
		return ""
	}
	joined := strings.Join(lines, "\n")
	if trailing {
		return joined + "\n"
	}
	return joined
}
