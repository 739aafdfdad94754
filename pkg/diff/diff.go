package diff

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

const (
	maxDiffLines    = 2000
	truncateMessage = "... (diff truncated) ..."
)

// Lines renders a line-oriented diff from current to desired. Unchanged lines
// are only shown when they sit within context lines of a change. It returns
// an empty string when the inputs are identical.
func Lines(current, desired []byte, currentLabel, desiredLabel string, context int) string {
	if bytes.Equal(current, desired) {
		return ""
	}

	dmp := diffmatchpatch.New()
	a, b, lineArray := dmp.DiffLinesToChars(string(current), string(desired))
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lineArray)

	type line struct {
		op   diffmatchpatch.Operation
		text string
	}
	var all []line
	for _, d := range diffs {
		for _, text := range splitKeepingContent(d.Text) {
			all = append(all, line{op: d.Type, text: text})
		}
	}

	keep := make([]bool, len(all))
	for i, l := range all {
		if l.op == diffmatchpatch.DiffEqual {
			continue
		}
		for j := max(0, i-context); j <= min(len(all)-1, i+context); j++ {
			keep[j] = true
		}
	}

	var buf strings.Builder
	fmt.Fprintf(&buf, "--- %s\n+++ %s\n", currentLabel, desiredLabel)
	written := 0
	gap := false
	for i, l := range all {
		if !keep[i] {
			gap = true
			continue
		}
		if gap && written > 0 {
			buf.WriteString("@@\n")
		}
		gap = false
		if written >= maxDiffLines {
			buf.WriteString(truncateMessage + "\n")
			break
		}
		switch l.op {
		case diffmatchpatch.DiffDelete:
			buf.WriteString("-")
		case diffmatchpatch.DiffInsert:
			buf.WriteString("+")
		default:
			buf.WriteString(" ")
		}
		buf.WriteString(l.text)
		buf.WriteString("\n")
		written++
	}
	return buf.String()
}

func splitKeepingContent(text string) []string {
	text = strings.TrimSuffix(text, "\n")
	if text == "" {
		return []string{""}
	}
	return strings.Split(text, "\n")
}
