package portstest

import (
	"fmt"
	"strings"
	"sync"
)

// Entry is one captured log line.
type Entry struct {
	Level   string
	Message string
	Fields  []any
	Err     error
}

// Logger captures log entries in memory.
type Logger struct {
	mu      sync.Mutex
	Entries []Entry
}

func (l *Logger) add(level, msg string, err error, fields []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Entries = append(l.Entries, Entry{Level: level, Message: msg, Fields: fields, Err: err})
}

func (l *Logger) Debug(msg string, fields ...any) { l.add("debug", msg, nil, fields) }
func (l *Logger) Info(msg string, fields ...any)  { l.add("info", msg, nil, fields) }
func (l *Logger) Warn(msg string, fields ...any)  { l.add("warn", msg, nil, fields) }
func (l *Logger) Error(err error, msg string, fields ...any) {
	l.add("error", msg, err, fields)
}

// Has reports whether an entry at level contains substr in its message or
// field values.
func (l *Logger) Has(level, substr string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.Entries {
		if e.Level != level {
			continue
		}
		if strings.Contains(e.Message, substr) || strings.Contains(fmt.Sprint(e.Fields...), substr) {
			return true
		}
	}
	return false
}
