// Package audit provides the append-only question/answer log.
package audit

import (
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"
)

// Log is an append-only record of answered questions. Appends are
// best-effort: a write failure is logged and swallowed, never surfaced to
// the query turn that triggered it.
type Log struct {
	mu     sync.Mutex
	file   *os.File
	logger *log.Logger
}

// Open opens (or creates) the audit log at path.
func Open(path string) (*Log, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}
	return &Log{
		file:   f,
		logger: log.New(log.Writer(), "[AUDIT] ", log.LstdFlags),
	}, nil
}

// Append records one question/answer pair, one line per event:
//
//	[2026-01-02T15:04:05Z] Q: what is the return policy?
//	[2026-01-02T15:04:05Z] A: Returns are accepted within 30 days.
func (l *Log) Append(question, answer string) {
	ts := time.Now().UTC().Format(time.RFC3339)
	entry := fmt.Sprintf("[%s] Q: %s\n[%s] A: %s\n",
		ts, oneLine(question), ts, oneLine(answer))

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, err := l.file.WriteString(entry); err != nil {
		l.logger.Printf("failed to append entry: %v", err)
	}
}

// Close closes the underlying file.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}

// oneLine keeps each event on a single line
func oneLine(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "\r", " "), "\n", " ")
}
