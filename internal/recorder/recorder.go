package recorder

import (
	"fx-analyzer/internal/interfaces"
)

const (
	defaultListLimit = 10
	maxListLimit     = 100
)

// Store persists analysis results and lists them back.
type Store interface {
	interfaces.Recorder
	interfaces.History
}

// Open returns a SQLite store at dbPath, or a no-op store when dbPath is empty.
func Open(dbPath string) (Store, error) {
	if dbPath == "" {
		return NewNoopRecorder(), nil
	}
	return NewSQLiteRecorder(dbPath)
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}
