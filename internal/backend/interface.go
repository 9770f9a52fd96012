// Package backend builds the storage backend selected by configuration.
package backend

import (
	"context"

	"ledger/internal/storage"
)

// CleanupFunc releases the resources held by a backend.
type CleanupFunc func() error

// PingFunc reports whether the backend is reachable. Used by /readyz.
type PingFunc func(ctx context.Context) error

// BackendResult contains the backend instance and its lifecycle hooks.
// Ping and Cleanup are never nil.
type BackendResult struct {
	Backend storage.Backend
	Ping    PingFunc
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type     BackendType
	SlotName string

	// File backend
	DataDirectory string

	// SQLite
	SQLiteDBPath string

	// MongoDB
	MongoURI      string
	MongoDatabase string

	// Google Sheets
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountFile string
	GoogleServiceAccountJSON string
}

// BackendType represents the type of backend
type BackendType string

const (
	FileBackend   BackendType = "file"
	SQLiteBackend BackendType = "sqlite"
	MongoBackend  BackendType = "mongo"
	SheetsBackend BackendType = "sheets"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case FileBackend, SQLiteBackend, MongoBackend, SheetsBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
