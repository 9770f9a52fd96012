package backend

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"ledger/internal/config"
	"ledger/internal/core"
	"ledger/internal/log"
)

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Fatal("expected error for nil config")
	}
	if _, err := FromAppConfig(&config.Config{DataBackend: "postgres"}); err == nil {
		t.Fatal("expected error for unknown backend")
	}

	cfg, err := FromAppConfig(&config.Config{
		DataBackend:   "mongo",
		SlotName:      "tx",
		MongoURI:      "mongodb://localhost:27017",
		MongoDatabase: "ledger",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Type != MongoBackend || cfg.SlotName != "tx" || cfg.MongoURI == "" {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr string
	}{
		{"file ok", Config{Type: FileBackend, DataDirectory: "data"}, ""},
		{"file without dir", Config{Type: FileBackend}, "data directory"},
		{"sqlite without path", Config{Type: SQLiteBackend}, "SQLite database path"},
		{"mongo without uri", Config{Type: MongoBackend}, "MongoDB URI"},
		{"sheets without id", Config{Type: SheetsBackend, GoogleServiceAccountJSON: "{}"}, "Spreadsheet ID"},
		{"sheets without credentials", Config{Type: SheetsBackend, GoogleSpreadsheetID: "id"}, "GoogleServiceAccountFile"},
		{"memory ok", Config{Type: MemoryBackend}, ""},
		{"unknown", Config{Type: "redis"}, "invalid backend type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %v, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestCreateBackendRoundTrip(t *testing.T) {
	dir := t.TempDir()
	configs := map[string]Config{
		"file":   {Type: FileBackend, DataDirectory: dir, SlotName: "transactions"},
		"sqlite": {Type: SQLiteBackend, SQLiteDBPath: filepath.Join(dir, "ledger.db"), SlotName: "transactions"},
		"memory": {Type: MemoryBackend},
	}
	list := []core.Transaction{
		{Name: "Salary", Category: core.Income, Date: "2024-01-01", Amount: core.MustAmount("1000")},
	}

	f := NewFactory(log.Discard())
	for name, cfg := range configs {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			res, err := f.CreateBackend(ctx, cfg)
			if err != nil {
				t.Fatalf("CreateBackend: %v", err)
			}
			defer func() {
				if err := res.Cleanup(); err != nil {
					t.Errorf("Cleanup: %v", err)
				}
			}()

			if err := res.Ping(ctx); err != nil {
				t.Fatalf("Ping: %v", err)
			}
			if err := res.Backend.Write(ctx, list); err != nil {
				t.Fatalf("Write: %v", err)
			}
			got, err := res.Backend.Read(ctx)
			if err != nil {
				t.Fatalf("Read: %v", err)
			}
			if len(got) != 1 || !got[0].Equal(list[0]) {
				t.Fatalf("Read = %+v, want %+v", got, list)
			}
		})
	}
}

func TestCreateBackendRejectsInvalidConfig(t *testing.T) {
	_, err := NewFactory(nil).CreateBackend(context.Background(), Config{Type: SQLiteBackend})
	if err == nil {
		t.Fatal("expected validation error")
	}
}
