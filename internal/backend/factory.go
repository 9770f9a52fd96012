package backend

import (
	"context"
	"fmt"
	"time"

	"ledger/internal/log"
	"ledger/internal/storage"
	"ledger/internal/storage/file"
	"ledger/internal/storage/memory"
	"ledger/internal/storage/mongo"
	"ledger/internal/storage/sheets"
)

const mongoConnectTimeout = 10 * time.Second

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Discard()
	}
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentBackend)}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case FileBackend:
		return f.createFileBackend(config), nil
	case SQLiteBackend:
		return f.createSQLiteBackend(config)
	case MongoBackend:
		return f.createMongoBackend(ctx, config)
	case SheetsBackend:
		return f.createSheetsBackend(ctx, config)
	case MemoryBackend:
		return f.createMemoryBackend(config), nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createFileBackend(config Config) *BackendResult {
	slot := file.New(config.DataDirectory)
	f.logger.Info("Initialized file backend",
		"data_directory", slot.Dir(),
		log.FieldSlot, config.SlotName)
	return &BackendResult{
		Backend: storage.NewSlotBackend(slot, config.SlotName),
		Ping:    slot.Ping,
		Cleanup: noCleanup,
	}
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	slot, err := storage.NewSQLiteSlot(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite slot: %w", err)
	}
	f.logger.Info("Initialized SQLite backend",
		"db_path", config.SQLiteDBPath,
		log.FieldSlot, config.SlotName)
	return &BackendResult{
		Backend: storage.NewSlotBackend(slot, config.SlotName),
		Ping:    slot.Ping,
		Cleanup: slot.Close,
	}, nil
}

func (f *DefaultFactory) createMongoBackend(ctx context.Context, config Config) (*BackendResult, error) {
	connectCtx, cancel := context.WithTimeout(ctx, mongoConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, config.MongoURI)
	if err != nil {
		return nil, err
	}
	slot := mongo.NewSlot(mongo.NewProvider(client, config.MongoDatabase))
	f.logger.Info("Initialized MongoDB backend",
		"database", config.MongoDatabase,
		log.FieldSlot, config.SlotName)
	return &BackendResult{
		Backend: storage.NewSlotBackend(slot, config.SlotName),
		Ping: func(ctx context.Context) error {
			return client.Ping(ctx, nil)
		},
		Cleanup: func() error {
			ctx, cancel := context.WithTimeout(context.Background(), mongoConnectTimeout)
			defer cancel()
			return client.Disconnect(ctx)
		},
	}, nil
}

func (f *DefaultFactory) createSheetsBackend(ctx context.Context, config Config) (*BackendResult, error) {
	cli, err := sheets.New(ctx, sheets.Config{
		SpreadsheetID:   config.GoogleSpreadsheetID,
		SheetName:       config.GoogleSheetName,
		CredentialsFile: config.GoogleServiceAccountFile,
		CredentialsJSON: config.GoogleServiceAccountJSON,
	}, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}
	f.logger.Info("Initialized Google Sheets backend", "sheet", config.GoogleSheetName)
	return &BackendResult{
		Backend: cli,
		Ping:    cli.Ping,
		Cleanup: noCleanup,
	}, nil
}

// The memory backend forgets everything on exit.
func (f *DefaultFactory) createMemoryBackend(config Config) *BackendResult {
	f.logger.Warn("Initialized memory backend, transactions will not survive a restart")
	return &BackendResult{
		Backend: storage.NewSlotBackend(memory.New(), config.SlotName),
		Ping:    func(context.Context) error { return nil },
		Cleanup: noCleanup,
	}
}

func noCleanup() error { return nil }
