package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"fintrack/internal/adapters"
	"fintrack/internal/amqp"
	"fintrack/internal/retry"
	gsheet "fintrack/internal/sheets/google"
	"fintrack/internal/sheets/memory"
	"fintrack/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(ctx, config)
	case SheetsBackend:
		return f.createSheetsBackend(ctx, config)
	case MemoryBackend:
		return f.createMemoryBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteBackend(ctx context.Context, config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}
	if err := f.seedAccounts(ctx, repo, config.DataDirectory); err != nil {
		repo.Close()
		return nil, err
	}

	// AMQP is optional; rows stay pending until a worker mirrors them.
	var amqpClient *amqp.Client
	if config.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without sync", "error", err)
			amqpClient = nil
		} else {
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	var adapter *adapters.SQLiteAdapter
	if amqpClient != nil {
		adapter = adapters.NewSQLiteAdapter(repo, amqpClient)
	} else {
		adapter = adapters.NewSQLiteAdapter(repo, nil)
	}

	f.logger.Info("Initialized SQLite backend",
		"db_path", config.SQLiteDBPath,
		"amqp_enabled", amqpClient != nil)

	return &BackendResult{
		Backend: adapter,
		Cleanup: func() error {
			var errs []error
			if amqpClient != nil {
				if err := amqpClient.Close(); err != nil {
					errs = append(errs, fmt.Errorf("amqp: %w", err))
				}
			}
			if err := adapter.Close(); err != nil {
				errs = append(errs, fmt.Errorf("storage: %w", err))
			}
			return errors.Join(errs...)
		},
	}, nil
}

func (f *DefaultFactory) createSheetsBackend(ctx context.Context, config Config) (*BackendResult, error) {
	cli, err := gsheet.New(ctx, gsheet.Options{
		SpreadsheetID:   config.GoogleSpreadsheetID,
		CredentialsJSON: config.GoogleServiceAccountJSON,
		CredentialsFile: config.GoogleServiceAccountFile,
		Retry:           RetryPolicy(config),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}

	f.logger.Info("Initialized Google Sheets backend",
		"spreadsheet_id", config.GoogleSpreadsheetID,
		"retry_attempts", config.RetryAttempts)

	return &BackendResult{
		Backend: cli,
		Cleanup: nil, // No cleanup needed for sheets backend
	}, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*BackendResult, error) {
	dataDir := config.DataDirectory
	if dataDir == "" {
		dataDir = "data" // Default directory
	}

	store := memory.NewFromFiles(dataDir)

	f.logger.Info("Initialized memory backend", "data_directory", dataDir)

	return &BackendResult{
		Backend: store,
		Cleanup: nil, // No cleanup needed for memory backend
	}, nil
}

// seedAccounts fills an empty accounts table from the data directory seed
// file, or with a single default card.
func (f *DefaultFactory) seedAccounts(ctx context.Context, repo *storage.SQLiteRepository, dataDir string) error {
	existing, err := repo.ListAccounts(ctx)
	if err != nil {
		return fmt.Errorf("read accounts: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}
	if dataDir == "" {
		dataDir = "data"
	}
	seed, err := memory.NewFromFiles(dataDir).ListAccounts(ctx)
	if err != nil {
		return err
	}
	if err := repo.ReplaceAccounts(ctx, seed); err != nil {
		return fmt.Errorf("seed accounts: %w", err)
	}
	f.logger.Info("Seeded accounts", "count", len(seed), "data_directory", dataDir)
	return nil
}

// RetryPolicy builds the remote-call policy from config, keeping the
// defaults for unset fields.
func RetryPolicy(config Config) retry.Policy {
	p := retry.Default()
	if config.RetryAttempts > 0 {
		p.Attempts = config.RetryAttempts
	}
	if config.RetryBaseDelay > 0 {
		p.Initial = config.RetryBaseDelay
	}
	return p
}
