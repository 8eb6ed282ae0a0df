package repository

import (
	"context"
	"fmt"

	"atkform/internal/config"
	"atkform/internal/database"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"
)

// NewRequestAdapter builds the adapter named by cfg.Store.Driver. The returned close func
// releases backend resources other than the shared local store.
func NewRequestAdapter(ctx context.Context, cfg *config.Config, local *badger.DB, logger *zap.Logger) (RequestAdapter, func() error, error) {
	missing, err := ParseMissingPolicy(cfg.Store.UpdateMissing)
	if err != nil {
		return nil, nil, err
	}
	noop := func() error { return nil }
	log := logger.With(zap.String("driver", cfg.Store.Driver))

	switch cfg.Store.Driver {
	case config.DriverLocal:
		return NewBadgerAdapter(local, missing, log), noop, nil

	case config.DriverPostgres:
		db, err := database.NewConnection(cfg.Database.DSN(), log)
		if err != nil {
			return nil, nil, classifyGorm(err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrConnection, err)
		}
		return NewGormAdapter(db, missing, log), sqlDB.Close, nil

	case config.DriverSheets:
		table, err := NewGoogleSheetTable(ctx, cfg.Sheets.SpreadsheetID, cfg.Sheets.CredentialsFile, cfg.Sheets.SheetName)
		if err != nil {
			return nil, nil, err
		}
		return NewSheetAdapter(config.DriverSheets, table, missing, log), noop, nil

	case config.DriverWorkbook:
		table, err := NewWorkbookTable(cfg.Workbook.Path, cfg.Workbook.SheetName)
		if err != nil {
			return nil, nil, err
		}
		return NewSheetAdapter(config.DriverWorkbook, table, missing, log), noop, nil
	}

	return nil, nil, fmt.Errorf("%w: unknown store driver %q", ErrConnection, cfg.Store.Driver)
}
