package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"atkform/internal/model"

	"github.com/dgraph-io/badger/v4"
)

// SettingsRepository persists the settings singleton. Settings always live in the local store,
// whichever backend holds the records.
type SettingsRepository interface {
	Load(ctx context.Context) (*model.Settings, error)
	Save(ctx context.Context, s model.Settings) error
}

type settingsRepository struct {
	db *badger.DB
}

func NewSettingsRepository(db *badger.DB) SettingsRepository {
	return &settingsRepository{db: db}
}

// Load returns the stored settings, or nil when nothing was ever saved.
func (r *settingsRepository) Load(ctx context.Context) (*model.Settings, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var settings *model.Settings
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(settingsKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			var s model.Settings
			if err := json.Unmarshal(val, &s); err != nil {
				return fmt.Errorf("%w: decode settings: %v", ErrSchema, err)
			}
			settings = &s
			return nil
		})
	})
	if err != nil {
		return nil, classifyBadger(err)
	}
	return settings, nil
}

func (r *settingsRepository) Save(ctx context.Context, s model.Settings) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	val, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := r.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(settingsKey), val)
	}); err != nil {
		return classifyBadger(err)
	}
	return nil
}
