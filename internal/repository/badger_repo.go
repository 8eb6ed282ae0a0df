package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"atkform/internal/model"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"
)

const (
	requestKeyPrefix = "request/"
	settingsKey      = "settings"
)

// OpenBadger opens the embedded key-value store. An empty path opens an in-memory store.
func OpenBadger(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("%w: open local store at %q: %v", ErrConnection, path, err)
	}
	return db, nil
}

// BadgerAdapter is the local store: one key per record, JSON values.
type BadgerAdapter struct {
	ChangeFeed
	db      *badger.DB
	logger  *zap.Logger
	missing MissingPolicy
	now     func() time.Time
}

// NewBadgerAdapter wraps an open badger DB.
func NewBadgerAdapter(db *badger.DB, missing MissingPolicy, logger *zap.Logger) *BadgerAdapter {
	logger.Info("local request store ready", zap.String("update_missing", string(missing)))
	return &BadgerAdapter{db: db, logger: logger, missing: missing, now: time.Now}
}

func (a *BadgerAdapter) Name() string { return "local" }

func requestKey(id string) []byte {
	return []byte(requestKeyPrefix + id)
}

// Initialize loads the full set and publishes it.
func (a *BadgerAdapter) Initialize(ctx context.Context) ([]model.Request, error) {
	records, err := a.List(ctx)
	if err != nil {
		return nil, err
	}
	a.Publish(records)
	return records, nil
}

// List reads every stored record ordered by creation.
func (a *BadgerAdapter) List(ctx context.Context) ([]model.Request, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var records []model.Request
	err := a.db.View(func(txn *badger.Txn) error {
		var scanErr error
		records, scanErr = scanRequests(txn)
		return scanErr
	})
	if err != nil {
		return nil, classifyBadger(err)
	}
	sortRecords(records)
	return records, nil
}

// Create stores a new record, assigning an id when absent.
func (a *BadgerAdapter) Create(ctx context.Context, req *model.Request) (*model.Request, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rec := req.Clone()
	prepareCreate(&rec, a.now())

	err := a.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(requestKey(rec.ID)); err == nil {
			return fmt.Errorf("record %s already exists", rec.ID)
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return putRequest(txn, &rec)
	})
	if err != nil {
		return nil, classifyBadger(err)
	}

	publishFresh(ctx, &a.ChangeFeed, a.List, a.logger, a.Name(), "create")
	return &rec, nil
}

// Update replaces the fields of an existing record.
func (a *BadgerAdapter) Update(ctx context.Context, req *model.Request) (*model.Request, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rec := req.Clone()
	now := a.now()

	err := a.db.Update(func(txn *badger.Txn) error {
		existing, err := findRequest(txn, &rec)
		if err != nil {
			return err
		}
		if existing == nil {
			if a.missing != MissingInsert {
				return ErrNotFound
			}
			prepareCreate(&rec, now)
			return putRequest(txn, &rec)
		}
		rec.ID = existing.ID
		rec.CreatedAt = existing.CreatedAt
		rec.UpdatedAt = now
		return putRequest(txn, &rec)
	})
	if err != nil {
		return nil, classifyBadger(err)
	}

	publishFresh(ctx, &a.ChangeFeed, a.List, a.logger, a.Name(), "update")
	return &rec, nil
}

// Delete removes a record by id, or by document number when the id is empty.
func (a *BadgerAdapter) Delete(ctx context.Context, req *model.Request) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := a.db.Update(func(txn *badger.Txn) error {
		existing, err := findRequest(txn, req)
		if err != nil {
			return err
		}
		if existing == nil {
			return ErrNotFound
		}
		return txn.Delete(requestKey(existing.ID))
	})
	if err != nil {
		return classifyBadger(err)
	}

	publishFresh(ctx, &a.ChangeFeed, a.List, a.logger, a.Name(), "delete")
	return nil
}

func scanRequests(txn *badger.Txn) ([]model.Request, error) {
	prefix := []byte(requestKeyPrefix)
	it := txn.NewIterator(badger.DefaultIteratorOptions)
	defer it.Close()

	records := []model.Request{}
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		val, err := it.Item().ValueCopy(nil)
		if err != nil {
			return nil, err
		}
		var rec model.Request
		if err := json.Unmarshal(val, &rec); err != nil {
			return nil, fmt.Errorf("%w: decode %s: %v", ErrSchema, it.Item().Key(), err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// findRequest returns the stored record matching target, or nil.
func findRequest(txn *badger.Txn, target *model.Request) (*model.Request, error) {
	if target.ID != "" {
		item, err := txn.Get(requestKey(target.ID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		val, err := item.ValueCopy(nil)
		if err != nil {
			return nil, err
		}
		var rec model.Request
		if err := json.Unmarshal(val, &rec); err != nil {
			return nil, fmt.Errorf("%w: decode %s: %v", ErrSchema, target.ID, err)
		}
		return &rec, nil
	}

	records, err := scanRequests(txn)
	if err != nil {
		return nil, err
	}
	if i := matchIndex(records, target); i >= 0 {
		return &records[i], nil
	}
	return nil, nil
}

func putRequest(txn *badger.Txn, rec *model.Request) error {
	val, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	return txn.Set(requestKey(rec.ID), val)
}

// classifyBadger keeps taxonomy errors and maps a closed store to ErrConnection.
func classifyBadger(err error) error {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrSchema):
		return err
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, badger.ErrDBClosed):
		return fmt.Errorf("%w: %v", ErrConnection, err)
	}
	return fmt.Errorf("local store: %w", err)
}
