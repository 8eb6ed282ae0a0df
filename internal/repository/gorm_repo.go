package repository

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"atkform/internal/model"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PostgreSQL error codes the adapter classifies.
const (
	PgErrInvalidAuthorization = "28000" // invalid_authorization_specification
	PgErrInvalidPassword      = "28P01" // invalid_password
	PgErrUndefinedTable       = "42P01" // undefined_table
	PgErrUndefinedColumn      = "42703" // undefined_column
)

// GormAdapter stores requests in postgres through gorm.
type GormAdapter struct {
	ChangeFeed
	db      *gorm.DB
	logger  *zap.Logger
	missing MissingPolicy
	now     func() time.Time
}

func NewGormAdapter(db *gorm.DB, missing MissingPolicy, logger *zap.Logger) *GormAdapter {
	logger.Info("postgres request store ready", zap.String("update_missing", string(missing)))
	return &GormAdapter{
		db:      db,
		logger:  logger,
		missing: missing,
		now:     time.Now,
	}
}

func (a *GormAdapter) Name() string { return "postgres" }

func (a *GormAdapter) Initialize(ctx context.Context) ([]model.Request, error) {
	records, err := a.List(ctx)
	if err != nil {
		return nil, err
	}
	a.Publish(records)
	return records, nil
}

func (a *GormAdapter) List(ctx context.Context) ([]model.Request, error) {
	records := []model.Request{}
	if err := a.conn(ctx).Order("created_at ASC, id ASC").Find(&records).Error; err != nil {
		return nil, classifyGorm(err)
	}
	return records, nil
}

func (a *GormAdapter) Create(ctx context.Context, req *model.Request) (*model.Request, error) {
	rec := req.Clone()
	prepareCreate(&rec, a.now())
	if err := a.conn(ctx).Create(&rec).Error; err != nil {
		return nil, classifyGorm(err)
	}
	publishFresh(ctx, &a.ChangeFeed, a.List, a.logger, a.Name(), "create")
	return &rec, nil
}

func (a *GormAdapter) Update(ctx context.Context, req *model.Request) (*model.Request, error) {
	rec := req.Clone()
	now := a.now()

	err := a.inTx(ctx, func(txCtx context.Context) error {
		existing, err := a.find(txCtx, &rec)
		if err != nil {
			return err
		}
		if existing == nil {
			if a.missing != MissingInsert {
				return ErrNotFound
			}
			prepareCreate(&rec, now)
			return a.conn(txCtx).Create(&rec).Error
		}
		rec.ID = existing.ID
		rec.CreatedAt = existing.CreatedAt
		rec.UpdatedAt = now
		return a.conn(txCtx).Save(&rec).Error
	})
	if err != nil {
		return nil, classifyGorm(err)
	}

	publishFresh(ctx, &a.ChangeFeed, a.List, a.logger, a.Name(), "update")
	return &rec, nil
}

func (a *GormAdapter) Delete(ctx context.Context, req *model.Request) error {
	err := a.inTx(ctx, func(txCtx context.Context) error {
		existing, err := a.find(txCtx, req)
		if err != nil {
			return err
		}
		if existing == nil {
			return ErrNotFound
		}
		return a.conn(txCtx).Delete(&model.Request{}, "id = ?", existing.ID).Error
	})
	if err != nil {
		return classifyGorm(err)
	}

	publishFresh(ctx, &a.ChangeFeed, a.List, a.logger, a.Name(), "delete")
	return nil
}

type txKey struct{}

// inTx runs fn inside a transaction carried by the context. A context that already carries one
// reuses it.
func (a *GormAdapter) inTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return fn(ctx)
	}
	return a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// conn returns the transaction in ctx, or the root handle.
func (a *GormAdapter) conn(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx.WithContext(ctx)
	}
	return a.db.WithContext(ctx)
}

// find looks a record up by id, or by document number when the id is empty.
func (a *GormAdapter) find(ctx context.Context, target *model.Request) (*model.Request, error) {
	query := a.conn(ctx)
	if target.ID != "" {
		query = query.Where("id = ?", target.ID)
	} else if target.DocumentNumber != "" {
		query = query.Where("document_number = ?", target.DocumentNumber)
	} else {
		return nil, nil
	}

	var rec model.Request
	if err := query.First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

// classifyGorm maps driver failures onto the store error taxonomy.
func classifyGorm(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case strings.HasPrefix(pgErr.Code, "08"):
			return fmt.Errorf("%w: %s", ErrConnection, pgErr.Message)
		case pgErr.Code == PgErrInvalidAuthorization || pgErr.Code == PgErrInvalidPassword:
			return fmt.Errorf("%w: %s", ErrAuth, pgErr.Message)
		case pgErr.Code == PgErrUndefinedTable || pgErr.Code == PgErrUndefinedColumn:
			return fmt.Errorf("%w: %s", ErrSchema, pgErr.Message)
		}
		return fmt.Errorf("postgres: %w", err)
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return fmt.Errorf("%w: %v", ErrConnection, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: %v", ErrConnection, err)
	}
	return fmt.Errorf("postgres: %w", err)
}
