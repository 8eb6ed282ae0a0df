package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"atkform/internal/database"
	"atkform/internal/model"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func TestClassifyGorm(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"record not found", gorm.ErrRecordNotFound, ErrNotFound},
		{"not found kept", fmt.Errorf("%w: x", ErrNotFound), ErrNotFound},
		{"connection class", &pgconn.PgError{Code: "08006", Message: "connection failure"}, ErrConnection},
		{"bad password", &pgconn.PgError{Code: PgErrInvalidPassword}, ErrAuth},
		{"bad authorization", &pgconn.PgError{Code: PgErrInvalidAuthorization}, ErrAuth},
		{"undefined table", &pgconn.PgError{Code: PgErrUndefinedTable}, ErrSchema},
		{"undefined column", &pgconn.PgError{Code: PgErrUndefinedColumn}, ErrSchema},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifyGorm(tt.err); !errors.Is(got, tt.want) {
				t.Errorf("classifyGorm(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}

	if classifyGorm(nil) != nil {
		t.Error("nil error should stay nil")
	}
	other := classifyGorm(&pgconn.PgError{Code: "23505"})
	for _, sentinel := range []error{ErrNotFound, ErrAuth, ErrSchema, ErrConnection} {
		if errors.Is(other, sentinel) {
			t.Errorf("unique violation classified as %v", sentinel)
		}
	}
}

// TestGormAdapter_Lifecycle runs against a real database when ATK_TEST_DATABASE_DSN is set.
func TestGormAdapter_Lifecycle(t *testing.T) {
	dsn := os.Getenv("ATK_TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("ATK_TEST_DATABASE_DSN not set")
	}
	db, err := database.NewConnection(dsn, zap.NewNop())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	ctx := context.Background()
	db.Exec("DELETE FROM atk_requests")

	a := NewGormAdapter(db, MissingFail, zap.NewNop())
	var last []model.Request
	a.Subscribe(func(records []model.Request) { last = records })

	created, err := a.Create(ctx, sampleRequest("0001/ATK/01/2025"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	changed := created.Clone()
	changed.Status = model.StatusVerified
	changed.VerifierName = "Budi"
	if _, err := a.Update(ctx, &changed); err != nil {
		t.Fatalf("update: %v", err)
	}
	if len(last) != 1 || last[0].VerifierName != "Budi" || last[0].Items[0].Name != "Pulpen" {
		t.Fatalf("snapshot = %+v", last)
	}

	if err := a.Delete(ctx, &model.Request{ID: "missing"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("delete missing: %v", err)
	}
	if err := a.Delete(ctx, &model.Request{DocumentNumber: created.DocumentNumber}); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(last) != 0 {
		t.Errorf("records after delete = %d", len(last))
	}
}
