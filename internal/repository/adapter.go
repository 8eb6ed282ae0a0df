package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"atkform/internal/model"

	"github.com/google/uuid"
)

// Store error taxonomy. Adapters wrap backend failures with one of these so callers can
// branch with errors.Is.
var (
	ErrConnection = errors.New("store connection error")
	ErrAuth       = errors.New("store authorization error")
	ErrNotFound   = errors.New("record not found")
	ErrSchema     = errors.New("store schema error")
)

// MissingPolicy decides what Update does when no stored record matches.
type MissingPolicy string

const (
	MissingFail   MissingPolicy = "fail"
	MissingInsert MissingPolicy = "insert"
)

// ParseMissingPolicy accepts the config spelling of a MissingPolicy.
func ParseMissingPolicy(s string) (MissingPolicy, error) {
	switch MissingPolicy(s) {
	case "", MissingFail:
		return MissingFail, nil
	case MissingInsert:
		return MissingInsert, nil
	default:
		return "", fmt.Errorf("unknown update policy %q (want fail or insert)", s)
	}
}

// RequestAdapter persists request records. Every implementation re-reads the full set after a
// successful mutation and publishes it to its subscribers.
type RequestAdapter interface {
	Name() string
	Initialize(ctx context.Context) ([]model.Request, error)
	List(ctx context.Context) ([]model.Request, error)
	Create(ctx context.Context, req *model.Request) (*model.Request, error)
	Update(ctx context.Context, req *model.Request) (*model.Request, error)
	Delete(ctx context.Context, req *model.Request) error
	Subscribe(fn func([]model.Request)) (cancel func())
}

// NewBackendID returns a time-ordered identifier for a new record.
func NewBackendID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// matchIndex finds target in records by backend id, falling back to the document number
// when the target carries no id.
func matchIndex(records []model.Request, target *model.Request) int {
	for i := range records {
		if target.ID != "" {
			if records[i].ID == target.ID {
				return i
			}
			continue
		}
		if target.DocumentNumber != "" && records[i].DocumentNumber == target.DocumentNumber {
			return i
		}
	}
	return -1
}

// prepareCreate stamps identity and timestamps on a record about to be inserted.
func prepareCreate(req *model.Request, now time.Time) {
	if req.ID == "" {
		req.ID = NewBackendID()
	}
	if req.RecordType == "" {
		req.RecordType = model.RecordTypeATK
	}
	if req.CreatedAt.IsZero() {
		req.CreatedAt = now
	}
	req.UpdatedAt = now
}

// sortRecords orders a record set by creation time, then id.
func sortRecords(records []model.Request) {
	sort.SliceStable(records, func(i, j int) bool {
		if !records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].CreatedAt.Before(records[j].CreatedAt)
		}
		return records[i].ID < records[j].ID
	})
}
