package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"atkform/internal/model"

	"go.uber.org/zap"
)

// memTable is an in-memory Table.
type memTable struct {
	rows    [][]string
	readErr error
	writes  int
}

func (t *memTable) ReadAll(context.Context) ([][]string, error) {
	if t.readErr != nil {
		return nil, t.readErr
	}
	out := make([][]string, len(t.rows))
	for i, r := range t.rows {
		out[i] = append([]string(nil), r...)
	}
	return out, nil
}

func (t *memTable) WriteRows(_ context.Context, startRow int, rows [][]string) error {
	t.writes++
	for i, r := range rows {
		idx := startRow - 1 + i
		for len(t.rows) <= idx {
			t.rows = append(t.rows, nil)
		}
		t.rows[idx] = append([]string(nil), r...)
	}
	return nil
}

func (t *memTable) AppendRow(_ context.Context, row []string) error {
	t.rows = append(t.rows, append([]string(nil), row...))
	return nil
}

func (t *memTable) DeleteRow(_ context.Context, row int) error {
	if row < 1 || row > len(t.rows) {
		return fmt.Errorf("row %d out of range", row)
	}
	t.rows = append(t.rows[:row-1], t.rows[row:]...)
	return nil
}

func newTestSheet(table Table, missing MissingPolicy) *SheetAdapter {
	a := NewSheetAdapter("sheets", table, missing, zap.NewNop())
	a.now = func() time.Time { return time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC) }
	return a
}

func TestSheetAdapter_InitializeWritesHeaderOnEmptySheet(t *testing.T) {
	table := &memTable{}
	a := newTestSheet(table, MissingFail)

	records, err := a.Initialize(context.Background())
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("records = %d", len(records))
	}
	if len(table.rows) != 1 || !headerMatches(table.rows) {
		t.Fatalf("header not written: %v", table.rows)
	}
	if table.rows[0][0] != "__backendId" || table.rows[0][20] != "updatedAt" {
		t.Errorf("unexpected header %v", table.rows[0])
	}
}

func TestSheetAdapter_HealHeaderKeepsData(t *testing.T) {
	// Old layout: shuffled known columns, an unknown column and an unnamed one.
	table := &memTable{rows: [][]string{
		{"documentNumber", "notes", "__backendId", "status", "items"},
		{"0001/ATK/01/2025", "urgent", "id-1", "pending", `[{"name":"Pulpen","quantity":5,"unit":"box"}]`, "stray"},
	}}
	a := newTestSheet(table, MissingFail)

	records, err := a.Initialize(context.Background())
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("records = %d, want 1", len(records))
	}
	rec := records[0]
	if rec.ID != "id-1" || rec.DocumentNumber != "0001/ATK/01/2025" || rec.Status != model.StatusPending {
		t.Errorf("record not re-mapped: %+v", rec)
	}
	if len(rec.Items) != 1 || rec.Items[0].Name != "Pulpen" {
		t.Errorf("items = %+v", rec.Items)
	}

	header := table.rows[0]
	if !headerMatches(table.rows) {
		t.Fatalf("header not healed: %v", header)
	}
	expected := len(ExpectedSheetHeader())
	if len(header) != expected+2 || header[expected] != "notes" || header[expected+1] != "column_6" {
		t.Fatalf("unknown columns not kept: %v", header[expected:])
	}
	if table.rows[1][expected] != "urgent" || table.rows[1][expected+1] != "stray" {
		t.Errorf("unknown cells lost: %v", table.rows[1][expected:])
	}
}

func TestSheetAdapter_UpdatePreservesForeignCells(t *testing.T) {
	header := append(ExpectedSheetHeader(), "notes")
	table := &memTable{rows: [][]string{header}}
	a := newTestSheet(table, MissingFail)
	ctx := context.Background()

	created, err := a.Create(ctx, sampleRequest("0001/ATK/01/2025"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	table.rows[1][len(header)-1] = "keep me"

	changed := created.Clone()
	changed.Status = model.StatusVerified
	changed.VerifierName = "Budi"
	if _, err := a.Update(ctx, &changed); err != nil {
		t.Fatalf("update: %v", err)
	}

	if got := table.rows[1][len(header)-1]; got != "keep me" {
		t.Errorf("foreign cell = %q", got)
	}
	records, _ := a.List(ctx)
	if records[0].VerifierName != "Budi" || records[0].RequesterSignature != created.RequesterSignature {
		t.Errorf("record after update = %+v", records[0])
	}
	if !records[0].CreatedAt.Equal(created.CreatedAt) {
		t.Errorf("createdAt = %v, want %v", records[0].CreatedAt, created.CreatedAt)
	}
}

func TestSheetAdapter_DeleteAndNotFound(t *testing.T) {
	table := &memTable{rows: [][]string{ExpectedSheetHeader()}}
	a := newTestSheet(table, MissingFail)
	ctx := context.Background()

	first, _ := a.Create(ctx, sampleRequest("0001/ATK/01/2025"))
	second, _ := a.Create(ctx, sampleRequest("0002/ATK/01/2025"))

	var last []model.Request
	a.Subscribe(func(records []model.Request) { last = records })

	if err := a.Delete(ctx, &model.Request{ID: "missing"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if len(table.rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(table.rows))
	}

	// by document number when the id is empty
	if err := a.Delete(ctx, &model.Request{DocumentNumber: first.DocumentNumber}); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(last) != 1 || last[0].ID != second.ID {
		t.Errorf("snapshot after delete = %+v", last)
	}
}

func TestSheetAdapter_UpdateMissingInsert(t *testing.T) {
	table := &memTable{rows: [][]string{ExpectedSheetHeader()}}
	a := newTestSheet(table, MissingInsert)

	req := sampleRequest("0009/ATK/01/2025")
	req.ID = "restored"
	if _, err := a.Update(context.Background(), req); err != nil {
		t.Fatalf("update: %v", err)
	}
	if len(table.rows) != 2 || table.rows[1][0] != "restored" {
		t.Errorf("rows = %v", table.rows)
	}
}

func TestSheetAdapter_ReadErrorPassesThrough(t *testing.T) {
	table := &memTable{readErr: fmt.Errorf("%w: unreachable", ErrConnection)}
	a := newTestSheet(table, MissingFail)

	if _, err := a.Initialize(context.Background()); !errors.Is(err, ErrConnection) {
		t.Fatalf("err = %v, want ErrConnection", err)
	}
}

func TestSheetAdapter_BadCellsDoNotDropRow(t *testing.T) {
	header := ExpectedSheetHeader()
	row := make([]string, len(header))
	row[0] = "id-1"
	row[5] = "not json"
	row[19] = "yesterday"
	table := &memTable{rows: [][]string{header, row}}
	a := newTestSheet(table, MissingFail)

	records, err := a.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 1 || records[0].ID != "id-1" || records[0].Items != nil {
		t.Errorf("records = %+v", records)
	}
}

func TestSheetAdapter_LongCellsUseContinuationColumns(t *testing.T) {
	table := &memTable{rows: [][]string{ExpectedSheetHeader()}}
	a := newTestSheet(table, MissingFail)
	ctx := context.Background()

	req := sampleRequest("0001/ATK/01/2025")
	req.RequesterSignature = strings.Repeat("a", sheetCellLimit) + strings.Repeat("b", sheetCellLimit) + "c"
	created, err := a.Create(ctx, req)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	header := table.rows[0]
	if !headerMatches(table.rows) {
		t.Fatalf("header broken: %v", header)
	}
	tail := header[len(ExpectedSheetHeader()):]
	if len(tail) != 2 || tail[0] != "requesterSignature#2" || tail[1] != "requesterSignature#3" {
		t.Fatalf("continuation columns = %v", tail)
	}
	for i, v := range table.rows[1] {
		if len(v) > sheetCellLimit {
			t.Errorf("cell %s has %d chars", header[i], len(v))
		}
	}

	// Shrinking the value clears the continuation cells.
	short := created.Clone()
	short.RequesterSignature = "data:image/png;base64,AAA"
	if _, err := a.Update(ctx, &short); err != nil {
		t.Fatalf("update: %v", err)
	}
	records, _ := a.List(ctx)
	if records[0].RequesterSignature != short.RequesterSignature {
		t.Errorf("signature = %q", records[0].RequesterSignature)
	}
}

func TestSheetAdapter_StringQuantitiesDecode(t *testing.T) {
	header := ExpectedSheetHeader()
	row := make([]string, len(header))
	row[0] = "id-1"
	row[5] = `[{"name":"Pulpen","quantity":"5","unit":"box"}]`
	a := newTestSheet(&memTable{rows: [][]string{header, row}}, MissingFail)

	records, err := a.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records[0].Items) != 1 || records[0].Items[0].Quantity != 5 {
		t.Errorf("items = %+v", records[0].Items)
	}
}

func TestSheetAdapter_UpdateKeepsUndecodedItems(t *testing.T) {
	header := ExpectedSheetHeader()
	row := make([]string, len(header))
	row[0] = "id-1"
	row[5] = `[{"name":"Pulpen","quantity":"lima","unit":"box"}]`
	row[10] = model.StatusPending
	table := &memTable{rows: [][]string{header, row}}
	a := newTestSheet(table, MissingFail)
	ctx := context.Background()

	records, err := a.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	changed := records[0].Clone()
	changed.Status = model.StatusVerified
	if _, err := a.Update(ctx, &changed); err != nil {
		t.Fatalf("update: %v", err)
	}

	if got := table.rows[1][5]; got != row[5] {
		t.Errorf("items cell = %q, want %q", got, row[5])
	}
	if got := table.rows[1][10]; got != model.StatusVerified {
		t.Errorf("status cell = %q", got)
	}
}

func TestSheetAdapter_HealHeaderKeepsRepeatedColumns(t *testing.T) {
	table := &memTable{rows: [][]string{
		{"__backendId", "notes", "notes", "status", "status"},
		{"id-1", "first", "second", "pending", "stale"},
	}}
	a := newTestSheet(table, MissingFail)

	if _, err := a.Initialize(context.Background()); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	header := table.rows[0]
	expected := len(ExpectedSheetHeader())
	want := []string{"notes", "notes_2", "status_2"}
	if len(header) != expected+len(want) {
		t.Fatalf("header tail = %v", header[expected:])
	}
	for i, name := range want {
		if header[expected+i] != name {
			t.Errorf("header[%d] = %q, want %q", expected+i, header[expected+i], name)
		}
	}
	got := table.rows[1][expected:]
	if got[0] != "first" || got[1] != "second" || got[2] != "stale" {
		t.Errorf("repeated column data = %v", got)
	}
	if table.rows[1][10] != "pending" {
		t.Errorf("status = %q", table.rows[1][10])
	}
}
