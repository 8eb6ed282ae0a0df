package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/xuri/excelize/v2"
)

// WorkbookTable is a Table kept in an xlsx file on disk. The file is opened and saved on
// every call. Cells longer than excelize.TotalCellChars are refused rather than truncated.
type WorkbookTable struct {
	mu    sync.Mutex
	path  string
	sheet string
}

// NewWorkbookTable creates the workbook when it does not exist yet.
func NewWorkbookTable(path, sheet string) (*WorkbookTable, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: missing workbook path", ErrConnection)
	}
	if sheet == "" {
		sheet = "data"
	}
	t := &WorkbookTable{path: path, sheet: sheet}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrConnection, err)
		}
		f := excelize.NewFile()
		defer f.Close()
		f.SetSheetName("Sheet1", sheet)
		if err := f.SaveAs(path); err != nil {
			return nil, fmt.Errorf("%w: create workbook: %v", ErrConnection, err)
		}
	}
	return t, nil
}

func (t *WorkbookTable) ReadAll(ctx context.Context) ([][]string, error) {
	var rows [][]string
	err := t.with(ctx, false, func(f *excelize.File) error {
		var err error
		rows, err = f.GetRows(t.sheet)
		return err
	})
	return rows, err
}

func (t *WorkbookTable) WriteRows(ctx context.Context, startRow int, rows [][]string) error {
	if err := checkCellLength(rows, excelize.TotalCellChars); err != nil {
		return err
	}
	return t.with(ctx, true, func(f *excelize.File) error {
		for i, row := range rows {
			if err := t.setRow(f, startRow+i, row); err != nil {
				return err
			}
		}
		return nil
	})
}

func (t *WorkbookTable) AppendRow(ctx context.Context, row []string) error {
	if err := checkCellLength([][]string{row}, excelize.TotalCellChars); err != nil {
		return err
	}
	return t.with(ctx, true, func(f *excelize.File) error {
		rows, err := f.GetRows(t.sheet)
		if err != nil {
			return err
		}
		return t.setRow(f, len(rows)+1, row)
	})
}

func (t *WorkbookTable) DeleteRow(ctx context.Context, row int) error {
	return t.with(ctx, true, func(f *excelize.File) error {
		return f.RemoveRow(t.sheet, row)
	})
}

func (t *WorkbookTable) setRow(f *excelize.File, rowNum int, row []string) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return err
	}
	values := make([]interface{}, len(row))
	for i, v := range row {
		values[i] = v
	}
	return f.SetSheetRow(t.sheet, cell, &values)
}

// with opens the workbook, makes sure the sheet exists, runs fn and saves when write is set.
func (t *WorkbookTable) with(ctx context.Context, write bool, fn func(f *excelize.File) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	f, err := excelize.OpenFile(t.path)
	if err != nil {
		return fmt.Errorf("%w: open workbook: %v", ErrConnection, err)
	}
	defer f.Close()

	idx, err := f.GetSheetIndex(t.sheet)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSchema, err)
	}
	if idx == -1 {
		if _, err := f.NewSheet(t.sheet); err != nil {
			return fmt.Errorf("%w: %v", ErrSchema, err)
		}
		write = true
	}

	if err := fn(f); err != nil {
		return fmt.Errorf("workbook %s: %w", t.path, err)
	}
	if !write {
		return nil
	}
	if err := f.Save(); err != nil {
		return fmt.Errorf("%w: save workbook: %v", ErrConnection, err)
	}
	return nil
}
