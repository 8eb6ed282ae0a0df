package repository

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// googleCellLimit is the Sheets API per-cell character limit.
const googleCellLimit = 50000

// GoogleSheetTable is a Table backed by one sheet of a Google spreadsheet.
type GoogleSheetTable struct {
	svc           *sheets.Service
	spreadsheetID string
	sheetName     string

	mu      sync.Mutex
	sheetID *int64
}

// NewGoogleSheetTable authenticates with a service-account credentials file. Missing
// configuration is reported as ErrConnection.
func NewGoogleSheetTable(ctx context.Context, spreadsheetID, credentialsFile, sheetName string) (*GoogleSheetTable, error) {
	if spreadsheetID == "" {
		return nil, fmt.Errorf("%w: missing spreadsheet id", ErrConnection)
	}
	if credentialsFile == "" {
		return nil, fmt.Errorf("%w: missing credentials file", ErrConnection)
	}
	if sheetName == "" {
		sheetName = "data"
	}

	svc, err := sheets.NewService(ctx,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(sheets.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("%w: sheets client: %v", ErrAuth, err)
	}
	return &GoogleSheetTable{svc: svc, spreadsheetID: spreadsheetID, sheetName: sheetName}, nil
}

func (t *GoogleSheetTable) ReadAll(ctx context.Context) ([][]string, error) {
	resp, err := t.svc.Spreadsheets.Values.Get(t.spreadsheetID, t.sheetName).Context(ctx).Do()
	if err != nil {
		return nil, classifySheets(err)
	}
	rows := make([][]string, len(resp.Values))
	for i, raw := range resp.Values {
		row := make([]string, len(raw))
		for j, cell := range raw {
			row[j] = fmt.Sprint(cell)
		}
		rows[i] = row
	}
	return rows, nil
}

func (t *GoogleSheetTable) WriteRows(ctx context.Context, startRow int, rows [][]string) error {
	if err := checkCellLength(rows, googleCellLimit); err != nil {
		return err
	}
	vr := &sheets.ValueRange{Values: toCells(rows)}
	rng := fmt.Sprintf("%s!A%d", t.sheetName, startRow)
	_, err := t.svc.Spreadsheets.Values.Update(t.spreadsheetID, rng, vr).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	return classifySheets(err)
}

func (t *GoogleSheetTable) AppendRow(ctx context.Context, row []string) error {
	if err := checkCellLength([][]string{row}, googleCellLimit); err != nil {
		return err
	}
	vr := &sheets.ValueRange{Values: toCells([][]string{row})}
	_, err := t.svc.Spreadsheets.Values.Append(t.spreadsheetID, t.sheetName+"!A:A", vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	return classifySheets(err)
}

// DeleteRow removes the row physically; rows below shift up.
func (t *GoogleSheetTable) DeleteRow(ctx context.Context, row int) error {
	sheetID, err := t.lookupSheetID(ctx)
	if err != nil {
		return err
	}
	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			DeleteDimension: &sheets.DeleteDimensionRequest{
				Range: &sheets.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "ROWS",
					StartIndex: int64(row - 1),
					EndIndex:   int64(row),
				},
			},
		}},
	}
	_, err = t.svc.Spreadsheets.BatchUpdate(t.spreadsheetID, req).Context(ctx).Do()
	return classifySheets(err)
}

func (t *GoogleSheetTable) lookupSheetID(ctx context.Context) (int64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sheetID != nil {
		return *t.sheetID, nil
	}

	ss, err := t.svc.Spreadsheets.Get(t.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, classifySheets(err)
	}
	for _, s := range ss.Sheets {
		if s.Properties != nil && s.Properties.Title == t.sheetName {
			id := s.Properties.SheetId
			t.sheetID = &id
			return id, nil
		}
	}
	return 0, fmt.Errorf("%w: sheet %q not found in spreadsheet %s", ErrSchema, t.sheetName, t.spreadsheetID)
}

func toCells(rows [][]string) [][]interface{} {
	out := make([][]interface{}, len(rows))
	for i, row := range rows {
		cells := make([]interface{}, len(row))
		for j, v := range row {
			cells[j] = v
		}
		out[i] = cells
	}
	return out
}

// classifySheets maps API failures onto the store taxonomy. Anything that is not an
// authorization or shape problem is reported as a connection failure.
func classifySheets(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: %s", ErrAuth, apiErr.Message)
		case http.StatusBadRequest:
			return fmt.Errorf("%w: %s", ErrSchema, apiErr.Message)
		}
	}
	return fmt.Errorf("%w: %v", ErrConnection, err)
}
