package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"atkform/internal/model"

	"go.uber.org/zap"
)

// SheetColumns is the fixed leading layout of the request sheet. Row 1 holds this header.
var SheetColumns = []string{
	"__backendId", "recordType", "documentNumber", "year", "workUnit", "items",
	"submissionDate", "submissionLocation", "requesterName", "requesterNIP", "status",
	"verifierName", "verifierNIP", "verificationDate", "supervisorName", "supervisorNIP",
	"supervisorApprovalDate", "rejectionReason", "rejectedBy", "createdAt", "updatedAt",
}

// sheetExtensionColumns follow the fixed layout and carry what it has no room for.
var sheetExtensionColumns = []string{
	"requesterSignature", "verifierSignature", "supervisorSignature",
	"goodsReleaseName", "goodsReleaseNIP", "goodsReleaseDate", "goodsReleaseSignature",
}

// sheetCellLimit stays under the per-cell limits of xlsx (32,767 chars) and Google Sheets
// (50,000 chars). A longer value continues in "<column>#2", "<column>#3" and so on.
const sheetCellLimit = 32000

// ExpectedSheetHeader is the header this adapter writes: fixed columns, then extensions.
func ExpectedSheetHeader() []string {
	h := make([]string, 0, len(SheetColumns)+len(sheetExtensionColumns))
	h = append(h, SheetColumns...)
	return append(h, sheetExtensionColumns...)
}

// Table is a row-addressed spreadsheet. Row numbers are 1-based and row 1 is the header.
type Table interface {
	ReadAll(ctx context.Context) ([][]string, error)
	WriteRows(ctx context.Context, startRow int, rows [][]string) error
	AppendRow(ctx context.Context, row []string) error
	DeleteRow(ctx context.Context, row int) error
}

// SheetAdapter stores requests as rows of a Table. Rows are located by linear scan; no index
// is kept.
type SheetAdapter struct {
	ChangeFeed
	table   Table
	name    string
	logger  *zap.Logger
	missing MissingPolicy
	now     func() time.Time
}

func NewSheetAdapter(name string, table Table, missing MissingPolicy, logger *zap.Logger) *SheetAdapter {
	logger.Info("sheet request store ready",
		zap.String("adapter", name),
		zap.String("update_missing", string(missing)))
	return &SheetAdapter{table: table, name: name, logger: logger, missing: missing, now: time.Now}
}

func (a *SheetAdapter) Name() string { return a.name }

// sheetState is one read of the table: the header in effect and the decoded data rows.
type sheetState struct {
	header  []string
	index   map[string]int
	records []model.Request
	rows    [][]string
	rowNums []int
	// rawItems marks rows whose items cell did not decode; it is written back as found.
	rawItems []bool
}

func (a *SheetAdapter) Initialize(ctx context.Context) ([]model.Request, error) {
	st, err := a.load(ctx)
	if err != nil {
		return nil, err
	}
	a.Publish(st.records)
	return st.records, nil
}

func (a *SheetAdapter) List(ctx context.Context) ([]model.Request, error) {
	st, err := a.load(ctx)
	if err != nil {
		return nil, err
	}
	return st.records, nil
}

func (a *SheetAdapter) Create(ctx context.Context, req *model.Request) (*model.Request, error) {
	st, err := a.load(ctx)
	if err != nil {
		return nil, err
	}
	rec := req.Clone()
	prepareCreate(&rec, a.now())

	header, err := a.widenHeader(ctx, st.header, &rec)
	if err != nil {
		return nil, err
	}
	if err := a.table.AppendRow(ctx, encodeRow(&rec, header, nil, nil)); err != nil {
		return nil, err
	}
	publishFresh(ctx, &a.ChangeFeed, a.List, a.logger, a.name, "create")
	return &rec, nil
}

func (a *SheetAdapter) Update(ctx context.Context, req *model.Request) (*model.Request, error) {
	st, err := a.load(ctx)
	if err != nil {
		return nil, err
	}
	rec := req.Clone()
	now := a.now()

	i := matchIndex(st.records, &rec)
	if i < 0 {
		if a.missing != MissingInsert {
			return nil, fmt.Errorf("%w: update %s", ErrNotFound, describe(&rec))
		}
		prepareCreate(&rec, now)
		header, err := a.widenHeader(ctx, st.header, &rec)
		if err != nil {
			return nil, err
		}
		if err := a.table.AppendRow(ctx, encodeRow(&rec, header, nil, nil)); err != nil {
			return nil, err
		}
	} else {
		rec.ID = st.records[i].ID
		rec.CreatedAt = st.records[i].CreatedAt
		rec.UpdatedAt = now
		header, err := a.widenHeader(ctx, st.header, &rec)
		if err != nil {
			return nil, err
		}
		var keep map[string]bool
		if st.rawItems[i] && len(rec.Items) == 0 {
			keep = map[string]bool{"items": true}
		}
		row := encodeRow(&rec, header, st.rows[i], keep)
		if err := a.table.WriteRows(ctx, st.rowNums[i], [][]string{row}); err != nil {
			return nil, err
		}
	}

	publishFresh(ctx, &a.ChangeFeed, a.List, a.logger, a.name, "update")
	return &rec, nil
}

func (a *SheetAdapter) Delete(ctx context.Context, req *model.Request) error {
	st, err := a.load(ctx)
	if err != nil {
		return err
	}
	i := matchIndex(st.records, req)
	if i < 0 {
		return fmt.Errorf("%w: delete %s", ErrNotFound, describe(req))
	}
	if err := a.table.DeleteRow(ctx, st.rowNums[i]); err != nil {
		return err
	}
	publishFresh(ctx, &a.ChangeFeed, a.List, a.logger, a.name, "delete")
	return nil
}

// load reads the whole table, rewriting the header first when it does not match.
func (a *SheetAdapter) load(ctx context.Context) (*sheetState, error) {
	rows, err := a.table.ReadAll(ctx)
	if err != nil {
		return nil, err
	}
	if !headerMatches(rows) {
		rows, err = a.healHeader(ctx, rows)
		if err != nil {
			return nil, err
		}
	}

	st := &sheetState{header: rows[0], index: make(map[string]int, len(rows[0]))}
	for i, h := range st.header {
		if _, dup := st.index[h]; !dup {
			st.index[h] = i
		}
	}
	for r := 1; r < len(rows); r++ {
		if rowEmpty(rows[r]) {
			continue
		}
		rec, itemsOK, decodeErr := decodeRow(rows[r], st.index)
		if decodeErr != nil {
			a.logger.Warn("sheet row partially decoded",
				zap.String("adapter", a.name),
				zap.Int("row", r+1),
				zap.Error(decodeErr))
		}
		st.records = append(st.records, rec)
		st.rows = append(st.rows, rows[r])
		st.rowNums = append(st.rowNums, r+1)
		st.rawItems = append(st.rawItems, !itemsOK)
	}
	if st.records == nil {
		st.records = []model.Request{}
	}
	return st, nil
}

func headerMatches(rows [][]string) bool {
	if len(rows) == 0 {
		return false
	}
	expected := ExpectedSheetHeader()
	if len(rows[0]) < len(expected) {
		return false
	}
	for i, h := range expected {
		if rows[0][i] != h {
			return false
		}
	}
	return true
}

// healHeader rewrites the sheet to the expected layout. Existing data rows are re-mapped by
// column name and columns this adapter does not know are kept after the known ones.
func (a *SheetAdapter) healHeader(ctx context.Context, rows [][]string) ([][]string, error) {
	var oldHeader []string
	if len(rows) > 0 {
		oldHeader = rows[0]
	}
	width := len(oldHeader)
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}

	// Name every old column so no cell is left without a home. Repeated names get a suffix.
	oldNames := make([]string, width)
	taken := make(map[string]bool, width)
	for i := 0; i < width; i++ {
		base := fmt.Sprintf("column_%d", i+1)
		if i < len(oldHeader) && strings.TrimSpace(oldHeader[i]) != "" {
			base = oldHeader[i]
		}
		name := base
		for n := 2; taken[name]; n++ {
			name = fmt.Sprintf("%s_%d", base, n)
		}
		taken[name] = true
		oldNames[i] = name
	}

	newHeader := ExpectedSheetHeader()
	known := make(map[string]bool, len(newHeader))
	for _, h := range newHeader {
		known[h] = true
	}
	for _, h := range oldNames {
		if !known[h] {
			newHeader = append(newHeader, h)
			known[h] = true
		}
	}

	newIndex := make(map[string]int, len(newHeader))
	for i, h := range newHeader {
		newIndex[h] = i
	}

	out := make([][]string, 0, len(rows))
	out = append(out, newHeader)
	for r := 1; r < len(rows); r++ {
		remapped := make([]string, len(newHeader))
		for c, v := range rows[r] {
			if pos, ok := newIndex[oldNames[c]]; ok && remapped[pos] == "" {
				remapped[pos] = v
			}
		}
		out = append(out, remapped)
	}

	a.logger.Warn("sheet header did not match, rewriting",
		zap.String("adapter", a.name),
		zap.Strings("found", oldHeader),
		zap.Int("data_rows", len(out)-1))

	if err := a.table.WriteRows(ctx, 1, out); err != nil {
		return nil, fmt.Errorf("%w: rewrite header: %w", ErrSchema, err)
	}
	return out, nil
}

func rowEmpty(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func describe(req *model.Request) string {
	if req.ID != "" {
		return "id " + req.ID
	}
	return "document " + req.DocumentNumber
}

// widenHeader appends the continuation columns rec needs and are not in header yet.
func (a *SheetAdapter) widenHeader(ctx context.Context, header []string, rec *model.Request) ([]string, error) {
	present := make(map[string]bool, len(header))
	for _, h := range header {
		present[h] = true
	}
	var extra []string
	for _, h := range header {
		if _, part := splitColumnName(h); part != 1 {
			continue
		}
		v, owned := cellValue(rec, h)
		if !owned {
			continue
		}
		for n := 2; n <= len(splitCell(v)); n++ {
			if name := continuationName(h, n); !present[name] {
				extra = append(extra, name)
				present[name] = true
			}
		}
	}
	if len(extra) == 0 {
		return header, nil
	}

	widened := append(append([]string(nil), header...), extra...)
	if err := a.table.WriteRows(ctx, 1, [][]string{widened}); err != nil {
		return nil, err
	}
	a.logger.Info("sheet header widened for long cells",
		zap.String("adapter", a.name),
		zap.Strings("columns", extra))
	return widened, nil
}

// encodeRow lays a record out along header. Cells of columns the adapter does not own, of
// repeated column names and of columns named in keep are copied from prev.
func encodeRow(rec *model.Request, header []string, prev []string, keep map[string]bool) []string {
	row := make([]string, len(header))
	seen := make(map[string]bool, len(header))
	for i, h := range header {
		repeated := seen[h]
		seen[h] = true

		column, part := splitColumnName(h)
		v, owned := cellValue(rec, column)
		if repeated || !owned || keep[column] {
			if i < len(prev) {
				row[i] = prev[i]
			}
			continue
		}
		if parts := splitCell(v); part <= len(parts) {
			row[i] = parts[part-1]
		}
	}
	return row
}

// splitCell cuts v into pieces of at most sheetCellLimit characters.
func splitCell(v string) []string {
	if utf8.RuneCountInString(v) <= sheetCellLimit {
		return []string{v}
	}
	var parts []string
	for len(v) > 0 {
		cut, n := len(v), 0
		for i := range v {
			if n == sheetCellLimit {
				cut = i
				break
			}
			n++
		}
		parts = append(parts, v[:cut])
		v = v[cut:]
	}
	return parts
}

func continuationName(column string, part int) string {
	return column + "#" + strconv.Itoa(part)
}

// splitColumnName turns "requesterSignature#2" into ("requesterSignature", 2). Any other
// name is part 1 of itself.
func splitColumnName(h string) (string, int) {
	i := strings.LastIndex(h, "#")
	if i <= 0 {
		return h, 1
	}
	n, err := strconv.Atoi(h[i+1:])
	if err != nil || n < 2 {
		return h, 1
	}
	return h[:i], n
}

// checkCellLength rejects rows a backend would truncate or refuse.
func checkCellLength(rows [][]string, limit int) error {
	for r, row := range rows {
		for c, v := range row {
			if n := utf8.RuneCountInString(v); n > limit {
				return fmt.Errorf("%w: cell %d of row %d has %d chars, limit %d", ErrSchema, c+1, r+1, n, limit)
			}
		}
	}
	return nil
}

func cellValue(rec *model.Request, column string) (string, bool) {
	switch column {
	case "__backendId":
		return rec.ID, true
	case "recordType":
		return rec.RecordType, true
	case "documentNumber":
		return rec.DocumentNumber, true
	case "year":
		return rec.Year, true
	case "workUnit":
		return rec.WorkUnit, true
	case "items":
		items := rec.Items
		if items == nil {
			items = []model.Item{}
		}
		b, _ := json.Marshal(items)
		return string(b), true
	case "submissionDate":
		return rec.SubmissionDate, true
	case "submissionLocation":
		return rec.Location, true
	case "requesterName":
		return rec.RequesterName, true
	case "requesterNIP":
		return rec.RequesterNIP, true
	case "requesterSignature":
		return rec.RequesterSignature, true
	case "status":
		return rec.Status, true
	case "verifierName":
		return rec.VerifierName, true
	case "verifierNIP":
		return rec.VerifierNIP, true
	case "verificationDate":
		return rec.VerifierDate, true
	case "verifierSignature":
		return rec.VerifierSignature, true
	case "supervisorName":
		return rec.SupervisorName, true
	case "supervisorNIP":
		return rec.SupervisorNIP, true
	case "supervisorApprovalDate":
		return rec.SupervisorDate, true
	case "supervisorSignature":
		return rec.SupervisorSignature, true
	case "goodsReleaseName":
		return rec.GoodsReleaseName, true
	case "goodsReleaseNIP":
		return rec.GoodsReleaseNIP, true
	case "goodsReleaseDate":
		return rec.GoodsReleaseDate, true
	case "goodsReleaseSignature":
		return rec.GoodsReleaseSignature, true
	case "rejectionReason":
		return rec.RejectionReason, true
	case "rejectedBy":
		return rec.RejectedBy, true
	case "createdAt":
		return formatTime(rec.CreatedAt), true
	case "updatedAt":
		return formatTime(rec.UpdatedAt), true
	}
	return "", false
}

// sheetItem accepts quantities written as numbers or as numeric strings.
type sheetItem struct {
	Name     string      `json:"name"`
	Quantity json.Number `json:"quantity"`
	Unit     string      `json:"unit"`
}

func decodeItems(raw string) ([]model.Item, error) {
	var cells []sheetItem
	if err := json.Unmarshal([]byte(raw), &cells); err != nil {
		return nil, err
	}
	items := make([]model.Item, 0, len(cells))
	for i, c := range cells {
		q, err := c.Quantity.Int64()
		if err != nil {
			return nil, fmt.Errorf("item %d quantity %q: %w", i, c.Quantity, err)
		}
		items = append(items, model.Item{Name: c.Name, Quantity: int(q), Unit: c.Unit})
	}
	return items, nil
}

// decodeRow reads a record from a row. Malformed cells are skipped and reported together.
// itemsOK is false when a non-empty items cell could not be decoded.
func decodeRow(row []string, index map[string]int) (rec model.Request, itemsOK bool, err error) {
	cell := func(col string) (string, bool) {
		if i, ok := index[col]; ok && i < len(row) {
			return row[i], true
		}
		return "", false
	}
	get := func(col string) string {
		v, _ := cell(col)
		for n := 2; ; n++ {
			next, ok := cell(continuationName(col, n))
			if !ok || next == "" {
				return v
			}
			v += next
		}
	}

	rec = model.Request{
		ID:                    get("__backendId"),
		RecordType:            get("recordType"),
		DocumentNumber:        get("documentNumber"),
		Year:                  get("year"),
		WorkUnit:              get("workUnit"),
		SubmissionDate:        get("submissionDate"),
		Location:              get("submissionLocation"),
		RequesterName:         get("requesterName"),
		RequesterNIP:          get("requesterNIP"),
		RequesterSignature:    get("requesterSignature"),
		Status:                get("status"),
		VerifierName:          get("verifierName"),
		VerifierNIP:           get("verifierNIP"),
		VerifierDate:          get("verificationDate"),
		VerifierSignature:     get("verifierSignature"),
		SupervisorName:        get("supervisorName"),
		SupervisorNIP:         get("supervisorNIP"),
		SupervisorDate:        get("supervisorApprovalDate"),
		SupervisorSignature:   get("supervisorSignature"),
		GoodsReleaseName:      get("goodsReleaseName"),
		GoodsReleaseNIP:       get("goodsReleaseNIP"),
		GoodsReleaseDate:      get("goodsReleaseDate"),
		GoodsReleaseSignature: get("goodsReleaseSignature"),
		RejectionReason:       get("rejectionReason"),
		RejectedBy:            get("rejectedBy"),
	}

	var errs []error
	itemsOK = true
	if raw := get("items"); strings.TrimSpace(raw) != "" {
		if rec.Items, err = decodeItems(raw); err != nil {
			errs = append(errs, fmt.Errorf("items: %w", err))
			rec.Items = nil
			itemsOK = false
		}
	}
	if rec.CreatedAt, err = parseTime(get("createdAt")); err != nil {
		errs = append(errs, fmt.Errorf("createdAt: %w", err))
	}
	if rec.UpdatedAt, err = parseTime(get("updatedAt")); err != nil {
		errs = append(errs, fmt.Errorf("updatedAt: %w", err))
	}
	return rec, itemsOK, errors.Join(errs...)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}
