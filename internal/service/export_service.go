package service

import (
	"context"
	"fmt"

	"atkform/internal/model"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const exportSheet = "Permintaan ATK"

type exportColumn struct {
	header string
	width  float64
}

var exportColumns = []exportColumn{
	{"No Dokumen", 25},
	{"Tahun", 10},
	{"Bagian/Fungsi", 20},
	{"Nama Item", 30},
	{"Jumlah", 10},
	{"Satuan", 15},
	{"Pemohon", 25},
	{"NIP Pemohon", 20},
	{"Tanggal", 15},
	{"Status", 15},
}

type ExportService interface {
	// Export builds a workbook with one row per requested item. Zero year or month means all.
	Export(ctx context.Context, year, month int) (*excelize.File, string, error)
}

type exportService struct {
	app    *AppContext
	logger *zap.Logger
}

func NewExportService(app *AppContext, logger *zap.Logger) ExportService {
	return &exportService{app: app, logger: logger}
}

func (s *exportService) Export(ctx context.Context, year, month int) (*excelize.File, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}

	var records []model.Request
	for _, r := range s.app.Records() {
		if inPeriod(r.SubmissionDate, year, month) {
			records = append(records, r)
		}
	}
	if len(records) == 0 {
		return nil, "", invalid("", "no data to export")
	}

	f := excelize.NewFile()
	f.SetSheetName("Sheet1", exportSheet)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})

	for i, c := range exportColumns {
		col, _ := excelize.ColumnNumberToName(i + 1)
		cell := col + "1"
		f.SetCellValue(exportSheet, cell, c.header)
		f.SetCellStyle(exportSheet, cell, cell, headerStyle)
		f.SetColWidth(exportSheet, col, col, c.width)
	}

	row := 2
	for _, r := range records {
		for _, item := range r.Items {
			values := []interface{}{
				r.DocumentNumber,
				r.Year,
				r.WorkUnit,
				item.Name,
				item.Quantity,
				item.Unit,
				r.RequesterName,
				r.RequesterNIP,
				r.SubmissionDate,
				r.Status,
			}
			cell, _ := excelize.CoordinatesToCellName(1, row)
			if err := f.SetSheetRow(exportSheet, cell, &values); err != nil {
				f.Close()
				return nil, "", fmt.Errorf("write export row %d: %w", row, err)
			}
			row++
		}
	}

	filename := fmt.Sprintf("ATK_Export_%s_%s.xlsx", periodLabel(year, "%d"), periodLabel(month, "%02d"))
	s.logger.Info("requests exported",
		zap.Int("records", len(records)),
		zap.Int("rows", row-2),
		zap.String("file", filename))
	return f, filename, nil
}

func periodLabel(v int, format string) string {
	if v == 0 {
		return "All"
	}
	return fmt.Sprintf(format, v)
}
