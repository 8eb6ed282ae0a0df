package service

import (
	"context"
	"errors"
	"testing"

	"atkform/internal/model"

	"go.uber.org/zap"
)

func exportFixture() *AppContext {
	app := NewAppContext(model.DefaultSettings(testNow))
	app.OnRecordsChanged([]model.Request{
		{
			ID: "1", DocumentNumber: "0001/ATK/01/2025", Year: "2025", WorkUnit: "Umum",
			SubmissionDate: "2025-01-05", RequesterName: "Andi", RequesterNIP: "100", Status: model.StatusApproved,
			Items: []model.Item{{Name: "Pulpen", Quantity: 5, Unit: "box"}, {Name: "Kertas", Quantity: 2, Unit: "rim"}},
		},
		{
			ID: "2", DocumentNumber: "0002/ATK/02/2025", Year: "2025", WorkUnit: "IPDS",
			SubmissionDate: "2025-02-11", RequesterName: "Budi", RequesterNIP: "200", Status: model.StatusPending,
			Items: []model.Item{{Name: "Map", Quantity: 10, Unit: "pcs"}},
		},
	})
	return app
}

func TestExportService_Export(t *testing.T) {
	svc := NewExportService(exportFixture(), zap.NewNop())

	f, name, err := svc.Export(context.Background(), 2025, 1)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	defer f.Close()

	if name != "ATK_Export_2025_01.xlsx" {
		t.Errorf("filename = %q", name)
	}
	rows, err := f.GetRows(exportSheet)
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want header + 2 items", len(rows))
	}
	if rows[0][0] != "No Dokumen" || rows[0][9] != "Status" {
		t.Errorf("header = %v", rows[0])
	}
	if rows[2][3] != "Kertas" || rows[2][4] != "2" || rows[2][9] != model.StatusApproved {
		t.Errorf("item row = %v", rows[2])
	}
}

func TestExportService_AllPeriods(t *testing.T) {
	svc := NewExportService(exportFixture(), zap.NewNop())

	f, name, err := svc.Export(context.Background(), 0, 0)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	defer f.Close()
	if name != "ATK_Export_All_All.xlsx" {
		t.Errorf("filename = %q", name)
	}
	rows, _ := f.GetRows(exportSheet)
	if len(rows) != 4 {
		t.Errorf("rows = %d, want 4", len(rows))
	}
}

func TestExportService_NoData(t *testing.T) {
	svc := NewExportService(exportFixture(), zap.NewNop())

	_, _, err := svc.Export(context.Background(), 2024, 0)
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
}
