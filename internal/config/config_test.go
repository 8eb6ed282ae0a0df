package config

import (
	"net/url"
	"reflect"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "8080" {
		t.Errorf("port = %q", cfg.Server.Port)
	}
	if cfg.Store.Driver != DriverLocal || cfg.Store.UpdateMissing != "fail" {
		t.Errorf("store = %+v", cfg.Store)
	}
	if cfg.Local.Path != "data/atk" || cfg.Workbook.Path != "data/atk.xlsx" {
		t.Errorf("paths = %q, %q", cfg.Local.Path, cfg.Workbook.Path)
	}
	if cfg.Redis.Enabled || cfg.Redis.Channel != "atk:records" {
		t.Errorf("redis = %+v", cfg.Redis)
	}
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("STORE_UPDATE_MISSING", "insert")
	t.Setenv("WORKBOOK_PATH", "/tmp/atk.xlsx")
	t.Setenv("CORS_ORIGINS", "http://a.test, http://b.test")
	t.Setenv("REDIS_ENABLED", "true")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("LOG_FORMAT", "json")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "9090" || cfg.Store.Driver != DriverPostgres || cfg.Store.UpdateMissing != "insert" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Workbook.Path != "/tmp/atk.xlsx" {
		t.Errorf("workbook path = %q", cfg.Workbook.Path)
	}
	if want := []string{"http://a.test", "http://b.test"}; !reflect.DeepEqual(cfg.Server.AllowOrigins, want) {
		t.Errorf("origins = %v, want %v", cfg.Server.AllowOrigins, want)
	}
	if !cfg.Redis.Enabled || cfg.Redis.DB != 2 {
		t.Errorf("redis = %+v", cfg.Redis)
	}
	if cfg.Log.Format != "json" {
		t.Errorf("log format = %q", cfg.Log.Format)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown driver", map[string]string{"STORE_DRIVER": "mongo"}},
		{"unknown policy", map[string]string{"STORE_UPDATE_MISSING": "ignore"}},
		{"sheets without spreadsheet", map[string]string{"STORE_DRIVER": "sheets", "SHEETS_CREDENTIALS_FILE": "sa.json"}},
		{"sheets without credentials", map[string]string{"STORE_DRIVER": "sheets", "SHEETS_SPREADSHEET_ID": "abc"}},
		{"redis with local store", map[string]string{"REDIS_ENABLED": "true"}},
		{"redis with workbook store", map[string]string{"REDIS_ENABLED": "true", "STORE_DRIVER": "workbook"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: "5432", User: "atk", Password: "secret", Name: "forms", SSLMode: "disable"}
	if got, want := d.DSN(), "postgres://atk:secret@db:5432/forms?sslmode=disable"; got != want {
		t.Errorf("DSN = %q, want %q", got, want)
	}
}

func TestDatabaseConfig_DSNEscapesCredentials(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: "5432", User: "atk", Password: "p@ss/w:rd?", Name: "forms", SSLMode: "require"}

	u, err := url.Parse(d.DSN())
	if err != nil {
		t.Fatalf("parse %q: %v", d.DSN(), err)
	}
	if pw, _ := u.User.Password(); pw != d.Password {
		t.Errorf("password = %q, want %q", pw, d.Password)
	}
	if u.Host != "db:5432" || u.Path != "/forms" || u.Query().Get("sslmode") != "require" {
		t.Errorf("dsn = %q", d.DSN())
	}
}

func TestSharedDriver(t *testing.T) {
	for driver, want := range map[string]bool{
		DriverLocal:    false,
		DriverWorkbook: false,
		DriverPostgres: true,
		DriverSheets:   true,
	} {
		if got := SharedDriver(driver); got != want {
			t.Errorf("SharedDriver(%q) = %v, want %v", driver, got, want)
		}
	}
}
