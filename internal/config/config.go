package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Store drivers.
const (
	DriverLocal    = "local"
	DriverPostgres = "postgres"
	DriverSheets   = "sheets"
	DriverWorkbook = "workbook"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Store    StoreConfig    `mapstructure:"store"`
	Local    LocalConfig    `mapstructure:"local"`
	Database DatabaseConfig `mapstructure:"database"`
	Sheets   SheetsConfig   `mapstructure:"sheets"`
	Workbook WorkbookConfig `mapstructure:"workbook"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Port         string   `mapstructure:"port"`
	Mode         string   `mapstructure:"mode"`
	AllowOrigins []string `mapstructure:"allow_origins"`
}

type StoreConfig struct {
	Driver        string `mapstructure:"driver"`
	UpdateMissing string `mapstructure:"update_missing"`
}

type LocalConfig struct {
	Path string `mapstructure:"path"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

type SheetsConfig struct {
	SpreadsheetID   string `mapstructure:"spreadsheet_id"`
	CredentialsFile string `mapstructure:"credentials_file"`
	SheetName       string `mapstructure:"sheet_name"`
}

type WorkbookConfig struct {
	Path      string `mapstructure:"path"`
	SheetName string `mapstructure:"sheet_name"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Channel  string `mapstructure:"channel"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// LoadEnvFile loads a dotenv file into the process environment. A missing file is not an error
// for callers that treat it as optional; they get the error back to log it.
func LoadEnvFile(path string) error {
	return godotenv.Load(path)
}

// Load reads configs/config.yaml (optional) and the environment.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	bindEnvVariables(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Server.AllowOrigins = splitOrigins(cfg.Server.AllowOrigins)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.allow_origins", []string{"http://localhost:5173", "http://127.0.0.1:5173"})

	v.SetDefault("store.driver", DriverLocal)
	v.SetDefault("store.update_missing", "fail")

	v.SetDefault("local.path", "data/atk")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.name", "postgres")
	v.SetDefault("database.sslmode", "disable")

	v.SetDefault("sheets.sheet_name", "data")

	v.SetDefault("workbook.path", "data/atk.xlsx")
	v.SetDefault("workbook.sheet_name", "data")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.channel", "atk:records")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

func bindEnvVariables(v *viper.Viper) {
	// Server
	v.BindEnv("server.port", "PORT")
	v.BindEnv("server.mode", "GIN_MODE")
	v.BindEnv("server.allow_origins", "CORS_ORIGINS")

	// Store
	v.BindEnv("store.driver", "STORE_DRIVER")
	v.BindEnv("store.update_missing", "STORE_UPDATE_MISSING")
	v.BindEnv("local.path", "LOCAL_STORE_PATH")

	// Database
	v.BindEnv("database.host", "DB_HOST")
	v.BindEnv("database.port", "DB_PORT")
	v.BindEnv("database.user", "DB_USER")
	v.BindEnv("database.password", "DB_PASSWORD")
	v.BindEnv("database.name", "DB_NAME")
	v.BindEnv("database.sslmode", "DB_SSLMODE")

	// Spreadsheets
	v.BindEnv("sheets.spreadsheet_id", "SHEETS_SPREADSHEET_ID")
	v.BindEnv("sheets.credentials_file", "SHEETS_CREDENTIALS_FILE")
	v.BindEnv("sheets.sheet_name", "SHEETS_SHEET_NAME")
	v.BindEnv("workbook.path", "WORKBOOK_PATH")
	v.BindEnv("workbook.sheet_name", "WORKBOOK_SHEET_NAME")

	// Redis
	v.BindEnv("redis.enabled", "REDIS_ENABLED")
	v.BindEnv("redis.addr", "REDIS_ADDR")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("redis.db", "REDIS_DB")
	v.BindEnv("redis.channel", "REDIS_CHANNEL")

	// Log
	v.BindEnv("log.level", "LOG_LEVEL")
	v.BindEnv("log.format", "LOG_FORMAT")
}

// splitOrigins accepts both a YAML list and a comma separated env value.
func splitOrigins(in []string) []string {
	var out []string
	for _, item := range in {
		for _, o := range strings.Split(item, ",") {
			if o = strings.TrimSpace(o); o != "" {
				out = append(out, o)
			}
		}
	}
	return out
}

// Validate rejects configurations the server cannot start with.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case DriverLocal, DriverPostgres, DriverWorkbook:
	case DriverSheets:
		if c.Sheets.SpreadsheetID == "" {
			return fmt.Errorf("sheets driver requires sheets.spreadsheet_id (SHEETS_SPREADSHEET_ID)")
		}
		if c.Sheets.CredentialsFile == "" {
			return fmt.Errorf("sheets driver requires sheets.credentials_file (SHEETS_CREDENTIALS_FILE)")
		}
	default:
		return fmt.Errorf("unknown store driver %q (want local, postgres, sheets or workbook)", c.Store.Driver)
	}

	switch c.Store.UpdateMissing {
	case "fail", "insert":
	default:
		return fmt.Errorf("unknown store.update_missing %q (want fail or insert)", c.Store.UpdateMissing)
	}

	// Peers exchange whole snapshots, so they must read the same record store.
	if c.Redis.Enabled && !SharedDriver(c.Store.Driver) {
		return fmt.Errorf("redis relay needs a shared store driver (postgres or sheets), got %q", c.Store.Driver)
	}

	if c.Local.Path == "" {
		return fmt.Errorf("local.path must not be empty")
	}
	return nil
}

// SharedDriver reports whether every process configured with driver sees the same records.
func SharedDriver(driver string) bool {
	return driver == DriverPostgres || driver == DriverSheets
}

// DSN builds the postgres connection string.
func (d DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     net.JoinHostPort(d.Host, d.Port),
		Path:     "/" + d.Name,
		RawQuery: url.Values{"sslmode": []string{d.SSLMode}}.Encode(),
	}
	return u.String()
}
