package service

import (
	"context"
	"strings"
	"time"

	"atkform/internal/model"
	"atkform/internal/repository"

	"go.uber.org/zap"
)

type SettingsPreview struct {
	DocFormat string `json:"doc_format"`
	DocPrefix string `json:"doc_prefix"`
	Example   string `json:"example"`
}

type SettingsService interface {
	Get(ctx context.Context) model.Settings
	Save(ctx context.Context, s model.Settings) (model.Settings, error)
	Preview(ctx context.Context, format, prefix string) (SettingsPreview, error)
}

type settingsService struct {
	repo   repository.SettingsRepository
	app    *AppContext
	logger *zap.Logger
	now    func() time.Time
}

func NewSettingsService(repo repository.SettingsRepository, app *AppContext, logger *zap.Logger) SettingsService {
	return &settingsService{repo: repo, app: app, logger: logger, now: time.Now}
}

// LoadSettings reads the persisted settings, falling back to defaults when none were saved.
func LoadSettings(ctx context.Context, repo repository.SettingsRepository, now time.Time) (model.Settings, error) {
	stored, err := repo.Load(ctx)
	if err != nil {
		return model.Settings{}, err
	}
	if stored == nil {
		return model.DefaultSettings(now), nil
	}
	return stored.WithDefaults(now), nil
}

func (s *settingsService) Get(_ context.Context) model.Settings {
	return s.app.Settings()
}

func (s *settingsService) Save(ctx context.Context, in model.Settings) (model.Settings, error) {
	in = model.Settings{
		FormTitle:      strings.TrimSpace(in.FormTitle),
		BudgetYear:     strings.TrimSpace(in.BudgetYear),
		DocPrefix:      strings.TrimSpace(in.DocPrefix),
		DocFormat:      strings.TrimSpace(in.DocFormat),
		OrgName:        strings.TrimSpace(in.OrgName),
		LogoURL:        strings.TrimSpace(in.LogoURL),
		WhatsAppNumber: strings.TrimSpace(in.WhatsAppNumber),
	}.WithDefaults(s.now())

	if err := validateNumbering(in.DocFormat, in.DocPrefix); err != nil {
		return model.Settings{}, err
	}
	if !isDigits(in.BudgetYear) {
		return model.Settings{}, invalid("budget_year", "budget year must be numeric")
	}

	if err := s.repo.Save(ctx, in); err != nil {
		return model.Settings{}, err
	}
	s.app.SetSettings(in)
	s.logger.Info("settings saved", zap.String("doc_format", in.DocFormat), zap.String("doc_prefix", in.DocPrefix))
	return in, nil
}

// Preview renders the number the first request of the current period would get.
// Empty arguments fall back to the current settings.
func (s *settingsService) Preview(_ context.Context, format, prefix string) (SettingsPreview, error) {
	current := s.app.Settings()
	format = strings.TrimSpace(format)
	prefix = strings.TrimSpace(prefix)
	if format == "" {
		format = current.DocFormat
	}
	if prefix == "" {
		prefix = current.DocPrefix
	}
	if err := validateNumbering(format, prefix); err != nil {
		return SettingsPreview{}, err
	}
	return SettingsPreview{
		DocFormat: format,
		DocPrefix: prefix,
		Example:   PreviewDocumentNumber(format, prefix, s.now()),
	}, nil
}

func validateNumbering(format, prefix string) error {
	if !strings.Contains(format, PlaceholderAuto) {
		return invalid("doc_format", "document format must contain "+PlaceholderAuto)
	}
	if !isDigits(prefix) {
		return invalid("doc_prefix", "document prefix must be numeric")
	}
	return nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
