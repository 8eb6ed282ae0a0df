package model

import (
	"strconv"
	"time"
)

// Settings defaults, matching what the form shows before anything is saved.
const (
	DefaultFormTitle = "Form Permintaan ATK"
	DefaultDocPrefix = "0001"
	DefaultDocFormat = "{AUTO}/ATK/{MM}/{YYYY}"
	DefaultOrgName   = "BPS Kota Jakarta Selatan"
)

// Settings is the singleton application configuration, overwritten wholesale on save.
// Only DocPrefix and DocFormat influence the workflow; the rest is display data.
type Settings struct {
	FormTitle      string `json:"form_title"`
	BudgetYear     string `json:"budget_year"`
	DocPrefix      string `json:"doc_prefix"`
	DocFormat      string `json:"doc_format"`
	OrgName        string `json:"org_name"`
	LogoURL        string `json:"logo_url"`
	WhatsAppNumber string `json:"whatsapp_number"`
}

// DefaultSettings returns the settings used when nothing has been persisted.
func DefaultSettings(now time.Time) Settings {
	return Settings{
		FormTitle:  DefaultFormTitle,
		BudgetYear: strconv.Itoa(now.Year()),
		DocPrefix:  DefaultDocPrefix,
		DocFormat:  DefaultDocFormat,
		OrgName:    DefaultOrgName,
	}
}

// WithDefaults fills empty fields from DefaultSettings.
func (s Settings) WithDefaults(now time.Time) Settings {
	d := DefaultSettings(now)
	if s.FormTitle == "" {
		s.FormTitle = d.FormTitle
	}
	if s.BudgetYear == "" {
		s.BudgetYear = d.BudgetYear
	}
	if s.DocPrefix == "" {
		s.DocPrefix = d.DocPrefix
	}
	if s.DocFormat == "" {
		s.DocFormat = d.DocFormat
	}
	if s.OrgName == "" {
		s.OrgName = d.OrgName
	}
	return s
}
