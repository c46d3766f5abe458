package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v6"
)

type Config struct {
	TelegramToken string  `env:"TELEGRAM_BOT_TOKEN,required"`
	OperatorIDs   []int64 `env:"OPERATOR_IDS" envSeparator:","`
	Workers       int     `env:"WORKERS" envDefault:"8"`

	DBPath string `env:"STUDENTS_DB_PATH" envDefault:"data/students_database.json"`

	// Backups
	BackupDir      string `env:"BACKUP_DIR" envDefault:"data/backups"`
	BackupSchedule string `env:"BACKUP_SCHEDULE" envDefault:"0 3 * * *"`
	BackupKeep     int    `env:"BACKUP_KEEP" envDefault:"14"`

	// Google Sheets mirror (optional)
	SpreadsheetID            string `env:"GOOGLE_SHEETS_SPREADSHEET_ID"`
	GoogleServiceAccountJSON string `env:"GOOGLE_SERVICE_ACCOUNT_JSON"`
	SheetsTab                string `env:"SHEETS_TAB" envDefault:"Students"`

	// HTTP side server
	HTTPAddr      string `env:"HTTP_ADDR" envDefault:":8080"`
	BasePublicURL string `env:"BASE_PUBLIC_URL"`
	ExportSecret  string `env:"EXPORT_SECRET" envDefault:"change-me"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`
}

func FromEnv() (Config, error) {
	var c Config
	if err := env.Parse(&c); err != nil {
		return c, fmt.Errorf("parse env: %w", err)
	}
	c.TelegramToken = strings.TrimSpace(c.TelegramToken)
	c.BasePublicURL = strings.TrimRight(strings.TrimSpace(c.BasePublicURL), "/")

	if c.TelegramToken == "" {
		return c, fmt.Errorf("TELEGRAM_BOT_TOKEN is empty")
	}
	if c.Workers < 1 {
		return c, fmt.Errorf("WORKERS must be positive, got %d", c.Workers)
	}
	if (c.SpreadsheetID == "") != (c.GoogleServiceAccountJSON == "") {
		return c, fmt.Errorf("GOOGLE_SHEETS_SPREADSHEET_ID and GOOGLE_SERVICE_ACCOUNT_JSON must be set together")
	}
	return c, nil
}

// SheetsEnabled reports whether the spreadsheet mirror is configured.
func (c Config) SheetsEnabled() bool {
	return c.SpreadsheetID != "" && c.GoogleServiceAccountJSON != ""
}

// Operators returns the allowlist as a set. An empty set admits everyone.
func (c Config) Operators() map[int64]bool {
	m := make(map[int64]bool, len(c.OperatorIDs))
	for _, id := range c.OperatorIDs {
		m[id] = true
	}
	return m
}
