package models

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

type Status string

const (
	StatusActive    Status = "Active"
	StatusInactive  Status = "Inactive"
	StatusOnHold    Status = "OnHold"
	StatusGraduated Status = "Graduated"
)

// Statuses lists every status in the order the bot offers them.
var Statuses = []Status{StatusActive, StatusInactive, StatusOnHold, StatusGraduated}

// NoTelegramID is stored when the student has no Telegram account.
const NoTelegramID = "none"

func ParseStatus(s string) (Status, bool) {
	for _, st := range Statuses {
		if strings.EqualFold(string(st), strings.TrimSpace(s)) {
			return st, true
		}
	}
	return "", false
}

// Label is the human readable form shown on buttons.
func (s Status) Label() string {
	if s == StatusOnHold {
		return "On Hold"
	}
	return string(s)
}

type Student struct {
	ID          string `json:"id" validate:"required"`
	Name        string `json:"name" validate:"required"`
	Surname     string `json:"surname" validate:"required"`
	Age         int    `json:"age" validate:"gte=0"`
	School      string `json:"school"`
	Tariff      string `json:"tariff"`
	Mentor      string `json:"mentor"`
	Phone       string `json:"phone"`
	TelegramID  string `json:"telegram_id"`
	ParentName  string `json:"parent_name"`
	ParentPhone string `json:"parent_phone"`
	Status      Status `json:"status" validate:"oneof=Active Inactive OnHold Graduated"`
}

var validate = validator.New()

func (s Student) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("student %q: %w", s.ID, err)
	}
	return nil
}

func (s Student) FullName() string {
	return strings.TrimSpace(s.Name + " " + s.Surname)
}

// NormalizeTelegramID maps any spelling of "none" to NoTelegramID.
func NormalizeTelegramID(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.EqualFold(raw, NoTelegramID) {
		return NoTelegramID
	}
	return raw
}

// Card renders every field, one per line.
func (s Student) Card() string {
	return fmt.Sprintf("ID: %s\nName: %s %s\nAge: %d\nSchool: %s\nTariff: %s\nMentor: %s\nPhone: %s\nTelegram ID: %s\nParent Name: %s\nParent Phone: %s\nStatus: %s",
		s.ID, s.Name, s.Surname, s.Age, s.School, s.Tariff, s.Mentor, s.Phone,
		s.TelegramID, s.ParentName, s.ParentPhone, s.Status.Label(),
	)
}
