package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validStudent() Student {
	return Student{ID: "abc-1", Name: "Anna", Surname: "Ivanova", Age: 14, Status: StatusActive}
}

func TestValidate(t *testing.T) {
	require.NoError(t, validStudent().Validate())

	s := validStudent()
	s.Age = -1
	assert.Error(t, s.Validate())

	s = validStudent()
	s.Name = ""
	assert.Error(t, s.Validate())

	s = validStudent()
	s.Status = "Expelled"
	assert.Error(t, s.Validate())

	s = validStudent()
	s.ID = ""
	assert.Error(t, s.Validate())
}

func TestParseStatus(t *testing.T) {
	st, ok := ParseStatus("onhold")
	require.True(t, ok)
	assert.Equal(t, StatusOnHold, st)

	_, ok = ParseStatus("paused")
	assert.False(t, ok)

	assert.Equal(t, "On Hold", StatusOnHold.Label())
	assert.Equal(t, "Graduated", StatusGraduated.Label())
}

func TestNormalizeTelegramID(t *testing.T) {
	assert.Equal(t, NoTelegramID, NormalizeTelegramID(" None "))
	assert.Equal(t, "@ivan", NormalizeTelegramID("@ivan"))
}

func TestCardListsEveryField(t *testing.T) {
	s := Student{
		ID: "id-1", Name: "Ivan", Surname: "Petrov", Age: 15, School: "GC School",
		Tariff: "Standard", Mentor: "Olga", Phone: "12345", TelegramID: "none",
		ParentName: "Maria", ParentPhone: "54321", Status: StatusActive,
	}
	card := s.Card()
	for _, want := range []string{"id-1", "Ivan Petrov", "15", "GC School", "Standard", "Olga", "12345", "none", "Maria", "54321", "Active"} {
		assert.Contains(t, card, want)
	}
}
