package server

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"students-bot/internal/config"
	"students-bot/internal/models"
	"students-bot/internal/util"
)

type staticLister struct {
	students []models.Student
	err      error
}

func (l staticLister) Load() ([]models.Student, error) { return l.students, l.err }

var cfg = config.Config{HTTPAddr: ":8080", ExportSecret: "secret"}

func students() []models.Student {
	return []models.Student{
		{ID: "a", Name: "Anna", Surname: "Ivanova", Age: 14, School: "School, No 5", Status: models.StatusActive},
		{ID: "b", Name: "Ivan", Surname: "Petrov", Age: 15, Status: models.StatusOnHold},
	}
}

func TestHealthz(t *testing.T) {
	h := Handler(cfg, staticLister{students: students()}, nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, true, body["ok"])
	assert.EqualValues(t, 2, body["students"])
}

func TestHealthzStoreError(t *testing.T) {
	h := Handler(cfg, staticLister{err: errors.New("boom")}, nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestExportCSV(t *testing.T) {
	h := Handler(cfg, staticLister{students: students()}, nil)
	token := util.HMACSHA256Hex("secret", "export:students")

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/export/students.csv?token="+token, nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rr.Header().Get("Content-Type"))

	rows, err := csv.NewReader(strings.NewReader(rr.Body.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, csvHeader, rows[0])
	assert.Equal(t, "School, No 5", rows[1][4])
	assert.Equal(t, "OnHold", rows[2][11])
}

func TestExportRejectsBadToken(t *testing.T) {
	h := Handler(cfg, staticLister{students: students()}, nil)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/export/students.csv", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/export/students.csv?token=nope", nil))
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestExportURL(t *testing.T) {
	token := util.HMACSHA256Hex("secret", "export:students")
	assert.Equal(t, "http://localhost:8080/export/students.csv?token="+token, ExportURL(cfg))

	withBase := cfg
	withBase.BasePublicURL = "https://bot.example.com"
	assert.Equal(t, "https://bot.example.com/export/students.csv?token="+token, ExportURL(withBase))
}
