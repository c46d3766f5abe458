package server

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"students-bot/internal/config"
	"students-bot/internal/models"
	"students-bot/internal/util"
)

// exportScope is the message signed into export tokens.
const exportScope = "export:students"

// Lister is the read side of the record store.
type Lister interface {
	Load() ([]models.Student, error)
}

func New(cfg config.Config, records Lister, log *slog.Logger) *http.Server {
	return &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: Handler(cfg, records, log),
	}
}

func Handler(cfg config.Config, records Lister, log *slog.Logger) http.Handler {
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "http")
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		all, err := records.Load()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok":       true,
			"students": len(all),
			"ts":       util.NowISO(),
		})
	})

	// CSV export (operator link with token = HMAC)
	mux.HandleFunc("GET /export/students.csv", func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("token")
		if token == "" {
			http.Error(w, "token required", http.StatusBadRequest)
			return
		}
		if !util.ValidHMAC(cfg.ExportSecret, exportScope, token) {
			log.Warn("export with invalid token", "remote", r.RemoteAddr)
			http.Error(w, "invalid token", http.StatusForbidden)
			return
		}
		all, err := records.Load()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="students.csv"`)
		if err := WriteCSV(w, all); err != nil {
			log.Error("write csv", "err", err)
		}
	})

	return mux
}

// ExportURL is the signed CSV link handed out to operators.
func ExportURL(cfg config.Config) string {
	base := cfg.BasePublicURL
	if base == "" {
		base = "http://localhost" + cfg.HTTPAddr
	}
	return base + "/export/students.csv?token=" + util.HMACSHA256Hex(cfg.ExportSecret, exportScope)
}

var csvHeader = []string{
	"id", "name", "surname", "age", "school", "tariff", "mentor", "phone",
	"telegram_id", "parent_name", "parent_phone", "status",
}

func WriteCSV(w io.Writer, students []models.Student) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, s := range students {
		if err := cw.Write([]string{
			s.ID, s.Name, s.Surname, strconv.Itoa(s.Age), s.School, s.Tariff, s.Mentor, s.Phone,
			s.TelegramID, s.ParentName, s.ParentPhone, string(s.Status),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
