package sheets

import (
	"context"
	"log/slog"

	"students-bot/internal/models"
)

var header = []interface{}{
	"ID", "Name", "Surname", "Age", "School", "Tariff", "Mentor", "Phone",
	"Telegram ID", "Parent Name", "Parent Phone", "Status",
}

// Rows renders students as a header row followed by one row per record.
func Rows(students []models.Student) [][]interface{} {
	rows := make([][]interface{}, 0, len(students)+1)
	rows = append(rows, header)
	for _, s := range students {
		rows = append(rows, []interface{}{
			s.ID, s.Name, s.Surname, s.Age, s.School, s.Tariff, s.Mentor, s.Phone,
			s.TelegramID, s.ParentName, s.ParentPhone, s.Status.Label(),
		})
	}
	return rows
}

// Mirror pushes the latest known student list to a spreadsheet tab in
// the background. Only the newest pending snapshot is kept.
type Mirror struct {
	w       Writer
	tab     string
	log     *slog.Logger
	pending chan []models.Student
}

func NewMirror(w Writer, tab string, log *slog.Logger) *Mirror {
	if log == nil {
		log = slog.Default()
	}
	return &Mirror{
		w:       w,
		tab:     tab,
		log:     log.With("component", "sheets", "tab", tab),
		pending: make(chan []models.Student, 1),
	}
}

// Notify never blocks: a snapshot not yet written is replaced by the newer one.
func (m *Mirror) Notify(students []models.Student) {
	for {
		select {
		case m.pending <- students:
			return
		default:
		}
		select {
		case <-m.pending:
		default:
		}
	}
}

// Run writes snapshots until ctx is done. Write failures are logged and
// the next snapshot is tried as usual.
func (m *Mirror) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case students := <-m.pending:
			if err := m.w.ReplaceRows(ctx, m.tab, Rows(students)); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				m.log.Warn("mirror write failed", "students", len(students), "err", err)
				continue
			}
			m.log.Debug("mirror written", "students", len(students))
		}
	}
}
