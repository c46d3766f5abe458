// Package search resolves free-text operator queries to student records.
package search

import (
	"strings"

	"students-bot/internal/models"
)

// Match returns, in collection order, every student whose name or surname
// contains the query (case-insensitive) or whose id equals it exactly.
// A blank query matches nothing.
func Match(query string, students []models.Student) []models.Student {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}
	q := strings.ToLower(query)
	var out []models.Student
	for _, s := range students {
		if strings.Contains(strings.ToLower(s.Name), q) ||
			strings.Contains(strings.ToLower(s.Surname), q) ||
			s.ID == query {
			out = append(out, s)
		}
	}
	return out
}
