// Package memory keeps exported month reports in process, for development
// and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"trackify/internal/core"
	ports "trackify/internal/sheets"
)

type Store struct {
	mu      sync.Mutex
	reports map[string]ports.MonthReport
	writes  int
}

var _ ports.MonthWriter = (*Store)(nil)

func New() *Store {
	return &Store{reports: make(map[string]ports.MonthReport)}
}

func key(email string, ym core.YearMonth) string {
	return fmt.Sprintf("%s/%s", email, ym)
}

// WriteMonth stores the report, replacing any earlier export of the same month.
func (s *Store) WriteMonth(_ context.Context, r ports.MonthReport) (string, error) {
	if err := r.Month.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key(r.UserEmail, r.Month)
	r.Categories = append([]core.CategoryAmount(nil), r.Categories...)
	r.Transactions = append([]core.Transaction(nil), r.Transactions...)
	s.reports[k] = r
	s.writes++
	return "mem:" + k, nil
}

// Report returns the last export of the user's month.
func (s *Store) Report(email string, ym core.YearMonth) (ports.MonthReport, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reports[key(email, ym)]
	return r, ok
}

// Keys lists stored reports as "email/YYYY-MM", sorted.
func (s *Store) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.reports))
	for k := range s.reports {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Writes counts WriteMonth calls, including overwrites.
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}
