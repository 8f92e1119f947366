package scans

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-logr/logr"

	"github.com/bryanwahyu/canscan/internal/application"
	"github.com/bryanwahyu/canscan/internal/domain/records"
	domain "github.com/bryanwahyu/canscan/internal/domain/scans"
	"github.com/bryanwahyu/canscan/internal/metrics"
)

var (
	ErrResultNotFound = errors.New("result not found")
	ErrInvalidQuery   = errors.New("invalid query")
)

const (
	SortDate = "date"
	SortRisk = "risk"
)

// resultLog binds the owner's result collection to the wizard's ResultLog
// port.
type resultLog struct {
	store records.Store
	log   logr.Logger
	owner string
}

func (l resultLog) Append(ctx context.Context, r domain.ScanResult) error {
	if err := records.Append(ctx, l.store, l.log, l.owner, records.KeyResults, r); err != nil {
		return err
	}
	metrics.IncrementResults()
	return nil
}

// HistoryQuery filters and orders the results history.
type HistoryQuery struct {
	Search   string
	Risk     domain.RiskLevel
	Sort     string
	Page     int
	PageSize int
}

// Results returns every stored result, newest first.
func (s *Service) Results(ctx context.Context, owner string) ([]domain.ScanResult, error) {
	items, err := records.LoadList[domain.ScanResult](ctx, s.store, s.log, owner, records.KeyResults)
	if err != nil {
		return nil, err
	}
	sortByDate(items)
	return items, nil
}

// Latest ambil N hasil terakhir
func (s *Service) Latest(ctx context.Context, owner string, limit int) ([]domain.ScanResult, error) {
	items, err := s.Results(ctx, owner)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// Get ambil 1 hasil by id
func (s *Service) Get(ctx context.Context, owner string, id domain.ResultID) (domain.ScanResult, error) {
	items, err := s.Results(ctx, owner)
	if err != nil {
		return domain.ScanResult{}, err
	}
	for _, r := range items {
		if r.ID == id {
			return r, nil
		}
	}
	return domain.ScanResult{}, fmt.Errorf("%w: %s", ErrResultNotFound, id)
}

// Paginate applies search, risk filter and sort, then slices one page.
func (s *Service) Paginate(ctx context.Context, owner string, q HistoryQuery) (domain.PaginatedResult, error) {
	if q.Risk != "" && !q.Risk.Valid() {
		return domain.PaginatedResult{}, fmt.Errorf("%w: risk %q", ErrInvalidQuery, q.Risk)
	}
	switch q.Sort {
	case "", SortDate, SortRisk:
	default:
		return domain.PaginatedResult{}, fmt.Errorf("%w: sort %q (allowed: date, risk)", ErrInvalidQuery, q.Sort)
	}

	items, err := records.LoadList[domain.ScanResult](ctx, s.store, s.log, owner, records.KeyResults)
	if err != nil {
		return domain.PaginatedResult{}, err
	}

	search := strings.ToLower(strings.TrimSpace(q.Search))
	filtered := items[:0]
	for _, r := range items {
		if q.Risk != "" && r.RiskLevel != q.Risk {
			continue
		}
		if search != "" && !matchesSearch(r, search) {
			continue
		}
		filtered = append(filtered, r)
	}

	if q.Sort == SortRisk {
		sort.SliceStable(filtered, func(i, j int) bool {
			ri, rj := filtered[i].RiskLevel.Rank(), filtered[j].RiskLevel.Rank()
			if ri != rj {
				return ri > rj
			}
			return filtered[i].Timestamp.After(filtered[j].Timestamp)
		})
	} else {
		sortByDate(filtered)
	}
	return domain.NewPaginatedResult(filtered, q.Page, q.PageSize), nil
}

// Summary rekap hasil per risk level
func (s *Service) Summary(ctx context.Context, owner string) (domain.Summary, error) {
	items, err := records.LoadList[domain.ScanResult](ctx, s.store, s.log, owner, records.KeyResults)
	if err != nil {
		return domain.Summary{}, err
	}
	return domain.Summarize(items), nil
}

// Export renders the whole history as indented JSON.
func (s *Service) Export(ctx context.Context, owner string) ([]byte, error) {
	items, err := s.Results(ctx, owner)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(items, "", "  ")
}

// ClearResults deletes the whole history. Without confirm nothing happens.
func (s *Service) ClearResults(ctx context.Context, owner string, confirm bool) error {
	if !confirm {
		return application.ErrConfirmationRequired
	}
	if err := records.Clear(ctx, s.store, owner, records.KeyResults); err != nil {
		return err
	}
	s.log.Info("results cleared", "owner", owner)
	return nil
}

func matchesSearch(r domain.ScanResult, search string) bool {
	if strings.Contains(strings.ToLower(r.Verdict), search) {
		return true
	}
	for _, sym := range r.Symptoms {
		if strings.Contains(strings.ToLower(sym), search) {
			return true
		}
	}
	return false
}

func sortByDate(items []domain.ScanResult) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Timestamp.After(items[j].Timestamp)
	})
}
