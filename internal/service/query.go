package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/nitesh/bill_monitor/pkg/models"
)

const (
	ResultKeyPrefix = "rada_result"
	dateLayout      = "2006-01-02"
)

// ResultKey is the query-cache key for a literal date pair.
func ResultKey(startDate, endDate string) string {
	return fmt.Sprintf("%s_%s_%s", ResultKeyPrefix, startDate, endDate)
}

// registration timestamps come without a zone, date-only values also occur
var registrationLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.999999999",
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	dateLayout,
}

func (s *Service) parseRegistration(ts string) (time.Time, bool) {
	for _, layout := range registrationLayouts {
		if t, err := time.ParseInLocation(layout, ts, s.loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func (s *Service) parseQueryDate(field, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, &ValidationError{Field: field, Reason: "is required"}
	}
	t, err := time.ParseInLocation(dateLayout, value, s.loc)
	if err != nil {
		return time.Time{}, &ValidationError{Field: field, Value: value, Reason: "expected YYYY-MM-DD"}
	}
	return t, nil
}

// QueryBills returns the relevant bills registered between startDate and
// endDate, both inclusive. Results are cached per literal date pair.
func (s *Service) QueryBills(ctx context.Context, startDate, endDate string) ([]models.ClassifiedBill, error) {
	start, err := s.parseQueryDate("startDate", startDate)
	if err != nil {
		return nil, err
	}
	end, err := s.parseQueryDate("endDate", endDate)
	if err != nil {
		return nil, err
	}
	if end.Before(start) {
		return nil, &ValidationError{Field: "endDate", Value: endDate, Reason: "is before startDate"}
	}

	key := ResultKey(startDate, endDate)
	logger := s.logger.With(zap.String("key", key))

	cached, ok, err := s.cache.GetResult(ctx, key)
	if err != nil {
		logger.Error("query cache read failed", zap.Error(err))
		return nil, fmt.Errorf("read query cache: %w", err)
	}
	if ok {
		logger.Info("query cache hit", zap.Int("bills", len(cached)))
		return cached, nil
	}
	logger.Info("query cache miss, processing dataset")

	bills, err := s.dataset.FetchDataset(ctx)
	if err != nil {
		return nil, err
	}

	result := s.filterRange(bills, start, end.AddDate(0, 0, 1))

	stored, err := s.cache.SetResultIfAbsent(ctx, key, result, s.resultTTL)
	if err != nil {
		logger.Error("query cache write failed", zap.Error(err))
		return nil, fmt.Errorf("write query cache: %w", err)
	}
	if stored {
		logger.Info("query result cached", zap.Int("bills", len(result)), zap.Duration("ttl", s.resultTTL))
	} else {
		logger.Info("query result already cached by a concurrent request", zap.Int("bills", len(result)))
	}
	return result, nil
}

// filterRange keeps bills registered in [from, until) that match at least
// one category, first occurrence per registration number.
func (s *Service) filterRange(bills []models.Bill, from, until time.Time) []models.ClassifiedBill {
	out := []models.ClassifiedBill{}
	numbers := make(map[string]struct{})
	skipped := 0
	for _, b := range bills {
		t, ok := s.parseRegistration(b.RegistrationDate)
		if !ok {
			skipped++
			continue
		}
		if t.Before(from) || !t.Before(until) {
			continue
		}
		cb := s.classify(b)
		if len(cb.Categories) == 0 {
			continue
		}
		if _, dup := numbers[cb.Number]; dup {
			continue
		}
		numbers[cb.Number] = struct{}{}
		out = append(out, cb)
	}
	if skipped > 0 {
		s.logger.Debug("skipped bills with unparseable registration date", zap.Int("count", skipped))
	}
	return out
}

func (s *Service) classify(b models.Bill) models.ClassifiedBill {
	binds := b.Bind
	if binds == nil {
		binds = []int64{}
	}
	alternatives := b.Alternative
	if alternatives == nil {
		alternatives = []int64{}
	}
	return models.ClassifiedBill{
		Number:           b.RegistrationNumber,
		Title:            b.Name,
		RegistrationDate: models.RegistrationDay(b.RegistrationDate),
		URL:              b.URL,
		Categories:       s.classifier.Categorize(b.Name),
		Binds:            binds,
		Alternatives:     alternatives,
	}
}
