package service

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nitesh/bill_monitor/pkg/models"
)

func toDigestBill(b models.Bill, categories []models.Category) models.DigestBill {
	return models.DigestBill{
		Number:     b.RegistrationNumber,
		Title:      b.Name,
		URL:        b.URL,
		Date:       models.RegistrationDay(b.RegistrationDate),
		Categories: categories,
	}
}

// RunDigest notifies about relevant bills not seen by any earlier run and
// returns how many were found. The seen set is extended before the
// notification is sent; a failed notification is logged and not retried.
func (s *Service) RunDigest(ctx context.Context) (int, error) {
	run := models.DigestRun{ID: uuid.New().String(), StartedAt: s.now().UTC()}
	logger := s.logger.With(zap.String("run_id", run.ID))
	logger.Info("starting daily digest")

	found, notified, err := s.runDigest(ctx, logger)

	run.FinishedAt = s.now().UTC()
	run.Notified = notified
	run.FoundBills = len(found)
	run.BillNumbers = make([]string, 0, len(found))
	for _, b := range found {
		run.BillNumbers = append(run.BillNumbers, b.Number)
	}
	if err != nil {
		run.Error = err.Error()
		logger.Error("daily digest failed", zap.Error(err))
	}
	s.saveRun(ctx, logger, run)

	if err != nil {
		return 0, err
	}
	logger.Info("daily digest finished", zap.Int("found_bills", len(found)), zap.Bool("notified", notified))
	return len(found), nil
}

func (s *Service) runDigest(ctx context.Context, logger *zap.Logger) ([]models.DigestBill, bool, error) {
	bills, err := s.dataset.FetchDataset(ctx)
	if err != nil {
		return nil, false, err
	}

	seen, err := s.seen.SeenIDs(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("load seen bills: %w", err)
	}
	logger.Info("loaded seen bills", zap.Int("seen", len(seen)), zap.Int("dataset", len(bills)))

	found := []models.DigestBill{}
	newIDs := []string{}
	for _, b := range bills {
		id := strconv.FormatInt(b.ID, 10)
		if _, ok := seen[id]; ok {
			continue
		}
		categories := s.classifier.Categorize(b.Name)
		if len(categories) == 0 {
			continue
		}
		seen[id] = struct{}{}
		newIDs = append(newIDs, id)
		found = append(found, toDigestBill(b, categories))
	}

	if len(newIDs) == 0 {
		logger.Info("no new relevant bills found")
		return found, false, nil
	}

	if err := s.seen.AddSeen(ctx, newIDs); err != nil {
		return nil, false, fmt.Errorf("update seen bills (%d ids): %w", len(newIDs), err)
	}
	logger.Info("updated seen bills", zap.Int("added", len(newIDs)))

	logger.Info("sending digest", zap.Int("bills", len(found)))
	if err := s.notifier.Send(ctx, found); err != nil {
		// the ids are already recorded, these bills will not be sent again
		logger.Error("digest notification failed", zap.Int("bills", len(found)), zap.Error(err))
		return found, false, nil
	}
	return found, true, nil
}

func (s *Service) saveRun(ctx context.Context, logger *zap.Logger, run models.DigestRun) {
	if s.runs == nil {
		return
	}
	if err := s.runs.SaveRun(ctx, run); err != nil {
		logger.Warn("failed to record digest run", zap.Error(err))
	}
}

// PreviewDigest classifies the first limit bills of the dataset, ignoring
// the seen set, and sends whatever it finds. State is never modified.
func (s *Service) PreviewDigest(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		limit = s.previewLimit
	}
	s.logger.Info("starting digest preview", zap.Int("limit", limit))

	bills, err := s.dataset.FetchDataset(ctx)
	if err != nil {
		return 0, err
	}
	if len(bills) > limit {
		bills = bills[:limit]
	}

	found := []models.DigestBill{}
	for _, b := range bills {
		if categories := s.classifier.Categorize(b.Name); len(categories) > 0 {
			found = append(found, toDigestBill(b, categories))
		}
	}
	if len(found) == 0 {
		s.logger.Info("no relevant bills in preview slice")
		return 0, nil
	}

	if err := s.notifier.Send(ctx, found); err != nil {
		s.logger.Error("preview notification failed", zap.Error(err))
		return len(found), fmt.Errorf("send preview digest: %w", err)
	}
	s.logger.Info("digest preview finished, state was not modified", zap.Int("found_bills", len(found)))
	return len(found), nil
}

// SampleBills returns the fixed bills used by SendTestEmail.
func (s *Service) SampleBills() []models.DigestBill {
	today := s.now().In(s.loc).Format(dateLayout)
	return []models.DigestBill{
		{
			Number:     "ТЕСТ-001",
			Title:      "Тестовий законопроєкт про розвиток аграрного сектору",
			URL:        "https://itd.rada.gov.ua/billInfo/Bills/Card/1",
			Date:       today,
			Categories: []models.Category{models.Agricultural, models.Corporate},
		},
		{
			Number:     "ТЕСТ-002",
			Title:      "Тестовий законопроєкт про соціальні гарантії для працівників",
			URL:        "https://itd.rada.gov.ua/billInfo/Bills/Card/2",
			Date:       today,
			Categories: []models.Category{models.Social},
		},
	}
}

// SendTestEmail sends SampleBills through the notifier.
func (s *Service) SendTestEmail(ctx context.Context) error {
	if err := s.notifier.Send(ctx, s.SampleBills()); err != nil {
		s.logger.Error("test email failed", zap.Error(err))
		return fmt.Errorf("send test email: %w", err)
	}
	s.logger.Info("test email sent")
	return nil
}
