package api_test

import (
	"context"

	"github.com/nitesh/bill_monitor/pkg/models"
)

type mockBillService struct {
	queryFn   func(ctx context.Context, start, end string) ([]models.ClassifiedBill, error)
	digestFn  func(ctx context.Context) (int, error)
	previewFn func(ctx context.Context, limit int) (int, error)
	emailFn   func(ctx context.Context) error

	digestCalls int
	lastLimit   int
}

func (m *mockBillService) QueryBills(ctx context.Context, start, end string) ([]models.ClassifiedBill, error) {
	if m.queryFn != nil {
		return m.queryFn(ctx, start, end)
	}
	return []models.ClassifiedBill{}, nil
}

func (m *mockBillService) RunDigest(ctx context.Context) (int, error) {
	m.digestCalls++
	if m.digestFn != nil {
		return m.digestFn(ctx)
	}
	return 0, nil
}

func (m *mockBillService) PreviewDigest(ctx context.Context, limit int) (int, error) {
	m.lastLimit = limit
	if m.previewFn != nil {
		return m.previewFn(ctx, limit)
	}
	return 0, nil
}

func (m *mockBillService) SendTestEmail(ctx context.Context) error {
	if m.emailFn != nil {
		return m.emailFn(ctx)
	}
	return nil
}
