package service_test

import (
	"context"
	"errors"
	"time"

	"github.com/nitesh/bill_monitor/pkg/models"
)

var errStore = errors.New("store unavailable")

type fakeDataset struct {
	bills []models.Bill
	err   error
	calls int
}

func (f *fakeDataset) FetchDataset(context.Context) ([]models.Bill, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.bills, nil
}

type fakeNotifier struct {
	sent [][]models.DigestBill
	err  error
}

func (f *fakeNotifier) Send(_ context.Context, bills []models.DigestBill) error {
	f.sent = append(f.sent, bills)
	return f.err
}

type brokenCache struct {
	getErr error
	setErr error
}

func (b *brokenCache) GetResult(context.Context, string) ([]models.ClassifiedBill, bool, error) {
	return nil, false, b.getErr
}

func (b *brokenCache) SetResultIfAbsent(context.Context, string, []models.ClassifiedBill, time.Duration) (bool, error) {
	return false, b.setErr
}

type brokenSeen struct {
	seen   map[string]struct{}
	getErr error
	addErr error
}

func (b *brokenSeen) SeenIDs(context.Context) (map[string]struct{}, error) {
	if b.getErr != nil {
		return nil, b.getErr
	}
	out := map[string]struct{}{}
	for k := range b.seen {
		out[k] = struct{}{}
	}
	return out, nil
}

func (b *brokenSeen) AddSeen(context.Context, []string) error {
	return b.addErr
}

func bill(id int64, number, name, date string) models.Bill {
	return models.Bill{
		ID:                 id,
		Name:               name,
		URL:                "https://itd.rada.gov.ua/billInfo/Bills/Card/" + number,
		RegistrationNumber: number,
		RegistrationDate:   date,
	}
}
