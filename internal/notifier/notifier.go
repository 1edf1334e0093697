// Package notifier delivers digests of newly relevant bills.
package notifier

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/nitesh/bill_monitor/pkg/models"
)

type Notifier interface {
	Send(ctx context.Context, bills []models.DigestBill) error
}

// NotificationError wraps a failed delivery.
type NotificationError struct {
	Recipients []string
	Bills      int
	Err        error
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("send digest of %d bills to %s: %v", e.Bills, strings.Join(e.Recipients, ","), e.Err)
}

func (e *NotificationError) Unwrap() error { return e.Err }

// LogNotifier writes the digest to the log instead of sending it.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Send(ctx context.Context, bills []models.DigestBill) error {
	n.logger.Info("digest (smtp not configured)", zap.Int("bills", len(bills)))
	for _, b := range bills {
		cats := make([]string, 0, len(b.Categories))
		for _, c := range b.Categories {
			cats = append(cats, string(c))
		}
		n.logger.Info("digest bill",
			zap.String("number", b.Number),
			zap.String("title", b.Title),
			zap.String("date", b.Date),
			zap.String("url", b.URL),
			zap.Strings("categories", cats))
	}
	return nil
}
