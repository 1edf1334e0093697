// Package rada talks to the Verkhovna Rada open-data portal.
package rada

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/nitesh/bill_monitor/internal/retry"
	"github.com/nitesh/bill_monitor/pkg/models"
)

const DefaultDatasetURL = "https://data.rada.gov.ua/ogd/zpr/skl9/billinfo-skl9.json"

// TokenSource supplies the credential sent with every dataset request.
type TokenSource interface {
	GetValidToken(ctx context.Context) (string, error)
}

type ClientConfig struct {
	DatasetURL string
	Retry      retry.Policy
}

// DefaultDatasetRetry retries the dataset download 3 times with a 1s pause.
func DefaultDatasetRetry() retry.Policy {
	return retry.Policy{Name: "rada_dataset", MaxAttempts: 3, Delay: time.Second}
}

// Client downloads the bill dataset.
type Client struct {
	cfg    ClientConfig
	tokens TokenSource
	hc     *http.Client
	logger *zap.Logger
}

// NewClient creates a dataset client. If httpClient is nil, a default with timeout is used.
func NewClient(cfg ClientConfig, tokens TokenSource, httpClient *http.Client, logger *zap.Logger) *Client {
	if cfg.DatasetURL == "" {
		cfg.DatasetURL = DefaultDatasetURL
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = DefaultDatasetRetry()
	}
	if httpClient == nil {
		// the full convocation dataset is tens of megabytes
		httpClient = &http.Client{Timeout: 2 * time.Minute}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{cfg: cfg, tokens: tokens, hc: httpClient, logger: logger}
}

// FetchDataset downloads and decodes the full list of bills in upstream order.
func (c *Client) FetchDataset(ctx context.Context) ([]models.Bill, error) {
	c.logger.Info("fetching rada dataset", zap.String("url", c.cfg.DatasetURL))

	var bills []models.Bill
	attempts, err := c.cfg.Retry.Do(ctx, c.logger, func(ctx context.Context, attempt int) error {
		token, err := c.tokens.GetValidToken(ctx)
		if err != nil {
			// the token manager has its own retry budget
			return retry.Permanent(err)
		}
		out, err := c.download(ctx, token)
		if err != nil {
			return err
		}
		bills = out
		return nil
	})
	if err != nil {
		c.logger.Error("rada dataset fetch failed",
			zap.Int("attempts", attempts),
			zap.Int("status", statusOf(err)),
			zap.Error(err))
		return nil, &DatasetFetchError{Attempts: attempts, Status: statusOf(err), Err: err}
	}

	c.logger.Info("rada dataset fetched", zap.Int("bills", len(bills)), zap.Int("attempts", attempts))
	return bills, nil
}

func (c *Client) download(ctx context.Context, token string) ([]models.Bill, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.DatasetURL, nil)
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("dataset new request: %w", err))
	}
	// the portal authenticates dataset downloads by the token in User-Agent
	req.Header.Set("User-Agent", token)

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("dataset request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	c.logger.Debug("dataset response",
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(raw)),
		zap.Duration("latency", time.Since(start)))
	if err != nil {
		return nil, fmt.Errorf("dataset read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Code: resp.StatusCode, Body: truncate(raw, 256)}
	}

	var bills []models.Bill
	if err := json.Unmarshal(SanitizePayload(raw), &bills); err != nil {
		return nil, fmt.Errorf("dataset decode: %w", err)
	}
	return bills, nil
}
