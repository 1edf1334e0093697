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

const (
	DefaultTokenURL = "https://data.rada.gov.ua/api/token"

	// DefaultTokenUserAgent is the static identifying header sent to the token endpoint.
	DefaultTokenUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36"

	DefaultSafetyBuffer = 60 * time.Second
)

// TokenStore persists the single cached credential.
// GetToken returns nil, nil when nothing is cached.
type TokenStore interface {
	GetToken(ctx context.Context) (*models.Credential, error)
	SetToken(ctx context.Context, cred models.Credential) error
}

type TokenManagerConfig struct {
	URL          string
	RegisteredIP string
	UserAgent    string
	SafetyBuffer time.Duration
	Retry        retry.Policy
	Now          func() time.Time
}

// DefaultTokenRetry retries the token endpoint 3 times with a 500ms pause.
func DefaultTokenRetry() retry.Policy {
	return retry.Policy{Name: "rada_token", MaxAttempts: 3, Delay: 500 * time.Millisecond}
}

// TokenManager hands out a valid access token, refreshing it from the
// upstream token endpoint when the cached one is missing or expired.
type TokenManager struct {
	cfg    TokenManagerConfig
	store  TokenStore
	hc     *http.Client
	logger *zap.Logger
}

func NewTokenManager(cfg TokenManagerConfig, store TokenStore, hc *http.Client, logger *zap.Logger) *TokenManager {
	if cfg.URL == "" {
		cfg.URL = DefaultTokenURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultTokenUserAgent
	}
	if cfg.SafetyBuffer < DefaultSafetyBuffer {
		cfg.SafetyBuffer = DefaultSafetyBuffer
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = DefaultTokenRetry()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if hc == nil {
		hc = &http.Client{Timeout: 15 * time.Second}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TokenManager{cfg: cfg, store: store, hc: hc, logger: logger}
}

type tokenResponse struct {
	Token  string  `json:"token"`
	Expire float64 `json:"expire"`
}

// GetValidToken returns the cached token while it is valid and fetches a
// new one otherwise.
func (m *TokenManager) GetValidToken(ctx context.Context) (string, error) {
	cached, err := m.store.GetToken(ctx)
	if err != nil {
		m.logger.Warn("token cache read failed, refreshing", zap.Error(err))
	} else if cached.Valid(m.cfg.Now()) {
		m.logger.Debug("using cached rada token", zap.Time("expires_at", cached.ExpiresAt))
		return cached.Token, nil
	}

	cred, err := m.refresh(ctx)
	if err != nil {
		return "", err
	}
	return cred.Token, nil
}

func (m *TokenManager) refresh(ctx context.Context) (models.Credential, error) {
	if m.cfg.RegisteredIP == "" {
		m.logger.Error("cannot fetch rada token", zap.Error(ErrMissingRegisteredIP))
		return models.Credential{}, &CredentialFetchError{Err: ErrMissingRegisteredIP}
	}
	m.logger.Info("fetching new rada token", zap.String("url", m.cfg.URL), zap.String("registered_ip", m.cfg.RegisteredIP))

	var resp tokenResponse
	attempts, err := m.cfg.Retry.Do(ctx, m.logger, func(ctx context.Context, attempt int) error {
		r, err := m.fetchToken(ctx)
		if err != nil {
			return err
		}
		resp = r
		return nil
	})
	if err != nil {
		m.logger.Error("rada token fetch failed",
			zap.Int("attempts", attempts),
			zap.Int("status", statusOf(err)),
			zap.Error(err))
		return models.Credential{}, &CredentialFetchError{Attempts: attempts, Status: statusOf(err), Err: err}
	}

	lifetime := time.Duration(resp.Expire * float64(time.Second))
	cred := models.Credential{
		Token:     resp.Token,
		ExpiresAt: m.cfg.Now().Add(lifetime - m.cfg.SafetyBuffer),
	}
	if err := m.store.SetToken(ctx, cred); err != nil {
		m.logger.Warn("token cache write failed", zap.Error(err))
	} else {
		m.logger.Info("cached new rada token", zap.Time("expires_at", cred.ExpiresAt))
	}
	return cred, nil
}

func (m *TokenManager) fetchToken(ctx context.Context) (tokenResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.cfg.URL, nil)
	if err != nil {
		return tokenResponse{}, retry.Permanent(fmt.Errorf("token new request: %w", err))
	}
	req.Header.Set("User-Agent", m.cfg.UserAgent)

	resp, err := m.hc.Do(req)
	if err != nil {
		return tokenResponse{}, fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return tokenResponse{}, fmt.Errorf("token read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return tokenResponse{}, &StatusError{Code: resp.StatusCode, Body: truncate(body, 256)}
	}

	var out tokenResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return tokenResponse{}, fmt.Errorf("token decode: %w", err)
	}
	if out.Token == "" {
		return tokenResponse{}, errEmptyToken
	}
	return out, nil
}
