package rada_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nitesh/bill_monitor/internal/rada"
	"github.com/nitesh/bill_monitor/internal/retry"
	"github.com/nitesh/bill_monitor/pkg/models"
)

var _ = Describe("TokenManager", func() {
	var (
		server    *httptest.Server
		hits      atomic.Int32
		status    int
		body      string
		userAgent atomic.Value
		store     *fakeTokenStore
		now       time.Time
		cfg       rada.TokenManagerConfig
	)

	BeforeEach(func() {
		hits.Store(0)
		status = http.StatusOK
		body = `{"token":"fresh-token","expire":3600}`
		store = &fakeTokenStore{}
		now = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			userAgent.Store(r.Header.Get("User-Agent"))
			w.WriteHeader(status)
			_, _ = w.Write([]byte(body))
		}))
		DeferCleanup(server.Close)

		cfg = rada.TokenManagerConfig{
			URL:          server.URL,
			RegisteredIP: "203.0.113.10",
			Retry:        retry.Policy{Name: "token", MaxAttempts: 3, Delay: time.Millisecond},
			Now:          func() time.Time { return now },
		}
	})

	It("returns a cached token without calling upstream", func() {
		store.cred = &models.Credential{Token: "cached", ExpiresAt: now.Add(time.Minute)}
		m := rada.NewTokenManager(cfg, store, server.Client(), nil)

		token, err := m.GetValidToken(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(token).To(Equal("cached"))
		Expect(hits.Load()).To(BeZero())
	})

	It("refreshes an expired token and applies the safety buffer", func() {
		store.cred = &models.Credential{Token: "stale", ExpiresAt: now.Add(-time.Second)}
		m := rada.NewTokenManager(cfg, store, server.Client(), nil)

		token, err := m.GetValidToken(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(token).To(Equal("fresh-token"))
		Expect(hits.Load()).To(Equal(int32(1)))
		Expect(userAgent.Load()).To(Equal(rada.DefaultTokenUserAgent))
		Expect(store.cred.Token).To(Equal("fresh-token"))
		Expect(store.cred.ExpiresAt).To(Equal(now.Add(time.Hour - time.Minute)))
	})

	It("treats a token expiring exactly now as expired", func() {
		store.cred = &models.Credential{Token: "edge", ExpiresAt: now}
		m := rada.NewTokenManager(cfg, store, server.Client(), nil)

		token, err := m.GetValidToken(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(token).To(Equal("fresh-token"))
	})

	It("still returns a token when the cache store is unavailable", func() {
		store.getErr = errStoreDown
		store.setErr = errStoreDown
		m := rada.NewTokenManager(cfg, store, server.Client(), nil)

		token, err := m.GetValidToken(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(token).To(Equal("fresh-token"))
		Expect(store.setCalls).To(Equal(1))
	})

	It("fails without calling upstream when the registered IP is missing", func() {
		cfg.RegisteredIP = ""
		m := rada.NewTokenManager(cfg, store, server.Client(), nil)

		_, err := m.GetValidToken(context.Background())
		var cfe *rada.CredentialFetchError
		Expect(errors.As(err, &cfe)).To(BeTrue())
		Expect(errors.Is(err, rada.ErrMissingRegisteredIP)).To(BeTrue())
		Expect(hits.Load()).To(BeZero())
	})

	It("gives up after three failed attempts", func() {
		status = http.StatusTooManyRequests
		body = "slow down"
		m := rada.NewTokenManager(cfg, store, server.Client(), nil)

		_, err := m.GetValidToken(context.Background())
		var cfe *rada.CredentialFetchError
		Expect(errors.As(err, &cfe)).To(BeTrue())
		Expect(cfe.Attempts).To(Equal(3))
		Expect(cfe.Status).To(Equal(http.StatusTooManyRequests))
		Expect(hits.Load()).To(Equal(int32(3)))
		Expect(store.setCalls).To(BeZero())
	})

	It("retries an empty token response", func() {
		body = `{"token":"","expire":3600}`
		m := rada.NewTokenManager(cfg, store, server.Client(), nil)

		_, err := m.GetValidToken(context.Background())
		Expect(err).To(HaveOccurred())
		Expect(hits.Load()).To(Equal(int32(3)))
	})
})
