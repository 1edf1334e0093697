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
)

var _ = Describe("Client", func() {
	var (
		server    *httptest.Server
		hits      atomic.Int32
		handler   http.HandlerFunc
		tokens    *staticTokens
		newClient func() *rada.Client
	)

	BeforeEach(func() {
		hits.Store(0)
		tokens = &staticTokens{token: "tok-123"}
		handler = func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`[]`))
		}
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			handler(w, r)
		}))
		DeferCleanup(server.Close)

		newClient = func() *rada.Client {
			return rada.NewClient(rada.ClientConfig{
				DatasetURL: server.URL,
				Retry:      retry.Policy{Name: "dataset", MaxAttempts: 3, Delay: time.Millisecond},
			}, tokens, server.Client(), nil)
		}
	})

	It("sends the token and decodes a control-character contaminated payload", func() {
		var gotUA string
		handler = func(w http.ResponseWriter, r *http.Request) {
			gotUA = r.Header.Get("User-Agent")
			_, _ = w.Write([]byte("[{\"id\":1,\"name\":\"Проект\x01 про\tземельні\x1fсубсидії\",\"url\":\"https://itd.rada.gov.ua/billInfo/Bills/Card/1\"," +
				"\"registrationNumber\":\"1001\",\"registrationDate\":\"2024-03-01T00:00:00\",\"bind\":[2],\"alternative\":[]}\n]"))
		}

		bills, err := newClient().FetchDataset(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(gotUA).To(Equal("tok-123"))
		Expect(bills).To(HaveLen(1))
		Expect(bills[0].ID).To(Equal(int64(1)))
		Expect(bills[0].Name).To(Equal("Проект  про земельні субсидії"))
		Expect(bills[0].RegistrationNumber).To(Equal("1001"))
		Expect(bills[0].Bind).To(Equal([]int64{2}))
	})

	It("fails after exactly three attempts on HTTP 500", func() {
		handler = func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}

		_, err := newClient().FetchDataset(context.Background())
		var dfe *rada.DatasetFetchError
		Expect(errors.As(err, &dfe)).To(BeTrue())
		Expect(dfe.Attempts).To(Equal(3))
		Expect(dfe.Status).To(Equal(http.StatusInternalServerError))
		Expect(hits.Load()).To(Equal(int32(3)))
	})

	It("recovers when a later attempt succeeds", func() {
		handler = func(w http.ResponseWriter, r *http.Request) {
			if hits.Load() < 2 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			_, _ = w.Write([]byte(`[{"id":7,"name":"x","registrationNumber":"7","registrationDate":"2024-01-01T00:00:00"}]`))
		}

		bills, err := newClient().FetchDataset(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(bills).To(HaveLen(1))
		Expect(hits.Load()).To(Equal(int32(2)))
	})

	It("retries malformed payloads", func() {
		handler = func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`[{"id":`))
		}

		_, err := newClient().FetchDataset(context.Background())
		var dfe *rada.DatasetFetchError
		Expect(errors.As(err, &dfe)).To(BeTrue())
		Expect(dfe.Status).To(BeZero())
		Expect(hits.Load()).To(Equal(int32(3)))
	})

	It("does not hit the dataset endpoint when no credential is available", func() {
		tokens.err = &rada.CredentialFetchError{Attempts: 3, Err: errors.New("token endpoint down")}

		_, err := newClient().FetchDataset(context.Background())
		var dfe *rada.DatasetFetchError
		var cfe *rada.CredentialFetchError
		Expect(errors.As(err, &dfe)).To(BeTrue())
		Expect(errors.As(err, &cfe)).To(BeTrue())
		Expect(tokens.calls).To(Equal(1))
		Expect(hits.Load()).To(BeZero())
	})
})
