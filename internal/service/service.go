package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/nitesh/bill_monitor/internal/classifier"
	"github.com/nitesh/bill_monitor/pkg/models"
)

// Dataset downloads the full list of bills.
type Dataset interface {
	FetchDataset(ctx context.Context) ([]models.Bill, error)
}

type Categorizer interface {
	Categorize(title string) []models.Category
}

// ResultCache keeps computed query results. GetResult reports a miss with
// ok=false and a nil error.
type ResultCache interface {
	GetResult(ctx context.Context, key string) ([]models.ClassifiedBill, bool, error)
	SetResultIfAbsent(ctx context.Context, key string, bills []models.ClassifiedBill, ttl time.Duration) (bool, error)
}

// SeenStore is the persistent set of bill IDs already evaluated by a digest.
type SeenStore interface {
	SeenIDs(ctx context.Context) (map[string]struct{}, error)
	AddSeen(ctx context.Context, ids []string) error
}

// RunLog records digest executions.
type RunLog interface {
	SaveRun(ctx context.Context, run models.DigestRun) error
}

type Notifier interface {
	Send(ctx context.Context, bills []models.DigestBill) error
}

const (
	DefaultResultTTL    = time.Hour
	DefaultPreviewLimit = 100
)

type Service struct {
	dataset      Dataset
	classifier   Categorizer
	cache        ResultCache
	seen         SeenStore
	notifier     Notifier
	runs         RunLog
	resultTTL    time.Duration
	previewLimit int
	loc          *time.Location
	now          func() time.Time
	logger       *zap.Logger
}

type Option func(*Service)

func WithClassifier(c Categorizer) Option { return func(s *Service) { s.classifier = c } }

// WithRunLog enables the digest audit log.
func WithRunLog(r RunLog) Option { return func(s *Service) { s.runs = r } }

func WithResultTTL(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.resultTTL = d
		}
	}
}

func WithPreviewLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.previewLimit = n
		}
	}
}

// WithLocation sets the zone used for zone-less registration timestamps
// and query dates.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

func NewService(dataset Dataset, cache ResultCache, seen SeenStore, notifier Notifier, opts ...Option) *Service {
	s := &Service{
		dataset:      dataset,
		classifier:   classifier.Default(),
		cache:        cache,
		seen:         seen,
		notifier:     notifier,
		resultTTL:    DefaultResultTTL,
		previewLimit: DefaultPreviewLimit,
		loc:          time.UTC,
		now:          time.Now,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PreviewLimit is the default number of bills examined by PreviewDigest.
func (s *Service) PreviewLimit() int {
	return s.previewLimit
}
