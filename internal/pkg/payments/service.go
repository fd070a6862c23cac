package payments

import (
	"encoding/json"
	"log"
	"time"

	"github.com/RuanOosthuizen/StagePass/app/models"
	"github.com/RuanOosthuizen/StagePass/app/repository"
	"github.com/RuanOosthuizen/StagePass/internal/pkg/cache"
	"github.com/RuanOosthuizen/StagePass/internal/pkg/payfast"
	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

// Service wires the payment lifecycle together: initiation, webhook
// ingestion, batch entry reconciliation and status projection.
type Service struct {
	repos    *repository.Repositories
	client   *payfast.Client
	allow    *payfast.AllowList
	locker   Locker
	validate *validator.Validate
	now      func() time.Time
}

// NewService creates a payment service from injected collaborators.
func NewService(repos *repository.Repositories, client *payfast.Client, allow *payfast.AllowList, locker Locker) *Service {
	return &Service{
		repos:    repos,
		client:   client,
		allow:    allow,
		locker:   locker,
		validate: validator.New(),
		now:      time.Now,
	}
}

// NewServiceFromDB creates a payment service with env-configured provider
// settings and the Redis-backed reconciliation lock.
func NewServiceFromDB(db *gorm.DB) *Service {
	return NewService(
		repository.NewRepositories(db),
		payfast.NewClientFromEnv(),
		payfast.NewAllowListFromEnv(),
		cacheLocker{},
	)
}

// cacheLocker adapts the shared cache package to the Locker interface.
type cacheLocker struct{}

func (cacheLocker) Acquire(key string, ttl time.Duration) (bool, error) {
	return cache.AcquireLock(key, ttl)
}

func (cacheLocker) Release(key string) {
	cache.ReleaseLock(key)
}

// logEvent appends one audit row. The caller decides whether a failed
// append is fatal; this helper reports but never panics.
func (s *Service) logEvent(paymentID, eventType string, data map[string]interface{}, sourceIP, userAgent string) error {
	eventData := ""
	if len(data) > 0 {
		encoded, err := json.Marshal(data)
		if err != nil {
			log.Printf("payment log: could not encode event data for %s/%s: %v", paymentID, eventType, err)
		} else {
			eventData = string(encoded)
		}
	}

	return s.repos.PaymentLog.Append(&models.PaymentLog{
		PaymentID: paymentID,
		EventType: eventType,
		EventData: eventData,
		SourceIP:  sourceIP,
		UserAgent: userAgent,
	})
}

// logEventBestEffort is logEvent for the post-persistence path of webhook
// handling, where a failed audit write must not turn into a non-2xx reply.
func (s *Service) logEventBestEffort(paymentID, eventType string, data map[string]interface{}, sourceIP, userAgent string) {
	if err := s.logEvent(paymentID, eventType, data, sourceIP, userAgent); err != nil {
		log.Printf("payment log: could not append %s for %s: %v", eventType, paymentID, err)
	}
}
