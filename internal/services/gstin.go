package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/nexconsult/gstin-api/internal/logger"
	"github.com/nexconsult/gstin-api/internal/models"
	"github.com/nexconsult/gstin-api/internal/utils"
	"github.com/sirupsen/logrus"
)

// LookupResult is either a verified record or a pending challenge
type LookupResult struct {
	GSTIN      string
	Record     *models.Record
	Challenge  *models.Challenge
	Cached     bool
	VerifiedAt time.Time
	CreatedAt  time.Time
}

// GSTINService fronts the portal automation with the record store
type GSTINService struct {
	store      RecordStore
	automation Automation
	logger     *logrus.Logger
	now        func() time.Time

	// one page drives one lookup at a time
	mu sync.Mutex

	total      atomic.Int64
	cacheHits  atomic.Int64
	challenges atomic.Int64
	succeeded  atomic.Int64
	failed     atomic.Int64
}

// NewGSTINService creates a new GSTIN service
func NewGSTINService(store RecordStore, automation Automation, logger *logrus.Logger) *GSTINService {
	return &GSTINService{
		store:      store,
		automation: automation,
		logger:     logger,
		now:        time.Now,
	}
}

// Lookup returns the stored record for gstin or runs the automation.
// Only terminal records are written to the store.
func (s *GSTINService) Lookup(ctx context.Context, gstin string) (*LookupResult, error) {
	start := time.Now()
	s.total.Add(1)

	gstin = utils.NormalizeGSTIN(gstin)
	log := logger.ForLookup(s.logger, gstin, logrus.Fields{"request_id": uuid.New().String()})

	if !utils.IsValidGSTIN(gstin) {
		s.failed.Add(1)
		return nil, newLookupError(KindInvalidIdentifier, "Invalid GSTIN format", nil)
	}
	log = log.WithFields(logrus.Fields{
		"state_code": utils.StateCode(gstin),
		"pan":        utils.PAN(gstin),
	})

	if res, ok := s.fromStore(ctx, gstin, log); ok {
		log.WithField("duration", time.Since(start)).Info("GSTIN found in cache")
		return res, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// A lookup that held the lock may have stored it meanwhile
	if res, ok := s.fromStore(ctx, gstin, log); ok {
		return res, nil
	}

	log.Info("Starting GSTIN verification")
	outcome, err := s.automation.Run(ctx, gstin)
	if err != nil {
		s.failed.Add(1)
		log.WithError(err).Error("GSTIN verification failed")
		return nil, err
	}

	res, err := s.finish(ctx, outcome, log)
	if err == nil && res.Record != nil {
		log.WithField("duration", time.Since(start)).Info("GSTIN verification completed")
	}
	return res, err
}

// Resume submits a CAPTCHA solution for the pending lookup
func (s *GSTINService) Resume(ctx context.Context, solution string) (*LookupResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	gstin, _ := s.automation.Pending()
	log := logger.ForLookup(s.logger, gstin, nil)

	outcome, err := s.automation.Resume(ctx, solution)
	if err != nil {
		if !errors.Is(err, ErrNoPendingChallenge) {
			s.failed.Add(1)
		}
		log.WithError(err).Warn("Resume failed")
		return nil, err
	}
	return s.finish(ctx, outcome, log)
}

// PendingChallenge returns the GSTIN waiting for a CAPTCHA solution
func (s *GSTINService) PendingChallenge() (string, bool) {
	return s.automation.Pending()
}

// Mode returns the CAPTCHA strategy
func (s *GSTINService) Mode() CaptchaMode {
	return s.automation.Mode()
}

// Stats returns lookup counters
func (s *GSTINService) Stats() models.LookupMetrics {
	m := models.LookupMetrics{
		Total:      s.total.Load(),
		CacheHits:  s.cacheHits.Load(),
		Challenges: s.challenges.Load(),
		Succeeded:  s.succeeded.Load(),
		Failed:     s.failed.Load(),
	}
	if m.Total > 0 {
		m.HitRate = float64(m.CacheHits) / float64(m.Total) * 100
	}
	return m
}

// Health returns service health status
func (s *GSTINService) Health() map[string]interface{} {
	pending, hasPending := s.automation.Pending()
	health := map[string]interface{}{
		"status":            "healthy",
		"captcha_mode":      string(s.automation.Mode()),
		"pending_challenge": hasPending,
		"store":             s.store.Health(),
	}
	if hasPending {
		health["pending_gstin"] = pending
	}
	return health
}

func (s *GSTINService) fromStore(ctx context.Context, gstin string, log *logrus.Entry) (*LookupResult, bool) {
	entry, err := s.store.Get(ctx, gstin)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			log.WithError(err).Warn("Failed to read record store")
		}
		return nil, false
	}
	s.cacheHits.Add(1)
	rec := entry.Record
	return &LookupResult{
		GSTIN:      gstin,
		Record:     &rec,
		Cached:     true,
		VerifiedAt: entry.VerifiedAt,
		CreatedAt:  entry.CreatedAt,
	}, true
}

func (s *GSTINService) finish(ctx context.Context, outcome *Outcome, log *logrus.Entry) (*LookupResult, error) {
	if outcome.Challenge != nil {
		s.challenges.Add(1)
		log.Info("CAPTCHA challenge handed to caller")
		return &LookupResult{GSTIN: outcome.GSTIN, Challenge: outcome.Challenge}, nil
	}

	rec := *outcome.Record
	// The key is the requested identifier, not whatever the portal echoed
	rec.GSTIN = outcome.GSTIN

	now := s.now().UTC()
	res := &LookupResult{GSTIN: outcome.GSTIN, Record: &rec, VerifiedAt: now, CreatedAt: now}
	entry, err := s.store.Save(ctx, rec, now)
	if err != nil {
		log.WithError(err).Warn("Failed to store verified record")
	} else {
		res.CreatedAt = entry.CreatedAt
		res.VerifiedAt = entry.VerifiedAt
	}

	s.succeeded.Add(1)
	return res, nil
}
