package health

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"RateHub/internal/domain/models"
	drepo "RateHub/internal/domain/repository"
	"RateHub/pkg/logger"
)

// unhealthyThreshold is the failure count at which a provider leaves the
// fallback rotation. Failures decay by one per success, so intermittent
// flakiness does not quarantine a provider permanently.
const unhealthyThreshold = 3

// Tracker maintains rolling per-provider health records. Updates to the
// same provider are serialized; different providers do not contend.
type Tracker struct {
	store drepo.HealthStore
	log   *logger.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewTracker creates a health tracker on top of a HealthStore.
func NewTracker(store drepo.HealthStore, log *logger.Logger) *Tracker {
	return &Tracker{
		store: store,
		log:   log,
		locks: make(map[string]*sync.Mutex),
	}
}

func (t *Tracker) lockFor(provider string) *sync.Mutex {
	t.mu.Lock()
	defer t.mu.Unlock()
	l, ok := t.locks[provider]
	if !ok {
		l = &sync.Mutex{}
		t.locks[provider] = l
	}
	return l
}

// Health returns the persisted record for a provider, or the default record
// when none exists. Storage errors degrade to the default record.
func (t *Tracker) Health(ctx context.Context, provider string) models.ProviderHealth {
	h, found, err := t.store.Get(ctx, provider)
	if err != nil {
		t.log.Warn("health read failed, assuming default",
			logger.String("provider", provider), logger.Error(err))
		return models.DefaultHealth(provider)
	}
	if !found {
		return models.DefaultHealth(provider)
	}
	return h
}

// RecordResult applies one call outcome to a provider's health record.
// Persistence failure is logged, never raised.
func (t *Tracker) RecordResult(ctx context.Context, provider string, success bool) {
	l := t.lockFor(provider)
	l.Lock()
	defer l.Unlock()

	h := t.Health(ctx, provider)

	if success {
		h.SuccessCount++
		if h.FailureCount > 0 {
			h.FailureCount--
		}
		h.IsHealthy = true
	} else {
		h.FailureCount++
		h.IsHealthy = h.FailureCount < unhealthyThreshold
	}
	h.LastChecked = time.Now().UnixMilli()

	if err := t.store.Put(ctx, h); err != nil {
		t.log.Warn("health write failed",
			logger.String("provider", provider), logger.Error(err))
	}
}

// RankHealthy filters the registry down to healthy providers and orders
// them ascending by configured priority. Providers without a configured
// priority sort last.
func (t *Tracker) RankHealthy(ctx context.Context, providers []drepo.RegisteredProvider) []drepo.RegisteredProvider {
	ranked := make([]drepo.RegisteredProvider, 0, len(providers))
	for _, p := range providers {
		if t.Health(ctx, p.ID).IsHealthy {
			ranked = append(ranked, p)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return priorityRank(ranked[i].Priority) < priorityRank(ranked[j].Priority)
	})
	return ranked
}

func priorityRank(p int) int {
	if p <= 0 {
		return math.MaxInt
	}
	return p
}
