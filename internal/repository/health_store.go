package repository

import (
	"context"
	"errors"
	"fmt"

	"RateHub/internal/domain/models"
	drepo "RateHub/internal/domain/repository"
	"RateHub/pkg/cache"
)

const healthKeyPrefix = "provider_health"

// KVHealthStore persists provider health records in the key-value cache
// backend (Redis in production, memory in tests). Records carry no expiry;
// they live for the lifetime of the backend.
type KVHealthStore struct {
	kv cache.Service
}

// NewKVHealthStore creates a health store on top of a cache service.
func NewKVHealthStore(kv cache.Service) drepo.HealthStore {
	return &KVHealthStore{kv: kv}
}

func (s *KVHealthStore) Get(ctx context.Context, provider string) (models.ProviderHealth, bool, error) {
	var h models.ProviderHealth
	err := s.kv.Get(ctx, healthKey(provider), &h)
	if err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return models.DefaultHealth(provider), false, nil
		}
		return models.DefaultHealth(provider), false, fmt.Errorf("health get %s: %w", provider, err)
	}
	return h, true, nil
}

func (s *KVHealthStore) Put(ctx context.Context, h models.ProviderHealth) error {
	if err := s.kv.Set(ctx, healthKey(h.Provider), h, 0); err != nil {
		return fmt.Errorf("health put %s: %w", h.Provider, err)
	}
	return nil
}

func healthKey(provider string) string {
	return cache.Key(healthKeyPrefix, provider)
}
