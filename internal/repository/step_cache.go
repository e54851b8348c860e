package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/futig/onboarding-bot/internal/entity"
	"github.com/patrickmn/go-cache"
)

const catalogKey = "catalog"

var _ StepRepository = &StepCache{}

// StepCache serves the read-only catalog from memory and reloads it after ttl.
// Writes go through and drop the cached copy.
type StepCache struct {
	next  StepRepository
	cache *cache.Cache
}

func NewStepCache(next StepRepository, ttl time.Duration) *StepCache {
	return &StepCache{
		next:  next,
		cache: cache.New(ttl, 2*ttl),
	}
}

func (c *StepCache) UpsertSteps(ctx context.Context, steps []entity.Step) (int, error) {
	n, err := c.next.UpsertSteps(ctx, steps)
	c.cache.Flush()
	return n, err
}

func (c *StepCache) ListSteps(ctx context.Context) ([]*entity.Step, error) {
	if cached, ok := c.cache.Get(catalogKey); ok {
		return cached.([]*entity.Step), nil
	}

	steps, err := c.next.ListSteps(ctx)
	if err != nil {
		return nil, err
	}
	if len(steps) == 0 {
		return nil, entity.ErrEmptyCatalog
	}

	c.cache.SetDefault(catalogKey, steps)
	for _, step := range steps {
		c.cache.SetDefault(stepKey(step.ID), step)
	}
	return steps, nil
}

func (c *StepCache) GetStepByID(ctx context.Context, id int64) (*entity.Step, error) {
	if cached, ok := c.cache.Get(stepKey(id)); ok {
		return cached.(*entity.Step), nil
	}

	step, err := c.next.GetStepByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.cache.SetDefault(stepKey(id), step)
	return step, nil
}

func stepKey(id int64) string {
	return fmt.Sprintf("step:%d", id)
}
