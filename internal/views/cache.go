package views

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"studio/internal/domain"
	"studio/internal/infra"
)

// Fetcher is the part of the worker the cache reads through.
type Fetcher interface {
	FetchChannelView(ctx context.Context, slot domain.SlotID, channel domain.Channel) (domain.Image, error)
}

type entry struct {
	img     domain.Image
	fetched time.Time
}

type key struct {
	slot    domain.SlotID
	channel domain.Channel
}

// Cache keeps recently fetched channel views. Concurrent misses for the same
// view share one worker request. Pending and failed fetches are not cached.
type Cache struct {
	fetcher Fetcher
	ttl     time.Duration
	logger  *infra.Logger
	now     func() time.Time

	group singleflight.Group

	mu      sync.RWMutex
	entries map[key]entry
	epochs  [domain.SlotCount]uint64
}

func NewCache(fetcher Fetcher, ttl time.Duration, logger *infra.Logger) *Cache {
	if logger == nil {
		logger = infra.NopLogger()
	}
	return &Cache{
		fetcher: fetcher,
		ttl:     ttl,
		logger:  logger,
		now:     time.Now,
		entries: make(map[key]entry),
	}
}

// Get returns the view of channel for slot, fetching it on a miss.
func (c *Cache) Get(ctx context.Context, slot domain.SlotID, channel domain.Channel) (domain.Image, error) {
	if !slot.Valid() {
		return domain.Image{}, fmt.Errorf("views: %w: %d", domain.ErrInvalidSlot, slot)
	}
	k := key{slot: slot, channel: channel}
	if img, ok := c.lookup(k); ok {
		return img, nil
	}

	c.mu.RLock()
	epoch := c.epochs[slot.Index()]
	c.mu.RUnlock()

	flight := fmt.Sprintf("%d/%s/%d", slot, channel, epoch)
	v, err, shared := c.group.Do(flight, func() (any, error) {
		// Detached so one caller going away does not fail the others.
		img, err := c.fetcher.FetchChannelView(context.WithoutCancel(ctx), slot, channel)
		if err != nil {
			return domain.Image{}, err
		}
		c.store(k, epoch, img)
		return img, nil
	})
	if err != nil {
		if !errors.Is(err, domain.ErrViewPending) {
			c.logger.Debug().Err(err).Int("slot", int(slot)).Str("channel", string(channel)).Msg("views: fetch failed")
		}
		return domain.Image{}, err
	}
	if shared {
		c.logger.Debug().Int("slot", int(slot)).Str("channel", string(channel)).Msg("views: coalesced fetch")
	}
	return v.(domain.Image), nil
}

// Invalidate drops every cached view of slot. Fetches already in flight for
// the old image finish but are not stored.
func (c *Cache) Invalidate(slot domain.SlotID) {
	if !slot.Valid() {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.epochs[slot.Index()]++
	for k := range c.entries {
		if k.slot == slot {
			delete(c.entries, k)
		}
	}
}

func (c *Cache) lookup(k key) (domain.Image, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[k]
	if !ok || c.now().Sub(e.fetched) >= c.ttl {
		return domain.Image{}, false
	}
	return e.img, true
}

func (c *Cache) store(k key, epoch uint64, img domain.Image) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epochs[k.slot.Index()] != epoch {
		return
	}
	c.entries[k] = entry{img: img, fetched: c.now()}
}
