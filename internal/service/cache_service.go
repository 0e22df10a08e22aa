package service

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// CacheService хранит значения в памяти с TTL и инвалидацией по префиксу.
type CacheService struct {
	mu    sync.RWMutex
	cache map[string]*cacheEntry
	stop  chan struct{}
	once  sync.Once
}

type cacheEntry struct {
	data      interface{}
	expiresAt time.Time
}

// NewCacheService создаёт кэш и запускает фоновую очистку раз в interval.
func NewCacheService(interval time.Duration) *CacheService {
	cs := &CacheService{
		cache: make(map[string]*cacheEntry),
		stop:  make(chan struct{}),
	}
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	go cs.cleanup(interval)

	return cs
}

// Get возвращает значение, если оно есть и не истекло.
func (cs *CacheService) Get(key string) (interface{}, bool) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	entry, exists := cs.cache[key]
	if !exists || time.Now().After(entry.expiresAt) {
		return nil, false
	}

	return entry.data, true
}

// Set сохраняет значение на ttl.
func (cs *CacheService) Set(key string, value interface{}, ttl time.Duration) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	cs.cache[key] = &cacheEntry{
		data:      value,
		expiresAt: time.Now().Add(ttl),
	}
}

func (cs *CacheService) Delete(key string) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	delete(cs.cache, key)
}

// InvalidateByPrefix удаляет все ключи с префиксом.
func (cs *CacheService) InvalidateByPrefix(prefix string) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	for key := range cs.cache {
		if strings.HasPrefix(key, prefix) {
			delete(cs.cache, key)
		}
	}
}

// InvalidateUserCache удаляет профиль пользователя и рейтинги, где он мог оказаться.
func (cs *CacheService) InvalidateUserCache(userID uuid.UUID) {
	cs.Delete(ProfileCacheKey(userID))
	cs.InvalidateByPrefix(topFreelancersPrefix)
}

// Close останавливает фоновую очистку.
func (cs *CacheService) Close() {
	cs.once.Do(func() { close(cs.stop) })
}

func (cs *CacheService) cleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-cs.stop:
			return
		case <-ticker.C:
			cs.mu.Lock()
			now := time.Now()
			for key, entry := range cs.cache {
				if now.After(entry.expiresAt) {
					delete(cs.cache, key)
				}
			}
			cs.mu.Unlock()
		}
	}
}

const topFreelancersPrefix = "top_freelancers:"

func ProfileCacheKey(userID uuid.UUID) string {
	return "profile:" + userID.String()
}

func TopFreelancersCacheKey(limit int) string {
	return topFreelancersPrefix + strconv.Itoa(limit)
}

// GetOrSet возвращает значение из кэша или вычисляет и сохраняет его.
// Ошибки fn не кэшируются.
func (cs *CacheService) GetOrSet(
	ctx context.Context,
	key string,
	ttl time.Duration,
	fn func() (interface{}, error),
) (interface{}, error) {
	if value, found := cs.Get(key); found {
		return value, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	value, err := fn()
	if err != nil {
		return nil, err
	}

	cs.Set(key, value, ttl)

	return value, nil
}
