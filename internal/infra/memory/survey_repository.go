package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"survey-response-service/internal/domain"
)

// DefinitionLoader fetches survey definitions from a backing store.
type DefinitionLoader interface {
	LoadDefinition(ctx context.Context, surveyID, organizationID string) (domain.Definition, error)
}

// SurveyRepository caches definitions with TTL to avoid repeated DB hits.
type SurveyRepository struct {
	loader DefinitionLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedDefinition
}

type cachedDefinition struct {
	def       domain.Definition
	expiresAt time.Time
}

func NewSurveyRepository(loader DefinitionLoader, ttl time.Duration) *SurveyRepository {
	return &SurveyRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedDefinition),
	}
}

func (r *SurveyRepository) GetDefinition(ctx context.Context, surveyID, organizationID string) (domain.Definition, error) {
	key := surveyID + ":" + organizationID
	now := r.clock()

	r.mu.RLock()
	if entry, ok := r.cache[key]; ok && entry.expiresAt.After(now) {
		r.mu.RUnlock()
		return entry.def, nil
	}
	r.mu.RUnlock()

	result, err, _ := r.sf.Do(key, func() (interface{}, error) {
		now := r.clock()
		r.mu.RLock()
		if entry, ok := r.cache[key]; ok && entry.expiresAt.After(now) {
			r.mu.RUnlock()
			return entry.def, nil
		}
		r.mu.RUnlock()

		def, err := r.loader.LoadDefinition(ctx, surveyID, organizationID)
		if err != nil {
			return domain.Definition{}, err
		}

		r.mu.Lock()
		r.cache[key] = cachedDefinition{
			def:       def,
			expiresAt: now.Add(r.ttlWithJitter()),
		}
		r.mu.Unlock()
		return def, nil
	})
	if err != nil {
		return domain.Definition{}, err
	}
	return result.(domain.Definition), nil
}

// StaticDefinitionLoader is a simple loader backed by an in-memory map
// (useful for tests and the no-database demo mode).
type StaticDefinitionLoader struct {
	definitions map[string]domain.Definition
}

func NewStaticDefinitionLoader(definitions map[string]domain.Definition) *StaticDefinitionLoader {
	return &StaticDefinitionLoader{definitions: definitions}
}

func (l *StaticDefinitionLoader) LoadDefinition(_ context.Context, surveyID, _ string) (domain.Definition, error) {
	if def, ok := l.definitions[surveyID]; ok {
		return def, nil
	}
	return domain.Definition{}, domain.ErrSurveyNotFound
}

func (r *SurveyRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
