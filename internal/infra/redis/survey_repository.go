package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"survey-response-service/internal/domain"
)

// DefinitionLoader fetches survey definitions from a backing store.
type DefinitionLoader interface {
	LoadDefinition(ctx context.Context, surveyID, organizationID string) (domain.Definition, error)
}

// SurveyRepository caches full definitions (survey + questions +
// candidates) as JSON under survey:{surveyID}:{orgID}:def and falls back to
// a loader on cache miss.
type SurveyRepository struct {
	client *redis.Client
	loader DefinitionLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewSurveyRepository(client *redis.Client, loader DefinitionLoader, ttl time.Duration) *SurveyRepository {
	return &SurveyRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *SurveyRepository) GetDefinition(ctx context.Context, surveyID, organizationID string) (domain.Definition, error) {
	key := r.key(surveyID, organizationID)

	if def, ok := r.fromCache(ctx, key); ok {
		return def, nil
	}

	result, err, _ := r.sf.Do(key, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if def, ok := r.fromCache(ctx, key); ok {
			return def, nil
		}

		def, err := r.loader.LoadDefinition(ctx, surveyID, organizationID)
		if err != nil {
			return domain.Definition{}, err
		}

		if raw, err := json.Marshal(def); err == nil {
			// best-effort cache fill
			_ = r.client.Set(ctx, key, raw, r.ttlWithJitter()).Err()
		}
		return def, nil
	})
	if err != nil {
		return domain.Definition{}, err
	}
	return result.(domain.Definition), nil
}

func (r *SurveyRepository) fromCache(ctx context.Context, key string) (domain.Definition, bool) {
	raw, err := r.client.Get(ctx, key).Bytes()
	if err != nil || len(raw) == 0 {
		return domain.Definition{}, false
	}
	var def domain.Definition
	if err := json.Unmarshal(raw, &def); err != nil {
		return domain.Definition{}, false
	}
	return def, true
}

func (r *SurveyRepository) key(surveyID, organizationID string) string {
	return "survey:" + surveyID + ":" + organizationID + ":def"
}

func (r *SurveyRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
