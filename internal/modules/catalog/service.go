package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const productCacheTTL = time.Minute

// Service wraps the repo with an optional redis read-through cache for
// the hot lookup path (checkout pricing hits FindProduct per line item).
type Service struct {
	repo *Repo
	rdb  *redis.Client
}

func NewService(repo *Repo) *Service { return &Service{repo: repo} }

func (s *Service) SetRedisClient(client *redis.Client) {
	s.rdb = client
}

// FindProduct returns the product priced as of now. Cache misses and
// redis failures fall through to the database.
func (s *Service) FindProduct(ctx context.Context, id string) (Product, error) {
	key := productCacheKey(id)

	if s.rdb != nil {
		cached, err := s.rdb.Get(ctx, key).Result()
		if err == nil {
			var p Product
			if err := json.Unmarshal([]byte(cached), &p); err == nil {
				return p, nil
			}
		}
	}

	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return Product{}, err
	}

	if s.rdb != nil {
		if data, err := json.Marshal(p); err == nil {
			s.rdb.Set(ctx, key, data, productCacheTTL)
		}
	}

	return p, nil
}

// Invalidate drops the cached copy after a price/stock mutation.
func (s *Service) Invalidate(ctx context.Context, id string) {
	if s.rdb == nil {
		return
	}
	s.rdb.Del(ctx, productCacheKey(id))
}

func productCacheKey(id string) string {
	return fmt.Sprintf("product:%s", id)
}

// UnitPriceCents applies the product's offer percentage to its list
// price, rounded to the nearest cent. The offer is a whole percentage
// (a 1000-cent product with offer 20 sells at 800).
func (p Product) UnitPriceCents() int {
	if p.OfferPercent <= 0 {
		return p.PriceCents
	}
	if p.OfferPercent >= 100 {
		return 0
	}
	return (p.PriceCents*(100-p.OfferPercent) + 50) / 100
}
