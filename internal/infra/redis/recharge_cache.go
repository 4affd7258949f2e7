package redis

import (
	"context"
	"encoding/json"
	"time"

	"iptv-client-portal/internal/domain/model"
	"iptv-client-portal/internal/domain/ports/repository"
	"iptv-client-portal/internal/infra/metrics"
)

var _ repository.RechargeOptionRepository = (*CachedRechargeOptionRepo)(nil)

// CachedRechargeOptionRepo caches the recharge catalog in front of Postgres.
// The catalog changes rarely and is read on every pricing page load, so a
// short TTL keeps the portal off the database without a manual invalidation
// path. Writes go straight through and drop the affected keys.
type CachedRechargeOptionRepo struct {
	inner  repository.RechargeOptionRepository
	client RedisClient
	ttl    time.Duration
}

func NewCachedRechargeOptionRepo(inner repository.RechargeOptionRepository, client RedisClient, ttl time.Duration) *CachedRechargeOptionRepo {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedRechargeOptionRepo{inner: inner, client: client, ttl: ttl}
}

func (c *CachedRechargeOptionRepo) Save(ctx context.Context, tx repository.Tx, o *model.RechargeOption) error {
	if err := c.inner.Save(ctx, tx, o); err != nil {
		return err
	}
	_ = c.client.Del(ctx, "recharge_options:"+o.PlanType, "recharge_option:"+o.ID)
	return nil
}

func (c *CachedRechargeOptionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.RechargeOption, error) {
	key := "recharge_option:" + id
	if data, err := c.client.Get(ctx, key); err == nil {
		var o model.RechargeOption
		if jsonErr := json.Unmarshal([]byte(data), &o); jsonErr == nil {
			metrics.IncCacheRequest("recharge_option", "hit")
			return &o, nil
		}
	}
	metrics.IncCacheRequest("recharge_option", "miss")

	o, err := c.inner.FindByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(o); err == nil {
		_ = c.client.Set(ctx, key, data, c.ttl)
	}
	return o, nil
}

func (c *CachedRechargeOptionRepo) ListActiveByPlanType(ctx context.Context, tx repository.Tx, planType string) ([]*model.RechargeOption, error) {
	key := "recharge_options:" + planType
	if data, err := c.client.Get(ctx, key); err == nil {
		var out []*model.RechargeOption
		if jsonErr := json.Unmarshal([]byte(data), &out); jsonErr == nil {
			metrics.IncCacheRequest("recharge_options", "hit")
			return out, nil
		}
	}
	metrics.IncCacheRequest("recharge_options", "miss")

	out, err := c.inner.ListActiveByPlanType(ctx, tx, planType)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(out); err == nil {
		_ = c.client.Set(ctx, key, data, c.ttl)
	}
	return out, nil
}
