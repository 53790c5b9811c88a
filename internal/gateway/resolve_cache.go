package gateway

import (
	"context"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"

	"ledgerpay/internal/models"
)

// CachedResolver memoizes account-name lookups and the bank list in
// process memory. Transfers are never cached.
type CachedResolver struct {
	next  Gateway
	cache *gocache.Cache
}

func NewCachedResolver(next Gateway, ttl time.Duration) *CachedResolver {
	return &CachedResolver{
		next:  next,
		cache: gocache.New(ttl, 2*ttl),
	}
}

func (c *CachedResolver) InitiateTransfer(ctx context.Context, account models.BankAccount, amount decimal.Decimal, reference string) (*TransferResult, error) {
	return c.next.InitiateTransfer(ctx, account, amount, reference)
}

func (c *CachedResolver) ResolveAccountName(ctx context.Context, accountNumber, bankCode string) (string, error) {
	key := fmt.Sprintf("resolve:%s:%s", bankCode, accountNumber)
	if name, found := c.cache.Get(key); found {
		return name.(string), nil
	}

	name, err := c.next.ResolveAccountName(ctx, accountNumber, bankCode)
	if err != nil {
		return "", err
	}
	c.cache.SetDefault(key, name)
	return name, nil
}

func (c *CachedResolver) ListBanks(ctx context.Context) ([]Bank, error) {
	if banks, found := c.cache.Get("banks"); found {
		return banks.([]Bank), nil
	}

	banks, err := c.next.ListBanks(ctx)
	if err != nil {
		return nil, err
	}
	c.cache.SetDefault("banks", banks)
	return banks, nil
}
