package service

import (
	"time"

	"github.com/patrickmn/go-cache"

	appErrors "github.com/avetisov/investline/internal/app/errors"
	"github.com/avetisov/investline/internal/app/service/clients"
)

type (
	// PriceService caches upstream ticker reads for a short TTL so that a
	// dashboard refresh storm does not hammer the rate-limited API.
	PriceService interface {
		GetTicker(symbol string) (*clients.TickerDto, error)
	}

	PriceServiceImpl struct {
		client clients.PriceClient
		cache  *cache.Cache
	}
)

func NewPriceService(client clients.PriceClient, ttl time.Duration) *PriceServiceImpl {
	return &PriceServiceImpl{
		client: client,
		cache:  cache.New(ttl, 2*ttl),
	}
}

func (ps *PriceServiceImpl) GetTicker(symbol string) (*clients.TickerDto, error) {
	if cached, found := ps.cache.Get(symbol); found {
		return cached.(*clients.TickerDto), nil
	}

	ticker, err := ps.client.GetTicker(symbol)
	if err != nil {
		return nil, appErrors.New(err, "get ticker")
	}
	ps.cache.Set(symbol, ticker, cache.DefaultExpiration)
	return ticker, nil
}
