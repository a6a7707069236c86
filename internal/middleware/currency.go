package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	// ContextCurrency is the key for the display currency in gin context.
	ContextCurrency = "currency"
	// ContextConversionRate is the key for the base-to-display rate in gin context.
	ContextConversionRate = "conversion_rate"
	// DefaultCurrency is used when no currency middleware ran.
	DefaultCurrency = "QAR"
	// RatesKey is the Redis hash of currency -> rate overriding configured rates.
	RatesKey = "currency:rates"
	// CurrencyHeader carries the requested currency in and the applied one out.
	CurrencyHeader = "X-Currency"
)

// RateSource looks up the conversion rate from the base currency.
type RateSource interface {
	Rate(ctx context.Context, currency string) (decimal.Decimal, bool, error)
}

// StaticRates is a fixed rate table.
type StaticRates map[string]decimal.Decimal

// Rate implements RateSource.
func (s StaticRates) Rate(_ context.Context, currency string) (decimal.Decimal, bool, error) {
	r, ok := s[currency]
	return r, ok, nil
}

// RedisRates reads rates from the RatesKey hash and falls back to a static table.
type RedisRates struct {
	client   *redis.Client
	fallback StaticRates
}

// NewRedisRates creates a Redis-backed rate source.
func NewRedisRates(client *redis.Client, fallback map[string]decimal.Decimal) *RedisRates {
	return &RedisRates{client: client, fallback: fallback}
}

// Rate implements RateSource.
func (r *RedisRates) Rate(ctx context.Context, currency string) (decimal.Decimal, bool, error) {
	raw, err := r.client.HGet(ctx, RatesKey, currency).Result()
	switch {
	case errors.Is(err, redis.Nil):
		return r.fallback.Rate(ctx, currency)
	case err != nil:
		return decimal.Zero, false, errors.Wrap(err, "hget rate")
	}
	rate, err := decimal.NewFromString(raw)
	if err != nil || !rate.IsPositive() {
		return r.fallback.Rate(ctx, currency)
	}
	return rate, true, nil
}

// Currency resolves the display currency from ?currency= or X-Currency and its
// rate. Unknown currencies and lookup failures fall back to base at rate 1.
// The currency actually used is echoed in the X-Currency response header.
func Currency(base string, rates RateSource, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	one := decimal.NewFromInt(1)
	return func(c *gin.Context) {
		want := c.Query("currency")
		if want == "" {
			want = c.GetHeader(CurrencyHeader)
		}
		want = strings.ToUpper(strings.TrimSpace(want))

		currency, rate := base, one
		if want != "" && want != base {
			r, ok, err := rates.Rate(c.Request.Context(), want)
			if err != nil {
				logger.Warn("currency rate lookup failed", zap.String("currency", want), zap.Error(err))
			} else if ok {
				currency, rate = want, r
			}
		}
		c.Set(ContextCurrency, currency)
		c.Set(ContextConversionRate, rate)
		c.Header(CurrencyHeader, currency)
		c.Next()
	}
}

// CurrencyFrom returns the display currency and rate set by Currency.
func CurrencyFrom(c *gin.Context) (string, decimal.Decimal) {
	currency := c.GetString(ContextCurrency)
	rate, ok := c.Get(ContextConversionRate)
	if currency == "" || !ok {
		return DefaultCurrency, decimal.NewFromInt(1)
	}
	return currency, rate.(decimal.Decimal)
}
