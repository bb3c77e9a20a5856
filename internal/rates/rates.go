// Package rates provides indicative exchange rates against ZAR and
// locale-aware amount formatting. Rates are cached in Redis so the
// upstream provider is consulted at most once per refresh window; when
// neither cache nor provider answers, a static table keeps displays
// working. Indicative rates are never used for settlement.
package rates

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/stokvelhub/pool-ledger/internal/adapter"
	"github.com/stokvelhub/pool-ledger/internal/domain"
	"github.com/stokvelhub/pool-ledger/internal/logger"
)

const (
	cacheKeyPrefix = "pool_ledger:rates:"
	cacheTTL       = time.Hour
)

// staticRates are the last-resort indicative rates, one unit of the
// foreign currency in ZAR
var staticRates = map[domain.Currency]float64{
	domain.CurrencyZAR: 1.0,
	domain.CurrencyUSD: 18.50,
	domain.CurrencyGBP: 23.40,
	domain.CurrencyEUR: 20.10,
}

type providerResponse struct {
	Rates map[string]float64 `json:"rates"`
}

// Service resolves indicative exchange rates
type Service struct {
	redis adapter.RedisClient
	http  adapter.HTTPClient
	json  adapter.JSON
	url   string
}

// NewService creates a rate service. The Redis client may be nil, in
// which case every lookup goes to the provider or the static table.
func NewService(redisClient adapter.RedisClient, http adapter.HTTPClient, json adapter.JSON, url string) *Service {
	return &Service{redis: redisClient, http: http, json: json, url: url}
}

// RateToZAR returns how many ZAR one unit of the given currency buys
func (s *Service) RateToZAR(ctx context.Context, currency domain.Currency) (float64, error) {
	if rate, ok := s.cached(ctx, currency); ok {
		return rate, nil
	}

	rate, err := s.fetch(ctx, currency)
	if err != nil {
		logger.Warn("rate provider unavailable, using static rate",
			zap.String("currency", string(currency)), zap.Error(err))
		static, ok := staticRates[currency]
		if !ok {
			return 0, fmt.Errorf("no rate available for currency %q", currency)
		}
		return static, nil
	}

	s.cache(ctx, currency, rate)
	return rate, nil
}

// Convert converts a minor-unit amount of the given currency into
// minor-unit ZAR at the indicative rate
func (s *Service) Convert(ctx context.Context, amount int64, currency domain.Currency) (int64, error) {
	rate, err := s.RateToZAR(ctx, currency)
	if err != nil {
		return 0, err
	}
	return int64(float64(amount) * rate), nil
}

func (s *Service) cached(ctx context.Context, currency domain.Currency) (float64, bool) {
	if s.redis == nil {
		return 0, false
	}
	val, err := s.redis.Get(ctx, cacheKeyPrefix+string(currency)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.Debug("rate cache read failed", zap.Error(err))
		}
		return 0, false
	}
	rate, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, false
	}
	return rate, true
}

func (s *Service) cache(ctx context.Context, currency domain.Currency, rate float64) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Set(ctx, cacheKeyPrefix+string(currency),
		strconv.FormatFloat(rate, 'f', -1, 64), cacheTTL).Err(); err != nil {
		logger.Debug("rate cache write failed", zap.Error(err))
	}
}

func (s *Service) fetch(ctx context.Context, currency domain.Currency) (float64, error) {
	if s.url == "" {
		return 0, errors.New("no rate provider configured")
	}
	body, err := s.json.Marshal(map[string]string{"base": string(currency), "quote": string(domain.CurrencyZAR)})
	if err != nil {
		return 0, fmt.Errorf("marshal rate request: %w", err)
	}
	resp, err := s.http.PostJSON(ctx, s.url, body)
	if err != nil {
		return 0, err
	}
	var out providerResponse
	if err := s.json.Unmarshal(resp, &out); err != nil {
		return 0, fmt.Errorf("decode rate response: %w", err)
	}
	rate, ok := out.Rates[string(domain.CurrencyZAR)]
	if !ok || rate <= 0 {
		return 0, fmt.Errorf("provider returned no usable %s rate", currency)
	}
	return rate, nil
}

var printerTags = map[domain.Currency]language.Tag{
	domain.CurrencyZAR: language.MustParse("en-ZA"),
	domain.CurrencyUSD: language.AmericanEnglish,
	domain.CurrencyGBP: language.BritishEnglish,
	domain.CurrencyEUR: language.MustParse("en-IE"),
}

// FormatAmount renders a minor-unit amount in the locale conventional
// for the currency, e.g. 50000 ZAR -> "R 500.00"
func FormatAmount(amount int64, currency domain.Currency) string {
	tag, ok := printerTags[currency]
	if !ok {
		tag = language.English
	}
	p := message.NewPrinter(tag)
	major := float64(amount) / 100

	switch currency {
	case domain.CurrencyZAR:
		return p.Sprintf("R %.2f", major)
	case domain.CurrencyUSD:
		return p.Sprintf("$%.2f", major)
	case domain.CurrencyGBP:
		return p.Sprintf("£%.2f", major)
	case domain.CurrencyEUR:
		return p.Sprintf("€%.2f", major)
	default:
		return p.Sprintf("%s %.2f", string(currency), major)
	}
}
