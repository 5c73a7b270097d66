package main

import (
	"flag"
	"log"
	"os"

	"RateHub/internal/domain/repository"
	"RateHub/internal/handler/api"
	irepo "RateHub/internal/repository"
	"RateHub/internal/service/health"
	"RateHub/internal/service/providers"
	"RateHub/internal/service/ratelimit"
	"RateHub/internal/usecase"
	"RateHub/pkg/cache"
	"RateHub/pkg/config"
	xhttp "RateHub/pkg/http"
	pkgkafka "RateHub/pkg/kafka"
	applogger "RateHub/pkg/logger"
	"RateHub/pkg/metrics"
	"RateHub/pkg/server"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}

	store, err := buildCache(cfg)
	if err != nil {
		l.Error("cache init failed", applogger.Error(err))
		os.Exit(1)
	}

	registry := buildRegistry(cfg)
	if len(registry) == 0 {
		l.Error("no providers enabled")
		os.Exit(1)
	}

	tracker := health.NewTracker(irepo.NewKVHealthStore(store), l)
	limiter := ratelimit.New()
	recorder := metrics.New()

	var publisher repository.Publisher
	if cfg.Kafka.Enabled {
		producer, perr := pkgkafka.NewProducer(
			pkgkafka.WithBrokers(cfg.Kafka.Brokers),
			pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
			pkgkafka.WithCompression(cfg.Kafka.Compression),
			pkgkafka.WithTimeouts(cfg.Kafka.WriteTimeout, cfg.Kafka.WriteTimeout),
		)
		if perr != nil {
			l.Error("kafka producer init failed", applogger.Error(perr))
			os.Exit(1)
		}
		publisher = irepo.NewKafkaSnapshotPublisher(producer, cfg.Kafka.Topic)
		l.Info("kafka snapshot publishing enabled",
			applogger.Strings("brokers", cfg.Kafka.Brokers),
			applogger.String("topic", cfg.Kafka.Topic))
	}

	opts := []usecase.MarketOption{
		usecase.WithCacheTTL(cfg.Cache.TTL),
		usecase.WithCallTimeout(cfg.Market.CallTimeout),
	}
	if publisher != nil {
		opts = append(opts, usecase.WithPublisher(publisher))
	}

	market := usecase.NewMarket(registry, tracker, store, limiter, recorder, l, opts...)
	signals := usecase.NewSignals(market)
	handler := api.NewMarketHandler(l, market, signals)

	l.Info("providers registered", applogger.Int("count", len(registry)),
		applogger.String("cache_backend", cfg.Cache.Backend))

	app := server.New(cfg, l, handler, store, publisher)
	if err := app.Run(); err != nil {
		l.Error("app error", applogger.Error(err))
		os.Exit(1)
	}
}

func buildCache(cfg *config.Config) (cache.Service, error) {
	if cfg.Cache.Backend == "redis" {
		return cache.NewRedisCache(
			cache.WithRedisHost(cfg.Cache.Redis.Host),
			cache.WithRedisPort(cfg.Cache.Redis.Port),
			cache.WithRedisPassword(cfg.Cache.Redis.Password),
			cache.WithRedisDB(cfg.Cache.Redis.DB),
			cache.WithRedisPrefix(cfg.Cache.Redis.Prefix),
		)
	}
	return cache.NewMemoryCache(), nil
}

// buildRegistry assembles the fallback chain from configuration. Only
// enabled providers participate; ranking happens at fetch time.
func buildRegistry(cfg *config.Config) []repository.RegisteredProvider {
	client := xhttp.NewClient(xhttp.WithTimeout(cfg.Market.CallTimeout))

	reg := make([]repository.RegisteredProvider, 0, 5)
	add := func(id string, p config.Provider, adapter repository.Adapter) {
		if !p.Enabled {
			return
		}
		reg = append(reg, repository.RegisteredProvider{
			ID:         id,
			Priority:   p.Priority,
			DailyLimit: p.DailyLimit,
			Adapter:    adapter,
		})
	}

	pv := cfg.Providers
	add("alphavantage", pv.AlphaVantage,
		providers.NewAlphaVantage(pv.AlphaVantage.BaseURL, pv.AlphaVantage.APIKey, client))
	add("twelvedata", pv.TwelveData,
		providers.NewTwelveData(pv.TwelveData.BaseURL, pv.TwelveData.APIKey, client))
	add("exchangerate", pv.ExchangeRate,
		providers.NewExchangeRate(pv.ExchangeRate.BaseURL, client))
	add("metalsapi", pv.MetalsAPI,
		providers.NewMetalsAPI(pv.MetalsAPI.BaseURL, pv.MetalsAPI.APIKey, client))
	add("coingecko", pv.CoinGecko,
		providers.NewCoinGecko(pv.CoinGecko.BaseURL, client))

	return reg
}
