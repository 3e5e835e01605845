package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/mux"
	"github.com/mcdev12/auctionhouse/go/clients/auction_client"
	"github.com/mcdev12/auctionhouse/go/internal/appconfig"
	"github.com/mcdev12/auctionhouse/go/internal/auction/engine"
	"github.com/mcdev12/auctionhouse/go/internal/auction/events"
	"github.com/mcdev12/auctionhouse/go/internal/auction/gateway"
	"github.com/mcdev12/auctionhouse/go/internal/auction/httpapi"
	"github.com/mcdev12/auctionhouse/go/internal/auction/outbox"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := appconfig.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	appconfig.SetupLogging(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("bidder service failed")
	}
	log.Info().Msg("bidder service stopped")
}

func run(ctx context.Context, cfg appconfig.Config) error {
	connections := gateway.NewConnectionManager(gateway.DefaultConnectionConfig())

	relays, err := setupRelays(ctx, cfg.Bidder)
	if err != nil {
		return err
	}

	sinks := events.Fanout{connections}
	stats := make([]httpapi.RelayStats, 0, len(relays))
	for _, relay := range relays {
		sinks = append(sinks, relay)
		stats = append(stats, relay)
	}

	eng := engine.New(
		engine.WithSink(sinks),
		engine.WithConfigSource(auction_client.NewManagerClient(cfg.Bidder.ManagerURL)),
	)

	router := mux.NewRouter()
	httpapi.NewBidderHandler(eng, stats...).RegisterRoutes(router)
	gateway.NewWebSocketHandler(connections).RegisterRoutes(router)
	srv := httpapi.NewServer(fmt.Sprintf(":%d", cfg.Bidder.Port), router)

	log.Info().
		Int("port", cfg.Bidder.Port).
		Str("manager_url", cfg.Bidder.ManagerURL).
		Int("relays", len(relays)).
		Msg("starting bidder service")

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return eng.Run(ctx) })
	g.Go(func() error {
		connections.Start(ctx)
		return nil
	})
	for _, relay := range relays {
		g.Go(func() error { return relay.Run(ctx) })
	}
	g.Go(func() error { return httpapi.Serve(ctx, srv) })

	return g.Wait()
}

func setupRelays(ctx context.Context, cfg appconfig.BidderConfig) ([]*outbox.Relay, error) {
	var relays []*outbox.Relay

	if cfg.NATS.Enabled {
		jsCfg := outbox.DefaultJetStreamConfig()
		jsCfg.URL = cfg.NATS.URL
		jsCfg.StreamName = cfg.NATS.Stream
		jsCfg.SubjectPrefix = cfg.NATS.SubjectPrefix

		publisher, err := outbox.NewJetStreamPublisher(ctx, jsCfg)
		if err != nil {
			return nil, fmt.Errorf("setup JetStream relay: %w", err)
		}
		relayCfg := outbox.DefaultRelayConfig()
		relayCfg.IncludeCountdown = cfg.NATS.IncludeCountdown
		relays = append(relays, outbox.NewRelay("jetstream", publisher, relayCfg))
	}

	if cfg.Redis.Enabled {
		publisher, err := outbox.NewRedisPublisher(ctx, outbox.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Channel:  cfg.Redis.Channel,
		})
		if err != nil {
			for _, r := range relays {
				r.Close()
			}
			return nil, fmt.Errorf("setup Redis relay: %w", err)
		}
		relays = append(relays, outbox.NewRelay("redis", publisher, outbox.DefaultRelayConfig()))
	}

	return relays, nil
}
