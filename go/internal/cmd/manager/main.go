package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/mux"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/auctionhouse/go/clients/auction_client"
	"github.com/mcdev12/auctionhouse/go/internal/appconfig"
	"github.com/mcdev12/auctionhouse/go/internal/auction/catalog"
	"github.com/mcdev12/auctionhouse/go/internal/auction/httpapi"
	"github.com/mcdev12/auctionhouse/go/internal/auction/manager"
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
		log.Fatal().Err(err).Msg("manager service failed")
	}
	log.Info().Msg("manager service stopped")
}

func run(ctx context.Context, cfg appconfig.Config) error {
	items, err := catalog.Load(cfg.Manager.CatalogPath)
	if err != nil {
		return err
	}

	bidders := make([]manager.Bidder, 0, len(cfg.Manager.BidderURLs))
	for _, url := range cfg.Manager.BidderURLs {
		bidders = append(bidders, auction_client.NewBidderClient(url))
	}

	m := manager.New(clockwork.NewRealClock(), items, bidders...)

	router := mux.NewRouter()
	manager.NewHandler(m).RegisterRoutes(router)
	srv := httpapi.NewServer(fmt.Sprintf(":%d", cfg.Manager.Port), router)

	log.Info().
		Int("port", cfg.Manager.Port).
		Str("catalog", cfg.Manager.CatalogPath).
		Int("catalog_items", len(items)).
		Strs("bidders", cfg.Manager.BidderURLs).
		Msg("starting manager service")

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return httpapi.Serve(ctx, srv) })

	err = g.Wait()
	m.Wait()
	return err
}
