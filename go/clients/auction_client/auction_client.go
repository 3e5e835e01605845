package auction_client

import (
	"context"
	"fmt"
	"time"

	"github.com/mcdev12/auctionhouse/go/clients"
	"github.com/mcdev12/auctionhouse/go/internal/models"
)

const (
	DefaultPushTimeout  = 2 * time.Second
	DefaultResetTimeout = 1500 * time.Millisecond
	DefaultPullTimeout  = 2 * time.Second
)

// ManagerClient reads the authoritative configuration from the manager
// service. It satisfies engine.ConfigSource.
type ManagerClient struct {
	*clients.BaseClient
}

func NewManagerClient(baseURL string) *ManagerClient {
	c := &ManagerClient{BaseClient: clients.NewBaseClient(baseURL)}
	c.SetTimeout(DefaultPullTimeout)
	return c
}

// FetchConfiguration returns the manager's configuration. An unconfigured
// manager yields a Configuration whose State is unconfigured.
func (c *ManagerClient) FetchConfiguration(ctx context.Context) (*models.Configuration, error) {
	var cfg models.Configuration
	if err := c.GetJSON(ctx, "/api/config", &cfg); err != nil {
		return nil, fmt.Errorf("fetch configuration from %s: %w", c.BaseURL(), err)
	}
	if cfg.State == "" {
		cfg.State = models.ConfigStateUnconfigured
	}
	return &cfg, nil
}

// BidderClient pushes configuration changes to one bidder service.
type BidderClient struct {
	*clients.BaseClient
	pushTimeout  time.Duration
	resetTimeout time.Duration
}

func NewBidderClient(baseURL string) *BidderClient {
	return &BidderClient{
		BaseClient:   clients.NewBaseClient(baseURL),
		pushTimeout:  DefaultPushTimeout,
		resetTimeout: DefaultResetTimeout,
	}
}

// SetTimeouts overrides the push and reset deadlines.
func (c *BidderClient) SetTimeouts(push, reset time.Duration) {
	c.pushTimeout = push
	c.resetTimeout = reset
}

func (c *BidderClient) PushConfiguration(ctx context.Context, cfg *models.Configuration) error {
	ctx, cancel := context.WithTimeout(ctx, c.pushTimeout)
	defer cancel()

	if err := c.PostJSON(ctx, "/api/config", cfg, nil); err != nil {
		return fmt.Errorf("push configuration to %s: %w", c.BaseURL(), err)
	}
	return nil
}

func (c *BidderClient) Reset(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.resetTimeout)
	defer cancel()

	if err := c.PostJSON(ctx, "/api/reset", struct{}{}, nil); err != nil {
		return fmt.Errorf("reset %s: %w", c.BaseURL(), err)
	}
	return nil
}
