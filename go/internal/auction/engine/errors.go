package engine

import (
	"errors"

	"github.com/mcdev12/auctionhouse/go/internal/auction/catalog"
)

var (
	// ErrInvalidConfiguration is returned by Apply when the item set is malformed
	ErrInvalidConfiguration = catalog.ErrInvalidConfiguration

	ErrNotFound      = errors.New("auction not found")
	ErrNotStarted    = errors.New("auction has not started yet")
	ErrClosed        = errors.New("auction is already closed")
	ErrBidTooLow     = errors.New("bid too low")
	ErrInvalidBidder = errors.New("bidder name is required")

	// ErrCollaboratorUnavailable marks a failed configuration pull. It is only
	// logged; queries degrade to the unconfigured state.
	ErrCollaboratorUnavailable = errors.New("configuration source unavailable")

	// ErrStopped is returned once Run has exited
	ErrStopped = errors.New("auction engine stopped")
)
