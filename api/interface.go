package api

import (
	"context"

	"github.com/chainhaul/settlementd/database"
	"github.com/chainhaul/settlementd/events"
	"github.com/chainhaul/settlementd/models"
	"github.com/chainhaul/settlementd/settlement"
)

// CoreNode is the subset of the node the gateway needs. Using an
// interface here lets the handler tests swap in a mock.
type CoreNode interface {
	// Settle drives an invoice through the settlement pipeline.
	Settle(ctx context.Context, invoice models.Invoice) (*settlement.Result, error)

	// CloseChannel settles a payment head on chain.
	CloseChannel(ctx context.Context, channelID string) error

	// Address returns the node's funding address.
	Address() string

	// SubscribeEvent subscribes to events on the node's bus.
	SubscribeEvent(event interface{}) (events.Subscription, error)

	// DB returns the node's database.
	DB() database.Database
}
