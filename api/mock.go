package api

import (
	"context"

	"github.com/chainhaul/settlementd/database"
	"github.com/chainhaul/settlementd/events"
	"github.com/chainhaul/settlementd/models"
	"github.com/chainhaul/settlementd/settlement"
)

type mockNode struct {
	settleFunc         func(ctx context.Context, invoice models.Invoice) (*settlement.Result, error)
	closeChannelFunc   func(ctx context.Context, channelID string) error
	addressFunc        func() string
	subscribeEventFunc func(event interface{}) (events.Subscription, error)
	dbFunc             func() database.Database
}

func (m *mockNode) Settle(ctx context.Context, invoice models.Invoice) (*settlement.Result, error) {
	return m.settleFunc(ctx, invoice)
}

func (m *mockNode) CloseChannel(ctx context.Context, channelID string) error {
	return m.closeChannelFunc(ctx, channelID)
}

func (m *mockNode) Address() string {
	return m.addressFunc()
}

func (m *mockNode) SubscribeEvent(event interface{}) (events.Subscription, error) {
	return m.subscribeEventFunc(event)
}

func (m *mockNode) DB() database.Database {
	return m.dbFunc()
}
