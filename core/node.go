package core

import (
	"context"
	"net"

	"github.com/chainhaul/settlementd/api"
	"github.com/chainhaul/settlementd/channels"
	"github.com/chainhaul/settlementd/database"
	"github.com/chainhaul/settlementd/events"
	"github.com/chainhaul/settlementd/models"
	"github.com/chainhaul/settlementd/repo"
	"github.com/chainhaul/settlementd/settlement"
	"github.com/chainhaul/settlementd/wallet"
	"github.com/op/go-logging"
)

var log = logging.MustGetLogger("CORE")

// Node is the settlement engine. It wires the repo, the channel
// gateway, the wallet and the orchestrator together and serves the
// HTTP API.
type Node struct {
	repo         *repo.Repo
	eventBus     events.Bus
	gateway      channels.Gateway
	listener     *channels.Listener
	heads        *channels.HeadManager
	payments     *channels.PaymentExecutor
	keychain     *wallet.Keychain
	ledger       wallet.LedgerClient
	publisher    *wallet.Publisher
	orchestrator *settlement.Orchestrator
	apiGateway   *api.Gateway

	cfg *repo.Config
}

// NewNode constructs a node from the config, dialing the channel node
// over websocket and the ledger over HTTP.
func NewNode(ctx context.Context, cfg *repo.Config) (*Node, error) {
	gateway, err := channels.NewWebsocketGateway(ctx, cfg.GatewayAddr)
	if err != nil {
		return nil, err
	}
	ledger := wallet.NewRPCClient(cfg.LedgerAddr)
	return newNode(cfg, gateway, ledger)
}

// NewDevnetNode constructs a node backed by an in-process mock channel
// network and mock ledger so the full pipeline can be exercised
// without external services. The funding address is credited so
// settlements have something to spend.
func NewDevnetNode(cfg *repo.Config) (*Node, error) {
	network := channels.NewMockGatewayNetwork(2)
	ledger := wallet.NewMockLedger()

	node, err := newNode(cfg, network.Gateways()[0], ledger)
	if err != nil {
		return nil, err
	}
	ledger.GenerateToAddress(node.publisher.Address(), cfg.FundingTarget*100)
	return node, nil
}

func newNode(cfg *repo.Config, gateway channels.Gateway, ledger wallet.LedgerClient) (*Node, error) {
	r, err := repo.NewRepo(cfg.DataDir)
	if err != nil {
		return nil, err
	}

	mnemonic, err := r.Mnemonic()
	if err != nil {
		return nil, err
	}
	keychain, err := wallet.NewKeychain(mnemonic)
	if err != nil {
		return nil, err
	}

	bus := events.NewBus()
	listener := channels.NewListener(gateway)

	heads := channels.NewHeadManager(gateway, listener, r.DB(), bus, channels.ManagerConfig{
		ContestationPeriod: cfg.ContestationPeriod,
		FundingTarget:      cfg.FundingTarget,
		OpenTimeout:        cfg.ChannelOpenTimeout,
		CloseTimeout:       cfg.ChannelCloseTimeout,
	})
	payments := channels.NewPaymentExecutor(gateway, listener, r.DB(), bus, cfg.PaymentTimeout)

	builder := wallet.NewBuilder(wallet.BuilderConfig{
		FeePerByte:   cfg.FeePerByte,
		FeeBase:      cfg.FeeBase,
		MinOutput:    cfg.MinOutput,
		MaxTxSize:    int(cfg.MaxTxSize),
		MaxValueSize: int(cfg.MaxValueSize),
	})
	publisher := wallet.NewPublisher(keychain, builder, ledger)

	localParty := cfg.LocalParty
	if localParty == "" {
		localParty = keychain.KeyRef()
	}
	orchestrator := settlement.NewOrchestrator(r.DB(), bus, heads, payments, publisher, cfg.EscrowAddress, localParty)

	return &Node{
		repo:         r,
		eventBus:     bus,
		gateway:      gateway,
		listener:     listener,
		heads:        heads,
		payments:     payments,
		keychain:     keychain,
		ledger:       ledger,
		publisher:    publisher,
		orchestrator: orchestrator,
		cfg:          cfg,
	}, nil
}

// Start brings up the API server.
func (n *Node) Start() error {
	apiListener, err := net.Listen("tcp", n.cfg.APIAddr)
	if err != nil {
		return err
	}
	gateway, err := api.NewGateway(n, &api.GatewayConfig{
		Listener:      apiListener,
		SubmitRetries: n.cfg.SubmitRetries,
	})
	if err != nil {
		return err
	}
	n.apiGateway = gateway
	go func() {
		if err := gateway.Serve(); err != nil {
			log.Errorf("API server error: %s", err)
		}
	}()
	log.Infof("Node started. Funding address %s", n.publisher.Address())
	return nil
}

// Stop shuts down the API server, the gateway connection and the repo.
func (n *Node) Stop() {
	if n.apiGateway != nil {
		n.apiGateway.Close()
	}
	n.gateway.Close()
	n.repo.Close()
	log.Info("Node stopped")
}

// Settle drives an invoice through the settlement pipeline.
func (n *Node) Settle(ctx context.Context, invoice models.Invoice) (*settlement.Result, error) {
	return n.orchestrator.Settle(ctx, invoice)
}

// CloseChannel settles a payment head on chain.
func (n *Node) CloseChannel(ctx context.Context, channelID string) error {
	return n.orchestrator.CloseChannel(ctx, channelID)
}

// Address returns the node's funding address.
func (n *Node) Address() string {
	return n.publisher.Address()
}

// SubscribeEvent subscribes to events on the node's bus.
func (n *Node) SubscribeEvent(event interface{}) (events.Subscription, error) {
	return n.eventBus.Subscribe(event)
}

// DB returns the node's database.
func (n *Node) DB() database.Database {
	return n.repo.DB()
}

// Repo returns the node's repo.
func (n *Node) Repo() *repo.Repo {
	return n.repo
}
