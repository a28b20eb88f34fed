package channels

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"
)

// MockGatewayNetwork is a network of mock gateways connected together
// through channels. A command sent on one gateway produces the
// protocol's notifications on every gateway in the network, the way a
// real channel node would notify each participant.
type MockGatewayNetwork struct {
	gateways []*MockGateway
}

// NewMockGatewayNetwork creates numGateways mock gateways and connects
// them all together.
func NewMockGatewayNetwork(numGateways int) *MockGatewayNetwork {
	n := &MockGatewayNetwork{}
	for i := 0; i < numGateways; i++ {
		g := &MockGateway{
			network: n,
			out:     make(chan Notification, 32),
		}
		n.gateways = append(n.gateways, g)
	}
	return n
}

// Gateways returns the gateways in this network.
func (n *MockGatewayNetwork) Gateways() []*MockGateway {
	return n.gateways
}

func (n *MockGatewayNetwork) broadcast(notifs ...Notification) {
	for _, g := range n.gateways {
		for _, notif := range notifs {
			g.deliver(notif)
		}
	}
}

// MockGateway is an in-process Gateway implementation for tests and
// the devnet. Failure modes can be injected per gateway.
type MockGateway struct {
	network *MockGatewayNetwork
	out     chan Notification

	mtx        sync.Mutex
	silent     bool
	rejectInit string
	rejectTx   string
	closed     bool
}

// SetSilent makes the gateway swallow commands without producing any
// notifications. Used to exercise timeout paths.
func (g *MockGateway) SetSilent(silent bool) {
	g.mtx.Lock()
	defer g.mtx.Unlock()

	g.silent = silent
}

// RejectNextInit makes the next init command fail with the given
// client error.
func (g *MockGateway) RejectNextInit(clientError string) {
	g.mtx.Lock()
	defer g.mtx.Unlock()

	g.rejectInit = clientError
}

// RejectNextTx makes the next payment command fail with the given
// reason.
func (g *MockGateway) RejectNextTx(reason string) {
	g.mtx.Lock()
	defer g.mtx.Unlock()

	g.rejectTx = reason
}

// Send processes a command and produces the matching notifications
// asynchronously.
func (g *MockGateway) Send(ctx context.Context, cmd Command) error {
	g.mtx.Lock()
	silent, rejectInit, rejectTx := g.silent, g.rejectInit, g.rejectTx
	switch cmd.Tag {
	case CommandInit:
		g.rejectInit = ""
	case CommandNewTx:
		g.rejectTx = ""
	}
	g.mtx.Unlock()

	if silent {
		return nil
	}

	switch cmd.Tag {
	case CommandInit:
		if rejectInit != "" {
			go g.deliver(Notification{Tag: NotifCommandFailed, ClientError: rejectInit})
			return nil
		}
		headID := randomHex(16)
		go g.network.broadcast(
			Notification{Tag: NotifHeadIsInitializing},
			Notification{Tag: NotifHeadIsOpen, HeadID: headID},
		)
	case CommandNewTx:
		if cmd.Transaction == nil {
			go g.deliver(Notification{Tag: NotifCommandFailed, ClientError: "missing transaction"})
			return nil
		}
		if rejectTx != "" {
			go g.deliver(Notification{Tag: NotifTxInvalid, Reason: rejectTx, Transaction: cmd.Transaction})
			return nil
		}
		go g.network.broadcast(Notification{Tag: NotifTxValid, Transaction: cmd.Transaction})
	case CommandClose:
		deadline := time.Now().Add(time.Minute)
		go g.network.broadcast(
			Notification{Tag: NotifHeadIsClosed, ContestationDeadline: &deadline},
			Notification{Tag: NotifHeadIsFinalized},
		)
	default:
		go g.deliver(Notification{Tag: NotifCommandFailed, ClientError: "unknown command " + cmd.Tag})
	}
	return nil
}

// Notifications returns the inbound notification channel.
func (g *MockGateway) Notifications() <-chan Notification {
	return g.out
}

// Close shuts the gateway down.
func (g *MockGateway) Close() error {
	g.mtx.Lock()
	defer g.mtx.Unlock()

	if !g.closed {
		g.closed = true
		close(g.out)
	}
	return nil
}

func (g *MockGateway) deliver(n Notification) {
	g.mtx.Lock()
	defer g.mtx.Unlock()

	if g.closed {
		return
	}
	g.out <- n
}

func randomHex(n int) string {
	b := make([]byte, n)
	rand.Read(b)
	return hex.EncodeToString(b)
}
