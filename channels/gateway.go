package channels

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/op/go-logging"
)

var log = logging.MustGetLogger("CHNL")

// Command tags accepted by the channel node.
const (
	CommandInit  = "Init"
	CommandNewTx = "NewTx"
	CommandClose = "Close"
)

// Notification tags emitted by the channel node.
const (
	NotifHeadIsInitializing = "HeadIsInitializing"
	NotifHeadIsOpen         = "HeadIsOpen"
	NotifTxValid            = "TxValid"
	NotifTxInvalid          = "TxInvalid"
	NotifHeadIsClosed       = "HeadIsClosed"
	NotifHeadIsFinalized    = "HeadIsFinalized"
	NotifCommandFailed      = "CommandFailed"
)

// OffChainTx is a single transfer inside an open head. The purpose
// string carries the id of the invoice the transfer settles.
type OffChainTx struct {
	ID        string `json:"id"`
	Sender    string `json:"sender"`
	Recipient string `json:"recipient"`
	Amount    int64  `json:"amount"`
	Purpose   string `json:"purpose"`
}

// Command is the envelope sent to the channel node.
type Command struct {
	Tag                string      `json:"tag"`
	ContestationPeriod uint64      `json:"contestationPeriod,omitempty"`
	Transaction        *OffChainTx `json:"transaction,omitempty"`
}

// Notification is the envelope received from the channel node.
type Notification struct {
	Tag                  string          `json:"tag"`
	HeadID               string          `json:"headId,omitempty"`
	UTXO                 json.RawMessage `json:"utxo,omitempty"`
	Transaction          *OffChainTx     `json:"transaction,omitempty"`
	Reason               string          `json:"reason,omitempty"`
	ContestationDeadline *time.Time      `json:"contestationDeadline,omitempty"`
	ClientError          string          `json:"clientError,omitempty"`
}

// Gateway is a duplex message channel to one off-chain channel node.
// Commands are pushed with Send and asynchronous state change
// notifications are consumed from the Notifications channel. There is
// one long-lived gateway connection per node and each participant runs
// its own head manager observing its own connection.
type Gateway interface {
	// Send pushes a command to the channel node.
	Send(ctx context.Context, cmd Command) error

	// Notifications returns the channel over which inbound
	// notifications are delivered. The channel is closed when the
	// connection shuts down.
	Notifications() <-chan Notification

	// Close shuts down the connection.
	Close() error
}

// WebsocketGateway is the production Gateway implementation speaking
// JSON envelopes over a persistent websocket connection.
type WebsocketGateway struct {
	conn     *websocket.Conn
	out      chan Notification
	writeMtx sync.Mutex
	done     chan struct{}
}

// NewWebsocketGateway dials the channel node at the given ws:// url
// and starts the notification reader loop.
func NewWebsocketGateway(ctx context.Context, url string) (*WebsocketGateway, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	g := &WebsocketGateway{
		conn: conn,
		out:  make(chan Notification, 16),
		done: make(chan struct{}),
	}
	go g.reader()
	return g, nil
}

// Send marshals the command and writes it to the connection. Writes
// are serialized as the websocket protocol permits a single writer.
func (g *WebsocketGateway) Send(ctx context.Context, cmd Command) error {
	g.writeMtx.Lock()
	defer g.writeMtx.Unlock()

	if deadline, ok := ctx.Deadline(); ok {
		g.conn.SetWriteDeadline(deadline)
	} else {
		g.conn.SetWriteDeadline(time.Time{})
	}
	return g.conn.WriteJSON(cmd)
}

// Notifications returns the inbound notification channel.
func (g *WebsocketGateway) Notifications() <-chan Notification {
	return g.out
}

// Close shuts down the websocket connection and the notification
// channel.
func (g *WebsocketGateway) Close() error {
	close(g.done)
	return g.conn.Close()
}

func (g *WebsocketGateway) reader() {
	defer close(g.out)
	for {
		_, message, err := g.conn.ReadMessage()
		if err != nil {
			select {
			case <-g.done:
			default:
				log.Errorf("Gateway read error: %s", err)
			}
			return
		}

		var n Notification
		if err := json.Unmarshal(message, &n); err != nil {
			log.Errorf("Error unmarshalling gateway notification: %s", err)
			continue
		}
		g.out <- n
	}
}
