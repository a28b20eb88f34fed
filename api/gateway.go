package api

import (
	"net"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/op/go-logging"
)

var log = logging.MustGetLogger("api")

type GatewayConfig struct {
	Listener      net.Listener
	NoCors        bool
	AllowedIPs    map[string]bool
	Cookie        string
	Username      string
	Password      string
	UseSSL        bool
	SSLCert       string
	SSLKey        string
	SubmitRetries uint
}

// Gateway represents an HTTP API gateway
type Gateway struct {
	listener net.Listener
	node     CoreNode
	handler  http.Handler
	config   *GatewayConfig
	hub      *hub
}

// NewGateway instantiates a new gateway over the given listener.
func NewGateway(node CoreNode, config *GatewayConfig) (*Gateway, error) {
	g := &Gateway{
		node:     node,
		config:   config,
		listener: config.Listener,
		hub:      newHub(),
	}

	r := g.newV1Router()

	if !config.NoCors {
		r.Use(mux.CORSMethodMiddleware(r))
	}
	r.Use(g.AuthenticationMiddleware)

	topMux := http.NewServeMux()
	topMux.Handle("/v1/", r)
	topMux.Handle("/ws", newWebsocketHandler(g.hub))

	g.handler = topMux

	go g.hub.run()
	if err := g.bridgeEvents(); err != nil {
		return nil, err
	}
	return g, nil
}

// Close shutsdown the Gateway listener.
func (g *Gateway) Close() error {
	return g.listener.Close()
}

// Serve begins listening on the configured address.
func (g *Gateway) Serve() error {
	log.Infof("Gateway/API server listening on %s\n", g.listener.Addr())
	var err error
	if g.config.UseSSL {
		err = http.ListenAndServeTLS(g.listener.Addr().String(), g.config.SSLCert, g.config.SSLKey, g.handler)
	} else {
		err = http.Serve(g.listener, g.handler)
	}
	return err
}

func (g *Gateway) newV1Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/v1/settle", g.handlePOSTSettle).Methods("POST")
	r.HandleFunc("/v1/settlements/{invoiceID}", g.handleGETSettlement).Methods("GET")
	r.HandleFunc("/v1/decisionlogs/{logID}", g.handleGETDecisionLog).Methods("GET")
	r.HandleFunc("/v1/channels", g.handleGETChannels).Methods("GET")
	r.HandleFunc("/v1/channels/{channelID}", g.handleGETChannel).Methods("GET")
	r.HandleFunc("/v1/channels/{channelID}/close", g.handlePOSTCloseChannel).Methods("POST")
	r.HandleFunc("/v1/address", g.handleGETAddress).Methods("GET")
	return r
}
