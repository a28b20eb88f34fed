package cmd

import (
	"io/ioutil"
	"os"
	"os/signal"
	"time"

	"github.com/chainhaul/settlementd/core"
	"github.com/chainhaul/settlementd/repo"
)

// DevNet starts a settlement node against an in-process mock channel
// network and mock ledger. The funding address is pre-credited so
// settlements can be exercised end to end without external services.
type DevNet struct {
	APIAddr string `long:"apiaddr" description:"Address the settlement API listens on" default:"127.0.0.1:8337"`
}

// Execute starts the dev net node.
func (x *DevNet) Execute(args []string) error {
	dataDir, err := ioutil.TempDir("", "settlementd-devnet")
	if err != nil {
		return err
	}
	defer os.RemoveAll(dataDir)

	cfg := &repo.Config{
		DataDir:             dataDir,
		APIAddr:             x.APIAddr,
		EscrowAddress:       "devnet-escrow",
		LocalParty:          "devnet-orchestrator",
		RemoteParty:         "devnet-carrier",
		ContestationPeriod:  60,
		FundingTarget:       1000000,
		ChannelOpenTimeout:  time.Second * 30,
		PaymentTimeout:      time.Second * 10,
		ChannelCloseTimeout: time.Second * 60,
		FeePerByte:          44,
		FeeBase:             155381,
		MinOutput:           1000,
		MaxTxSize:           16384,
		MaxValueSize:        5000,
		SubmitRetries:       3,
	}

	n, err := core.NewDevnetNode(cfg)
	if err != nil {
		return err
	}
	printSplashScreen()
	log.Infof("Dev net running. Funding address: %s", n.Address())
	if err := n.Start(); err != nil {
		return err
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	<-c
	log.Info("settlementd shutting down...")
	n.Stop()
	return nil
}
