package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/chainhaul/settlementd/core"
	"github.com/chainhaul/settlementd/repo"
	"github.com/chainhaul/settlementd/version"
	"github.com/fatih/color"
	"github.com/op/go-logging"
)

var log = logging.MustGetLogger("CMD")

// Start is the main entry point for settlementd. The options to this
// command are the same as the engine config options.
type Start struct {
	repo.Config
}

// Execute starts the settlement engine.
func (x *Start) Execute(args []string) error {
	cfg, _, err := repo.LoadConfig()
	if err != nil {
		return err
	}

	n, err := core.NewNode(context.Background(), cfg)
	if err != nil {
		return err
	}
	printSplashScreen()
	log.Infof("Funding address: %s", n.Address())
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

func printSplashScreen() {
	blue := color.New(color.FgBlue)
	white := color.New(color.FgWhite)

	for i, l := range []string{
		`               __    __  __                               __      __`,
		`   ________ _/  |__/  |_|  |   ____   _____   ____   _____/  |_  __| /\`,
		`  /  ___/ __ \   __\   __\  | _/ __ \ /     \_/ __ \ /    \   __\/ __ |`,
		`  \___ \\  ___/|  |  |  | |  |_\  ___/|  Y Y  \  ___/|   |  \  | / /_/ |`,
		` /____  >\___  >__|  |__| |____/\___  >__|_|  /\___  >___|  /__| \____ |`,
		`      \/     \/                     \/      \/     \/     \/          \/`,
	} {
		if i%2 == 0 {
			if _, err := white.Println(l); err != nil {
				log.Debug(err)
				return
			}
			continue
		}
		if _, err := blue.Println(l); err != nil {
			log.Debug(err)
			return
		}
	}

	blue.DisableColor()
	white.DisableColor()
	fmt.Printf("\nsettlementd v%s\n", version.String())
}
