package main

import (
	"log"
	"os"

	"github.com/chainhaul/settlementd/cmd"
	"github.com/jessevdk/go-flags"
)

func main() {
	parser := flags.NewParser(nil, flags.Default)

	_, err := parser.AddCommand("start",
		"start the settlement engine",
		"The start command starts the settlement engine node",
		&cmd.Start{})
	if err != nil {
		log.Fatal(err)
	}
	_, err = parser.AddCommand("init",
		"initialize a settlement node",
		"The init command creates and initializes a new data directory and database.",
		&cmd.Init{})
	if err != nil {
		log.Fatal(err)
	}
	_, err = parser.AddCommand("devnet",
		"start a local dev net",
		"The devnet command starts a settlement node wired to an in-process mock channel network "+
			"and mock ledger with a pre-funded wallet so the full settle pipeline can be exercised locally.",
		&cmd.DevNet{})
	if err != nil {
		log.Fatal(err)
	}

	if _, err := parser.Parse(); err != nil {
		os.Exit(1)
	}
}
