// Package main wires the CLI flag set cmd/beacon-chain/flags describes into
// a urfave/cli App. The beacon node's HTTP/gRPC surface and full service
// wiring are out of scope for this core (see SPEC_FULL.md's Non-goals); what
// belongs here is the flag parsing §4.5's PeerDAS custody sizing reads at
// startup, grounded on the teacher's cmd/beacon-chain main.go app-wiring
// pattern (appFlags / app.Before / app.Action).
package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/ethwake/beacon-core/cmd/beacon-chain/flags"
)

var log = logrus.WithField("prefix", "main")

var subscribeAllSubnetsFlag = &cli.BoolFlag{
	Name:  "subscribe-all-subnets",
	Usage: "Subscribe to every PeerDAS column subnet instead of the minimum custody requirement (supernode operation).",
}

var appFlags = []cli.Flag{
	subscribeAllSubnetsFlag,
}

func before(ctx *cli.Context) error {
	flags.Init(&flags.GlobalFlags{
		SubscribeToAllSubnets: ctx.Bool(subscribeAllSubnetsFlag.Name),
	})
	return nil
}

func main() {
	app := cli.App{
		Name:   "beacon-chain",
		Usage:  "block-ingestion core flag parsing for a PeerDAS-era beacon node",
		Flags:  appFlags,
		Before: before,
		Action: func(ctx *cli.Context) error {
			log.WithField("subscribe_all_subnets", flags.Get().SubscribeToAllSubnets).
				Info("beacon-chain flags parsed")
			return nil
		},
	}
	if err := app.Run(os.Args); err != nil {
		log.WithError(err).Fatal("beacon-chain exited")
	}
}
