package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	kongdotenv "github.com/titusjaka/kong-dotenv-go"

	"github.com/rtorralba/floodwatch/internal/node"
)

var cli struct {
	EnvFile kongdotenv.ENVFileConfig `optional:"" name:"env-file" help:"Path to .env file to load."`

	NodeID  string        `default:"esp32-001" env:"FLOODNODE_ID" help:"Node identifier reported with every reading."`
	Backend string        `default:"http://localhost:8080" env:"FLOODNODE_BACKEND" help:"Backend base URL."`
	Period  time.Duration `default:"4s" env:"FLOODNODE_PERIOD" help:"Sampling period."`
	Seed    int64         `default:"0" help:"Simulator seed, 0 derives one from the clock."`
	NoWait  bool          `help:"Skip the startup backend reachability probe."`
}

func main() {
	kong.Parse(&cli,
		kong.Name("floodnode"),
		kong.Description("Sensing-node agent: samples simulated rain and water level sensors, classifies locally and posts to the backend."),
		kong.Configuration(kongdotenv.ENVFileReader, ".env"),
	)

	seed := cli.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	agent := node.New(node.Config{
		NodeID:       cli.NodeID,
		BackendURL:   cli.Backend,
		SamplePeriod: cli.Period,
	}, node.NewSimulator(seed), nil)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if !cli.NoWait {
		if err := agent.WaitForBackend(ctx); err != nil {
			log.Printf("node: %v, sampling anyway", err)
		}
	}

	log.Printf("node: %s sampling every %s, posting to %s", cli.NodeID, cli.Period, cli.Backend)
	agent.Run(ctx)
}
