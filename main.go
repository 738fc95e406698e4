package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	adminservice "train-chat/cmd/admin_service"
	gatewayservice "train-chat/cmd/gateway_service"
	riderclient "train-chat/cmd/rider_client"
	"train-chat/internal/cli"
)

const defaultConfigPath = "config/config.yaml"

func main() {
	// quick path for global help
	if len(os.Args) == 2 && (os.Args[1] == "--help" || os.Args[1] == "-h") {
		cli.PrintUsage(os.Stdout)
		os.Exit(0)
	}

	// parse mode and collect the remaining args for that mode
	mode, svcArgs, err := cli.ParseMode(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		cli.PrintUsage(os.Stderr)
		os.Exit(2)
	}

	// context cancelled on SIGINT/SIGTERM for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	switch mode {

	case cli.ModeGateway:
		fs := flag.NewFlagSet(cli.ModeGateway, flag.ContinueOnError)
		configPath := fs.String("config", defaultConfigPath, "Path to the YAML config file")
		maxConc := fs.Int("max-concurrent", 2000, "Maximum number of open connections")
		cli.AttachUsage(fs, cli.ModeGateway)
		parseFlags(fs, svcArgs)

		if *maxConc < 1 {
			fmt.Fprintln(os.Stderr, "Error: --max-concurrent must be >= 1")
			fs.Usage()
			os.Exit(2)
		}
		if err := gatewayservice.Run(ctx, *configPath, *maxConc); err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			os.Exit(1)
		}

	case cli.ModeRider:
		fs := flag.NewFlagSet(cli.ModeRider, flag.ContinueOnError)
		var f riderclient.Flags
		fs.StringVar(&f.ConfigPath, "config", defaultConfigPath, "Path to the YAML config file")
		fs.StringVar(&f.Replay, "replay", "", "Replay a recorded track (.jsonl or .csv) instead of simulating")
		fs.Float64Var(&f.Origin.Lat, "lat", 52.5251, "Simulated start latitude")
		fs.Float64Var(&f.Origin.Lng, "lng", 13.3694, "Simulated start longitude")
		fs.Float64Var(&f.SpeedMps, "speed", 15, "Simulated speed in m/s")
		fs.Float64Var(&f.HeadingDeg, "heading", 90, "Simulated heading in degrees")
		fs.DurationVar(&f.StopAt, "stop-at", 0, "Simulated station stop after this long (0 disables)")
		fs.DurationVar(&f.Dwell, "dwell", 45*time.Second, "Simulated station dwell time")
		fs.StringVar(&f.Nickname, "nick", "", "Nickname (defaults to config, then a random name)")
		cli.AttachUsage(fs, cli.ModeRider)
		parseFlags(fs, svcArgs)

		if f.SpeedMps < 0 {
			fmt.Fprintln(os.Stderr, "Error: --speed cannot be negative")
			fs.Usage()
			os.Exit(2)
		}
		if err := riderclient.Run(ctx, f); err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			os.Exit(1)
		}

	case cli.ModeAdmin:
		fs := flag.NewFlagSet(cli.ModeAdmin, flag.ContinueOnError)
		configPath := fs.String("config", defaultConfigPath, "Path to the YAML config file")
		maxConc := fs.Int("max-concurrent", 50, "Maximum number of concurrent HTTP requests to process")
		cli.AttachUsage(fs, cli.ModeAdmin)
		parseFlags(fs, svcArgs)

		if *maxConc < 1 {
			fmt.Fprintln(os.Stderr, "Error: --max-concurrent must be >= 1")
			fs.Usage()
			os.Exit(2)
		}
		if err := adminservice.Run(ctx, *configPath, *maxConc); err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			os.Exit(1)
		}

	default:
		// should not happen because ParseMode validates known modes
		fmt.Fprintln(os.Stderr, "Error: unknown mode")
		os.Exit(2)
	}
}

// parseFlags exits on -h or a bad flag.
func parseFlags(fs *flag.FlagSet, args []string) {
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(2)
	}
}
