package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
)

const (
	ModeGateway = "gateway-service"
	ModeRider   = "rider-client"
	ModeAdmin   = "admin-service"
)

// isKnownMode checks if the provided mode name is known.
func isKnownMode(s string) (string, bool) {
	switch s {
	case ModeGateway, "gateway", "gw", "g":
		return ModeGateway, true
	case ModeRider, "rider", "client", "r":
		return ModeRider, true
	case ModeAdmin, "admin", "a":
		return ModeAdmin, true
	default:
		return "", false
	}
}

// ParseMode supports:
//
//	--mode=<value>
//	<value> (subcommand shorthand), e.g., `gateway --max-concurrent=500`
func ParseMode(args []string) (string, []string, error) {
	var mode string
	var out []string

	for _, arg := range args {
		if after, ok := strings.CutPrefix(arg, "--mode="); ok {
			mode = after
			continue
		}

		if mode == "" {
			if m, ok := isKnownMode(arg); ok {
				mode = m
				continue
			}
		}
		out = append(out, arg)
	}

	if mode == "" {
		return "", out, errors.New("no mode specified: use --mode=<service>")
	}

	m, ok := isKnownMode(mode)
	if !ok {
		return "", out, fmt.Errorf("unknown mode %q", mode)
	}

	return m, out, nil
}

// PrintUsage prints the usage information with examples.
func PrintUsage(w io.Writer) {
	fmt.Fprint(w, "\033[36m") // cyan

	fmt.Fprintln(w, `Usage:
  ./train-chat --mode=<service> [flags]

Services (modes):
  gateway-service     WebSocket presence and chat gateway
  rider-client        Motion detector bound to a gateway session
  admin-service       Presence journal and live room API

Examples:
  ./train-chat --mode=gateway-service --max-concurrent=2000
  ./train-chat --mode=rider-client --replay=trip.jsonl
  ./train-chat --mode=rider-client --speed=15 --heading=90 --nick=owl
  ./train-chat --mode=admin-service --max-concurrent=50`)

	fmt.Fprint(w, "\033[0m") // reset
}

// AttachUsage wires a concise per-mode usage to a FlagSet.
func AttachUsage(fs *flag.FlagSet, mode string) {
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: ./train-chat --mode=%s [flags]\n", mode)
		fs.PrintDefaults()
	}
}
