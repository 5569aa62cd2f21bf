package main

import (
	"io"

	"github.com/spf13/cobra"

	"swstat/pkg/client"
	"swstat/pkg/config"
)

// Options holds CLI options that are not configuration keys.
type Options struct {
	ConfigPath string
	// Detach ignores stdin; polling then runs until interrupted.
	Detach bool

	Stdin  io.Reader
	Stdout io.Writer
}

const longHelp = `swstat connects to a Winesaps server over SwUDP.

With only <host> it polls the server statistics and redraws them until
Enter is pressed, stdin is closed, or the process is interrupted.

With <command> it sends a single remote function call and prints the
server's response code. Known functions:

  1<name>   kick the named user
  2         run the garbage collector
  3         toggle soft stop
  4<n>      look up the n-th user

Every flag can also be set in swstat.yaml or as SWSTAT_* environment
variables (for example SWSTAT_LOG_LEVEL=debug).`

func newRootCmd(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "swstat <host> [command]",
		Short:         "Winesaps server statistics over SwUDP",
		Long:          longHelp,
		Args:          cobra.RangeArgs(1, 2),
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts, cmd, args)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.ConfigPath, "config", "c", "", "path to YAML config file")
	f.BoolVar(&opts.Detach, "detach", false, "ignore stdin and poll until interrupted")
	f.IntP("port", "p", config.DefaultPort, "server UDP port")
	f.String("transport", "udp", "transport kind: udp or mem (built-in emulator)")
	f.Duration("interval", client.DefaultInterval, "delay before each request")
	f.Duration("timeout", client.DefaultOneShotTimeout, "how long to wait for a command response")
	f.String("log-level", "info", "log level: debug, info, warn, error")
	f.String("log-format", "console", "log format: console or json")
	f.String("record", "", "append every statistics reply to this file")
	f.String("record-format", "json", "record format: json, cbor or proto")
	f.String("metrics-listen", "", "serve Prometheus metrics on this address, e.g. :9090")
	f.String("metrics-namespace", "swstat", "Prometheus metrics namespace")
	return cmd
}
