// Command swstat shows live statistics of a Winesaps server, or runs one
// remote function on it.
//
//	swstat <host>            poll statistics every interval until Enter or Ctrl+C
//	swstat <host> <command>  send one command and print the response code
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// Version information set at build time.
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	opts := &Options{Stdin: os.Stdin, Stdout: os.Stdout}
	err := newRootCmd(opts).ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "swstat: %s\n", err)
		os.Exit(1)
	}
}
