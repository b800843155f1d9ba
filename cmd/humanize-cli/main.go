// Command humanize-cli submits text to a humanizer server and keeps a local,
// short-lived history of the results.
//
// Usage:
//
//	humanize-cli [flags] humanize [-tone t] [-intensity n] [-text s]
//	humanize-cli [flags] history
//	humanize-cli [flags] delete <id>
//	humanize-cli [flags] clear
//	humanize-cli [flags] status
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
