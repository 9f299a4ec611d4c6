// CLI-only version (no GUI dependencies)
package main

import (
	"context"
	"os"
	"os/signal"

	"folio/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := cli.New("folio-cli", "A PDF page viewer (CLI version)").Run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
