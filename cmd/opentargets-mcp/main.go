// opentargets-mcp serves Open Targets platform tools over stdio.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/effective-security/biomcp/internal/version"
	"github.com/effective-security/biomcp/mcpserver"
	"github.com/effective-security/biomcp/providers/opentargets"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := mcpserver.NewServer("opentargets-mcp", version.Current())
	if err := opentargets.NewProvider().RegisterTools(srv); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err.Error())
		os.Exit(1)
	}
	if err := srv.ServeStdio(ctx, os.Stdin, os.Stdout); err != nil && ctx.Err() == nil {
		fmt.Fprintln(os.Stderr, "error:", err.Error())
		os.Exit(1)
	}
}
