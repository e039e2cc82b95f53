// clinicaltrials-mcp serves ClinicalTrials.gov study tools over stdio.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/effective-security/biomcp/internal/version"
	"github.com/effective-security/biomcp/mcpserver"
	"github.com/effective-security/biomcp/providers/clinicaltrials"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := mcpserver.NewServer("clinicaltrials-mcp", version.Current())
	if err := clinicaltrials.NewProvider().RegisterTools(srv); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err.Error())
		os.Exit(1)
	}
	if err := srv.ServeStdio(ctx, os.Stdin, os.Stdout); err != nil && ctx.Err() == nil {
		fmt.Fprintln(os.Stderr, "error:", err.Error())
		os.Exit(1)
	}
}
