// biorxiv-mcp serves bioRxiv/medRxiv preprint tools over stdio.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/effective-security/biomcp/internal/version"
	"github.com/effective-security/biomcp/mcpserver"
	"github.com/effective-security/biomcp/providers/biorxiv"
)

func main() {
	serverFlag := flag.String("server", biorxiv.ServerBiorxiv, "preprint server: biorxiv or medrxiv")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := mcpserver.NewServer(*serverFlag+"-mcp", version.Current())
	if err := biorxiv.NewProvider(biorxiv.WithServer(*serverFlag)).RegisterTools(srv); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err.Error())
		os.Exit(1)
	}
	if err := srv.ServeStdio(ctx, os.Stdin, os.Stdout); err != nil && ctx.Err() == nil {
		fmt.Fprintln(os.Stderr, "error:", err.Error())
		os.Exit(1)
	}
}
