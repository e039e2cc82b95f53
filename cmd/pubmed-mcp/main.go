// pubmed-mcp serves PubMed literature tools over stdio.
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
	"github.com/effective-security/biomcp/providers/pubmed"
)

func main() {
	emailFlag := flag.String("email", "", "contact email sent to the Entrez API")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var opts []pubmed.Option
	if *emailFlag != "" {
		opts = append(opts, pubmed.WithEmail(*emailFlag))
	}

	srv := mcpserver.NewServer("pubmed-mcp", version.Current())
	if err := pubmed.NewProvider(opts...).RegisterTools(srv); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err.Error())
		os.Exit(1)
	}
	if err := srv.ServeStdio(ctx, os.Stdin, os.Stdout); err != nil && ctx.Err() == nil {
		fmt.Fprintln(os.Stderr, "error:", err.Error())
		os.Exit(1)
	}
}
