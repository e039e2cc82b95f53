// biomcp is an interactive research assistant: it connects the configured
// tool providers, aggregates their tools and drives a chat loop against
// the configured model.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/effective-security/xlog"

	"github.com/effective-security/biomcp/agent"
	"github.com/effective-security/biomcp/callbacks"
	"github.com/effective-security/biomcp/catalog"
	"github.com/effective-security/biomcp/pkg/llmfactory"
	"github.com/effective-security/biomcp/registry"
	"github.com/effective-security/biomcp/store"
)

func main() {
	providersFlag := flag.String("providers", "providers.yaml", "provider configuration file")
	llmFlag := flag.String("llm", "llm.yaml", "LLM provider configuration file")
	modelFlag := flag.String("model", "", "preferred model name")
	questionFlag := flag.String("q", "", "one-shot question; omit for interactive mode")
	maxTurnsFlag := flag.Int("max-turns", agent.DefaultMaxTurns, "maximum tool-requesting model turns")
	verboseFlag := flag.Bool("v", false, "print tool outputs and debug logs")

	flag.Parse()

	if *verboseFlag {
		xlog.SetFormatter(xlog.NewStringFormatter(os.Stderr))
		xlog.SetGlobalLogLevel(xlog.DEBUG)
	} else {
		xlog.SetGlobalLogLevel(xlog.ERROR)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *providersFlag, *llmFlag, *modelFlag, *questionFlag, *maxTurnsFlag, *verboseFlag); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err.Error())
		os.Exit(1)
	}
}

func run(ctx context.Context, providersFile, llmFile, modelName, question string, maxTurns int, verbose bool) error {
	cfg, err := registry.LoadConfig(providersFile)
	if err != nil {
		return err
	}

	factory, err := llmfactory.Load(llmFile)
	if err != nil {
		return err
	}
	model, err := factory.ModelByName(modelName)
	if err != nil {
		return err
	}

	reg := registry.New(cfg.Providers)
	if err := reg.Initialize(ctx); err != nil {
		return err
	}
	defer func() {
		if err := reg.Shutdown(); err != nil {
			fmt.Fprintln(os.Stderr, "shutdown:", err.Error())
		}
	}()

	lists, err := reg.ListAllTools(ctx)
	if err != nil {
		return err
	}
	router := catalog.NewRouter(catalog.Build(lists), reg)

	mode := callbacks.ModeDefault
	if verbose {
		mode = callbacks.ModeVerbose
	}
	ag := agent.New(model, router,
		agent.WithMaxTurns(maxTurns),
		agent.WithStore(store.NewMemoryStore()),
		agent.WithCallback(callbacks.NewFanout(
			callbacks.NewPackageLogger(xlog.NewPackageLogger("github.com/effective-security/biomcp", "cli")),
		)),
	)

	fmt.Printf("Connected to %d providers, %d tools available.\n",
		len(cfg.Providers), router.Catalog().Len())

	if question != "" {
		return ask(ctx, ag, question, mode)
	}

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("\nQuery: ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		input := scanner.Text()
		if input == "" {
			continue
		}
		if input == "quit" || input == "exit" {
			return nil
		}
		if err := ask(ctx, ag, input, mode); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err.Error())
		}
	}
}

func ask(ctx context.Context, ag *agent.Agent, question string, mode callbacks.Mode) error {
	run := ag.Run(ctx, question)
	for ev := range run.Events() {
		switch ev.Kind {
		case agent.EventToolCall:
			fmt.Printf("[calling %s on %s with %s]\n", ev.Tool, ev.Provider, ev.Input)
		case agent.EventToolResult:
			if mode == callbacks.ModeVerbose {
				fmt.Printf("[%s returned]\n%s\n", ev.Tool, ev.Output)
			}
		case agent.EventFinal:
			fmt.Printf("\n%s\n", ev.Text)
		}
	}
	return run.Err()
}
