// Command penny is the terminal client for the penny expense assistant.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"penny-ai/internal/adapter/gateway"
	"penny-ai/internal/adapter/tui/chat"
	"penny-ai/internal/infra/config"
	"penny-ai/internal/infra/logger"
	"penny-ai/internal/infra/tracer"
	"penny-ai/internal/usecase"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "penny.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	log, closeLog, err := logger.New(cfg.Logger)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx := context.Background()
	shutdownTracer, err := tracer.Setup(ctx, cfg.Tracer)
	if err != nil {
		return err
	}
	defer shutdownTracer(ctx)

	client, err := gateway.New(cfg.Server, log)
	if err != nil {
		return err
	}

	conv := usecase.NewConversation(client, log)
	history := usecase.NewHistory(client, conv, log)
	pending := usecase.NewPendingQueue(client, log)

	model := chat.New(chat.Deps{
		Conversation: conv,
		History:      history,
		Pending:      pending,
		Logger:       log,
		HistoryLimit: cfg.UI.HistoryLimit,
		Markdown:     cfg.UI.Markdown,
	})
	program := tea.NewProgram(model, tea.WithAltScreen())

	// Saving an expense can surface newly-due recurring occurrences;
	// re-fetch the pending queue and wake the UI when that happens.
	conv.SetSaveExpenseHook(func() {
		go func() {
			err := pending.Refresh(context.Background())
			program.Send(chat.PendingRefreshedMsg{Err: err})
		}()
	})

	log.Info("starting penny", "server", cfg.Server.BaseURL, "transport", cfg.Server.Transport)
	_, err = program.Run()
	return err
}
