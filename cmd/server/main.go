package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Warn("error loading .env file", "err", err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "alta: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	serve := newServeCmd()
	cmd := &cobra.Command{
		Use:   "alta",
		Short: "Client registration form server",
		Long: `alta serves the two-step client registration form, fills the client and
plants spreadsheets and mails them to treasury. Without a subcommand it runs
the server.`,
		SilenceUsage: true,
		RunE:         serve.RunE,
	}
	cmd.AddCommand(
		serve,
		newFillCmd(),
		newTemplatesCmd(),
	)
	return cmd
}
