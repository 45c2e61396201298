package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/goliatone/go-formguide/internal/logging"
)

func main() {
	// missing .env is fine; flags and real env vars still apply
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:   "formguide",
		Short: "Detect, classify, and auto-fill form fields on permit pages",
		Long: `formguide scans an HTML page for fillable form fields, classifies them,
and can fill them from a Smart Form Guide project using the backend's AI
mapping service.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().String("backend", envDefault("FORMGUIDE_BACKEND_URL", "http://localhost:8000"), "backend base URL")
	root.PersistentFlags().String("token", os.Getenv("FORMGUIDE_AUTH_TOKEN"), "backend bearer token")
	root.PersistentFlags().Bool("debug", false, "enable debug logging")

	root.AddCommand(
		newDetectCommand(),
		newReportCommand(),
		newProjectsCommand(),
		newAutofillCommand(),
		newWatchCommand(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func envDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

type cliContext struct {
	backendURL string
	authToken  string
	debug      bool
}

func contextFrom(cmd *cobra.Command) cliContext {
	backendURL, _ := cmd.Flags().GetString("backend")
	token, _ := cmd.Flags().GetString("token")
	debug, _ := cmd.Flags().GetBool("debug")
	return cliContext{backendURL: backendURL, authToken: token, debug: debug}
}

func (c cliContext) logger() *zap.Logger {
	return logging.New(c.debug)
}
