package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/eforms/eforms/internal/config"
	"github.com/eforms/eforms/internal/server"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"s"},
	Short:   "Start the mint and submit HTTP endpoints",
	RunE:    runServe,
}

func init() {
	serveCmd.Flags().String("addr", ":8080", "listen address")
	_ = viper.BindPFlag("serve.addr", serveCmd.Flags().Lookup("addr"))
	serveCmd.Flags().String("templates", "./templates", "directory of form template JSON documents")
	_ = viper.BindPFlag("serve.templates", serveCmd.Flags().Lookup("templates"))
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	logger := newLogger()
	provider := config.NewProvider(
		config.WithDropin(dropinPath()),
		config.WithLogger(logger),
	)

	srv := server.New(server.Options{
		Addr:         viper.GetString("serve.addr"),
		TemplatesDir: viper.GetString("serve.templates"),
		Provider:     provider,
		Logger:       logger,
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
