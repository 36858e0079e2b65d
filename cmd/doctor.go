package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eforms/eforms/internal/config"
	"github.com/eforms/eforms/internal/storage"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Probe the storage backing store for atomic-rename and exclusive-create support",
	RunE:  runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(_ *cobra.Command, _ []string) error {
	logger := newLogger()
	provider := config.NewProvider(
		config.WithDropin(dropinPath()),
		config.WithLogger(logger),
	)
	cfg := provider.Get()

	checker := storage.NewHealthChecker(logger)
	res := checker.Check(cfg.Uploads.Dir, true)
	if !res.OK {
		return fmt.Errorf("storage unhealthy: %s", res.Reason)
	}
	fmt.Printf("storage ok: %s\n", cfg.Uploads.Dir)
	return nil
}
