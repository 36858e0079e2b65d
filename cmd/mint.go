package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eforms/eforms/internal/config"
	"github.com/eforms/eforms/internal/security"
)

var mintFormID string

var mintCmd = &cobra.Command{
	Use:   "mint",
	Short: "Mint a submission token locally (testing aid)",
	RunE:  runMint,
}

func init() {
	mintCmd.Flags().StringVarP(&mintFormID, "form", "f", "", "form id to mint for")
	_ = mintCmd.MarkFlagRequired("form")
	rootCmd.AddCommand(mintCmd)
}

func runMint(_ *cobra.Command, _ []string) error {
	logger := newLogger()
	provider := config.NewProvider(
		config.WithDropin(dropinPath()),
		config.WithLogger(logger),
	)
	cfg := provider.Get()

	store := security.NewTokenStore(cfg.Install.PrivateDir, logger)
	minted, err := store.Mint(mintFormID, cfg.Security.SubmissionTokenMode, cfg)
	if err != nil {
		return fmt.Errorf("mint: %w", err)
	}
	out, err := json.MarshalIndent(minted, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
