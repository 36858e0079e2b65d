package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/eforms/eforms/internal/template"
)

var validateCmd = &cobra.Command{
	Use:     "validate <template.json> [more templates...]",
	Aliases: []string{"v"},
	Short:   "Preflight template documents and print the full defect set",
	Args:    cobra.MinimumNArgs(1),
	RunE:    runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(_ *cobra.Command, args []string) error {
	defects := 0
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		_, bag, err := template.Parse(data)
		if err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		if !bag.HasErrors() {
			fmt.Printf("%s: ok\n", path)
			continue
		}
		defects += bag.Len()
		fmt.Printf("%s: %d defect(s)\n", path, bag.Len())
		for _, bucket := range bag.Export() {
			for _, e := range bucket.Entries {
				fmt.Printf("  [%s] %s\n", e.Code, e.Message)
			}
		}
	}
	if defects > 0 {
		return fmt.Errorf("%d template defect(s)", defects)
	}
	return nil
}
