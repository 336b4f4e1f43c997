package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/strutkit/strut"
)

func specCmd() *cobra.Command {
	var (
		output string
		asYAML bool
		check  bool
	)

	cmd := &cobra.Command{
		Use:   "spec",
		Short: "Generate the OpenAPI document",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			store := newWidgetStore()
			svc, err := newService(cfg, newServer(store, slog.Default()))
			if err != nil {
				return fmt.Errorf("assemble service: %w", err)
			}

			if check {
				if err := svc.ValidateSpec(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "spec is valid")
				return nil
			}

			return writeSpec(svc, output, asYAML)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default stdout)")
	cmd.Flags().BoolVar(&asYAML, "yaml", false, "Emit YAML instead of JSON")
	cmd.Flags().BoolVar(&check, "check", false, "Validate the document and exit")

	return cmd
}

func writeSpec(svc *strut.Service, outFile string, asYAML bool) error {
	w := os.Stdout
	if outFile != "" {
		f, err := os.Create(outFile) //nolint:gosec // user-provided CLI flag
		if err != nil {
			return err
		}
		defer func() {
			if err := f.Close(); err != nil {
				slog.Error("failed to close output file", "err", err)
			}
		}()
		w = f
	}

	if asYAML {
		return svc.WriteSpecYAML(w)
	}
	return svc.WriteSpec(w)
}
