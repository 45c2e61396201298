package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-formguide/pkg/detect"
	"github.com/goliatone/go-formguide/pkg/page"
	"github.com/goliatone/go-formguide/pkg/report"
)

func newDetectCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "detect <page.html>",
		Short: "Scan a page for fillable form fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cli := contextFrom(cmd)
			logger := cli.logger()
			defer logger.Sync()

			doc, err := page.ParseFile(args[0])
			if err != nil {
				return err
			}

			detector, err := detect.New(detect.WithLogger(logger))
			if err != nil {
				return err
			}
			analysis := detector.Analyze(doc, "file://"+args[0])

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(analysis)
			}

			out, err := report.NewTextRenderer().Render(context.Background(), analysis, report.Options{IncludeValues: true})
			if err != nil {
				return err
			}
			fmt.Print(string(out))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "emit the raw analysis as JSON")
	return cmd
}

func newReportCommand() *cobra.Command {
	var rendererName, output string

	cmd := &cobra.Command{
		Use:   "report <page.html>",
		Short: "Render a detection report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cli := contextFrom(cmd)
			logger := cli.logger()
			defer logger.Sync()

			doc, err := page.ParseFile(args[0])
			if err != nil {
				return err
			}

			detector, err := detect.New(detect.WithLogger(logger))
			if err != nil {
				return err
			}
			analysis := detector.Analyze(doc, "file://"+args[0])

			registry, err := report.DefaultRegistry()
			if err != nil {
				return err
			}
			renderer, err := registry.Get(rendererName)
			if err != nil {
				return err
			}

			out, err := renderer.Render(context.Background(), analysis, report.Options{IncludeValues: true})
			if err != nil {
				return err
			}

			if output != "" {
				if err := os.WriteFile(output, out, 0o644); err != nil {
					return fmt.Errorf("write report: %w", err)
				}
				fmt.Printf("Report written to %s\n", output)
				return nil
			}
			fmt.Print(string(out))
			return nil
		},
	}

	cmd.Flags().StringVar(&rendererName, "renderer", "text", "report renderer (text or html)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (stdout if empty)")
	return cmd
}
