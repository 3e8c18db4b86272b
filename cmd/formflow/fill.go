package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-formflow/pkg/renderers/tui"
)

func newFillCmd(g *globals) *cobra.Command {
	var (
		format      string
		output      string
		maxAttempts int
	)

	cmd := &cobra.Command{
		Use:   "fill <schema>",
		Short: "Fill a form interactively in the terminal",
		Long: `Walk through every step of a form with terminal prompts and print the
submitted values once the whole form validates.

Output formats: json (default), form (urlencoded), pretty, cbor.

Examples:
  formflow fill forms/summit.json
  formflow fill forms/summit.json --format pretty
  formflow fill forms/summit.json --format cbor --output summit.cbor`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputFormat, ok := tui.ParseOutputFormat(format)
			if !ok {
				return fmt.Errorf("unsupported format %q", format)
			}
			logger := g.logger(cmd, "warn")

			renderer, err := tui.New(
				tui.WithOutput(cmd.ErrOrStderr()),
				tui.WithOutputFormat(outputFormat),
				tui.WithMaxAttempts(maxAttempts),
				tui.WithLogger(logger),
			)
			if err != nil {
				return err
			}
			form, err := g.loadForm(args[0], logger)
			if err != nil {
				return err
			}

			out, err := renderer.Fill(cmd.Context(), form)
			if err != nil {
				return err
			}
			if output != "" {
				if err := os.WriteFile(output, out, 0o644); err != nil {
					return fmt.Errorf("write output: %w", err)
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Values written to %s (%s)\n", output, renderer.OutputContentType())
				return nil
			}
			_, err = cmd.OutOrStdout().Write(append(out, '\n'))
			return err
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", string(tui.OutputFormatJSON), "output format: json, form, pretty or cbor")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write values to a file instead of stdout")
	cmd.Flags().IntVar(&maxAttempts, "max-attempts", 0, "give up after this many failed submissions (0 for no limit)")
	return cmd
}
