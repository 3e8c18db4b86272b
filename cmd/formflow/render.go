package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-formflow/pkg/render"
	"github.com/goliatone/go-formflow/pkg/renderers/tui"
	"github.com/goliatone/go-formflow/pkg/renderers/vanilla"
)

func newRenderCmd(g *globals) *cobra.Command {
	var (
		step     int
		renderer string
		page     bool
	)

	cmd := &cobra.Command{
		Use:   "render <schema>",
		Short: "Render one step of a form",
		Long: `Render one step of a form schema without serving it.

The vanilla renderer prints the HTML fragment (or a full page with --page);
the tui renderer prints a plain text summary.

Examples:
  formflow render forms/summit.json
  formflow render forms/summit.yaml --step 2 --page
  formflow render forms/summit.json --renderer tui`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := g.logger(cmd, "warn")

			vanillaOptions := []vanilla.Option{vanilla.WithLogger(logger)}
			if page {
				vanillaOptions = append(vanillaOptions, vanilla.WithPage(vanilla.Page{}))
			}
			html, err := vanilla.New(vanillaOptions...)
			if err != nil {
				return err
			}
			text, err := tui.New(tui.WithOutput(cmd.OutOrStdout()), tui.WithLogger(logger))
			if err != nil {
				return err
			}
			registry, err := render.NewRegistry(html, text)
			if err != nil {
				return err
			}
			selected, err := registry.Get(renderer)
			if err != nil {
				return fmt.Errorf("%w (available: %v)", err, registry.List())
			}

			form, err := g.loadForm(args[0], logger)
			if err != nil {
				return err
			}
			if step > 1 {
				if !form.JumpTo(step - 1) {
					return fmt.Errorf("step %d out of range (form has %d)", step, form.Stepper().Count)
				}
			}

			out, err := selected.Render(cmd.Context(), form.View(), render.RenderOptions{})
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
	cmd.Flags().IntVar(&step, "step", 1, "step to render, starting at 1")
	cmd.Flags().StringVarP(&renderer, "renderer", "r", vanilla.Name, "renderer to use (vanilla or tui)")
	cmd.Flags().BoolVar(&page, "page", false, "wrap the HTML in a standalone page")
	return cmd
}
