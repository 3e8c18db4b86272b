package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/goliatone/go-formflow/internal/config"
	"github.com/goliatone/go-formflow/pkg/engine"
	"github.com/goliatone/go-formflow/pkg/schema"
	"github.com/goliatone/go-formflow/pkg/schemastore"
)

// globals are the persistent flags shared by every command.
type globals struct {
	configPath string
	strict     bool
}

func newRootCmd() *cobra.Command {
	g := &globals{}

	root := &cobra.Command{
		Use:   "formflow",
		Short: "Multi-step registration forms from JSON or YAML schemas",
		Long: `formflow turns form schema files into multi-step registration forms.

Quick start:
  formflow validate forms/          # Check every schema in a directory
  formflow render forms/summit.json # Print the first step as HTML
  formflow fill forms/summit.json   # Fill a form in the terminal
  formflow serve                    # Serve forms over HTTP`,
		Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&g.configPath, "config", "c", "formflow.yaml", "config file path")
	root.PersistentFlags().BoolVar(&g.strict, "strict", false, "reject schemas with duplicate field names")

	root.AddCommand(
		newServeCmd(g),
		newRenderCmd(g),
		newFillCmd(g),
		newValidateCmd(g),
		newOpenAPICmd(g),
	)
	return root
}

func (g *globals) loadConfig() (*config.Config, error) {
	cfg, err := config.LoadWithFallback(g.configPath)
	if err != nil {
		return nil, err
	}
	if g.strict {
		cfg.Schemas.Strict = true
	}
	return cfg, nil
}

// logger builds the command logger. Commands other than serve log warnings
// only so their output stays readable.
func (g *globals) logger(cmd *cobra.Command, fallback string) zerolog.Logger {
	cfg, err := g.loadConfig()
	if err != nil {
		cfg = config.Default()
	}
	logging := cfg.Logging
	if fallback != "" && os.Getenv("FORMFLOW_LOG_LEVEL") == "" {
		logging.Level = fallback
	}
	return logging.Logger(cmd.ErrOrStderr())
}

func (g *globals) parseOptions() []schema.ParseOption {
	if g.strict {
		return []schema.ParseOption{schema.WithStrictNames()}
	}
	return nil
}

// loadForm reads one schema file into a form session named after the file.
func (g *globals) loadForm(path string, logger zerolog.Logger) (*engine.Form, error) {
	doc, err := schema.LoadFile(path)
	if err != nil {
		return nil, err
	}
	result := doc.Parse(g.parseOptions()...)
	return engine.New(result,
		engine.WithName(schemastore.NameFromPath(path)),
		engine.WithLogger(logger),
	), nil
}
