package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	pkgopenapi "github.com/goliatone/go-formflow/pkg/openapi"
	"github.com/goliatone/go-formflow/pkg/schema"
	"github.com/goliatone/go-formflow/pkg/schemastore"
)

func newOpenAPICmd(g *globals) *cobra.Command {
	var (
		title  string
		asYAML bool
	)

	cmd := &cobra.Command{
		Use:   "openapi <schema>...",
		Short: "Print the OpenAPI document of the registration API",
		Long: `Build an OpenAPI 3 document describing the registration endpoints of
the given forms. Each form is named after its file.

Examples:
  formflow openapi forms/summit.json
  formflow openapi forms/*.yaml --yaml --title "Events API"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := schemaFiles(args)
			if err != nil {
				return err
			}
			forms := make([]pkgopenapi.Form, 0, len(files))
			for _, file := range files {
				doc, err := schema.LoadFile(file)
				if err != nil {
					return err
				}
				result := doc.Parse(g.parseOptions()...)
				if result.Invalid {
					return fmt.Errorf("%s: invalid form configuration", file)
				}
				forms = append(forms, pkgopenapi.Form{
					Name:   schemastore.NameFromPath(file),
					Schema: result.Schema,
				})
			}

			doc, err := pkgopenapi.NewDocument(pkgopenapi.Info{Title: title, Version: version}, forms...)
			if err != nil {
				return err
			}
			if err := pkgopenapi.Validate(cmd.Context(), doc); err != nil {
				return err
			}

			data, err := json.MarshalIndent(doc, "", "  ")
			if err != nil {
				return err
			}
			if asYAML {
				var generic any
				if err := json.Unmarshal(data, &generic); err != nil {
					return err
				}
				if data, err = yaml.Marshal(generic); err != nil {
					return err
				}
			} else {
				data = append(data, '\n')
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	cmd.Flags().StringVar(&title, "title", "formflow", "document title")
	cmd.Flags().BoolVar(&asYAML, "yaml", false, "print YAML instead of JSON")
	return cmd
}
