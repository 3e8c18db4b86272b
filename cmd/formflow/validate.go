package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-formflow/pkg/schema"
	"github.com/goliatone/go-formflow/pkg/schemastore"
	"github.com/goliatone/go-formflow/pkg/validation"
)

const (
	checkMark = "✓"
	crossMark = "✗"
)

type fileReport struct {
	File string `json:"file"`
	validation.SchemaValidationResult
}

func newValidateCmd(g *globals) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "validate <path>...",
		Short: "Check schema files for configuration problems",
		Long: `Parse schema files and report every configuration issue. Directories
are searched for .json, .jsonc, .yaml, .yml and .cbor files.

Duplicate field names are warnings unless --strict is given.

Examples:
  formflow validate forms/
  formflow validate forms/summit.json --strict
  formflow validate forms/ --json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := schemaFiles(args)
			if err != nil {
				return err
			}

			reports := make([]fileReport, 0, len(files))
			for _, file := range files {
				doc, err := schema.LoadFile(file)
				if err != nil {
					return err
				}
				reports = append(reports, fileReport{
					File:                   file,
					SchemaValidationResult: validation.CheckDocument(doc, g.parseOptions()...),
				})
			}

			out := cmd.OutOrStdout()
			if asJSON {
				encoder := json.NewEncoder(out)
				encoder.SetIndent("", "  ")
				if err := encoder.Encode(reports); err != nil {
					return err
				}
			} else {
				printReports(out, reports)
			}

			invalid := 0
			for _, report := range reports {
				if !report.Valid {
					invalid++
				}
			}
			if invalid > 0 {
				return fmt.Errorf("%d of %d schemas invalid", invalid, len(reports))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the reports as JSON")
	return cmd
}

func printReports(out io.Writer, reports []fileReport) {
	for _, report := range reports {
		mark := checkMark
		if !report.Valid {
			mark = crossMark
		}
		fmt.Fprintf(out, "%s %s\n", mark, report.File)

		issues := append([]validation.SchemaIssue(nil), report.Issues...)
		sort.SliceStable(issues, func(i, j int) bool {
			if issues[i].Path == issues[j].Path {
				return issues[i].Message < issues[j].Message
			}
			return issues[i].Path < issues[j].Path
		})
		for _, issue := range issues {
			location := issue.Path
			if location == "" {
				location = "/"
			}
			fmt.Fprintf(out, "    %s -> %s\n", location, issue.Message)
		}
	}
}

// schemaFiles expands directories into the schema files they contain and
// returns the list sorted.
func schemaFiles(paths []string) ([]string, error) {
	var files []string
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, path)
			continue
		}
		err = filepath.WalkDir(path, func(p string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if !d.IsDir() && schemastore.IsSchemaFile(p) {
				files = append(files, p)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	if len(files) == 0 {
		return nil, errors.New("no schema files found")
	}
	sort.Strings(files)
	return files, nil
}
