package validation

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-formflow/pkg/schema"
)

// SchemaIssue represents a configuration problem with optional location metadata.
type SchemaIssue struct {
	Path    string `json:"path,omitempty"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// SchemaValidationResult captures the outcome of checking a schema document,
// used by the validate command and the schema endpoint.
type SchemaValidationResult struct {
	Valid  bool          `json:"valid"`
	Issues []SchemaIssue `json:"issues,omitempty"`
}

// CheckDocument parses the document and reports every issue found. Warnings
// such as duplicate names keep Valid true.
func CheckDocument(doc schema.Document, options ...schema.ParseOption) SchemaValidationResult {
	return Report(doc.Parse(options...))
}

// Report converts a parse result into a SchemaValidationResult.
func Report(result schema.Result) SchemaValidationResult {
	report := SchemaValidationResult{Valid: !result.Invalid}
	for _, issue := range result.Issues {
		report.Issues = append(report.Issues, issueFromParse(issue))
	}
	return report
}

func issueFromParse(issue schema.Issue) SchemaIssue {
	out := SchemaIssue{
		Field:   issue.Field,
		Message: strings.TrimSpace(issue.Message),
	}
	if issue.Partition >= 0 {
		out.Path = fmt.Sprintf("/%d/elements", issue.Partition)
		if issue.Field != "" {
			out.Path += "/" + issue.Field
		}
	}
	if out.Message == "" {
		out.Message = "unknown error"
	}
	return out
}
