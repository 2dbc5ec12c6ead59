// Copyright (c) 2025 Impyla
// Licensed under the MIT License. See LICENSE file in the project root for details.

package logging

import (
	"strings"

	"impyla/cli/internal/errors"

	"github.com/pterm/pterm"
)

// QueryErrorTitle returns the headline shown for a failed query of the given kind.
func QueryErrorTitle(kind errors.Kind) string {
	switch kind {
	case errors.ConnectionError:
		return "Connection Failed"
	case errors.SQLSyntaxError:
		return "SQL Rejected"
	case errors.TemplateError:
		return "Template Error"
	case errors.MissingDependency:
		return "Missing Python Packages"
	case errors.InvalidConfig:
		return "Invalid Configuration"
	case errors.Cancelled:
		return "Query Cancelled"
	default:
		return "Query Failed"
	}
}

// FormatQueryError formats a categorized query failure in a user-friendly way.
// The technical message is masked and appended verbatim at the end.
func FormatQueryError(kind errors.Kind, errMsg string) string {
	var builder strings.Builder

	builder.WriteString(pterm.NewStyle(pterm.FgRed, pterm.Bold).Sprint(QueryErrorTitle(kind)))
	builder.WriteString("\n\n")

	switch kind {
	case errors.ConnectionError:
		builder.WriteString("Impyla could not reach the Impala daemon.\n")
		builder.WriteString("This usually happens when:\n")
		builder.WriteString("  • connection.host or connection.port in .impyla.yml is wrong\n")
		builder.WriteString("  • the auth_mechanism does not match the cluster\n")
		builder.WriteString("  • Python or the impyla package is not installed\n")
	case errors.SQLSyntaxError:
		builder.WriteString("Impala could not parse or analyze the statement.\n")
		builder.WriteString("If the file is a template, run 'impyla render' to inspect the SQL that was sent.\n")
	case errors.MissingDependency:
		builder.WriteString("The helper scripts need impyla and jinja2 in the selected interpreter.\n")
	case errors.InvalidConfig:
		builder.WriteString("The workspace configuration did not pass validation.\n")
	default:
		builder.WriteString("Impala returned an error while running the query.\n")
	}

	builder.WriteString("\n")

	switch kind {
	case errors.ConnectionError, errors.InvalidConfig:
		builder.WriteString(pterm.NewStyle(pterm.FgYellow).Sprint("→ Check .impyla.yml or run 'impyla init'"))
	case errors.MissingDependency:
		builder.WriteString(pterm.NewStyle(pterm.FgYellow).Sprint("→ Run 'impyla deps' to install them"))
	default:
		builder.WriteString(pterm.NewStyle(pterm.FgYellow).Sprint("→ Fix the statement and run 'impyla exec' again"))
	}

	builder.WriteString("\n")

	if strings.TrimSpace(errMsg) != "" {
		builder.WriteString("\n")
		builder.WriteString(pterm.NewStyle(pterm.FgGray).Sprint("Technical details: " + Mask(errMsg)))
	}

	return builder.String()
}
