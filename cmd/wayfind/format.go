package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// formatDefinitionText formats goto targets as aligned columns with
// "file:line:col" locations of the focus range.
func formatDefinitionText(w io.Writer, def CLIDefinition) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "LOCATION\tNAME\tKIND\tLABEL")
	for _, t := range def.Targets {
		loc := fmt.Sprintf("%s:%d:%d", t.Focus.File, t.Focus.StartLine, t.Focus.StartCol)
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", loc, t.Name, t.Kind, t.Label)
	}
	tw.Flush()
}

// formatSymbolsText formats CLISymbol results as aligned columns.
func formatSymbolsText(w io.Writer, syms []CLISymbol) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tKIND\tVISIBILITY\tFILE\tLINE")
	for _, s := range syms {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%d\n",
			s.ID, s.Name, s.Kind, s.Visibility, s.File, s.StartLine)
	}
	tw.Flush()
}

// formatHoverText prints the markup as is.
func formatHoverText(w io.Writer, h CLIHover) {
	fmt.Fprintln(w, h.Markup)
}

// outputResultText dispatches to the appropriate text formatter based on the
// result type.
func outputResultText(w io.Writer, result CLIResult) error {
	switch v := result.Results.(type) {
	case CLIDefinition:
		formatDefinitionText(w, v)
	case CLIHover:
		formatHoverText(w, v)
	case CLIType:
		fmt.Fprintln(w, v.Type)
	case []CLISymbol:
		formatSymbolsText(w, v)
		if result.TotalCount != nil && len(v) < *result.TotalCount {
			fmt.Fprintf(w, "\nShowing %d of %d results\n", len(v), *result.TotalCount)
		}
	case nil:
		// No output for nil results (nothing under the cursor).
	default:
		return fmt.Errorf("unsupported result type for text format: %T", v)
	}
	return nil
}

// validFormats lists accepted values for --format.
var validFormats = []string{"json", "text"}

// validateFormat checks that the --format flag value is recognized.
func validateFormat(format string) error {
	for _, f := range validFormats {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("invalid format %q: must be %s", format, strings.Join(validFormats, " or "))
}
