package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/jward/wayfind"
)

var (
	flagKinds      []string
	flagVisibility string
	flagContainer  string
	flagPathPrefix string
	flagLimit      int
	flagOffset     int
	flagSort       string
	flagOrder      string
)

var symbolsCmd = &cobra.Command{
	Use:   "symbols [pattern]",
	Short: "Search indexed symbols by glob pattern",
	Long:  "Lists indexed declarations whose name matches a glob pattern. Use * as wildcard (e.g. 'parse_*'). Without a pattern every symbol matches.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSymbols,
}

func init() {
	symbolsCmd.Flags().StringSliceVar(&flagKinds, "kind", nil, "filter by symbol kind (e.g. function,struct)")
	symbolsCmd.Flags().StringVar(&flagVisibility, "visibility", "", "filter by visibility (e.g. pub, pub(crate))")
	symbolsCmd.Flags().StringVar(&flagContainer, "container", "", "filter by enclosing item or impl type")
	symbolsCmd.Flags().StringVar(&flagPathPrefix, "path-prefix", "", "filter by file path prefix")
	symbolsCmd.Flags().IntVar(&flagLimit, "limit", 50, "pagination limit (max 500)")
	symbolsCmd.Flags().IntVar(&flagOffset, "offset", 0, "pagination offset")
	symbolsCmd.Flags().StringVar(&flagSort, "sort", "name", "sort field: name|kind|file")
	symbolsCmd.Flags().StringVar(&flagOrder, "order", "asc", "sort order: asc|desc")
}

func runSymbols(cmd *cobra.Command, args []string) error {
	engine, err := openEngine()
	if err != nil {
		return outputError(cmd.OutOrStdout(), "symbols", err)
	}
	defer engine.Close()

	pattern := ""
	if len(args) > 0 {
		pattern = args[0]
	}
	filter := wayfind.SymbolFilter{Kinds: flagKinds}
	if flagVisibility != "" {
		filter.Visibility = &flagVisibility
	}
	if flagContainer != "" {
		filter.Container = &flagContainer
	}
	if flagPathPrefix != "" {
		prefix, err := resolveFilePath(flagPathPrefix)
		if err != nil {
			return outputError(cmd.OutOrStdout(), "symbols", err)
		}
		filter.PathPrefix = &prefix
	}

	res, err := engine.SearchSymbols(context.Background(), pattern, filter, buildSort(), buildPagination())
	if err != nil {
		return outputError(cmd.OutOrStdout(), "symbols", err)
	}

	syms := make([]CLISymbol, len(res.Items))
	for i, sr := range res.Items {
		syms[i] = symbolResultToCLI(sr)
	}
	return outputResult(cmd.OutOrStdout(), CLIResult{
		Command:    "symbols",
		Results:    syms,
		TotalCount: &res.TotalCount,
	})
}

func symbolResultToCLI(sr wayfind.SymbolResult) CLISymbol {
	return CLISymbol{
		ID:          sr.ID,
		Name:        sr.Name,
		Kind:        sr.Kind,
		Visibility:  sr.Visibility,
		Modifiers:   sr.Modifiers,
		Container:   sr.Container,
		File:        sr.FilePath,
		StartLine:   sr.StartLine,
		StartCol:    sr.StartCol,
		Description: sr.Description,
	}
}

// buildPagination creates a Pagination from CLI flags.
func buildPagination() wayfind.Pagination {
	return wayfind.Pagination{
		Limit:  flagLimit,
		Offset: flagOffset,
	}
}

// buildSort creates a Sort from CLI flags.
func buildSort() wayfind.Sort {
	var field wayfind.SortField
	switch flagSort {
	case "kind":
		field = wayfind.SortByKind
	case "file":
		field = wayfind.SortByFile
	default:
		field = wayfind.SortByName
	}
	order := wayfind.Asc
	if flagOrder == "desc" {
		order = wayfind.Desc
	}
	return wayfind.Sort{Field: field, Order: order}
}
