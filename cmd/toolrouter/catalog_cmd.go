package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fentz26/toolrouter/internal/catalog"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect the static server catalog",
}

var catalogListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every catalog entry",
	RunE:  runCatalogList,
}

var catalogValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Load the catalog file and report any errors",
	RunE:  runCatalogValidate,
}

func init() {
	catalogCmd.AddCommand(catalogListCmd, catalogValidateCmd)
}

func loadCatalogEntries() ([]catalog.ServerEntry, error) {
	if catalogPath == "" {
		return nil, fmt.Errorf("--catalog is required")
	}
	return catalog.LoadFile(catalogPath)
}

func runCatalogList(cmd *cobra.Command, args []string) error {
	entries, err := loadCatalogEntries()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "HANDLE\tCATEGORY\tTRANSPORT\tKEYWORDS")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.Handle, e.Category, e.TransportSpec.Kind, strings.Join(e.Keywords, ", "))
	}
	w.Flush()

	fmt.Printf("\nTotal: %d servers\n", len(entries))
	return nil
}

func runCatalogValidate(cmd *cobra.Command, args []string) error {
	entries, err := loadCatalogEntries()
	if err != nil {
		return fmt.Errorf("catalog is invalid: %w", err)
	}
	fmt.Printf("✓ %s: %d entries, no errors\n", catalogPath, len(entries))
	return nil
}
