package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"stock_pro/internal/export"
	"stock_pro/internal/inventory"
)

var exportOutDir string

// stockpro export products|sales: write a CSV export to disk.
var exportCmd = &cobra.Command{
	Use:       "export [products|sales]",
	Short:     "Write the catalog or the sales history as CSV",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"products", "sales"},
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		path, err := writeExport(a.store, args[0], exportOutDir, time.Now())
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

// stockpro summary: print the dashboard as JSON.
var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Print the financial dashboard as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		return writeSummary(cmd.OutOrStdout(), a.store, a.cfg.LowStockThreshold)
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportOutDir, "out", ".", "directory the CSV file is written to")
}

// writeExport writes the requested export under dir and returns its path.
func writeExport(store *inventory.Store, kind, dir string, now time.Time) (string, error) {
	var (
		buf  bytes.Buffer
		name string
		err  error
	)
	switch kind {
	case "products":
		name = export.ProductsFilename(now)
		err = export.WriteProductsCSV(&buf, store.Products(inventory.ProductFilter{}), now.Location())
	case "sales":
		name = export.SalesFilename(now)
		err = export.WriteSalesCSV(&buf, store.Sales(""), now.Location())
	default:
		return "", fmt.Errorf("unknown export %q", kind)
	}
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

func writeSummary(w io.Writer, store *inventory.Store, threshold int) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(store.Summary(threshold))
}
