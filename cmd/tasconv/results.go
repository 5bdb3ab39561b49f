// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/pdiddy/tasconv/internal/store"
)

var resultsCmd = &cobra.Command{
	Use:   "results",
	Short: "Manage stored scan results (list, show, export)",
	Long: `Results manages the local SQLite database of computed scans. Use
subcommands to list past runs, print a stored scan, or export one as YAML.`,
}

// --- list subcommand ---

var resultsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored scan runs, most recent first",
	RunE:  runResultsList,
}

func runResultsList(cmd *cobra.Command, args []string) error {
	st, err := store.NewStore(storeConfig())
	if err != nil {
		return err
	}
	defer st.Close()

	records, err := st.ListScans(context.Background())
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("no stored scans")
		return nil
	}

	fmt.Printf("%-5s %-20s %-12s %-7s %-10s %-7s %s\n",
		"ID", "CREATED", "MODEL", "METHOD", "ACCURACY", "POINTS", "SCALE")
	for _, r := range records {
		fmt.Printf("%-5d %-20s %-12s %-7s %-10s %-7d %g\n",
			r.ID, r.CreatedAt.Format("2006-01-02 15:04:05"),
			r.Model, r.Method, r.Accuracy, r.NPoints, r.Scale)
	}
	return nil
}

// --- show subcommand ---

var resultsShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Print the points of a stored scan",
	Args:  cobra.ExactArgs(1),
	RunE:  runResultsShow,
}

func runResultsShow(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid scan id %q: %w", args[0], err)
	}

	st, err := store.NewStore(storeConfig())
	if err != nil {
		return err
	}
	defer st.Close()

	traj, intensity, err := st.ScanPoints(context.Background(), id)
	if err != nil {
		return err
	}

	printScanTable(traj, intensity)
	return nil
}

// --- export subcommand ---

var resultsExportCmd = &cobra.Command{
	Use:   "export [id]",
	Short: "Export a stored scan as YAML",
	Long: `Export writes a stored scan, including its run parameters and all
trajectory points, as a YAML document to stdout.`,
	Args: cobra.ExactArgs(1),
	RunE: runResultsExport,
}

func runResultsExport(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid scan id %q: %w", args[0], err)
	}

	st, err := store.NewStore(storeConfig())
	if err != nil {
		return err
	}
	defer st.Close()

	return st.ExportYAML(context.Background(), id, os.Stdout)
}

func init() {
	resultsCmd.AddCommand(resultsListCmd)
	resultsCmd.AddCommand(resultsShowCmd)
	resultsCmd.AddCommand(resultsExportCmd)

	rootCmd.AddCommand(resultsCmd)
}
