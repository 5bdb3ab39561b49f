// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/tasconv/internal/scandata"
)

var dataCmd = &cobra.Command{
	Use:   "data",
	Short: "Work with measured scan files (combine, bin, moments)",
	Long: `Data handles measured triple-axis scan files: whitespace-separated
columns with a header line naming h, k, l, e, temp, detector, monitor,
and time. Use subcommands to combine repeated scans, rebin onto a
regular grid, or compute peak moments.`,
}

// --- combine subcommand ---

var dataCombineCmd = &cobra.Command{
	Use:   "combine [files...]",
	Short: "Combine repeated scans into one",
	Long: `Combine merges two or more scan files. Points measured at the same
(h, k, l, e, temp) within the tolerance have their detector, monitor,
and time summed; all other points are concatenated and sorted.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runDataCombine,
}

func runDataCombine(cmd *cobra.Command, args []string) error {
	tol, _ := cmd.Flags().GetFloat64("tol")

	combined, err := scandata.ReadFile(args[0])
	if err != nil {
		return err
	}
	for _, path := range args[1:] {
		next, err := scandata.ReadFile(path)
		if err != nil {
			return err
		}
		combined, err = combined.Combine(next, tol)
		if err != nil {
			return fmt.Errorf("combining %s: %w", path, err)
		}
	}

	printScanData(combined)
	return nil
}

// --- bin subcommand ---

var dataBinCmd = &cobra.Command{
	Use:   "bin [file]",
	Short: "Rebin a scan onto a regular grid",
	Long: `Bin rebins a scan onto the regular grid given by the --h, --k, --l,
--e, and --temp ranges, each specified as min,max,points. Detector,
monitor, and time are averaged per grid cell.`,
	Args: cobra.ExactArgs(1),
	RunE: runDataBin,
}

func runDataBin(cmd *cobra.Command, args []string) error {
	scan, err := scandata.ReadFile(args[0])
	if err != nil {
		return err
	}

	var ranges scandata.BinRanges
	for name, dst := range map[string]*scandata.BinAxis{
		"h": &ranges.H, "k": &ranges.K, "l": &ranges.L, "e": &ranges.E, "temp": &ranges.Temp,
	} {
		spec, _ := cmd.Flags().GetString(name)
		axis, err := parseBinAxis(spec)
		if err != nil {
			return fmt.Errorf("--%s: %w", name, err)
		}
		*dst = axis
	}

	workers, _ := cmd.Flags().GetInt("workers")
	binned, err := scan.Bin(context.Background(), ranges, workers)
	if err != nil {
		return err
	}

	printScanData(binned)
	return nil
}

// parseBinAxis parses a min,max,points axis specification.
func parseBinAxis(spec string) (scandata.BinAxis, error) {
	parts := strings.Split(spec, ",")
	if len(parts) != 3 {
		return scandata.BinAxis{}, fmt.Errorf("want min,max,points, got %q", spec)
	}
	lo, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return scandata.BinAxis{}, err
	}
	hi, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return scandata.BinAxis{}, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(parts[2]))
	if err != nil {
		return scandata.BinAxis{}, err
	}
	return scandata.BinAxis{Min: lo, Max: hi, N: n}, nil
}

// --- moments subcommand ---

var dataMomentsCmd = &cobra.Command{
	Use:   "moments [file]",
	Short: "Compute integrated intensity, position, and width of a peak",
	RunE:  runDataMoments,
	Args:  cobra.ExactArgs(1),
}

func runDataMoments(cmd *cobra.Command, args []string) error {
	scan, err := scandata.ReadFile(args[0])
	if err != nil {
		return err
	}

	bgType, _ := cmd.Flags().GetString("background")
	bgValue, _ := cmd.Flags().GetFloat64("background-value")
	bg := scandata.Background{Type: bgType, Value: bgValue}

	integrated, err := scan.Integrate(nil, bg)
	if err != nil {
		return err
	}
	pos, err := scan.Position(nil, bg)
	if err != nil {
		return err
	}
	width, err := scan.Width(nil, bg)
	if err != nil {
		return err
	}

	fmt.Printf("integrated intensity: %.6g\n", integrated)
	fmt.Printf("position (h k l e):   %.4f %.4f %.4f %.4f\n", pos[0], pos[1], pos[2], pos[3])
	fmt.Printf("width^2  (h k l e):   %.4g %.4g %.4g %.4g\n", width[0], width[1], width[2], width[3])
	return nil
}

// printScanData writes a scan in the same column format ReadFile accepts.
func printScanData(s *scandata.Scan) {
	fmt.Println("h k l e temp detector monitor time")
	for i := 0; i < s.Len(); i++ {
		fmt.Printf("%.4f %.4f %.4f %.4f %.4f %g %g %g\n",
			s.H[i], s.K[i], s.L[i], s.E[i], s.Temp[i], s.Detector[i], s.Monitor[i], s.Time[i])
	}
}

func init() {
	dataCombineCmd.Flags().Float64("tol", scandata.DefaultCombineTol, "coordinate matching tolerance")

	dataBinCmd.Flags().String("h", "0,0,1", "h axis as min,max,points")
	dataBinCmd.Flags().String("k", "0,0,1", "k axis as min,max,points")
	dataBinCmd.Flags().String("l", "0,0,1", "l axis as min,max,points")
	dataBinCmd.Flags().String("e", "0,0,1", "e axis as min,max,points")
	dataBinCmd.Flags().String("temp", "0,400,1", "temp axis as min,max,points")
	dataBinCmd.Flags().Int("workers", 0, "parallel bin chunks (0 = GOMAXPROCS)")

	dataMomentsCmd.Flags().String("background", "", "background type: constant, percent, or minimum")
	dataMomentsCmd.Flags().Float64("background-value", 0, "background level or percentage")

	dataCmd.AddCommand(dataCombineCmd)
	dataCmd.AddCommand(dataBinCmd)
	dataCmd.AddCommand(dataMomentsCmd)

	rootCmd.AddCommand(dataCmd)
}
