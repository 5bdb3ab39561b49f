// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/tasconv/internal/lattice"
)

var latticeCmd = &cobra.Command{
	Use:   "lattice",
	Short: "Inspect reciprocal-lattice properties of the sample",
	Long: `Lattice prints the momentum transfer magnitude and interplanar
spacing of a reflection for the sample described in the config file.
With --hkl2 the angle between the two reciprocal vectors is printed
as well.`,
	RunE: runLattice,
}

func runLattice(cmd *cobra.Command, args []string) error {
	sample, err := lattice.NewSample(instrumentConfig().Sample)
	if err != nil {
		return err
	}

	hklStr, _ := cmd.Flags().GetString("hkl")
	hkl, err := parseHKL(hklStr)
	if err != nil {
		return fmt.Errorf("--hkl: %w", err)
	}

	fmt.Printf("Sample: a=%g b=%g c=%g alpha=%g beta=%g gamma=%g (V=%.4g A^3)\n",
		sample.A, sample.B, sample.C, sample.Alpha, sample.Beta, sample.Gamma, sample.Volume)

	fmt.Printf("(%g, %g, %g): |Q| = %.4f 1/A", hkl[0], hkl[1], hkl[2],
		sample.QMag(hkl[0], hkl[1], hkl[2]))
	if d, err := sample.DSpacing(hkl[0], hkl[1], hkl[2]); err == nil {
		fmt.Printf(", d = %.4f A", d)
	}
	fmt.Println()

	if cmd.Flags().Changed("hkl2") {
		hkl2Str, _ := cmd.Flags().GetString("hkl2")
		hkl2, err := parseHKL(hkl2Str)
		if err != nil {
			return fmt.Errorf("--hkl2: %w", err)
		}
		ang, err := sample.AngleBetween(hkl[0], hkl[1], hkl[2], hkl2[0], hkl2[1], hkl2[2])
		if err != nil {
			return err
		}
		fmt.Printf("Angle to (%g, %g, %g): %.4f degrees\n", hkl2[0], hkl2[1], hkl2[2], ang)
	}
	return nil
}

// parseHKL parses a comma-separated h,k,l triple.
func parseHKL(s string) ([3]float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return [3]float64{}, fmt.Errorf("want three comma-separated values, got %q", s)
	}
	var hkl [3]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return [3]float64{}, fmt.Errorf("component %d: %w", i+1, err)
		}
		hkl[i] = v
	}
	return hkl, nil
}

func init() {
	latticeCmd.Flags().String("hkl", "1,0,0", "reflection as h,k,l")
	latticeCmd.Flags().String("hkl2", "", "second reflection for the angle between")

	rootCmd.AddCommand(latticeCmd)
}
