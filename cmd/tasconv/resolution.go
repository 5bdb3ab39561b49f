// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/tasconv/internal/resolution"
)

var resolutionCmd = &cobra.Command{
	Use:   "resolution",
	Short: "Inspect the resolution ellipsoid along a trajectory",
	Long: `Resolution prints the 4x4 resolution quadratic form and the effective
Gaussian widths at each point of a constant-Q energy scan, using the
instrument description from the config file.`,
	RunE: runResolution,
}

func runResolution(cmd *cobra.Command, args []string) error {
	traj, err := trajectoryFromFlags(cmd)
	if err != nil {
		return err
	}

	provider, err := resolution.NewEllipsoidProvider(instrumentConfig())
	if err != nil {
		return err
	}

	for _, q := range traj {
		pt, err := provider.ResolutionAt(q)
		if err != nil {
			return err
		}
		w := provider.Widths(q)
		fmt.Printf("Q = %s\n", q)
		fmt.Printf("  widths: dQx=%.4g dQy=%.4g dQz=%.4g dW=%.4g\n", w[0], w[1], w[2], w[3])
		fmt.Println("  M:")
		for i := 0; i < 4; i++ {
			row := make([]string, 4)
			for j := 0; j < 4; j++ {
				row[j] = fmt.Sprintf("%12.5g", pt.M[i][j])
			}
			fmt.Printf("    %s\n", strings.Join(row, " "))
		}
	}
	return nil
}

func init() {
	resolutionCmd.Flags().String("hkl", "1.5,0,0.35", "constant momentum transfer as h,k,l")
	resolutionCmd.Flags().Float64("e-start", 20, "energy transfer of the first point (meV)")
	resolutionCmd.Flags().Float64("e-end", 0.5, "energy transfer of the last point (meV)")
	resolutionCmd.Flags().Int("steps", 5, "number of trajectory points")

	rootCmd.AddCommand(resolutionCmd)
}
