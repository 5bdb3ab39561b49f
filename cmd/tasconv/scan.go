// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/tasconv/internal/convolve"
	"github.com/pdiddy/tasconv/internal/models"
	"github.com/pdiddy/tasconv/internal/resolution"
	"github.com/pdiddy/tasconv/internal/store"
	"github.com/pdiddy/tasconv/pkg/types"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Convolve a scattering model along an energy trajectory",
	Long: `Scan runs a constant-Q energy scan: the selected scattering model is
convolved with the instrument resolution at every trajectory point using
the fixed-grid or Monte Carlo method, and the intensities are printed as
a table or JSON. With --store the run is saved to the results database.`,
	RunE: runScan,
}

func runScan(cmd *cobra.Command, args []string) error {
	traj, err := trajectoryFromFlags(cmd)
	if err != nil {
		return err
	}

	cfg, err := convolutionFromFlags(cmd)
	if err != nil {
		return err
	}

	flagModel, _ := cmd.Flags().GetString("model")
	modelName, model, params, err := resolveModel(flagModel)
	if err != nil {
		return err
	}

	provider, err := resolution.NewEllipsoidProvider(instrumentConfig())
	if err != nil {
		return err
	}

	out, err := convolve.Run(context.Background(), model, nil, provider, traj, params, cfg)
	if err != nil {
		return err
	}

	if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
		if err := printScanJSON(traj, out); err != nil {
			return err
		}
	} else {
		printScanTable(traj, out)
	}

	if save, _ := cmd.Flags().GetBool("store"); save {
		st, err := store.NewStore(storeConfig())
		if err != nil {
			return err
		}
		defer st.Close()
		id, err := st.SaveScan(context.Background(), modelName, cfg, traj, out)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Stored scan %d\n", id)
	}
	return nil
}

// trajectoryFromFlags builds the constant-Q energy scan from --hkl,
// --e-start, --e-end, and --steps.
func trajectoryFromFlags(cmd *cobra.Command) (types.Trajectory, error) {
	hklStr, _ := cmd.Flags().GetString("hkl")
	hkl, err := parseHKL(hklStr)
	if err != nil {
		return nil, fmt.Errorf("--hkl: %w", err)
	}

	eStart, _ := cmd.Flags().GetFloat64("e-start")
	eEnd, _ := cmd.Flags().GetFloat64("e-end")
	steps, _ := cmd.Flags().GetInt("steps")
	return types.ConstQScan(hkl[0], hkl[1], hkl[2], eStart, eEnd, steps)
}

// convolutionFromFlags merges the convolution settings from the config
// file with command-line overrides.
func convolutionFromFlags(cmd *cobra.Command) (types.ConvolutionConfig, error) {
	cfg := types.ConvolutionConfig{Method: "fix", Accuracy: []int{5}, Scale: 1}
	if viper.IsSet("convolution") {
		if err := viper.UnmarshalKey("convolution", &cfg); err != nil {
			return cfg, fmt.Errorf("convolution config: %w", err)
		}
	}

	if cmd.Flags().Changed("method") {
		cfg.Method, _ = cmd.Flags().GetString("method")
	}
	if cmd.Flags().Changed("accuracy") {
		accStr, _ := cmd.Flags().GetString("accuracy")
		acc, err := parseIntList(accStr)
		if err != nil {
			return cfg, fmt.Errorf("--accuracy: %w", err)
		}
		cfg.Accuracy = acc
	}
	if cmd.Flags().Changed("scale") {
		cfg.Scale, _ = cmd.Flags().GetFloat64("scale")
	}
	if cmd.Flags().Changed("seed") {
		cfg.Seed, _ = cmd.Flags().GetInt64("seed")
	}
	if cmd.Flags().Changed("workers") {
		cfg.Workers, _ = cmd.Flags().GetInt("workers")
	}
	return cfg, nil
}

// resolveModel picks the built-in model and its parameters, preferring
// the config file's model block when the flag is unset. The returned
// name is the effective one, never empty.
func resolveModel(name string) (string, convolve.ModelFunc, convolve.Params, error) {
	var mc types.ModelConfig
	if viper.IsSet("model") {
		if err := viper.UnmarshalKey("model", &mc); err != nil {
			return "", nil, nil, fmt.Errorf("model config: %w", err)
		}
	}
	if name != "" {
		mc.Name = name
	}
	model, err := models.ByName(mc.Name)
	if err != nil {
		return "", nil, nil, err
	}
	if mc.Name == "" {
		mc.Name = "lorentzian"
	}
	return mc.Name, model, convolve.Params(mc.Params), nil
}

func parseIntList(s string) ([]int, error) {
	var out []int
	for _, p := range strings.Split(s, ",") {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// printScanTable writes the convolved scan as a human-readable table.
func printScanTable(traj types.Trajectory, intensity []float64) {
	fmt.Printf("%-10s  %-10s  %-10s  %-10s  %s\n", "H", "K", "L", "W (meV)", "Intensity")
	fmt.Println(strings.Repeat("-", 58))
	for i, q := range traj {
		fmt.Printf("%-10.4f  %-10.4f  %-10.4f  %-10.4f  %.6g\n", q.H, q.K, q.L, q.W, intensity[i])
	}
	fmt.Printf("\n%d points\n", len(traj))
}

// printScanJSON writes the convolved scan as indented JSON.
func printScanJSON(traj types.Trajectory, intensity []float64) error {
	type point struct {
		types.QPoint
		Intensity float64 `json:"intensity"`
	}
	points := make([]point, len(traj))
	for i, q := range traj {
		points[i] = point{QPoint: q, Intensity: intensity[i]}
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(points)
}

func init() {
	scanCmd.Flags().String("hkl", "1.5,0,0.35", "constant momentum transfer as h,k,l")
	scanCmd.Flags().Float64("e-start", 20, "energy transfer of the first point (meV)")
	scanCmd.Flags().Float64("e-end", 0.5, "energy transfer of the last point (meV)")
	scanCmd.Flags().Int("steps", 40, "number of trajectory points")
	scanCmd.Flags().String("method", "fix", `integration method: "fix" or "mc"`)
	scanCmd.Flags().String("accuracy", "5", "integration accuracy (comma-separated for fix)")
	scanCmd.Flags().Float64("scale", 1, "global intensity scale factor")
	scanCmd.Flags().Int64("seed", 0, "random seed for mc (0 = non-reproducible)")
	scanCmd.Flags().Int("workers", 0, "parallel trajectory points (0 = GOMAXPROCS)")
	scanCmd.Flags().String("model", "", `built-in model: "lorentzian" or "constant"`)
	scanCmd.Flags().Bool("json", false, "output results as JSON")
	scanCmd.Flags().Bool("store", false, "save the run to the results database")

	rootCmd.AddCommand(scanCmd)
}
