// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the tasconv CLI: resolution
// convolution for a simulated triple-axis neutron spectrometer, scan
// data handling, and the scan-result store.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/tasconv/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// rootCmd is the base command for the tasconv CLI.
var rootCmd = &cobra.Command{
	Use:   "tasconv",
	Short: "Resolution convolution for triple-axis spectrometry",
	Long: `tasconv convolves theoretical scattering laws with a triple-axis
spectrometer's 4-dimensional resolution function along momentum-energy
trajectories, using either a deterministic grid or Monte Carlo
integration.

Each operation is a subcommand: scan runs a convolution, resolution
inspects the resolution ellipsoid, data handles measured scan files,
and results manages stored runs.`,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./tasconv.yaml or ~/.config/tasconv/config.yaml)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("tasconv")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "tasconv"))
		}
	}

	viper.SetEnvPrefix("TASCONV")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// instrumentConfig builds the instrument description from the config
// file, falling back to a generic cubic test sample with moderate
// resolution widths when unset.
func instrumentConfig() types.InstrumentConfig {
	cfg := types.InstrumentConfig{
		Sample: types.SampleConfig{
			A: 6.28, B: 6.28, C: 6.28,
			Alpha: 90, Beta: 90, Gamma: 90,
		},
		Resolution: types.ResolutionConfig{
			DQPar:  0.02,
			DQPerp: 0.03,
			DQVert: 0.05,
			DE:     0.25,
		},
	}
	if viper.IsSet("instrument") {
		if err := viper.UnmarshalKey("instrument", &cfg); err != nil {
			fmt.Fprintf(os.Stderr, "warning: instrument config ignored: %v\n", err)
		}
	}
	return cfg
}

// storeConfig builds the result-store settings from the config file.
func storeConfig() types.StoreConfig {
	cfg := types.StoreConfig{ResultsDir: "results", MaxResults: 20}
	if viper.IsSet("store") {
		if err := viper.UnmarshalKey("store", &cfg); err != nil {
			fmt.Fprintf(os.Stderr, "warning: store config ignored: %v\n", err)
		}
	}
	return cfg
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
