// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/tasconv/internal/lattice"
)

var energyCmd = &cobra.Command{
	Use:   "energy",
	Short: "Convert between neutron beam quantities",
	Long: `Energy derives all neutron beam properties (energy, wavelength,
wavevector, velocity, temperature, frequency) from any single one of
them. Exactly one input flag must be given.

With --balance-temp the input energy is treated as an energy transfer
and the detailed balance factor 1 - exp(-w/kT) is printed as well.`,
	RunE: runEnergy,
}

func runEnergy(cmd *cobra.Command, args []string) error {
	type input struct {
		name string
		from func(float64) (lattice.Energy, error)
	}
	inputs := []input{
		{"mev", lattice.EnergyFromMeV},
		{"wavelength", lattice.EnergyFromWavelength},
		{"wavevector", lattice.EnergyFromWavevector},
		{"velocity", lattice.EnergyFromVelocity},
		{"temperature", lattice.EnergyFromTemperature},
		{"frequency", lattice.EnergyFromFrequency},
	}

	var (
		e   lattice.Energy
		set int
	)
	for _, in := range inputs {
		if !cmd.Flags().Changed(in.name) {
			continue
		}
		set++
		v, _ := cmd.Flags().GetFloat64(in.name)
		derived, err := in.from(v)
		if err != nil {
			return fmt.Errorf("--%s: %w", in.name, err)
		}
		e = derived
	}
	if set != 1 {
		return fmt.Errorf("exactly one input flag must be given, got %d", set)
	}

	fmt.Println(e)

	if cmd.Flags().Changed("balance-temp") {
		temp, _ := cmd.Flags().GetFloat64("balance-temp")
		f, err := lattice.DetailedBalanceFactor(e.MeV, temp)
		if err != nil {
			return fmt.Errorf("--balance-temp: %w", err)
		}
		fmt.Printf("Detailed balance factor at %g K: %.6f\n", temp, f)
	}
	return nil
}

func init() {
	energyCmd.Flags().Float64("mev", 0, "neutron energy in meV")
	energyCmd.Flags().Float64("wavelength", 0, "wavelength in angstrom")
	energyCmd.Flags().Float64("wavevector", 0, "wavevector in 1/angstrom")
	energyCmd.Flags().Float64("velocity", 0, "speed in m/s")
	energyCmd.Flags().Float64("temperature", 0, "equivalent temperature in K")
	energyCmd.Flags().Float64("frequency", 0, "frequency in THz")
	energyCmd.Flags().Float64("balance-temp", 0, "also print the detailed balance factor at this temperature (K)")

	rootCmd.AddCommand(energyCmd)
}
