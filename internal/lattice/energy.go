// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package lattice

import (
	"fmt"
	"math"
)

// Physical constants for thermal neutrons, in the units used throughout:
// energies in meV, lengths in angstrom, temperatures in kelvin.
const (
	// EnergyPerK2 is hbar^2/(2 m_n) in meV angstrom^2: E = EnergyPerK2 * k^2.
	EnergyPerK2 = 2.072124

	// BoltzmannMeVPerK is the Boltzmann constant in meV/K.
	BoltzmannMeVPerK = 0.08617333

	// PlanckMeVPerTHz is the Planck constant in meV/THz.
	PlanckMeVPerTHz = 4.135668

	// VelocityPerSqrtMeV converts sqrt(E [meV]) to neutron speed in m/s.
	VelocityPerSqrtMeV = 437.393
)

// Energy bundles the commonly used properties of a neutron beam derived
// from a single input quantity: energy (meV), wavelength (angstrom),
// wavevector (1/angstrom), velocity (m/s), temperature (K), or
// frequency (THz).
type Energy struct {
	MeV         float64
	Wavelength  float64
	Wavevector  float64
	Velocity    float64
	Temperature float64
	Frequency   float64
}

// EnergyFromMeV derives all beam properties from the energy in meV.
func EnergyFromMeV(e float64) (Energy, error) {
	if e <= 0 {
		return Energy{}, fmt.Errorf("neutron energy must be positive, got %g meV", e)
	}
	k := math.Sqrt(e / EnergyPerK2)
	return Energy{
		MeV:         e,
		Wavevector:  k,
		Wavelength:  2 * math.Pi / k,
		Velocity:    VelocityPerSqrtMeV * math.Sqrt(e),
		Temperature: e / BoltzmannMeVPerK,
		Frequency:   e / PlanckMeVPerTHz,
	}, nil
}

// EnergyFromWavelength derives all beam properties from the wavelength
// in angstrom.
func EnergyFromWavelength(lambda float64) (Energy, error) {
	if lambda <= 0 {
		return Energy{}, fmt.Errorf("wavelength must be positive, got %g angstrom", lambda)
	}
	k := 2 * math.Pi / lambda
	return EnergyFromMeV(EnergyPerK2 * k * k)
}

// EnergyFromWavevector derives all beam properties from the wavevector
// in 1/angstrom.
func EnergyFromWavevector(k float64) (Energy, error) {
	if k <= 0 {
		return Energy{}, fmt.Errorf("wavevector must be positive, got %g 1/angstrom", k)
	}
	return EnergyFromMeV(EnergyPerK2 * k * k)
}

// EnergyFromVelocity derives all beam properties from the speed in m/s.
func EnergyFromVelocity(v float64) (Energy, error) {
	if v <= 0 {
		return Energy{}, fmt.Errorf("velocity must be positive, got %g m/s", v)
	}
	e := v / VelocityPerSqrtMeV
	return EnergyFromMeV(e * e)
}

// EnergyFromTemperature derives all beam properties from the equivalent
// temperature in kelvin.
func EnergyFromTemperature(t float64) (Energy, error) {
	if t <= 0 {
		return Energy{}, fmt.Errorf("temperature must be positive, got %g K", t)
	}
	return EnergyFromMeV(BoltzmannMeVPerK * t)
}

// EnergyFromFrequency derives all beam properties from the frequency in THz.
func EnergyFromFrequency(nu float64) (Energy, error) {
	if nu <= 0 {
		return Energy{}, fmt.Errorf("frequency must be positive, got %g THz", nu)
	}
	return EnergyFromMeV(PlanckMeVPerTHz * nu)
}

// String formats all beam properties with units.
func (e Energy) String() string {
	return fmt.Sprintf(
		"Energy: %.3f meV\nWavelength: %.3f A\nWavevector: %.3f 1/A\nVelocity: %.3f m/s\nTemperature: %.3f K\nFrequency: %.3f THz",
		e.MeV, e.Wavelength, e.Wavevector, e.Velocity, e.Temperature, e.Frequency)
}

// DetailedBalanceFactor returns the temperature correction
// 1 - exp(-w / (k_B T)) for an energy transfer w in meV at temperature
// tempK in kelvin, sometimes called the Bose factor.
func DetailedBalanceFactor(w, tempK float64) (float64, error) {
	if tempK <= 0 {
		return 0, fmt.Errorf("temperature must be positive, got %g K", tempK)
	}
	return 1 - math.Exp(-w/(BoltzmannMeVPerK*tempK)), nil
}
