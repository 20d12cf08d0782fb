// Package phys holds physical constants, relativistic kinematics and the
// equations of motion for a charged, massive particle with a magnetic moment.
//
// Unit conventions: lengths in m, times in s, charges in C, magnetic moments
// in J/T, energies in eV. Masses are stored in eV·s²/m² (i.e. kg divided by
// the elementary charge), which keeps ½mv² directly in eV.
package phys

const (
	// C0 is the speed of light [m/s].
	C0 = 299792458.0

	// GravAcc is the standard gravitational acceleration [m/s²].
	GravAcc = 9.80665

	// EleE is the elementary charge [C], doubling as the eV→J conversion.
	EleE = 1.602176487e-19

	// RelativisticThreshold: below this v/c the kinetic energy is computed
	// non-relativistically to avoid cancellation in 1-γ.
	RelativisticThreshold = 1e-2
)

// Particle species constants.
const (
	MassNeutron   = 1.674927211e-27 / EleE // [eV·s²/m²]
	MassProton    = 1.672621637e-27 / EleE
	MassElectron  = 9.10938215e-31 / EleE
	MomentNeutron = -0.96623641e-26 // [J/T]
	TauNeutron    = 885.7           // free-neutron lifetime [s]
)
