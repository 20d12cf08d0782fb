// Package geometry models the prioritized solid regions a particle moves
// through and answers segment-crossing and point-containment queries against
// a pluggable intersection backend.
package geometry

import "fmt"

// Material holds the surface and bulk interaction parameters of a solid.
// Read-only after load.
type Material struct {
	Name          string  `yaml:"name"`
	FermiReal     float64 `yaml:"fermi_real"`      // real part of the boundary pseudo-potential [neV]
	FermiImag     float64 `yaml:"fermi_imag"`      // imaginary part, drives absorption [neV]
	DiffProb      float64 `yaml:"diff_prob"`       // Lambertian diffuse-reflection probability
	SpinflipProb  float64 `yaml:"spinflip_prob"`   // spin-flip probability per wall interaction
	RMSRoughness  float64 `yaml:"rms_roughness"`   // micro-roughness model: RMS amplitude [m]
	CorrelLength  float64 `yaml:"correl_length"`   // micro-roughness model: correlation length [m]
	LossPerBounce float64 `yaml:"loss_per_bounce"` // absorption probability per bounce
	MFPElastic    float64 `yaml:"mfp_elastic"`     // elastic scattering mean free path [m]
}

// Validate rejects materials that mix the two mutually exclusive
// surface-interaction models (Lambertian diffuse probability vs.
// micro-roughness parameters).
func (m Material) Validate() error {
	if m.DiffProb != 0 && (m.RMSRoughness != 0 || m.CorrelLength != 0) {
		return fmt.Errorf("material %s sets both a diffuse-reflection probability and micro-roughness parameters; pick one surface model", m.Name)
	}
	return nil
}
