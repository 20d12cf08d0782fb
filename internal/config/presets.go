package config

var Presets = map[string]map[string]*Config{
	"neutron": {
		"storage": {
			Species: "neutron", Particles: 1000, Workers: 4, Seed: 1, TMax: 200,
			Source: SourceConfig{
				Min: [3]float64{-0.1, -0.1, 0.05}, Max: [3]float64{0.1, 0.1, 0.25},
				EMax: 1.0e-7, PolUp: 0.5,
			},
			Output: OutputConfig{Dir: "runs", Hits: true},
		},
		"spectrum": {
			Species: "neutron", Particles: 5000, Workers: 8, Seed: 1, TMax: 50,
			Source: SourceConfig{
				Min: [3]float64{-0.05, -0.05, 0.1}, Max: [3]float64{0.05, 0.05, 0.2},
				EMin: 5.0e-8, EMax: 3.0e-7, PolUp: 0.5,
			},
			Output: OutputConfig{Dir: "runs"},
		},
		"polarized": {
			Species: "neutron", Particles: 1000, Workers: 4, Seed: 1, TMax: 100,
			Source: SourceConfig{
				Min: [3]float64{-0.1, -0.1, 0.05}, Max: [3]float64{0.1, 0.1, 0.25},
				EMax: 2.0e-7, PolUp: 1.0,
			},
			Fields: []FieldConfig{{Kind: "uniform", B: [3]float64{0, 0, 1}}},
			Output: OutputConfig{Dir: "runs", Hits: true},
		},
	},
	"proton": {
		"drift": {
			Species: "proton", Particles: 500, Workers: 4, Seed: 1, TMax: 1,
			Source: SourceConfig{
				Min: [3]float64{-0.05, -0.05, 0.1}, Max: [3]float64{0.05, 0.05, 0.2},
				EMax: 750, PolUp: 0.5,
			},
			Fields: []FieldConfig{{Kind: "uniform", E: [3]float64{0, 0, -1e4}}},
			Output: OutputConfig{Dir: "runs", Track: true},
		},
	},
	"tracer": {
		"ballistic": {
			Species: "tracer", Particles: 100, Workers: 2, Seed: 1, TMax: 10,
			Source: SourceConfig{
				Min: [3]float64{-0.1, -0.1, 0.2}, Max: [3]float64{0.1, 0.1, 0.3},
				EMax: 1.0e-7, PolUp: 0.5,
			},
			Output: OutputConfig{Dir: "runs", Track: true},
		},
	},
}

func GetPreset(species, preset string) *Config {
	speciesPresets, ok := Presets[species]
	if !ok {
		return nil
	}
	cfg, ok := speciesPresets[preset]
	if !ok {
		return nil
	}
	return cfg
}

func ListPresets(species string) []string {
	speciesPresets, ok := Presets[species]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(speciesPresets))
	for name := range speciesPresets {
		names = append(names, name)
	}
	return names
}
