package geometry

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// SolidEntry is one solid in a geometry description: a mesh resource name, a
// material reference and optional "start-end" ignore-time pairs. The entry
// with the reserved default id names no mesh.
type SolidEntry struct {
	ID          int      `yaml:"id"`
	Name        string   `yaml:"name"`
	Mesh        string   `yaml:"mesh"`
	Material    string   `yaml:"material"`
	IgnoreTimes []string `yaml:"ignore_times"`
}

// Description is the on-disk geometry description.
type Description struct {
	// MaterialsFile optionally points at a separate materials document,
	// relative to the description's own path.
	MaterialsFile string       `yaml:"materials_file"`
	Materials     []Material   `yaml:"materials"`
	Solids        []SolidEntry `yaml:"solids"`
}

// LoadDescription reads and resolves a YAML geometry description. Material
// references are resolved by name; ignore windows are parsed from
// "start-end" pairs. The returned solids keep their mesh resource names so a
// mesh-backed CollisionFinder can be built by the caller.
func LoadDescription(path string) (def Solid, solids []Solid, meshes map[int]string, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Solid{}, nil, nil, err
	}
	var desc Description
	if err := yaml.Unmarshal(data, &desc); err != nil {
		return Solid{}, nil, nil, fmt.Errorf("parse geometry description %s: %w", path, err)
	}

	mats := desc.Materials
	if desc.MaterialsFile != "" {
		matPath := desc.MaterialsFile
		if !filepath.IsAbs(matPath) {
			matPath = filepath.Join(filepath.Dir(path), matPath)
		}
		mdata, err := os.ReadFile(matPath)
		if err != nil {
			return Solid{}, nil, nil, err
		}
		var mdoc struct {
			Materials []Material `yaml:"materials"`
		}
		if err := yaml.Unmarshal(mdata, &mdoc); err != nil {
			return Solid{}, nil, nil, fmt.Errorf("parse materials file %s: %w", matPath, err)
		}
		mats = append(mats, mdoc.Materials...)
	}

	byName := make(map[string]Material, len(mats))
	for _, m := range mats {
		if err := m.Validate(); err != nil {
			return Solid{}, nil, nil, err
		}
		byName[m.Name] = m
	}

	meshes = make(map[int]string)
	haveDefault := false
	for _, e := range desc.Solids {
		mat, ok := byName[e.Material]
		if !ok {
			return Solid{}, nil, nil, fmt.Errorf("solid %d uses material %q which is not defined", e.ID, e.Material)
		}
		windows, err := parseIgnoreTimes(e.IgnoreTimes)
		if err != nil {
			return Solid{}, nil, nil, fmt.Errorf("solid %d: %w", e.ID, err)
		}
		s := Solid{ID: e.ID, Name: e.Name, Material: mat, IgnoreTimes: windows}
		if s.Name == "" {
			s.Name = e.Material
		}
		if e.ID == DefaultSolidID {
			s.Name = "default solid"
			def = s
			haveDefault = true
			continue
		}
		meshes[e.ID] = e.Mesh
		solids = append(solids, s)
	}
	if !haveDefault {
		return Solid{}, nil, nil, fmt.Errorf("geometry description %s defines no default solid (id %d)", path, DefaultSolidID)
	}
	return def, solids, meshes, nil
}

func parseIgnoreTimes(pairs []string) ([]TimeWindow, error) {
	var out []TimeWindow
	for _, p := range pairs {
		lo, hi, ok := strings.Cut(p, "-")
		if !ok {
			return nil, fmt.Errorf("invalid ignore-time pair %q, want \"start-end\"", p)
		}
		start, err := strconv.ParseFloat(strings.TrimSpace(lo), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid ignore-time start in %q: %w", p, err)
		}
		end, err := strconv.ParseFloat(strings.TrimSpace(hi), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid ignore-time end in %q: %w", p, err)
		}
		if end <= start {
			return nil, fmt.Errorf("ignore-time pair %q is empty or reversed", p)
		}
		out = append(out, TimeWindow{Start: start, End: end})
	}
	return out, nil
}
