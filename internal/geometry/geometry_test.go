package geometry_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/mseidel/trak/internal/geometry"
)

func vacuum() geometry.Solid {
	return geometry.Solid{ID: geometry.DefaultSolidID, Name: "default solid"}
}

var _ = Describe("Boxes", func() {
	box := geometry.Box{SolidID: 2, Min: [3]float64{0, 0, 0}, Max: [3]float64{1, 1, 1}}
	finder := geometry.Boxes{box}

	It("reports a crossing entering through a face", func() {
		hits := finder.Collisions([3]float64{0.5, 0.5, 2}, [3]float64{0.5, 0.5, 0.5})
		Expect(hits).To(HaveLen(1))
		Expect(hits[0].SolidID).To(Equal(2))
		Expect(hits[0].S).To(BeNumerically("~", 2.0/3.0, 1e-12))
		Expect(hits[0].Normal).To(Equal([3]float64{0, 0, 1}))
	})

	It("reports entry and exit for a segment passing through", func() {
		hits := finder.Collisions([3]float64{-1, 0.5, 0.5}, [3]float64{2, 0.5, 0.5})
		Expect(hits).To(HaveLen(2))
	})

	It("ignores crossings at the exact segment start", func() {
		hits := finder.Collisions([3]float64{0.5, 0.5, 1}, [3]float64{0.5, 0.5, 1.5})
		Expect(hits).To(BeEmpty())
	})

	It("misses segments outside the face extent", func() {
		hits := finder.Collisions([3]float64{5, 5, 2}, [3]float64{5, 5, -1})
		Expect(hits).To(BeEmpty())
	})

	It("returns the union bounds", func() {
		bs := geometry.Boxes{
			{SolidID: 2, Min: [3]float64{0, 0, 0}, Max: [3]float64{1, 1, 1}},
			{SolidID: 3, Min: [3]float64{-2, 0, 0}, Max: [3]float64{0, 1, 3}},
		}
		min, max := bs.Bounds()
		Expect(min).To(Equal([3]float64{-2, 0, 0}))
		Expect(max).To(Equal([3]float64{1, 1, 3}))
	})
})

var _ = Describe("ParseBoxMesh", func() {
	It("parses a box spec", func() {
		b, err := geometry.ParseBoxMesh(4, "box:-1,-2,-3,1,2,3")
		Expect(err).NotTo(HaveOccurred())
		Expect(b.SolidID).To(Equal(4))
		Expect(b.Min).To(Equal([3]float64{-1, -2, -3}))
		Expect(b.Max).To(Equal([3]float64{1, 2, 3}))
	})

	It("rejects non-box specs, wrong arity and empty boxes", func() {
		_, err := geometry.ParseBoxMesh(4, "mesh.stl")
		Expect(err).To(HaveOccurred())
		_, err = geometry.ParseBoxMesh(4, "box:1,2,3")
		Expect(err).To(HaveOccurred())
		_, err = geometry.ParseBoxMesh(4, "box:0,0,0,0,1,1")
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Geometry", func() {
	var geo *geometry.Geometry

	world := geometry.Solid{ID: 2, Name: "world", Material: geometry.Material{Name: "wall"}}
	gate := geometry.Solid{
		ID: 3, Name: "gate", Material: geometry.Material{Name: "absorber"},
		IgnoreTimes: []geometry.TimeWindow{{Start: 10, End: 20}},
	}

	BeforeEach(func() {
		finder := geometry.Boxes{
			{SolidID: 2, Min: [3]float64{-1, -1, -1}, Max: [3]float64{1, 1, 1}},
			{SolidID: 3, Min: [3]float64{-0.2, -0.2, -0.2}, Max: [3]float64{0.2, 0.2, 0.2}},
		}
		var err error
		geo, err = geometry.New(vacuum(), []geometry.Solid{world, gate}, finder)
		Expect(err).NotTo(HaveOccurred())
	})

	It("rejects duplicate and reserved ids", func() {
		_, err := geometry.New(vacuum(), []geometry.Solid{world, world}, geometry.Boxes{})
		Expect(err).To(MatchError(ContainSubstring("unique")))

		bad := geometry.Solid{ID: geometry.DefaultSolidID, Name: "bad"}
		_, err = geometry.New(vacuum(), []geometry.Solid{bad}, geometry.Boxes{})
		Expect(err).To(HaveOccurred())
	})

	It("rejects materials mixing both surface models", func() {
		bad := geometry.Solid{ID: 5, Name: "bad", Material: geometry.Material{
			Name: "m", DiffProb: 0.1, RMSRoughness: 1e-9,
		}}
		_, err := geometry.New(vacuum(), []geometry.Solid{bad}, geometry.Boxes{})
		Expect(err).To(HaveOccurred())
	})

	It("looks solids up by id and name", func() {
		s, err := geo.Solid(3)
		Expect(err).NotTo(HaveOccurred())
		Expect(s.Name).To(Equal("gate"))

		s, err = geo.SolidByName("world")
		Expect(err).NotTo(HaveOccurred())
		Expect(s.ID).To(Equal(2))

		_, err = geo.Solid(99)
		Expect(err).To(HaveOccurred())
	})

	It("orders crossings by position along the segment", func() {
		crossings, err := geo.FindCrossings(0, [3]float64{0, 0, 2}, 1, [3]float64{0, 0, 0})
		Expect(err).NotTo(HaveOccurred())
		Expect(crossings).To(HaveLen(2))
		Expect(crossings[0].Solid.ID).To(Equal(2))
		Expect(crossings[1].Solid.ID).To(Equal(3))
		Expect(crossings[0].S).To(BeNumerically("<", crossings[1].S))
	})

	It("flags crossings inside ignore windows", func() {
		// the gate ignores interactions during [10, 20)
		crossings, err := geo.FindCrossings(14, [3]float64{0, 0, 0.3}, 15, [3]float64{0, 0, 0})
		Expect(err).NotTo(HaveOccurred())
		Expect(crossings).To(HaveLen(1))
		Expect(crossings[0].Solid.ID).To(Equal(3))
		Expect(crossings[0].Ignored).To(BeTrue())

		crossings, err = geo.FindCrossings(0, [3]float64{0, 0, 0.3}, 1, [3]float64{0, 0, 0})
		Expect(err).NotTo(HaveOccurred())
		Expect(crossings[0].Ignored).To(BeFalse())
	})

	It("classifies containing solids by ray parity", func() {
		inside := geo.SolidsContaining(0, [3]float64{0, 0, 0})
		ids := make([]int, len(inside))
		for i, c := range inside {
			ids[i] = c.Solid.ID
		}
		Expect(ids).To(ConsistOf(geometry.DefaultSolidID, 2, 3))

		between := geo.SolidsContaining(0, [3]float64{0, 0, 0.5})
		Expect(between).To(HaveLen(2))

		outside := geo.SolidsContaining(0, [3]float64{0, 0, 5})
		Expect(outside).To(HaveLen(1))
		Expect(outside[0].Solid.ID).To(Equal(geometry.DefaultSolidID))
	})

	It("tests the bounding volume", func() {
		Expect(geo.BoundingVolumeContains([3]float64{0, 0, 0})).To(BeTrue())
		Expect(geo.BoundingVolumeContains([3]float64{0, 0, 1.5})).To(BeFalse())
	})
})

var _ = Describe("LoadDescription", func() {
	write := func(dir, name, content string) string {
		path := filepath.Join(dir, name)
		Expect(os.WriteFile(path, []byte(content), 0644)).To(Succeed())
		return path
	}

	It("loads solids, materials and ignore windows", func() {
		dir := GinkgoT().TempDir()
		path := write(dir, "geometry.yaml", `
materials:
  - name: vacuum
  - name: steel
    fermi_real: 183
    fermi_imag: 0.0852
    diff_prob: 0.1
solids:
  - id: 1
    material: vacuum
  - id: 2
    name: chamber
    mesh: "box:-1,-1,-1,1,1,1"
    material: steel
    ignore_times: ["0-5", "100-200"]
`)
		def, solids, meshes, err := geometry.LoadDescription(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(def.ID).To(Equal(geometry.DefaultSolidID))
		Expect(solids).To(HaveLen(1))
		Expect(solids[0].Name).To(Equal("chamber"))
		Expect(solids[0].Material.FermiReal).To(Equal(183.0))
		Expect(solids[0].IgnoreTimes).To(HaveLen(2))
		Expect(solids[0].Ignored(3)).To(BeTrue())
		Expect(solids[0].Ignored(50)).To(BeFalse())
		Expect(meshes).To(HaveKeyWithValue(2, "box:-1,-1,-1,1,1,1"))
	})

	It("resolves a separate materials file", func() {
		dir := GinkgoT().TempDir()
		write(dir, "materials.yaml", `
materials:
  - name: vacuum
  - name: copper
    fermi_real: 170.7
`)
		path := write(dir, "geometry.yaml", `
materials_file: materials.yaml
solids:
  - id: 1
    material: vacuum
  - id: 2
    name: pipe
    mesh: "box:0,0,0,1,1,1"
    material: copper
`)
		_, solids, _, err := geometry.LoadDescription(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(solids[0].Material.FermiReal).To(Equal(170.7))
	})

	It("rejects unknown materials, bad windows and a missing default", func() {
		dir := GinkgoT().TempDir()

		path := write(dir, "nomat.yaml", `
solids:
  - id: 1
    material: missing
`)
		_, _, _, err := geometry.LoadDescription(path)
		Expect(err).To(MatchError(ContainSubstring("not defined")))

		path = write(dir, "badwin.yaml", `
materials: [{name: vacuum}]
solids:
  - id: 1
    material: vacuum
  - id: 2
    mesh: "box:0,0,0,1,1,1"
    material: vacuum
    ignore_times: ["5-2"]
`)
		_, _, _, err = geometry.LoadDescription(path)
		Expect(err).To(HaveOccurred())

		path = write(dir, "nodefault.yaml", `
materials: [{name: vacuum}]
solids:
  - id: 2
    mesh: "box:0,0,0,1,1,1"
    material: vacuum
`)
		_, _, _, err = geometry.LoadDescription(path)
		Expect(err).To(MatchError(ContainSubstring("default solid")))
	})
})
