package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Store manages run directories under a base directory: one directory per
// run holding metadata.json and the CSV row files.
type Store struct {
	baseDir string
}

func NewStore(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

// RunMetadata describes one ensemble run.
type RunMetadata struct {
	ID        string         `json:"id"` // job uuid
	RunDir    string         `json:"run_dir"`
	Timestamp time.Time      `json:"timestamp"`
	Species   string         `json:"species"`
	Particles int            `json:"particles"`
	Workers   int            `json:"workers"`
	Seed      int64          `json:"seed"`
	TMax      float64        `json:"tmax"`
	Geometry  string         `json:"geometry"`
	Fates     map[string]int `json:"fates,omitempty"`
}

// Run is an open run directory accepting rows. It implements Sink.
type Run struct {
	dir  string
	meta RunMetadata

	files   []*os.File
	ends    *csv.Writer
	hits    *csv.Writer
	track   *csv.Writer
	snaps   *csv.Writer
	writers []*csv.Writer
}

// Open creates the run directory, writes the initial metadata and opens the
// row files.
func (s *Store) Open(meta RunMetadata) (*Run, error) {
	if err := s.Init(); err != nil {
		return nil, err
	}
	runID := fmt.Sprintf("%s_%d", meta.Species, time.Now().Unix())
	meta.RunDir = runID
	dir := filepath.Join(s.baseDir, runID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	r := &Run{dir: dir, meta: meta}
	if err := r.writeMeta(); err != nil {
		return nil, err
	}

	open := func(name string, header []string) (*csv.Writer, error) {
		f, err := os.Create(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		r.files = append(r.files, f)
		w := csv.NewWriter(f)
		r.writers = append(r.writers, w)
		return w, w.Write(header)
	}

	var err error
	if r.ends, err = open("ends.csv", endHeader); err != nil {
		return nil, err
	}
	if r.hits, err = open("hits.csv", hitHeader); err != nil {
		return nil, err
	}
	if r.track, err = open("track.csv", trackHeader); err != nil {
		return nil, err
	}
	if r.snaps, err = open("snapshots.csv", trackHeader); err != nil {
		return nil, err
	}
	return r, nil
}

// Dir returns the run directory path.
func (r *Run) Dir() string { return r.dir }

// RunID returns the run directory name.
func (r *Run) RunID() string { return r.meta.RunDir }

var endHeader = []string{
	"job_id", "particle", "secondary", "species", "t_start", "t_end",
	"x_start", "y_start", "z_start", "vx_start", "vy_start", "vz_start",
	"x_end", "y_end", "z_end", "vx_end", "vy_end", "vz_end",
	"pol_start", "pol_end", "h_start", "e_start", "h_end", "e_end", "h_max",
	"fate", "absorbed_in", "n_spinflip", "n_hit", "n_step", "path_length",
	"int_time", "geom_time",
}

var hitHeader = []string{
	"job_id", "particle", "species", "t",
	"x1", "y1", "z1", "vx1", "vy1", "vz1", "pol1",
	"x2", "y2", "z2", "vx2", "vy2", "vz2", "pol2",
	"nx", "ny", "nz", "leaving", "entering",
}

var trackHeader = []string{
	"job_id", "particle", "species", "t",
	"x", "y", "z", "vx", "vy", "vz", "pol", "h_total", "e_kin",
}

func (r *Run) End(e EndRecord) error {
	return r.ends.Write([]string{
		e.JobID, itoa(e.ParticleNo), itoa(e.Secondary), e.Species, ftoa(e.TStart), ftoa(e.TEnd),
		ftoa(e.XStart), ftoa(e.YStart), ftoa(e.ZStart),
		ftoa(e.VXStart), ftoa(e.VYStart), ftoa(e.VZStart),
		ftoa(e.XEnd), ftoa(e.YEnd), ftoa(e.ZEnd),
		ftoa(e.VXEnd), ftoa(e.VYEnd), ftoa(e.VZEnd),
		itoa(e.PolStart), itoa(e.PolEnd),
		ftoa(e.HStart), ftoa(e.EStart), ftoa(e.HEnd), ftoa(e.EEnd), ftoa(e.HMax),
		e.Fate, itoa(e.AbsorbedIn),
		itoa(e.NSpinflip), itoa(e.NHit), itoa(e.NStep), ftoa(e.PathLength),
		ftoa(e.IntTime), ftoa(e.GeomTime),
	})
}

func (r *Run) Hit(h HitRecord) error {
	return r.hits.Write([]string{
		h.JobID, itoa(h.ParticleNo), h.Species, ftoa(h.T),
		ftoa(h.X1), ftoa(h.Y1), ftoa(h.Z1), ftoa(h.VX1), ftoa(h.VY1), ftoa(h.VZ1), itoa(h.Pol1),
		ftoa(h.X2), ftoa(h.Y2), ftoa(h.Z2), ftoa(h.VX2), ftoa(h.VY2), ftoa(h.VZ2), itoa(h.Pol2),
		ftoa(h.NX), ftoa(h.NY), ftoa(h.NZ), itoa(h.LeavingID), itoa(h.EnteringID),
	})
}

func (r *Run) Track(p TrackRow) error    { return r.track.Write(trackFields(p)) }
func (r *Run) Snapshot(p TrackRow) error { return r.snaps.Write(trackFields(p)) }

func trackFields(p TrackRow) []string {
	return []string{
		p.JobID, itoa(p.ParticleNo), p.Species, ftoa(p.T),
		ftoa(p.X), ftoa(p.Y), ftoa(p.Z), ftoa(p.VX), ftoa(p.VY), ftoa(p.VZ),
		itoa(p.Pol), ftoa(p.HTotal), ftoa(p.EKin),
	}
}

// SetFates stores the fate tally written to metadata.json on Close.
func (r *Run) SetFates(fates map[string]int) { r.meta.Fates = fates }

func (r *Run) Close() error {
	var first error
	for _, w := range r.writers {
		w.Flush()
		if err := w.Error(); err != nil && first == nil {
			first = err
		}
	}
	for _, f := range r.files {
		if err := f.Close(); err != nil && first == nil {
			first = err
		}
	}
	if err := r.writeMeta(); err != nil && first == nil {
		first = err
	}
	return first
}

func (r *Run) writeMeta() error {
	f, err := os.Create(filepath.Join(r.dir, "metadata.json"))
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(r.meta)
}

// List returns the metadata of all runs under the base directory.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.baseDir, entry.Name(), "metadata.json"))
		if err != nil {
			continue
		}
		var meta RunMetadata
		if err := json.Unmarshal(data, &meta); err != nil {
			continue
		}
		runs = append(runs, meta)
	}
	return runs, nil
}

// LoadTrack reads all track rows of a run, optionally filtered by particle
// number (negative means all).
func (s *Store) LoadTrack(runID string, particle int) ([]TrackRow, error) {
	f, err := os.Open(filepath.Join(s.baseDir, runID, "track.csv"))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rd := csv.NewReader(f)
	records, err := rd.ReadAll()
	if err != nil {
		return nil, err
	}

	rows := make([]TrackRow, 0, len(records))
	for i := 1; i < len(records); i++ {
		rec := records[i]
		if len(rec) < len(trackHeader) {
			continue
		}
		no, err := strconv.Atoi(rec[1])
		if err != nil || (particle >= 0 && no != particle) {
			continue
		}
		rows = append(rows, TrackRow{
			JobID: rec[0], ParticleNo: no, Species: rec[2],
			T: atof(rec[3]),
			X: atof(rec[4]), Y: atof(rec[5]), Z: atof(rec[6]),
			VX: atof(rec[7]), VY: atof(rec[8]), VZ: atof(rec[9]),
			Pol:    int(atof(rec[10])),
			HTotal: atof(rec[11]), EKin: atof(rec[12]),
		})
	}
	return rows, nil
}

func ftoa(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
func itoa(v int) string     { return strconv.Itoa(v) }

func atof(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}
