// Package output persists trajectory results: end-state, boundary-hit and
// track-sample rows fanned out to CSV and SQLite sinks, plus JSON run
// metadata.
package output

import (
	"sync"

	"github.com/mseidel/trak/internal/track"
)

// EndRecord is one finished trajectory. Secondary distinguishes the rows of
// a decay chain sharing one particle number: 0 is the primary, decay products
// count up from 1.
type EndRecord struct {
	JobID      string
	ParticleNo int
	Secondary  int
	Species    string
	TStart     float64
	TEnd       float64

	XStart, YStart, ZStart    float64
	VXStart, VYStart, VZStart float64
	XEnd, YEnd, ZEnd          float64
	VXEnd, VYEnd, VZEnd       float64

	PolStart int
	PolEnd   int

	HStart float64
	EStart float64
	HEnd   float64
	EEnd   float64
	HMax   float64

	Fate       string
	AbsorbedIn int

	NSpinflip  int
	NHit       int
	NStep      int
	PathLength float64

	IntTime  float64 // seconds of wall time
	GeomTime float64 // seconds of wall time
}

// NewEndRecord flattens a finished trajectory record into an output row.
func NewEndRecord(jobID string, rec *track.Record) EndRecord {
	return EndRecord{
		JobID:      jobID,
		ParticleNo: rec.ParticleNo,
		Secondary:  rec.Secondary,
		Species:    rec.Species.Name(),
		TStart:     rec.TStart, TEnd: rec.TEnd,
		XStart: rec.YStart[0], YStart: rec.YStart[1], ZStart: rec.YStart[2],
		VXStart: rec.YStart[3], VYStart: rec.YStart[4], VZStart: rec.YStart[5],
		XEnd: rec.YEnd[0], YEnd: rec.YEnd[1], ZEnd: rec.YEnd[2],
		VXEnd: rec.YEnd[3], VYEnd: rec.YEnd[4], VZEnd: rec.YEnd[5],
		PolStart: rec.PolStart, PolEnd: rec.PolEnd,
		HStart: rec.HStart, EStart: rec.EStart,
		HEnd: rec.HEnd, EEnd: rec.EEnd, HMax: rec.HMax,
		Fate:       rec.Fate.String(),
		AbsorbedIn: rec.AbsorbedIn,
		NSpinflip:  rec.NSpinflip, NHit: rec.NHit, NStep: rec.NStep,
		PathLength: rec.PathLength,
		IntTime:    rec.IntTime.Seconds(),
		GeomTime:   rec.GeomTime.Seconds(),
	}
}

// HitRecord is one species boundary interaction.
type HitRecord struct {
	JobID      string
	ParticleNo int
	Species    string
	T          float64

	X1, Y1, Z1    float64
	VX1, VY1, VZ1 float64
	Pol1          int
	X2, Y2, Z2    float64
	VX2, VY2, VZ2 float64
	Pol2          int

	NX, NY, NZ float64
	LeavingID  int
	EnteringID int
}

// TrackRow is one sampled trajectory point (also used for snapshots).
type TrackRow struct {
	JobID      string
	ParticleNo int
	Species    string
	T          float64

	X, Y, Z    float64
	VX, VY, VZ float64
	Pol        int
	HTotal     float64
	EKin       float64
}

// Sink persists output rows. Implementations need not be safe for concurrent
// use; the Recorder serializes calls.
type Sink interface {
	End(EndRecord) error
	Hit(HitRecord) error
	Track(TrackRow) error
	Snapshot(TrackRow) error
	Close() error
}

// Recorder fans trajectory events out to the configured sinks. It implements
// track.Logger and serializes writes from concurrent workers.
type Recorder struct {
	jobID string
	mu    sync.Mutex
	sinks []Sink

	fates map[string]int
}

// NewRecorder creates a recorder tagging every row with jobID.
func NewRecorder(jobID string, sinks ...Sink) *Recorder {
	return &Recorder{jobID: jobID, sinks: sinks, fates: make(map[string]int)}
}

// End persists the end-state row of a finished trajectory.
func (r *Recorder) End(rec *track.Record) error {
	row := NewEndRecord(r.jobID, rec)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fates[row.Fate]++
	for _, s := range r.sinks {
		if err := s.End(row); err != nil {
			return err
		}
	}
	return nil
}

// Hit implements track.Logger.
func (r *Recorder) Hit(rec *track.Record, t float64, y1, y2 []float64, pol1, pol2 int, normal [3]float64, leavingID, enteringID int) error {
	row := HitRecord{
		JobID: r.jobID, ParticleNo: rec.ParticleNo, Species: rec.Species.Name(), T: t,
		X1: y1[0], Y1: y1[1], Z1: y1[2], VX1: y1[3], VY1: y1[4], VZ1: y1[5], Pol1: pol1,
		X2: y2[0], Y2: y2[1], Z2: y2[2], VX2: y2[3], VY2: y2[4], VZ2: y2[5], Pol2: pol2,
		NX: normal[0], NY: normal[1], NZ: normal[2],
		LeavingID: leavingID, EnteringID: enteringID,
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sinks {
		if err := s.Hit(row); err != nil {
			return err
		}
	}
	return nil
}

// TrackPoint implements track.Logger.
func (r *Recorder) TrackPoint(rec *track.Record, t float64, y []float64, pol int, hTotal, eKin float64) error {
	row := trackRow(r.jobID, rec, t, y, pol, hTotal, eKin)
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sinks {
		if err := s.Track(row); err != nil {
			return err
		}
	}
	return nil
}

// Snapshot implements track.Logger.
func (r *Recorder) Snapshot(rec *track.Record, t float64, y []float64, pol int, hTotal, eKin float64) error {
	row := trackRow(r.jobID, rec, t, y, pol, hTotal, eKin)
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sinks {
		if err := s.Snapshot(row); err != nil {
			return err
		}
	}
	return nil
}

// Fates returns the tally of terminal fates seen so far.
func (r *Recorder) Fates() map[string]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]int, len(r.fates))
	for k, v := range r.fates {
		out[k] = v
	}
	return out
}

// Close closes all sinks, returning the first error.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var first error
	for _, s := range r.sinks {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func trackRow(jobID string, rec *track.Record, t float64, y []float64, pol int, hTotal, eKin float64) TrackRow {
	return TrackRow{
		JobID: jobID, ParticleNo: rec.ParticleNo, Species: rec.Species.Name(), T: t,
		X: y[0], Y: y[1], Z: y[2], VX: y[3], VY: y[4], VZ: y[5],
		Pol: pol, HTotal: hTotal, EKin: eKin,
	}
}
