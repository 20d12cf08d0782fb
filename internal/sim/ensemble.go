package sim

import (
	"context"
	"math"
	"sync"

	"github.com/mseidel/trak/internal/rng"
	"github.com/mseidel/trak/internal/track"
)

// Ensemble integrates N independent trajectories of one species across a
// bounded worker pool. Particle i uses seed SeedStart+i, so results are
// reproducible regardless of worker count.
type Ensemble struct {
	Driver    *track.Driver
	Source    Source
	Particles int
	Workers   int
	SeedStart int64
	MaxTraj   float64 // trajectory length budget per particle [m], 0 = unlimited

	// Progress, when set, is called after each finished trajectory with the
	// number done so far. It must be safe for concurrent calls.
	Progress func(done int, rec *track.Record)

	// End, when set, is called with each finalized record (primary and
	// secondary) before Progress.
	End func(rec *track.Record) error
}

// Run integrates all particles and returns the primary records indexed by
// particle number. Cancellation via ctx ends in-flight trajectories with the
// budget-exceeded fate; already-finished records are kept.
func (e *Ensemble) Run(ctx context.Context) ([]*track.Record, error) {
	workers := e.Workers
	if workers < 1 {
		workers = 1
	}
	maxTraj := e.MaxTraj
	if maxTraj <= 0 {
		maxTraj = math.Inf(1)
	}

	records := make([]*track.Record, e.Particles)
	errs := make([]error, e.Particles)
	jobs := make(chan int)

	var done int
	var doneMu sync.Mutex

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				src := rng.New(e.SeedStart + int64(i))
				rec := e.spawn(src, i, maxTraj)
				records[i] = rec
				errs[i] = e.integrate(ctx, rec, src, maxTraj)

				doneMu.Lock()
				done++
				n := done
				doneMu.Unlock()
				if e.Progress != nil {
					e.Progress(n, rec)
				}
			}
		}()
	}

	for i := 0; i < e.Particles; i++ {
		select {
		case jobs <- i:
		case <-ctx.Done():
			i = e.Particles
		}
	}
	close(jobs)
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return records, err
		}
	}
	return records, nil
}

func (e *Ensemble) spawn(src *rng.Source, i int, maxTraj float64) *track.Record {
	sp := e.Driver.Species
	t, pos, v, pol := e.Source.Sample(src, sp)
	return track.NewRecord(sp, i, t, lifetime(src, sp.MeanLifetime()), maxTraj, pos, v, pol)
}

// integrate runs one primary trajectory and then any decay secondaries it
// produced, reusing the primary's random source and particle number.
func (e *Ensemble) integrate(ctx context.Context, rec *track.Record, src *rng.Source, maxTraj float64) error {
	e.Driver.Integrate(ctx, rec, src)
	if e.End != nil {
		if err := e.End(rec); err != nil {
			return err
		}
	}

	for k, sec := range rec.Secondaries {
		d := *e.Driver
		d.Species = sec.Species
		pos := [3]float64{sec.State[0], sec.State[1], sec.State[2]}
		v := [3]float64{sec.State[3], sec.State[4], sec.State[5]}
		srec := track.NewRecord(sec.Species, rec.ParticleNo, sec.Time,
			lifetime(src, sec.Species.MeanLifetime()), maxTraj, pos, v, sec.Polarization)
		srec.Secondary = k + 1
		d.Integrate(ctx, srec, src)
		if e.End != nil {
			if err := e.End(srec); err != nil {
				return err
			}
		}
	}
	return nil
}

// lifetime dices an exponential life-time budget; a zero mean marks a stable
// particle with an unlimited budget.
func lifetime(src *rng.Source, mean float64) float64 {
	if mean <= 0 {
		return math.Inf(1)
	}
	return src.Exp(mean)
}
