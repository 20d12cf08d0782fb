package output

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// SQLite is a Sink writing rows into a SQLite database, one table per row
// kind.
type SQLite struct {
	conn *sqlx.DB
}

// OpenSQLite opens or creates the database at path and ensures the schema.
func OpenSQLite(path string) (*SQLite, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &SQLite{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

func (db *SQLite) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS ends (
		job_id TEXT NOT NULL,
		particle_no INTEGER NOT NULL,
		secondary INTEGER NOT NULL DEFAULT 0,
		species TEXT NOT NULL,
		t_start REAL NOT NULL, t_end REAL NOT NULL,
		x_start REAL NOT NULL, y_start REAL NOT NULL, z_start REAL NOT NULL,
		vx_start REAL NOT NULL, vy_start REAL NOT NULL, vz_start REAL NOT NULL,
		x_end REAL NOT NULL, y_end REAL NOT NULL, z_end REAL NOT NULL,
		vx_end REAL NOT NULL, vy_end REAL NOT NULL, vz_end REAL NOT NULL,
		pol_start INTEGER NOT NULL, pol_end INTEGER NOT NULL,
		h_start REAL NOT NULL, e_start REAL NOT NULL,
		h_end REAL NOT NULL, e_end REAL NOT NULL, h_max REAL NOT NULL,
		fate TEXT NOT NULL,
		absorbed_in INTEGER NOT NULL,
		n_spinflip INTEGER NOT NULL, n_hit INTEGER NOT NULL, n_step INTEGER NOT NULL,
		path_length REAL NOT NULL,
		int_time REAL NOT NULL, geom_time REAL NOT NULL,
		PRIMARY KEY (job_id, particle_no, secondary)
	);

	CREATE TABLE IF NOT EXISTS hits (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		job_id TEXT NOT NULL,
		particle_no INTEGER NOT NULL,
		species TEXT NOT NULL,
		t REAL NOT NULL,
		x1 REAL NOT NULL, y1 REAL NOT NULL, z1 REAL NOT NULL,
		vx1 REAL NOT NULL, vy1 REAL NOT NULL, vz1 REAL NOT NULL,
		pol1 INTEGER NOT NULL,
		x2 REAL NOT NULL, y2 REAL NOT NULL, z2 REAL NOT NULL,
		vx2 REAL NOT NULL, vy2 REAL NOT NULL, vz2 REAL NOT NULL,
		pol2 INTEGER NOT NULL,
		nx REAL NOT NULL, ny REAL NOT NULL, nz REAL NOT NULL,
		leaving_id INTEGER NOT NULL, entering_id INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS track (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		job_id TEXT NOT NULL,
		particle_no INTEGER NOT NULL,
		species TEXT NOT NULL,
		t REAL NOT NULL,
		x REAL NOT NULL, y REAL NOT NULL, z REAL NOT NULL,
		vx REAL NOT NULL, vy REAL NOT NULL, vz REAL NOT NULL,
		pol INTEGER NOT NULL,
		h_total REAL NOT NULL, e_kin REAL NOT NULL,
		snapshot INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_hits_particle ON hits (job_id, particle_no);
	CREATE INDEX IF NOT EXISTS idx_track_particle ON track (job_id, particle_no);
	`
	_, err := db.conn.Exec(schema)
	return err
}

func (db *SQLite) End(e EndRecord) error {
	_, err := db.conn.Exec(`INSERT INTO ends VALUES
		(?,?,?,?, ?,?, ?,?,?, ?,?,?, ?,?,?, ?,?,?, ?,?, ?,?,?,?,?, ?, ?, ?,?,?, ?, ?,?)`,
		e.JobID, e.ParticleNo, e.Secondary, e.Species,
		e.TStart, e.TEnd,
		e.XStart, e.YStart, e.ZStart, e.VXStart, e.VYStart, e.VZStart,
		e.XEnd, e.YEnd, e.ZEnd, e.VXEnd, e.VYEnd, e.VZEnd,
		e.PolStart, e.PolEnd,
		e.HStart, e.EStart, e.HEnd, e.EEnd, e.HMax,
		e.Fate, e.AbsorbedIn,
		e.NSpinflip, e.NHit, e.NStep,
		e.PathLength,
		e.IntTime, e.GeomTime)
	if err != nil {
		return fmt.Errorf("insert end record: %w", err)
	}
	return nil
}

func (db *SQLite) Hit(h HitRecord) error {
	_, err := db.conn.Exec(`INSERT INTO hits
		(job_id, particle_no, species, t,
		 x1, y1, z1, vx1, vy1, vz1, pol1,
		 x2, y2, z2, vx2, vy2, vz2, pol2,
		 nx, ny, nz, leaving_id, entering_id)
		VALUES (?,?,?,?, ?,?,?,?,?,?,?, ?,?,?,?,?,?,?, ?,?,?,?,?)`,
		h.JobID, h.ParticleNo, h.Species, h.T,
		h.X1, h.Y1, h.Z1, h.VX1, h.VY1, h.VZ1, h.Pol1,
		h.X2, h.Y2, h.Z2, h.VX2, h.VY2, h.VZ2, h.Pol2,
		h.NX, h.NY, h.NZ, h.LeavingID, h.EnteringID)
	if err != nil {
		return fmt.Errorf("insert hit record: %w", err)
	}
	return nil
}

func (db *SQLite) Track(p TrackRow) error    { return db.insertTrack(p, 0) }
func (db *SQLite) Snapshot(p TrackRow) error { return db.insertTrack(p, 1) }

func (db *SQLite) insertTrack(p TrackRow, snapshot int) error {
	_, err := db.conn.Exec(`INSERT INTO track
		(job_id, particle_no, species, t, x, y, z, vx, vy, vz, pol, h_total, e_kin, snapshot)
		VALUES (?,?,?,?, ?,?,?, ?,?,?, ?, ?,?, ?)`,
		p.JobID, p.ParticleNo, p.Species, p.T,
		p.X, p.Y, p.Z, p.VX, p.VY, p.VZ,
		p.Pol, p.HTotal, p.EKin, snapshot)
	if err != nil {
		return fmt.Errorf("insert track row: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (db *SQLite) Close() error {
	return db.conn.Close()
}
