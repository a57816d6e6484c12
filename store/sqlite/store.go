// Package sqlite persists line fit results in a SQLite database.
package sqlite

import (
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/cwbudde/algo-spectro/measure/linefit"
	"github.com/cwbudde/algo-spectro/spectro/spectrum"
)

// ErrNotFound is returned by [Store.Get] for an unknown id.
var ErrNotFound = errors.New("sqlite: fit not found")

const timeFormat = time.RFC3339Nano

// Record is one stored fit.
type Record struct {
	ID               int64
	Wavelength       float64
	Species          string
	SpeciesCode      float64
	Strategy         string
	EquivalentWidth  float64
	ChiSquare        float64
	ReducedChiSquare float64
	Converged        bool
	Iterations       int
	FunctionCalls    int
	Theta            linefit.Theta
	Fitted           spectrum.Curve
	CreatedAt        time.Time
}

// Store writes and reads fit records.
type Store struct {
	db         *sql.DB
	insertStmt *sql.Stmt
}

// Open opens or creates the database at path. Use ":memory:" for a
// transient store.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, err
	}
	if err := s.prepareStatements(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS FitTable (
		FitId INTEGER PRIMARY KEY AUTOINCREMENT,
		Wavelength DOUBLE NOT NULL,
		Species TEXT,
		SpeciesCode DOUBLE,
		Strategy TEXT,
		EquivalentWidth DOUBLE,
		ChiSquare DOUBLE,
		ReducedChiSquare DOUBLE,
		Converged BOOL,
		Iterations INTEGER,
		FunctionCalls INTEGER,
		Theta TEXT,
		blobDispersion BLOB,
		blobFitted BLOB,
		CreationDate TEXT
	);

	CREATE INDEX IF NOT EXISTS FitWavelength ON FitTable (Wavelength);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	return nil
}

func (s *Store) prepareStatements() error {
	var err error
	s.insertStmt, err = s.db.Prepare(`
		INSERT INTO FitTable (
			Wavelength, Species, SpeciesCode, Strategy, EquivalentWidth,
			ChiSquare, ReducedChiSquare, Converged, Iterations, FunctionCalls,
			Theta, blobDispersion, blobFitted, CreationDate
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert statement: %w", err)
	}
	return nil
}

// Save stores the fit of tr and returns its id.
func (s *Store) Save(tr *linefit.AtomicTransition, res *linefit.FitResult) (int64, error) {
	theta, err := json.Marshal(res.OptimalTheta)
	if err != nil {
		return 0, fmt.Errorf("failed to encode theta: %w", err)
	}

	var species any
	var code any
	if sp := tr.Species(); sp.Known() {
		species = sp.String()
		code = sp.Code
	}

	out, err := s.insertStmt.Exec(
		tr.Wavelength(),
		species,
		code,
		res.Diagnostics.Strategy,
		res.EquivalentWidth,
		nullable(res.ChiSquare),
		nullable(res.ReducedChiSquare),
		res.Diagnostics.Converged,
		res.Diagnostics.Iterations,
		res.Diagnostics.FunctionCalls,
		string(theta),
		encodeFloat64(res.Spectra.Fitted.Dispersion),
		encodeFloat64(res.Spectra.Fitted.Flux),
		time.Now().UTC().Format(timeFormat),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert fit: %w", err)
	}
	return out.LastInsertId()
}

const selectColumns = `
	FitId, Wavelength, Species, SpeciesCode, Strategy, EquivalentWidth,
	ChiSquare, ReducedChiSquare, Converged, Iterations, FunctionCalls,
	Theta, blobDispersion, blobFitted, CreationDate`

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (Record, error) {
	var (
		r                Record
		species          sql.NullString
		code, chi2, rchi sql.NullFloat64
		theta, created   string
		disp, fitted     []byte
	)
	err := row.Scan(&r.ID, &r.Wavelength, &species, &code, &r.Strategy, &r.EquivalentWidth,
		&chi2, &rchi, &r.Converged, &r.Iterations, &r.FunctionCalls,
		&theta, &disp, &fitted, &created)
	if err != nil {
		return Record{}, err
	}

	r.Species = species.String
	r.SpeciesCode = code.Float64
	r.ChiSquare = nullFloat(chi2)
	r.ReducedChiSquare = nullFloat(rchi)
	if err := json.Unmarshal([]byte(theta), &r.Theta); err != nil {
		return Record{}, fmt.Errorf("failed to decode theta of fit %d: %w", r.ID, err)
	}
	r.Fitted = spectrum.Curve{Dispersion: decodeFloat64(disp), Flux: decodeFloat64(fitted)}
	if r.CreatedAt, err = time.Parse(timeFormat, created); err != nil {
		return Record{}, fmt.Errorf("failed to parse creation date of fit %d: %w", r.ID, err)
	}
	return r, nil
}

// Get returns the record with the given id.
func (s *Store) Get(id int64) (Record, error) {
	row := s.db.QueryRow(`SELECT `+selectColumns+` FROM FitTable WHERE FitId = ?`, id)
	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return r, err
}

// List returns every record with a wavelength in [lo, hi], ordered by
// wavelength.
func (s *Store) List(lo, hi float64) ([]Record, error) {
	rows, err := s.db.Query(`SELECT `+selectColumns+` FROM FitTable
		WHERE Wavelength BETWEEN ? AND ? ORDER BY Wavelength, FitId`, lo, hi)
	if err != nil {
		return nil, fmt.Errorf("failed to query fits: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Close releases the prepared statements and the database.
func (s *Store) Close() error {
	if s.insertStmt != nil {
		s.insertStmt.Close()
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

// nullable maps non-finite values to SQL NULL.
func nullable(v float64) any {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}

func nullFloat(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}

// encodeFloat64 encodes values as a little-endian float64 blob.
func encodeFloat64(values []float64) []byte {
	buf := make([]byte, len(values)*8)
	for i, v := range values {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}
	return buf
}

func decodeFloat64(buf []byte) []float64 {
	out := make([]float64, len(buf)/8)
	for i := range out {
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[i*8:]))
	}
	return out
}
