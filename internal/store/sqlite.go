package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/ssimranjit302/Bayesian-ML-Booking-System/internal/model"
)

// maxUpdateAttempts bounds the optimistic retry loop in Update.
const maxUpdateAttempts = 3

var beliefColumns = []string{
	"service", "hour", "alpha", "beta", "p_hat", "n_total", "n_full", "prior", "version",
}

// SQLiteStore implements Store using SQLite. Every record carries a version
// stamp and updates are compare-and-swap on it, so concurrent processes
// cannot silently drop each other's observations.
type SQLiteStore struct {
	db      *sql.DB
	entropy *ulid.MonotonicEntropy
}

// NewSQLiteStore opens or creates a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &SQLiteStore{
		db:      db,
		entropy: ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) newID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS beliefs (
		service    TEXT NOT NULL,
		hour       INTEGER NOT NULL,
		alpha      REAL NOT NULL,
		beta       REAL NOT NULL,
		p_hat      REAL,
		n_total    INTEGER NOT NULL DEFAULT 0,
		n_full     INTEGER NOT NULL DEFAULT 0,
		prior      TEXT NOT NULL,
		version    INTEGER NOT NULL DEFAULT 1,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (service, hour)
	);

	CREATE TABLE IF NOT EXISTS observations (
		id         TEXT PRIMARY KEY,
		service    TEXT NOT NULL,
		hour       INTEGER NOT NULL,
		is_full    INTEGER NOT NULL,
		source     TEXT NOT NULL,
		p_hat      REAL NOT NULL,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_observations_slot ON observations(service, hour);
	CREATE INDEX IF NOT EXISTS idx_observations_source ON observations(source);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) Get(ctx context.Context, key model.SlotKey) (*model.BeliefRecord, error) {
	query, args, err := sq.Select(beliefColumns...).
		From("beliefs").
		Where(sq.Eq{"service": key.Service, "hour": key.Hour}).
		ToSql()
	if err != nil {
		return nil, err
	}
	rec, err := scanBelief(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &UnknownSlotError{Key: key}
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return rec, nil
}

func (s *SQLiteStore) Update(ctx context.Context, obs model.Observation) (float64, error) {
	source := obs.Source
	if source == "" {
		source = model.SourceObserved
	}
	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		rec, err := s.Get(ctx, obs.Key)
		if err != nil {
			return 0, err
		}
		prev := rec.Version
		pHat := rec.Apply(obs.IsFull)

		ok, err := s.compareAndSwap(ctx, rec, prev, obs.IsFull, source)
		if err != nil {
			return 0, err
		}
		if ok {
			return pHat, nil
		}
	}
	return 0, fmt.Errorf("%w: %s after %d attempts", ErrConflict, obs.Key, maxUpdateAttempts)
}

// compareAndSwap writes rec if the stored version still equals prev and logs
// the observation in the same transaction.
func (s *SQLiteStore) compareAndSwap(ctx context.Context, rec *model.BeliefRecord, prev int64, isFull bool, source model.Source) (bool, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	query, args, err := sq.Update("beliefs").
		Set("alpha", rec.Alpha).
		Set("beta", rec.Beta).
		Set("p_hat", rec.PHat).
		Set("n_total", rec.NTotal).
		Set("n_full", rec.NFull).
		Set("version", prev+1).
		Set("updated_at", now).
		Where(sq.Eq{"service": rec.Service, "hour": rec.Hour, "version": prev}).
		ToSql()
	if err != nil {
		return false, err
	}
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("update belief: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}

	query, args, err = sq.Insert("observations").
		Columns("id", "service", "hour", "is_full", "source", "p_hat", "created_at").
		Values(s.newID(), rec.Service, rec.Hour, boolInt(isFull), string(source), *rec.PHat, now).
		ToSql()
	if err != nil {
		return false, err
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return false, fmt.Errorf("log observation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}
	rec.Version = prev + 1
	return true, nil
}

func (s *SQLiteStore) Replace(ctx context.Context, recs []*model.BeliefRecord) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM beliefs`); err != nil {
		return fmt.Errorf("clear beliefs: %w", err)
	}
	// The log describes the counters being discarded.
	if _, err := tx.ExecContext(ctx, `DELETE FROM observations`); err != nil {
		return fmt.Errorf("clear observations: %w", err)
	}
	for _, r := range recs {
		if err := r.Validate(); err != nil {
			return &FormatError{Source: "replace", Key: r.Key().String(), Err: err}
		}
		prior, err := json.Marshal(r.Prior)
		if err != nil {
			return err
		}
		query, args, err := sq.Insert("beliefs").
			Columns(append(beliefColumns, "updated_at")...).
			Values(r.Service, r.Hour, r.Alpha, r.Beta, r.PHat, r.NTotal, r.NFull, string(prior), 1, now).
			ToSql()
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert %s: %w", r.Key(), err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) List(ctx context.Context, p ListParams) ([]*model.BeliefRecord, error) {
	qb := sq.Select(beliefColumns...).From("beliefs").OrderBy("service", "hour")
	if p.Service != "" {
		qb = qb.Where(sq.Eq{"service": p.Service})
	}
	if p.Limit > 0 {
		qb = qb.Limit(uint64(p.Limit))
	}
	query, args, err := qb.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []*model.BeliefRecord
	for rows.Next() {
		r, err := scanBelief(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, r)
	}
	return recs, rows.Err()
}

// Save is a no-op: every Update and Replace commits on its own.
func (s *SQLiteStore) Save(ctx context.Context) error {
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ObservationEntry is one row of the observation log.
type ObservationEntry struct {
	ID        string       `json:"id"`
	Service   string       `json:"service"`
	Hour      int          `json:"hour"`
	IsFull    bool         `json:"is_full"`
	Source    model.Source `json:"source"`
	PHat      float64      `json:"p_hat"`
	CreatedAt time.Time    `json:"created_at"`
}

// History returns the logged observations for key, newest first.
func (s *SQLiteStore) History(ctx context.Context, key model.SlotKey, limit int) ([]ObservationEntry, error) {
	qb := sq.Select("id", "service", "hour", "is_full", "source", "p_hat", "created_at").
		From("observations").
		Where(sq.Eq{"service": key.Service, "hour": key.Hour}).
		OrderBy("id DESC")
	if limit > 0 {
		qb = qb.Limit(uint64(limit))
	}
	query, args, err := qb.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ObservationEntry
	for rows.Next() {
		var e ObservationEntry
		var isFull int
		var source, createdAt string
		if err := rows.Scan(&e.ID, &e.Service, &e.Hour, &isFull, &source, &e.PHat, &createdAt); err != nil {
			return nil, err
		}
		e.IsFull = isFull != 0
		e.Source = model.Source(source)
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		out = append(out, e)
	}
	return out, rows.Err()
}

// ObservationCounts returns the number of logged observations per source.
func (s *SQLiteStore) ObservationCounts(ctx context.Context) (map[model.Source]int, error) {
	query, args, err := sq.Select("source", "COUNT(*)").
		From("observations").
		GroupBy("source").
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[model.Source]int{}
	for rows.Next() {
		var src string
		var n int
		if err := rows.Scan(&src, &n); err != nil {
			return nil, err
		}
		counts[model.Source(src)] = n
	}
	return counts, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanBelief(row scanner) (*model.BeliefRecord, error) {
	var r model.BeliefRecord
	var pHat sql.NullFloat64
	var prior string

	err := row.Scan(&r.Service, &r.Hour, &r.Alpha, &r.Beta, &pHat, &r.NTotal, &r.NFull, &prior, &r.Version)
	if err != nil {
		return nil, err
	}
	if pHat.Valid {
		v := pHat.Float64
		r.PHat = &v
	}
	if err := json.Unmarshal([]byte(prior), &r.Prior); err != nil {
		return nil, &FormatError{Source: "sqlite", Key: r.Key().String(), Err: err}
	}
	return &r, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
