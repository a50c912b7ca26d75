package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/ssimranjit302/Bayesian-ML-Booking-System/internal/model"
)

// Records is the full slot-key to record mapping.
type Records map[model.SlotKey]*model.BeliefRecord

// Sorted returns the records ordered by service then hour.
func (rs Records) Sorted() []*model.BeliefRecord {
	out := make([]*model.BeliefRecord, 0, len(rs))
	for _, r := range rs {
		out = append(out, r)
	}
	sortRecords(out)
	return out
}

func sortRecords(recs []*model.BeliefRecord) {
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].Service != recs[j].Service {
			return recs[i].Service < recs[j].Service
		}
		return recs[i].Hour < recs[j].Hour
	})
}

// Decode parses a belief file: a JSON object keyed by "<service>|<hour>".
// Every record is validated; source names the input in errors.
func Decode(r io.Reader, source string) (Records, error) {
	var raw map[string]*model.BeliefRecord
	dec := json.NewDecoder(r)
	if err := dec.Decode(&raw); err != nil {
		return nil, &FormatError{Source: source, Err: err}
	}
	if raw == nil {
		return nil, &FormatError{Source: source, Err: errors.New("expected a JSON object")}
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return nil, &FormatError{Source: source, Err: errors.New("trailing data after JSON object")}
	}

	out := make(Records, len(raw))
	for k, rec := range raw {
		key, err := model.ParseSlotKey(k)
		if err != nil {
			return nil, &FormatError{Source: source, Key: k, Err: err}
		}
		// "Cryo|09" and "Cryo|9" would otherwise collide on one key.
		if k != key.String() {
			return nil, &FormatError{Source: source, Key: k,
				Err: fmt.Errorf("non-canonical key, want %q", key.String())}
		}
		if _, dup := out[key]; dup {
			return nil, &FormatError{Source: source, Key: k, Err: errors.New("duplicate slot")}
		}
		if rec == nil {
			return nil, &FormatError{Source: source, Key: k, Err: errors.New("null record")}
		}
		if rec.Key() != key {
			return nil, &FormatError{Source: source, Key: k,
				Err: fmt.Errorf("record identifies as %s", rec.Key())}
		}
		if err := rec.Validate(); err != nil {
			return nil, &FormatError{Source: source, Key: k, Err: err}
		}
		out[key] = rec
	}
	return out, nil
}

// Encode writes recs in the belief file format.
func Encode(w io.Writer, recs []*model.BeliefRecord) error {
	raw := make(map[string]*model.BeliefRecord, len(recs))
	for _, r := range recs {
		raw[r.Key().String()] = r
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(raw)
}

// ReadFile loads a belief file.
func ReadFile(path string) (Records, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f, path)
}

// WriteFile rewrites path with recs. The data goes to a temporary file in the
// same directory which is then renamed over path, so readers see either the
// old or the new mapping.
func WriteFile(path string, recs []*model.BeliefRecord) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create store dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := Encode(tmp, recs); err != nil {
		tmp.Close()
		return fmt.Errorf("encode beliefs: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync beliefs: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

// JSONStore keeps the whole mapping in memory and rewrites the belief file
// on Save. It holds an exclusive lock on "<path>.lock" until Close, so only
// one process runs a load-update-save cycle at a time.
type JSONStore struct {
	path    string
	records Records
	lock    *fileLock
}

// OpenJSON locks and loads the belief file at path. A missing file yields an
// empty store.
func OpenJSON(path string) (*JSONStore, error) {
	lock, err := lockJSON(path)
	if err != nil {
		return nil, err
	}

	recs, err := ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		recs = Records{}
	case err != nil:
		lock.release()
		return nil, err
	}
	return &JSONStore{path: path, records: recs, lock: lock}, nil
}

// CreateJSON locks path and starts from an empty mapping without reading the
// current file, which is overwritten on Save. Used for rebuilds, so a corrupt
// belief file can be regenerated.
func CreateJSON(path string) (*JSONStore, error) {
	lock, err := lockJSON(path)
	if err != nil {
		return nil, err
	}
	return &JSONStore{path: path, records: Records{}, lock: lock}, nil
}

func lockJSON(path string) (*fileLock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	return acquireLock(path + ".lock")
}

// Path returns the backing file.
func (s *JSONStore) Path() string { return s.path }

func (s *JSONStore) Get(ctx context.Context, key model.SlotKey) (*model.BeliefRecord, error) {
	rec, ok := s.records[key]
	if !ok {
		return nil, &UnknownSlotError{Key: key}
	}
	return rec.Clone(), nil
}

func (s *JSONStore) Update(ctx context.Context, obs model.Observation) (float64, error) {
	rec, ok := s.records[obs.Key]
	if !ok {
		return 0, &UnknownSlotError{Key: obs.Key}
	}
	return rec.Apply(obs.IsFull), nil
}

func (s *JSONStore) Replace(ctx context.Context, recs []*model.BeliefRecord) error {
	next := make(Records, len(recs))
	for _, r := range recs {
		if err := r.Validate(); err != nil {
			return &FormatError{Source: "replace", Key: r.Key().String(), Err: err}
		}
		next[r.Key()] = r.Clone()
	}
	s.records = next
	return nil
}

func (s *JSONStore) List(ctx context.Context, p ListParams) ([]*model.BeliefRecord, error) {
	var out []*model.BeliefRecord
	for _, r := range s.records.Sorted() {
		if p.Service != "" && r.Service != p.Service {
			continue
		}
		out = append(out, r.Clone())
		if p.Limit > 0 && len(out) == p.Limit {
			break
		}
	}
	return out, nil
}

func (s *JSONStore) Save(ctx context.Context) error {
	return WriteFile(s.path, s.records.Sorted())
}

func (s *JSONStore) Close() error {
	if s.lock == nil {
		return nil
	}
	err := s.lock.release()
	s.lock = nil
	return err
}
