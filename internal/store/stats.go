package store

import (
	"context"
	"os"

	"github.com/ssimranjit302/Bayesian-ML-Booking-System/internal/model"
)

// Stats holds store statistics.
type Stats struct {
	Path         string         `json:"path"`
	SizeBytes    int64          `json:"size_bytes"`
	Records      int            `json:"records"`
	WeakPriors   int            `json:"weak_priors"`
	Observations int            `json:"observations"`
	BySource     map[string]int `json:"observations_by_source,omitempty"`
	Services     []ServiceStats `json:"services"`
}

// ServiceStats holds per-service aggregates.
type ServiceStats struct {
	Service string  `json:"service"`
	Hours   int     `json:"hours"`
	NTotal  int     `json:"n_total"`
	NFull   int     `json:"n_full"`
	MeanP   float64 `json:"mean_p_full"`
}

type observationCounter interface {
	ObservationCounts(ctx context.Context) (map[model.Source]int, error)
}

// CollectStats summarizes every record in s. path is reported as-is and
// used for the on-disk size.
func CollectStats(ctx context.Context, s Store, path string) (*Stats, error) {
	st := &Stats{Path: path}
	if info, err := os.Stat(path); err == nil {
		st.SizeBytes = info.Size()
	}

	recs, err := s.List(ctx, ListParams{})
	if err != nil {
		return nil, err
	}
	st.Records = len(recs)

	idx := map[string]int{}
	for _, r := range recs {
		if r.PHat == nil {
			st.WeakPriors++
		}
		i, ok := idx[r.Service]
		if !ok {
			i = len(st.Services)
			idx[r.Service] = i
			st.Services = append(st.Services, ServiceStats{Service: r.Service})
		}
		svc := &st.Services[i]
		svc.Hours++
		svc.NTotal += r.NTotal
		svc.NFull += r.NFull
		svc.MeanP += r.Mean()
	}
	for i := range st.Services {
		st.Services[i].MeanP /= float64(st.Services[i].Hours)
	}

	if oc, ok := s.(observationCounter); ok {
		counts, err := oc.ObservationCounts(ctx)
		if err != nil {
			return st, err
		}
		st.BySource = map[string]int{}
		for src, n := range counts {
			st.BySource[string(src)] = n
			st.Observations += n
		}
	}
	return st, nil
}
