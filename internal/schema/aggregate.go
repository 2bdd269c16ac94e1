package schema

import (
	"context"
	"fmt"
	"time"

	"github.com/flowmesh/controlplane/internal/apierr"
	"github.com/flowmesh/controlplane/internal/model"
	"github.com/flowmesh/controlplane/internal/store"
)

// Sample is one observed request/response pair, the unit internal/accesslog
// hands to Aggregator.Observe after matching an access-log entry to an
// active learning session.
type Sample struct {
	TeamID        model.TeamID
	Path          string
	HTTPMethod    string
	RequestBody   []byte
	ResponseCode  int
	ResponseBody  []byte
}

// Aggregator folds Samples into store.AggregatedSchemaRepository rows,
// widening the schema in place until a breaking change is observed, at
// which point it forks a new Version row linked via PreviousVersionID —
// the versioning behavior spec.md 4.7 requires for "notify on schema
// drift" without losing the prior learned shape.
type Aggregator struct {
	repo store.AggregatedSchemaRepository
}

func NewAggregator(repo store.AggregatedSchemaRepository) *Aggregator {
	return &Aggregator{repo: repo}
}

// Observe infers a fragment from s and merges it into the current
// AggregatedSchema for (team, path, method), creating the row on first
// sight. A breaking change versions forward; a non-breaking widening
// updates in place.
func (a *Aggregator) Observe(ctx context.Context, s Sample) error {
	reqFragment, err := Infer(s.RequestBody)
	if err != nil {
		return fmt.Errorf("schema: inferring request body: %w", err)
	}
	respFragment, err := Infer(s.ResponseBody)
	if err != nil {
		return fmt.Errorf("schema: inferring response body: %w", err)
	}

	existing, err := a.repo.Get(ctx, s.TeamID, s.Path, s.HTTPMethod)
	if err != nil {
		if !apierr.Is(err, apierr.NotFound) {
			return fmt.Errorf("schema: loading aggregated schema: %w", err)
		}
		existing = nil
	}

	now := time.Now()
	if existing == nil {
		agg := &model.AggregatedSchema{
			ID:              model.NewAggregatedSchemaID(),
			TeamID:          s.TeamID,
			Path:            s.Path,
			HTTPMethod:      s.HTTPMethod,
			RequestSchema:   reqFragment,
			ResponseSchemas: map[int]model.JSONSchema{s.ResponseCode: respFragment},
			SampleCount:     1,
			ConfidenceScore: 0,
			Version:         1,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		return a.repo.Upsert(ctx, agg)
	}

	mergedReq := Merge(existing.RequestSchema, reqFragment)
	breaking := Diff(existing.RequestSchema, mergedReq)

	mergedResponses := make(map[int]model.JSONSchema, len(existing.ResponseSchemas)+1)
	for code, s := range existing.ResponseSchemas {
		mergedResponses[code] = s
	}
	if prevResp, ok := mergedResponses[s.ResponseCode]; ok {
		merged := Merge(prevResp, respFragment)
		breaking = append(breaking, Diff(prevResp, merged)...)
		mergedResponses[s.ResponseCode] = merged
	} else {
		mergedResponses[s.ResponseCode] = respFragment
	}

	next := *existing
	next.RequestSchema = mergedReq
	next.ResponseSchemas = mergedResponses
	next.SampleCount = existing.SampleCount + 1
	next.ConfidenceScore = confidence(next.SampleCount)
	next.UpdatedAt = now

	if len(breaking) > 0 {
		prevID := existing.ID
		next.ID = model.NewAggregatedSchemaID()
		next.Version = existing.Version + 1
		next.PreviousVersionID = &prevID
		next.BreakingChanges = breaking
		next.CreatedAt = now
	}

	return a.repo.Upsert(ctx, &next)
}

// confidence saturates at 1.0 after 100 samples — an arbitrary but
// documented floor past which additional samples stop moving the needle,
// distinct from a LearningSession's own TargetSampleCount-relative
// Progress().
func confidence(sampleCount int) float64 {
	c := float64(sampleCount) / 100
	if c > 1 {
		return 1
	}
	return c
}
