package site

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	serrors "git.home.luguber.info/inful/sitepress/internal/errors"
	"git.home.luguber.info/inful/sitepress/internal/manifest"
)

// ReportFileName is the persisted report below the state directory.
const ReportFileName = "build-report.json"

// Outcome is the typed enumeration of final generation states.
type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeFailed   Outcome = "failed"
	OutcomeCanceled Outcome = "canceled"
)

// EngineCounts summarizes one engine in a report.
type EngineCounts struct {
	Units  int `json:"units"`
	Groups int `json:"groups"`
	Pages  int `json:"pages"`
}

// Report captures the result of a generation pass.
type Report struct {
	SchemaVersion  int                      `json:"schema_version"`
	BuildID        string                   `json:"build_id"`
	Start          time.Time                `json:"start"`
	End            time.Time                `json:"end"`
	Outcome        Outcome                  `json:"outcome"`
	FailedStage    string                   `json:"failed_stage,omitempty"`
	Error          string                   `json:"error,omitempty"`
	Engines        map[string]EngineCounts  `json:"engines"`
	Units          int                      `json:"units"`
	Pages          int                      `json:"pages"`
	Outputs        int                      `json:"outputs"`
	StaticFiles    int                      `json:"static_files"`
	StageDurations map[string]time.Duration `json:"-"`
	Diff           manifest.Diff            `json:"diff"`
	ConfigHash     string                   `json:"config_hash"`
	Revision       string                   `json:"revision,omitempty"`
	ManifestHash   string                   `json:"manifest_hash,omitempty"`
}

func newReport(buildID string, start time.Time) *Report {
	return &Report{
		SchemaVersion:  1,
		BuildID:        buildID,
		Start:          start,
		Engines:        make(map[string]EngineCounts),
		StageDurations: make(map[string]time.Duration),
	}
}

// Duration is the wall time of the pass.
func (r *Report) Duration() time.Duration { return r.End.Sub(r.Start) }

// Summary returns a human-readable single-line summary.
func (r *Report) Summary() string {
	return fmt.Sprintf("units=%d pages=%d outputs=%d added=%d changed=%d removed=%d duration=%s outcome=%s",
		r.Units, r.Pages, r.Outputs, len(r.Diff.Added), len(r.Diff.Changed), len(r.Diff.Removed),
		r.Duration().Truncate(time.Millisecond), r.Outcome)
}

// finish derives the outcome from the error that ended the pass, if any.
func (r *Report) finish(end time.Time, err error) {
	r.End = end
	if err == nil {
		r.Outcome = OutcomeSuccess
		return
	}
	r.Error = err.Error()
	var ge *serrors.GenerationError
	if errors.As(err, &ge) {
		r.FailedStage = ge.Stage
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		r.Outcome = OutcomeCanceled
		return
	}
	r.Outcome = OutcomeFailed
}

// MarshalJSON implements json.Marshaler. Durations are written as
// milliseconds.
func (r *Report) MarshalJSON() ([]byte, error) {
	type plain Report
	stages := make(map[string]int64, len(r.StageDurations))
	for k, v := range r.StageDurations {
		stages[k] = v.Milliseconds()
	}
	return json.Marshal(struct {
		*plain
		DurationMS       int64            `json:"duration_ms"`
		StageDurationsMS map[string]int64 `json:"stage_durations_ms"`
	}{(*plain)(r), r.Duration().Milliseconds(), stages})
}

// Persist writes the report atomically into dir.
func (r *Report) Persist(dir string) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("ensure report dir: %w", err)
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report json: %w", err)
	}
	path := filepath.Join(dir, ReportFileName)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write temp report json: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("atomic rename report json: %w", err)
	}
	return nil
}

// LoadReport reads a persisted report from dir.
func LoadReport(dir string) (*Report, error) {
	// #nosec G304 -- dir is the configured state directory.
	data, err := os.ReadFile(filepath.Join(dir, ReportFileName))
	if err != nil {
		return nil, err
	}
	var raw struct {
		Report
		StageDurationsMS map[string]int64 `json:"stage_durations_ms"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse report: %w", err)
	}
	r := raw.Report
	r.StageDurations = make(map[string]time.Duration, len(raw.StageDurationsMS))
	for k, v := range raw.StageDurationsMS {
		r.StageDurations[k] = time.Duration(v) * time.Millisecond
	}
	return &r, nil
}
