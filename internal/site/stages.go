package site

import (
	"context"
	"errors"
	"time"

	serrors "git.home.luguber.info/inful/sitepress/internal/errors"
	"git.home.luguber.info/inful/sitepress/internal/logfields"
	"git.home.luguber.info/inful/sitepress/internal/metrics"
)

// StageName is a strongly-typed identifier for a generation stage.
type StageName string

// Canonical stage names, in execution order.
const (
	StageLoad       StageName = "load"
	StageGroup      StageName = "group"
	StageResolve    StageName = "resolve"
	StageCollisions StageName = "collisions"
	StageRender     StageName = "render"
	StageWrite      StageName = "write"
)

// Stage is one step of a generation pass.
type Stage func(ctx context.Context, bs *buildState) error

// StageDef pairs a stage name with its executing function.
type StageDef struct {
	Name StageName
	Fn   Stage
}

func generationStages() []StageDef {
	return []StageDef{
		{StageLoad, stageLoad},
		{StageGroup, stageGroup},
		{StageResolve, stageResolve},
		{StageCollisions, stageCollisions},
		{StageRender, stageRender},
		{StageWrite, stageWrite},
	}
}

// routeStages stop before anything is rendered.
func routeStages() []StageDef {
	return generationStages()[:4]
}

// runStages executes stages in order, recording timing and stopping on the
// first error. The returned error is always a *GenerationError.
func runStages(ctx context.Context, bs *buildState, stages []StageDef) error {
	rec := bs.g.recorder
	for _, st := range stages {
		if err := ctx.Err(); err != nil {
			rec.IncStageResult(string(st.Name), metrics.ResultCanceled)
			return &serrors.GenerationError{Stage: string(st.Name), Err: err}
		}

		t0 := time.Now()
		err := st.Fn(ctx, bs)
		dur := time.Since(t0)
		bs.report.StageDurations[string(st.Name)] = dur
		rec.ObserveStageDuration(string(st.Name), dur)

		if err != nil {
			result := metrics.ResultFatal
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				result = metrics.ResultCanceled
			}
			rec.IncStageResult(string(st.Name), result)
			bs.g.logger.Debug("Stage failed",
				logfields.Stage(string(st.Name)),
				logfields.DurationMS(float64(dur.Microseconds())/1000),
				logfields.Error(err))
			return &serrors.GenerationError{Stage: string(st.Name), Err: err}
		}
		rec.IncStageResult(string(st.Name), metrics.ResultSuccess)
		bs.g.logger.Debug("Stage complete",
			logfields.Stage(string(st.Name)),
			logfields.DurationMS(float64(dur.Microseconds())/1000))
	}
	return nil
}
