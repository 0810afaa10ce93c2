// Package dpl is the public engine facade for the stereo-vision
// disparity pipeline (spec §6): init/submit/start/stop/fetch_result plus
// the stage-introspection and parameter-reload entry points. It is a
// thin wrapper around pipeline.Controller — the teacher keeps its own
// public surface (webp.Encode/Decode) as a small set of functions over a
// heavier internal package, and this mirrors that split.
package dpl

import (
	"log/slog"

	"github.com/stereodpl/dpl/config"
	"github.com/stereodpl/dpl/decoder"
	"github.com/stereodpl/dpl/frame"
	"github.com/stereodpl/dpl/pipeline"
)

// Engine is one running (or not-yet-started) instance of the pipeline.
// The zero value is not usable; construct with New.
type Engine struct {
	ctrl *pipeline.Controller
}

// New validates cfg and constructs an Engine (spec §6 init). The worker
// goroutine is not started until Start.
func New(cfg config.EngineConfig, log *slog.Logger) (*Engine, error) {
	ctrl, err := pipeline.New(cfg, log)
	if err != nil {
		return nil, err
	}
	return &Engine{ctrl: ctrl}, nil
}

// SetSource attaches the camera/replay collaborator (spec §6). Reserved
// for a future pull-mode worker; frames currently only arrive via Submit.
func (e *Engine) SetSource(s decoder.Source) { e.ctrl.SetSource(s) }

// Submit enqueues a frame for processing (spec §6 submit).
func (e *Engine) Submit(in *frame.ImageFrame) error { return e.ctrl.Submit(in) }

// Start launches the worker with the given StartMode (spec §6 start).
func (e *Engine) Start(mode config.StartMode) error {
	e.ctrl.Start(mode)
	return nil
}

// Stop requests the worker terminate, waiting up to 1s (spec §6 stop).
func (e *Engine) Stop() error {
	e.ctrl.Stop()
	return nil
}

// FetchResult retrieves the oldest completed ResultFrame, never blocking
// (spec §6 fetch_result).
func (e *Engine) FetchResult(out *frame.ResultFrame) error { return e.ctrl.FetchResult(out) }

// Terminate tears down the engine. Idempotent (spec §7 "terminate is
// idempotent"): calling it on an already-stopped engine is a no-op
// because Stop itself is idempotent.
func (e *Engine) Terminate() { e.ctrl.Stop() }

// GetStageCount returns the number of compiled-in stages (spec §6).
func (e *Engine) GetStageCount() int { return e.ctrl.GetStageCount() }

// GetStageName returns stage i's name (spec §6).
func (e *Engine) GetStageName(i int) (string, error) { return e.ctrl.GetStageName(i) }

// GetStageParameters projects stage i's tunables (spec §6).
func (e *Engine) GetStageParameters(i int) (frame.ParameterSet, error) {
	return e.ctrl.GetStageParameters(i)
}

// SetStageParameters applies ps to stage i, optionally persisting it to
// disk (spec §6).
func (e *Engine) SetStageParameters(i int, ps frame.ParameterSet, persist bool) error {
	return e.ctrl.SetStageParameters(i, ps, persist)
}

// ReloadStageParametersFromFile replaces stage i's parameters from path
// (spec §6).
func (e *Engine) ReloadStageParametersFromFile(i int, path string) error {
	return e.ctrl.ReloadStageParametersFromFile(i, path)
}

// FramesDropped reports the cumulative count of ingress frames recycled
// by overwrite plus those dropped because the egress ring was full
// (spec §8 "frames_dropped"). Older full ingress slots that a last-mode
// read clears are not counted.
func (e *Engine) FramesDropped() uint64 { return e.ctrl.FramesDropped() }

// HardErrors reports the cumulative count of ring-buffer invariant
// violations observed by the worker (spec §7 KindHard diagnostics).
func (e *Engine) HardErrors() uint64 { return e.ctrl.HardErrors() }
