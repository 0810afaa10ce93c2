// Package pipeline hosts the engine's worker loop and dispatch table
// (spec §4.1): the two ring buffers, the binary wake-semaphore, and the
// stage-chain dispatch keyed by StartMode and the live frame's shutter
// mode. The band-thread-pool primitive the matcher and filter stages
// share (spec §4.4) lives in the separate band package so that those
// stages can depend on it without pipeline depending back on them.
package pipeline

import (
	"encoding/binary"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/stereodpl/dpl/config"
	"github.com/stereodpl/dpl/decoder"
	"github.com/stereodpl/dpl/dplerr"
	"github.com/stereodpl/dpl/filter"
	"github.com/stereodpl/dpl/frame"
	"github.com/stereodpl/dpl/internal/pool"
	"github.com/stereodpl/dpl/matcher"
	"github.com/stereodpl/dpl/paramio"
	"github.com/stereodpl/dpl/ringbuf"
)

const wakeTimeout = 10 * time.Millisecond
const stopPollInterval = 10 * time.Millisecond
const stopTimeout = 1 * time.Second

// stageEntry is one row of the engine's stage registry, indexed the way
// spec §6's get_stage_count/get_stage_name/get_stage_parameters family
// expects.
type stageEntry struct {
	name  string
	get   func() frame.ParameterSet
	set   func(frame.ParameterSet) error
}

// Controller owns the two ring buffers, the single worker goroutine, and
// the signal-processing stages (spec §4.1). It is the pipeline half of
// the engine facade; the public API in the root dpl package is a thin
// wrapper around it.
type Controller struct {
	cfg    config.EngineConfig
	source decoder.Source
	log    *slog.Logger

	ingress *ringbuf.Ring[*frame.ImageFrame]
	egress  *ringbuf.Ring[*frame.ResultFrame]

	wake          chan struct{}
	terminateReq  atomic.Bool
	terminateDone chan struct{}
	running       atomic.Bool

	modeMu sync.Mutex
	mode   config.StartMode

	decoderStage *decoder.Stage
	matcherStage *matcher.Stage
	filterStage  *filter.Stage
	bd           frame.BlockDisparity

	stages []stageEntry

	framesDropped atomic.Uint64
	hardErrors    atomic.Uint64
}

// New constructs a Controller from a validated EngineConfig. The worker
// goroutine is not started until Start.
func New(cfg config.EngineConfig, log *slog.Logger) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}

	newImageFrame := func() *frame.ImageFrame { return &frame.ImageFrame{} }
	newResultFrame := func() *frame.ResultFrame { return &frame.ResultFrame{Image: &frame.ImageFrame{}} }

	c := &Controller{
		cfg:           cfg,
		log:           log,
		ingress:       ringbuf.New(cfg.MaxBufferCount, ringbuf.OrderLast, true, newImageFrame),
		egress:        ringbuf.New(cfg.MaxBufferCount, ringbuf.OrderFIFO, false, newResultFrame),
		wake:          make(chan struct{}, 1),
		terminateDone: make(chan struct{}),
	}

	c.decoderStage = decoder.NewStage()
	if cfg.EnabledStages.Has(config.StageStereoMatching) {
		c.matcherStage = matcher.NewStage(matcher.DefaultParams(), log)
	}
	if cfg.EnabledStages.Has(config.StageDisparityFilter) {
		c.filterStage = filter.NewStage(filter.DefaultParams(), log)
	}

	c.buildStageRegistry()
	return c, nil
}

func (c *Controller) buildStageRegistry() {
	c.stages = append(c.stages, stageEntry{
		name: c.decoderStage.Name(),
		get:  func() frame.ParameterSet { return frame.ParameterSet{} },
		set:  func(frame.ParameterSet) error { return nil },
	})
	if c.matcherStage != nil {
		c.stages = append(c.stages, stageEntry{
			name: c.matcherStage.Name(),
			get:  c.matcherStage.Parameters,
			set:  c.matcherStage.SetParameters,
		})
	}
	if c.filterStage != nil {
		c.stages = append(c.stages, stageEntry{
			name: c.filterStage.Name(),
			get:  c.filterStage.Parameters,
			set:  c.filterStage.SetParameters,
		})
	}
}

// GetStageCount returns the number of stages compiled into this engine
// instance (spec §6 get_stage_count).
func (c *Controller) GetStageCount() int { return len(c.stages) }

// GetStageName returns stage i's name (spec §6 get_stage_name).
func (c *Controller) GetStageName(i int) (string, error) {
	if i < 0 || i >= len(c.stages) {
		return "", dplerr.Configuration("pipeline: stage index %d out of range", i)
	}
	return c.stages[i].name, nil
}

// GetStageParameters projects stage i's tunables (spec §6
// get_stage_parameters).
func (c *Controller) GetStageParameters(i int) (frame.ParameterSet, error) {
	if i < 0 || i >= len(c.stages) {
		return frame.ParameterSet{}, dplerr.Configuration("pipeline: stage index %d out of range", i)
	}
	return c.stages[i].get(), nil
}

// SetStageParameters applies ps to stage i, optionally persisting it to
// the stage's parameter file (spec §6 set_stage_parameters).
func (c *Controller) SetStageParameters(i int, ps frame.ParameterSet, persist bool) error {
	if i < 0 || i >= len(c.stages) {
		return dplerr.Configuration("pipeline: stage index %d out of range", i)
	}
	if err := c.stages[i].set(ps); err != nil {
		return err
	}
	if persist {
		path := paramio.FileName(c.stages[i].name, c.cfg.CameraModel)
		return paramio.Write(c.cfg.ConfigFileDir+"/"+path, ps)
	}
	return nil
}

// ReloadStageParametersFromFile replaces stage i's parameters with the
// contents of path (spec §6 reload_stage_parameters_from_file).
func (c *Controller) ReloadStageParametersFromFile(i int, path string) error {
	if i < 0 || i >= len(c.stages) {
		return dplerr.Configuration("pipeline: stage index %d out of range", i)
	}
	ps, err := paramio.Read(path)
	if err != nil {
		return err
	}
	return c.stages[i].set(ps)
}

// SetSource attaches the camera/replay collaborator the worker pulls
// from isn't used directly here: frames arrive via Submit from the host
// application (spec §6), not pulled by the controller. SetSource is kept
// for a future pull-mode worker and is currently unused by Submit/Start.
func (c *Controller) SetSource(s decoder.Source) { c.source = s }

// Submit enqueues a frame for processing (spec §6 submit). Fails with
// NotRunning if the worker has been stopped, or NoSlot if the ingress
// ring has no slot and overwrite is disallowed (it always is allowed
// here, so NoSlot only occurs if every slot is mid-read).
func (c *Controller) Submit(in *frame.ImageFrame) error {
	if !c.running.Load() {
		return dplerr.ErrNotRunning
	}
	idx, slot, err := c.ingress.AcquirePut()
	if err != nil {
		return err
	}
	*slot = in
	if err := c.ingress.CommitPut(idx, true); err != nil {
		return err
	}
	select {
	case c.wake <- struct{}{}:
	default:
	}
	return nil
}

// FetchResult retrieves the oldest completed ResultFrame (spec §6
// fetch_result). Never suspends: returns NoData immediately if the
// egress ring has nothing ready.
func (c *Controller) FetchResult(out *frame.ResultFrame) error {
	idx, slot, err := c.egress.AcquireGet()
	if err != nil {
		return err
	}
	*out = **slot
	return c.egress.CommitGet(idx)
}

// Start launches the worker goroutine with the given StartMode (spec §6
// start).
func (c *Controller) Start(mode config.StartMode) {
	c.modeMu.Lock()
	c.mode = mode
	c.modeMu.Unlock()

	if c.matcherStage != nil {
		c.matcherStage.Start()
	}
	if c.filterStage != nil {
		c.filterStage.Start()
	}

	c.running.Store(true)
	c.terminateReq.Store(false)
	go c.workerLoop()
}

// Stop requests the worker terminate and waits up to 1s, polling every
// 10ms, for it to confirm (spec §5 "Cancellation").
func (c *Controller) Stop() {
	if !c.running.Load() {
		return
	}
	c.terminateReq.Store(true)
	select {
	case c.wake <- struct{}{}:
	default:
	}

	deadline := time.Now().Add(stopTimeout)
	for time.Now().Before(deadline) {
		select {
		case <-c.terminateDone:
			c.running.Store(false)
			c.teardownStages()
			return
		case <-time.After(stopPollInterval):
		}
	}
	c.running.Store(false)
	c.teardownStages()
}

func (c *Controller) teardownStages() {
	if c.matcherStage != nil {
		c.matcherStage.Stop()
	}
	if c.filterStage != nil {
		c.filterStage.Stop()
	}
}

// FramesDropped reports the number of ingress frames recycled by
// overwrite, plus the number dropped because the egress ring was full
// (spec §8 "frames_dropped").
func (c *Controller) FramesDropped() uint64 {
	return c.ingress.Dropped() + c.framesDropped.Load()
}

// HardErrors reports the number of impossible-ring-state invariant
// violations observed by the worker (spec §7 KindHard diagnostics
// counter).
func (c *Controller) HardErrors() uint64 { return c.hardErrors.Load() }

func (c *Controller) workerLoop() {
	for {
		select {
		case <-c.wake:
		case <-time.After(wakeTimeout):
		}

		if c.terminateReq.Load() {
			close(c.terminateDone)
			return
		}

		c.runOnce()
	}
}

// runOnce executes one worker-loop iteration: acquire an ingress frame,
// acquire an egress slot, run the configured stage chain, commit both
// (spec §4.1 "Worker loop").
func (c *Controller) runOnce() {
	inIdx, inSlotPtr, err := c.ingress.AcquireGet()
	if err != nil {
		return // empty, nothing to do this wake
	}
	in := *inSlotPtr

	outIdx, outSlot, err := c.egress.AcquirePut()
	if err != nil {
		c.framesDropped.Add(1)
		c.ingress.CommitGet(inIdx)
		return
	}
	rf := *outSlot

	start := time.Now()
	result := c.dispatch(in, rf.Image)
	result.TactTime = time.Since(start)
	rf.Result = result

	if err := c.egress.CommitPut(outIdx, true); err != nil {
		c.noteHardError("egress commit_put", err)
	}
	if err := c.ingress.CommitGet(inIdx); err != nil {
		c.noteHardError("ingress commit_get", err)
	}
}

// noteHardError records an invariant violation observed inside the
// worker loop: under correct ring-buffer usage neither commit call above
// should ever fail, since each acquire is matched by exactly one commit
// on the same goroutine (spec §7 KindHard).
func (c *Controller) noteHardError(where string, err error) {
	c.hardErrors.Add(1)
	c.log.Error("ring invariant violation", "where", where, "err", dplerr.Hard("%s: %v", where, err))
}

// dispatch runs the stage chain selected by the current StartMode and
// the frame's shutter mode (spec §4.1 "Dispatch table").
func (c *Controller) dispatch(in, out *frame.ImageFrame) frame.ProcResult {
	c.modeMu.Lock()
	mode := c.mode
	c.modeMu.Unlock()

	var result frame.ProcResult
	out.FrameNumber = in.FrameNumber
	out.Exposure, out.Gain = in.Exposure, in.Gain
	out.Shutter, out.Colour = in.Shutter, in.Colour
	out.Intrinsics = in.Intrinsics

	switch {
	case mode.StereoMatching && c.matcherStage != nil:
		c.runStage(&result, c.matcherStage.Name(), func() *dplerr.Error {
			return c.matcherStage.Match(in, &c.bd)
		})
		if mode.DisparityFilter && c.filterStage != nil {
			c.runStage(&result, c.filterStage.Name(), func() *dplerr.Error {
				return c.filterStage.Filter(in, &c.bd)
			})
		}
		c.attachDisparity(out)
		copyThrough(out, in)

	case mode.FrameDecoder:
		c.runStage(&result, c.decoderStage.Name(), func() *dplerr.Error {
			if in.Shutter == frame.ShutterDoubleCombined {
				return c.decoderStage.DecodeDoubleCombined(in, out)
			}
			return c.decoderStage.DecodeSingle(in, out)
		})
		if mode.DisparityFilter && c.filterStage != nil && c.bd.BlockRows > 0 {
			c.runStage(&result, c.filterStage.Name(), func() *dplerr.Error {
				return c.filterStage.Filter(in, &c.bd)
			})
			c.attachDisparity(out)
		}

	default:
		copyThrough(out, in)
	}

	return result
}

// attachDisparity copies the worker-owned BlockDisparity's pixel-expanded
// outputs into the published frame (see DESIGN.md "Open Question
// decisions" #3): the scratch grid itself is never exposed. The float
// disparity map is little-endian float32-encoded into PlaneDepth's byte
// buffer (Channels=4) since Plane has no native float element type.
func (c *Controller) attachDisparity(out *frame.ImageFrame) {
	if c.bd.ImageWidth == 0 {
		return
	}
	depth := out.Slot(frame.SlotMerged).Plane(frame.PlaneDepth)
	depth.Width, depth.Height, depth.Channels = c.bd.ImageWidth, c.bd.ImageHeight, 4
	depth.Data = growBytesPlain(depth.Data, len(c.bd.Float)*4)
	for i, v := range c.bd.Float {
		binary.LittleEndian.PutUint32(depth.Data[i*4:], math.Float32bits(v))
	}

	raw := out.Slot(frame.SlotMerged).Plane(frame.PlaneRaw)
	raw.Width, raw.Height, raw.Channels = c.bd.ImageWidth, c.bd.ImageHeight, 1
	raw.Data = growBytesPlain(raw.Data, len(c.bd.Display))
	copy(raw.Data, c.bd.Display)
}

// growBytesPlain is growBytes's pipeline-local twin (spec §9 "per-frame
// scratch allocation"): the output-frame plane buffers it resizes are
// drawn from and returned to the same plane pool as the decoder stage's.
func growBytesPlain(b []byte, n int) []byte {
	if cap(b) >= n {
		return b[:n]
	}
	pool.PutPlane(b)
	return pool.GetPlane(n)
}

// LastDisparity returns the per-pixel float32 disparity map produced by
// the most recently completed frame. Valid until the next worker
// iteration begins; callers needing a stable copy should clone it.
func (c *Controller) LastDisparity() []float32 { return c.bd.Float }

func copyThrough(out, in *frame.ImageFrame) {
	for s := range in.Slots {
		for p := range in.Slots[s].Planes {
			sp := &in.Slots[s].Planes[p]
			if sp.Empty() {
				continue
			}
			dp := &out.Slots[s].Planes[p]
			if dp.Width == sp.Width && dp.Height == sp.Height && len(dp.Data) == len(sp.Data) {
				continue // already populated by a stage above
			}
			dp.Width, dp.Height, dp.Channels = sp.Width, sp.Height, sp.Channels
			dp.Data = growBytesPlain(dp.Data, len(sp.Data))
			copy(dp.Data, sp.Data)
		}
	}
}

func (c *Controller) runStage(result *frame.ProcResult, name string, fn func() *dplerr.Error) {
	start := time.Now()
	err := fn()
	status := frame.StageStatus{Name: name, ProcessingTime: time.Since(start)}
	if err != nil {
		status.ErrorCode = err.Code
		result.ErrorCode = err.Code
		c.log.Warn("stage error", "stage", name, "code", err.Code, "err", err.Err)
	}
	result.Stages = append(result.Stages, status)
}
