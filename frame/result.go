package frame

import "time"

// StageStatus records one stage's outcome for a ResultFrame (spec §3).
type StageStatus struct {
	Name          string
	ErrorCode     int
	ProcessingTime time.Duration
}

// ProcResult is the processing outcome attached to every ResultFrame.
type ProcResult struct {
	ErrorCode int
	TactTime  time.Duration
	Stages    []StageStatus
}

// ResultFrame is what the pipeline publishes to the egress ring: a
// deep-copied ImageFrame plus its ProcResult (spec §3).
type ResultFrame struct {
	Image  *ImageFrame
	Result ProcResult
}

// Reset clears a ResultFrame for reuse in a pooled egress slot.
func (r *ResultFrame) Reset() {
	r.Result.ErrorCode = 0
	r.Result.TactTime = 0
	r.Result.Stages = r.Result.Stages[:0]
}
