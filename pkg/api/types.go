package api

import (
	"github.com/teslashibe/go-motionblend/pkg/motion"
	"github.com/teslashibe/go-motionblend/pkg/phase"
	"github.com/teslashibe/go-motionblend/pkg/transition"
)

// MotionRequest carries one motion window.
type MotionRequest struct {
	Motion *motion.Record `json:"motion"`
}

// PhaseResponse is the phase trajectory of a window, one row per frame and
// one coordinate per band.
type PhaseResponse struct {
	Phase     [][]phase.Coordinate `json:"phase"`
	FrameTime float64              `json:"frame_time"`
}

// StyleResponse is the latent distribution of a window and the phase of its
// last frame.
type StyleResponse struct {
	Mean   []float64          `json:"mean"`
	LogVar []float64          `json:"log_var"`
	Phase  []phase.Coordinate `json:"phase"`
}

// TransitionRequest asks for a transition from the end of StartMotion to the
// start of TargetMotion. Omitted length and schedule take server defaults.
type TransitionRequest struct {
	StartMotion   *motion.Record `json:"start_motion"`
	TargetMotion  *motion.Record `json:"target_motion"`
	StyleCode     []float64      `json:"style_code,omitempty"`
	Length        *int           `json:"transition_length,omitempty"`
	PhaseSchedule *float64       `json:"phase_schedule,omitempty"`
	Stochastic    bool           `json:"stochastic,omitempty"`
	Seed          uint64         `json:"seed,omitempty"`

	// Stream broadcasts the generated frames on /ws/frames.
	Stream bool `json:"stream,omitempty"`
}

// TransitionResponse holds the generated frames as BVH channel rows.
type TransitionResponse struct {
	ID               string             `json:"id"`
	TransitionFrames [][]float64        `json:"transition_frames"`
	FrameTime        float64            `json:"frame_time"`
	QualityMetrics   transition.Metrics `json:"quality_metrics"`
}

// BatchRequest runs several transition requests concurrently.
type BatchRequest struct {
	Requests []TransitionRequest `json:"requests"`
}

// BatchResult is one entry of a BatchResponse: either a transition or an
// error.
type BatchResult struct {
	Transition *TransitionResponse `json:"transition,omitempty"`
	Error      *ErrorBody          `json:"error,omitempty"`
}

// BatchResponse lists results in request order.
type BatchResponse struct {
	Results []BatchResult `json:"results"`
}

// ClipInfo describes a clip in the library.
type ClipInfo struct {
	Name        string  `json:"name"`
	Category    string  `json:"category"`
	Description string  `json:"description,omitempty"`
	Frames      int     `json:"frames"`
	FrameTime   float64 `json:"frame_time"`
}

// ClipStatus reports the clip player.
type ClipStatus struct {
	Clip      string `json:"clip,omitempty"`
	State     string `json:"state"`
	ElapsedMs int64  `json:"elapsed_ms"`
}

// PlayRequest configures clip playback.
type PlayRequest struct {
	Speed float64 `json:"speed,omitempty"`
	Loop  bool    `json:"loop,omitempty"`
}

// HealthResponse reports the loaded model.
type HealthResponse struct {
	Status       string `json:"status"`
	Joints       int    `json:"joints"`
	WindowLength int    `json:"window_length"`
	Bands        int    `json:"bands"`
	Latent       int    `json:"latent"`
	Params       int    `json:"params"`
	Clips        int    `json:"clips"`
	Persistence  bool   `json:"persistence"`
}
