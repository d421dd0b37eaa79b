package api

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/teslashibe/go-motionblend/pkg/bvh"
	"github.com/teslashibe/go-motionblend/pkg/manifold"
	"github.com/teslashibe/go-motionblend/pkg/motion"
	"github.com/teslashibe/go-motionblend/pkg/pipeline"
	"github.com/teslashibe/go-motionblend/pkg/protocol"
	"github.com/teslashibe/go-motionblend/pkg/skeleton"
	"github.com/teslashibe/go-motionblend/pkg/store"
	"github.com/teslashibe/go-motionblend/pkg/transition"
)

// handleHealth reports the loaded model
func (s *Server) handleHealth(c *fiber.Ctx) error {
	m := s.pipeline.Model()
	cfg := m.Config()
	resp := HealthResponse{
		Status:       "ok",
		Joints:       m.Skeleton().NumJoints(),
		WindowLength: m.WindowLength(),
		Bands:        cfg.Phase.Bands,
		Latent:       cfg.Manifold.Latent,
		Params:       m.NumParams(),
		Persistence:  s.store != nil,
	}
	if s.clips != nil {
		resp.Clips = s.clips.Count()
	}
	return c.JSON(resp)
}

// handleSkeleton returns the skeleton descriptor
func (s *Server) handleSkeleton(c *fiber.Ctx) error {
	return c.JSON(skeleton.Describe(s.pipeline.Model().Skeleton()))
}

func decodeBody(c *fiber.Ctx, v any) error {
	if err := json.Unmarshal(c.Body(), v); err != nil {
		return fmt.Errorf("%w: %v", errInvalid, err)
	}
	return nil
}

func (s *Server) window(rec *motion.Record, field string) (motion.Window, error) {
	if rec == nil {
		return motion.Window{}, fmt.Errorf("%w: missing %s", errInvalid, field)
	}
	w, err := motion.FromRecord(rec, s.pipeline.Model().Skeleton())
	if err != nil {
		return motion.Window{}, fmt.Errorf("%s: %w", field, err)
	}
	return w, nil
}

// handleEncodePhase encodes a window of exactly the model's window length
func (s *Server) handleEncodePhase(c *fiber.Ctx) error {
	var req MotionRequest
	if err := decodeBody(c, &req); err != nil {
		return err
	}
	w, err := s.window(req.Motion, "motion")
	if err != nil {
		return err
	}

	traj, err := s.pipeline.EncodePhase(c.UserContext(), w)
	if err != nil {
		return err
	}
	return c.JSON(PhaseResponse{Phase: traj.Frames, FrameTime: traj.FrameTime})
}

// handleEncodeStyle encodes the latent distribution of a window
func (s *Server) handleEncodeStyle(c *fiber.Ctx) error {
	var req MotionRequest
	if err := decodeBody(c, &req); err != nil {
		return err
	}
	w, err := s.window(req.Motion, "motion")
	if err != nil {
		return err
	}

	style, err := s.pipeline.EncodeStyle(c.UserContext(), w)
	if err != nil {
		return err
	}
	return c.JSON(StyleResponse{
		Mean:   style.Latent.Mean,
		LogVar: style.Latent.LogVar,
		Phase:  style.Phase.At(style.Phase.Len() - 1),
	})
}

func (s *Server) pipelineRequest(req TransitionRequest) (pipeline.Request, error) {
	start, err := s.window(req.StartMotion, "start_motion")
	if err != nil {
		return pipeline.Request{}, err
	}
	target, err := s.window(req.TargetMotion, "target_motion")
	if err != nil {
		return pipeline.Request{}, err
	}

	out := pipeline.Request{
		Start:         start,
		Target:        target,
		StyleCode:     req.StyleCode,
		Length:        s.defaults.Length,
		PhaseSchedule: s.defaults.PhaseSchedule,
		Seed:          req.Seed,
	}
	if req.Length != nil {
		out.Length = *req.Length
	}
	if req.PhaseSchedule != nil {
		out.PhaseSchedule = *req.PhaseSchedule
	}
	if req.Stochastic {
		out.Noise = manifold.NoiseSampled
	}
	return out, nil
}

// respond converts a generated transition to its wire shape, then persists
// and streams it as configured.
func (s *Server) respond(ctx context.Context, req TransitionRequest, p pipeline.Request, resp *pipeline.Response) (*TransitionResponse, error) {
	skel := s.pipeline.Model().Skeleton()
	out := &TransitionResponse{
		ID:               resp.ID,
		TransitionFrames: make([][]float64, resp.Sequence.Len()),
		FrameTime:        resp.Sequence.FrameTime,
		QualityMetrics:   resp.Metrics,
	}
	for i, f := range resp.Sequence.Frames {
		ch, err := bvh.FrameChannels(skel, f)
		if err != nil {
			return nil, err
		}
		out.TransitionFrames[i] = ch
	}
	s.metrics.ObserveTransition(resp.Sequence.Len(), resp.Elapsed, resp.Metrics)

	if s.store != nil {
		doc, err := bvh.Marshal(skel, resp.Sequence.Frames, resp.Sequence.FrameTime)
		if err != nil {
			return nil, err
		}
		rec := store.Record{
			ID:            resp.ID,
			Length:        resp.Sequence.Len(),
			FrameTime:     resp.Sequence.FrameTime,
			PhaseSchedule: p.PhaseSchedule,
			Stochastic:    p.Noise == manifold.NoiseSampled,
			Seed:          p.Seed,
			Metrics:       resp.Metrics,
			BVH:           string(doc),
		}
		if err := s.store.Save(ctx, rec); err != nil {
			return nil, err
		}
	}

	s.broadcastTransition(out, resp.Result.Weights, req.Stream)
	return out, nil
}

func (s *Server) broadcastTransition(t *TransitionResponse, weights []float64, frames bool) {
	if s.frames.ClientCount() == 0 {
		return
	}
	msg, err := protocol.NewTransitionMessage(protocol.TransitionData{
		ID:        t.ID,
		Frames:    len(t.TransitionFrames),
		FrameTime: t.FrameTime,
		Metrics:   protocol.QualityMetrics(t.QualityMetrics),
	})
	if err == nil {
		err = s.frames.BroadcastMessage(msg)
	}
	if err != nil {
		s.logger.Warn("broadcast failed", "id", t.ID, "error", err)
		return
	}
	if !frames {
		return
	}

	n := len(t.TransitionFrames)
	for i, ch := range t.TransitionFrames {
		msg, err := protocol.NewFrameMessage(protocol.FrameData{
			Source:   protocol.SourceTransition,
			ID:       t.ID,
			Index:    i,
			Total:    n,
			State:    transition.StateAt(i, 0, n-1).String(),
			Weight:   weights[i],
			Channels: ch,
		})
		if err != nil {
			s.logger.Warn("broadcast failed", "id", t.ID, "error", err)
			return
		}
		s.frames.BroadcastMessage(msg)
	}
}

// handleGenerate generates one transition
func (s *Server) handleGenerate(c *fiber.Ctx) error {
	var req TransitionRequest
	if err := decodeBody(c, &req); err != nil {
		return err
	}
	p, err := s.pipelineRequest(req)
	if err != nil {
		return err
	}

	resp, err := s.pipeline.Generate(c.UserContext(), p)
	if err != nil {
		return err
	}
	out, err := s.respond(c.UserContext(), req, p, resp)
	if err != nil {
		return err
	}
	return c.JSON(out)
}

// handleGenerateBatch generates independent transitions concurrently. The
// response is 200 even when individual entries fail.
func (s *Server) handleGenerateBatch(c *fiber.Ctx) error {
	var req BatchRequest
	if err := decodeBody(c, &req); err != nil {
		return err
	}
	if len(req.Requests) == 0 {
		return fmt.Errorf("%w: no requests", errInvalid)
	}

	results := make([]BatchResult, len(req.Requests))
	var (
		pending []pipeline.Request
		index   []int
	)
	for i, r := range req.Requests {
		p, err := s.pipelineRequest(r)
		if err != nil {
			results[i] = s.batchError(err)
			continue
		}
		pending = append(pending, p)
		index = append(index, i)
	}

	ctx := c.UserContext()
	for k, res := range s.pipeline.GenerateBatch(ctx, pending) {
		i := index[k]
		if res.Err != nil {
			results[i] = s.batchError(res.Err)
			continue
		}
		out, err := s.respond(ctx, req.Requests[i], pending[k], res.Response)
		if err != nil {
			results[i] = s.batchError(err)
			continue
		}
		results[i] = BatchResult{Transition: out}
	}
	return c.JSON(BatchResponse{Results: results})
}

func (s *Server) batchError(err error) BatchResult {
	_, body := errorBody(err)
	s.metrics.ObserveFailure(body.Code)
	return BatchResult{Error: &body}
}

// handleListTransitions lists stored transitions, newest first
func (s *Server) handleListTransitions(c *fiber.Ctx) error {
	limit := 50
	if q := c.Query("limit"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n < 0 {
			return fmt.Errorf("%w: limit %q", errInvalid, q)
		}
		limit = n
	}
	recs, err := s.store.List(c.UserContext(), limit)
	if err != nil {
		return err
	}
	if recs == nil {
		recs = []store.Record{}
	}
	return c.JSON(recs)
}

// handleGetTransition returns one stored transition
func (s *Server) handleGetTransition(c *fiber.Ctx) error {
	rec, err := s.store.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(rec)
}

// handleGetTransitionBVH downloads a stored transition as a BVH file
func (s *Server) handleGetTransitionBVH(c *fiber.Ctx) error {
	rec, err := s.store.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, "text/plain; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s.bvh"`, rec.ID))
	return c.SendString(rec.BVH)
}

// handleDeleteTransition removes a stored transition
func (s *Server) handleDeleteTransition(c *fiber.Ctx) error {
	if err := s.store.Delete(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
