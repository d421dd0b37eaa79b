package api

import (
	"fmt"
	"math"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-motionblend/pkg/bvh"
	"github.com/teslashibe/go-motionblend/pkg/clips"
	"github.com/teslashibe/go-motionblend/pkg/hub"
	"github.com/teslashibe/go-motionblend/pkg/motion"
	"github.com/teslashibe/go-motionblend/pkg/protocol"
)

// handleFramesWS attaches a client to the frame hub
func (s *Server) handleFramesWS(c *websocket.Conn) {
	client := hub.NewClient(s.frames, c)
	if client == nil {
		c.Close()
		return
	}
	s.metrics.StreamClients.Inc()
	defer s.metrics.StreamClients.Dec()

	client.Run()
}

// handleListClips lists the clip library, filtered by ?q= when present
func (s *Server) handleListClips(c *fiber.Ctx) error {
	names := s.clips.List()
	if q := c.Query("q"); q != "" {
		names = s.clips.Search(q)
	}
	out := make([]ClipInfo, 0, len(names))
	for _, name := range names {
		clip, err := s.clips.Get(name)
		if err != nil {
			continue
		}
		out = append(out, ClipInfo{
			Name:        clip.Name,
			Category:    clip.Category,
			Description: clip.Description,
			Frames:      clip.Len(),
			FrameTime:   clip.FrameTime,
		})
	}
	return c.JSON(out)
}

// handlePlayClip starts streaming a clip on /ws/frames
func (s *Server) handlePlayClip(c *fiber.Ctx) error {
	name := c.Params("name")
	var req PlayRequest
	if len(c.Body()) > 0 {
		if err := decodeBody(c, &req); err != nil {
			return err
		}
	}
	if req.Speed < 0 || math.IsNaN(req.Speed) {
		return fmt.Errorf("%w: speed %v", errInvalid, req.Speed)
	}

	opts := clips.DefaultPlayerOptions()
	if req.Speed > 0 {
		opts.Speed = req.Speed
	}
	opts.Loop = req.Loop

	if err := s.clips.Play(s.baseContext(), name, opts); err != nil {
		return err
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"clip":  name,
		"state": clips.StatePlaying.String(),
	})
}

func (s *Server) handleClipCategories(c *fiber.Ctx) error {
	return c.JSON(s.clips.Categories())
}

// handleDeleteClip removes a clip from the library
func (s *Server) handleDeleteClip(c *fiber.Ctx) error {
	name := c.Params("name")
	if _, err := s.clips.Get(name); err != nil {
		return err
	}
	s.clips.Unregister(name)
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handleClipStatus(c *fiber.Ctx) error {
	return c.JSON(s.clipStatus())
}

// handleStopClip stops clip playback
func (s *Server) handleStopClip(c *fiber.Ctx) error {
	s.clips.Stop()
	return c.JSON(s.clipStatus())
}

func (s *Server) handlePauseClip(c *fiber.Ctx) error {
	s.clips.Pause()
	return c.JSON(s.clipStatus())
}

func (s *Server) handleResumeClip(c *fiber.Ctx) error {
	s.clips.Resume()
	return c.JSON(s.clipStatus())
}

func (s *Server) clipStatus() ClipStatus {
	state := s.clips.State()
	st := ClipStatus{State: state.String()}
	if state != clips.StateStopped {
		st.Clip = s.clips.CurrentClip()
		st.ElapsedMs = s.clips.Elapsed().Milliseconds()
	}
	return st
}

// onClipFrame forwards played clip frames to the hub.
func (s *Server) onClipFrame(frame motion.Frame, elapsed time.Duration) bool {
	if s.frames.ClientCount() == 0 {
		return true
	}
	clip := s.clips.CurrentClip()
	ch, err := bvh.FrameChannels(s.pipeline.Model().Skeleton(), frame)
	if err != nil {
		s.logger.Warn("clip frame rejected", "clip", clip, "error", err)
		return false
	}

	index := 0
	total := 0
	if c, err := s.clips.Get(clip); err == nil {
		index = int(elapsed.Seconds() / c.FrameTime)
		total = c.Len()
		if index >= total {
			index = total - 1
		}
	}

	msg, err := protocol.NewFrameMessage(protocol.FrameData{
		Source:   protocol.SourceClip,
		ID:       clip,
		Index:    index,
		Total:    total,
		Channels: ch,
	})
	if err != nil {
		return false
	}
	if err := s.frames.BroadcastMessage(msg); err != nil {
		s.logger.Warn("broadcast failed", "clip", clip, "error", err)
	}
	return true
}
