package web

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-morph/pkg/hub"
	"github.com/teslashibe/go-morph/pkg/particles"
	"github.com/teslashibe/go-morph/pkg/protocol"
	"github.com/teslashibe/go-morph/pkg/show"
)

// engineActions are the actions POST /api/engine/:action accepts
var engineActions = map[string]bool{
	show.ActionExplode:  true,
	show.ActionDisperse: true,
	show.ActionIdle:     true,
	show.ActionOrbit:    true,
}

// TextRequest is the request body for POST /api/text
type TextRequest struct {
	Label string `json:"label"`
}

// ColorsResponse carries the flat r,g,b buffer for renderer setup
type ColorsResponse struct {
	Count  int       `json:"count"`
	Colors []float32 `json:"colors"`
}

// handleStatus returns the director snapshot
func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.director.Status())
}

// handleConfig returns hand-tracking parameters for the browser
func (s *Server) handleConfig(c *fiber.Ctx) error {
	return c.JSON(s.director.ClientConfig())
}

func (s *Server) handleGetTuning(c *fiber.Ctx) error {
	return c.JSON(s.director.Tuning())
}

// handleSetTuning applies the positive fields of a TuningParams body
func (s *Server) handleSetTuning(c *fiber.Ctx) error {
	var params particles.TuningParams
	if err := c.BodyParser(&params); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid tuning body: " + err.Error(),
		})
	}

	if err := s.submit(c, show.Command{Action: show.ActionTuning, Tuning: &params}); err != nil {
		return s.commandError(c, err)
	}
	return c.JSON(s.director.Tuning())
}

// handleEngineAction triggers explode, disperse, idle or orbit.
// orbit takes an optional ?label= to swirl around that label's anchors.
func (s *Server) handleEngineAction(c *fiber.Ctx) error {
	action := strings.ToLower(c.Params("action"))
	if !engineActions[action] {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": fmt.Sprintf("unknown action %q", action),
		})
	}

	cmd := show.Command{Action: action}
	if action == show.ActionOrbit {
		cmd.Label = c.Query("label")
	}
	if err := s.submit(c, cmd); err != nil {
		return s.commandError(c, err)
	}
	return c.JSON(fiber.Map{
		"action": action,
		"mode":   s.director.Status().Mode,
	})
}

// handleText morphs the cloud into an arbitrary label
func (s *Server) handleText(c *fiber.Ctx) error {
	var req TextRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid text body: " + err.Error(),
		})
	}

	label := strings.TrimSpace(req.Label)
	if err := s.submit(c, show.Command{Action: show.ActionText, Label: label}); err != nil {
		return s.commandError(c, err)
	}
	return c.JSON(fiber.Map{"label": label})
}

func (s *Server) handleColors(c *fiber.Ctx) error {
	colors := s.director.Colors()
	return c.JSON(ColorsResponse{Count: len(colors) / 3, Colors: colors})
}

func (s *Server) submit(c *fiber.Ctx, cmd show.Command) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), commandTimeout)
	defer cancel()
	return s.director.Submit(ctx, cmd)
}

// commandError maps director errors to HTTP status codes
func (s *Server) commandError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	var cerr *show.ConfigError
	switch {
	case errors.As(err, &cerr), errors.Is(err, show.ErrUnknownAction):
		status = fiber.StatusBadRequest
	case errors.Is(err, show.ErrNoAnchors), errors.Is(err, particles.ErrEmptyTarget):
		status = fiber.StatusUnprocessableEntity
	case errors.Is(err, show.ErrStopped), errors.Is(err, context.DeadlineExceeded):
		status = fiber.StatusServiceUnavailable
	}
	if status == fiber.StatusInternalServerError {
		s.logger.Error("command failed", "error", err)
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

// handleLandmarksWS accepts landmark producers. The tracking config is
// sent first so the browser can configure its tracker.
func (s *Server) handleLandmarksWS(c *websocket.Conn) {
	client := hub.NewClient(s.landmarks, c, s.handleInbound)
	if msg, err := protocol.NewConfigMessage(s.director.ClientConfig()); err == nil {
		client.SendJSON(msg)
	}
	client.Run()
}

// handleFramesWS streams binary position frames
func (s *Server) handleFramesWS(c *websocket.Conn) {
	hub.NewClient(s.frames, c, nil).Run()
}

// handleEventsWS streams JSON events, starting with the current state
func (s *Server) handleEventsWS(c *websocket.Conn) {
	client := hub.NewClient(s.events, c, s.handleInbound)
	if msg, err := protocol.NewStateMessage(s.director.Status().State()); err == nil {
		client.SendJSON(msg)
	}
	client.Run()
}

func (s *Server) handleInbound(client *hub.Client, data []byte) {
	reply, err := s.dispatch(data)
	if err != nil {
		s.logger.Debug("inbound message rejected", "client", client.ID(), "error", err)
		return
	}
	if reply != nil {
		if err := client.SendJSON(reply); err != nil {
			s.logger.Debug("reply not delivered", "client", client.ID(), "error", err)
		}
	}
}

// dispatch handles one inbound JSON envelope and returns an optional reply
func (s *Server) dispatch(data []byte) (*protocol.Message, error) {
	msg, err := protocol.ParseMessage(data)
	if err != nil {
		return nil, err
	}

	switch msg.Type {
	case protocol.TypeLandmarks:
		if s.sink == nil {
			return nil, errors.New("landmarks not accepted: local tracking active")
		}
		payload, err := msg.GetLandmarksData()
		if err != nil {
			return nil, fmt.Errorf("landmarks payload: %w", err)
		}
		return nil, s.sink.Push(payload.HandLandmarks(), time.Now())

	case protocol.TypeCommand:
		payload, err := msg.GetCommandData()
		if err != nil {
			return nil, fmt.Errorf("command payload: %w", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		return nil, s.director.Submit(ctx, show.Command{Action: payload.Action, Label: payload.Label})

	case protocol.TypePing:
		payload, err := msg.GetPingData()
		if err != nil {
			return nil, fmt.Errorf("ping payload: %w", err)
		}
		pingTS := payload.Timestamp
		if pingTS == 0 {
			pingTS = msg.Timestamp
		}
		return protocol.NewPongMessage(payload.ID, pingTS, time.Now().UnixMilli())
	}

	return nil, fmt.Errorf("unexpected message type %q", msg.Type)
}
