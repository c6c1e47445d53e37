package web

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-rangefinder/pkg/distance"
	"github.com/teslashibe/go-rangefinder/pkg/hub"
)

// StatusResponse summarizes the engine.
type StatusResponse struct {
	FocalLength    float64  `json:"focal_length"`
	SmoothFrames   int      `json:"smooth_frames"`
	MaxDistance    float64  `json:"max_distance"`
	MinSizePx      float64  `json:"min_size_px"`
	Classes        int      `json:"classes"`
	Calibrated     []string `json:"calibrated"`
	TrackedObjects int      `json:"tracked_objects"`
	Subscribers    int      `json:"subscribers"`
	Streaming      bool     `json:"streaming"`
	StreamDropped  int64    `json:"stream_dropped"`
}

// ClassInfo describes one configured class.
type ClassInfo struct {
	Name             string  `json:"name"`
	Width            float64 `json:"width"`
	Height           float64 `json:"height"`
	Reference        string  `json:"reference"`
	CorrectionFactor float64 `json:"correction_factor"`
}

// CalibrateRequest is the body of POST /api/calibration.
type CalibrateRequest struct {
	Class        string  `json:"class"`
	RealDistance float64 `json:"real_distance"`
	PixelSize    float64 `json:"pixel_size"`
	IsHeight     bool    `json:"is_height"`
}

// EstimateRequest is the body of POST /api/estimate.
type EstimateRequest struct {
	Class       string  `json:"class"`
	Width       float64 `json:"width"`
	Height      float64 `json:"height"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	FrameHeight float64 `json:"frame_height"`
	ObjectID    string  `json:"object_id"`
}

// EstimateResponse carries a null distance when none is available.
type EstimateResponse struct {
	Distance *float64 `json:"distance"`
	Category string   `json:"category"`
	Label    string   `json:"label"`
}

func errorJSON(c *fiber.Ctx, status int, err error) error {
	body := fiber.Map{"error": err.Error()}
	if hints := errors.FlattenHints(err); hints != "" {
		body["hint"] = hints
	}
	return c.Status(status).JSON(body)
}

// handleStatus returns the engine summary
func (s *Server) handleStatus(c *fiber.Ctx) error {
	cfg := s.engine.Config()
	return c.JSON(StatusResponse{
		FocalLength:    cfg.FocalLength,
		SmoothFrames:   s.engine.Smoother().Window(),
		MaxDistance:    cfg.MaxDistance,
		MinSizePx:      cfg.MinSizePx,
		Classes:        len(cfg.ObjectSizes),
		Calibrated:     s.engine.Calibration().Classes(),
		TrackedObjects: s.engine.Smoother().Len(),
		Subscribers:    s.distances.Count(),
		Streaming:      s.distances.IsRunning(),
		StreamDropped:  s.distances.Dropped(),
	})
}

// handleClasses lists configured classes in name order
func (s *Server) handleClasses(c *fiber.Ctx) error {
	names := s.engine.ClassNames()
	out := make([]ClassInfo, 0, len(names))
	for _, name := range names {
		spec, _ := s.engine.Spec(name)
		out = append(out, ClassInfo{
			Name:             name,
			Width:            spec.RealWidth,
			Height:           spec.RealHeight,
			Reference:        spec.Reference.String(),
			CorrectionFactor: spec.CorrectionFactor,
		})
	}
	return c.JSON(out)
}

func (s *Server) handleGetCalibration(c *fiber.Ctx) error {
	return c.JSON(s.engine.Calibration())
}

// handleCalibrate records a measurement for a class
func (s *Server) handleCalibrate(c *fiber.Ctx) error {
	var req CalibrateRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, errors.Wrap(err, "invalid body"))
	}

	err := s.engine.Calibrate(req.Class, req.RealDistance, req.PixelSize, req.IsHeight)
	switch {
	case errors.Is(err, distance.ErrUnknownClass):
		return errorJSON(c, fiber.StatusNotFound, err)
	case errors.Is(err, distance.ErrInvalidMeasurement):
		return errorJSON(c, fiber.StatusBadRequest, err)
	case err != nil:
		return errorJSON(c, fiber.StatusInternalServerError, err)
	}

	entry := s.engine.Calibration()[req.Class]
	return c.JSON(fiber.Map{
		"class": req.Class,
		"entry": entry,
	})
}

func (s *Server) handleResetTracking(c *fiber.Ctx) error {
	s.engine.ResetTracking()
	s.logger.Info("tracking reset via api")
	return c.JSON(fiber.Map{"ok": true})
}

// handleReleaseObject forgets the history of one object id
func (s *Server) handleReleaseObject(c *fiber.Ctx) error {
	id := c.Params("id")
	s.engine.Smoother().Release(distance.ObjectID(id))
	s.logger.Debug("object released via api", "object_id", id)
	return c.JSON(fiber.Map{"ok": true})
}

// handleEstimate estimates one observation. Without an object_id the
// estimate is not smoothed and leaves no history behind.
func (s *Server) handleEstimate(c *fiber.Ctx) error {
	var req EstimateRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, errors.Wrap(err, "invalid body"))
	}
	if req.Class == "" {
		return errorJSON(c, fiber.StatusBadRequest, errors.New("class is required"))
	}

	obs := distance.Observation{
		Class:       req.Class,
		Width:       req.Width,
		Height:      req.Height,
		X:           req.X,
		Y:           req.Y,
		FrameHeight: req.FrameHeight,
		ID:          distance.ObjectID(req.ObjectID),
	}

	var (
		cm float64
		ok bool
	)
	if req.ObjectID == "" {
		cm, ok = s.engine.Instant(obs)
	} else {
		cm, ok = s.engine.Estimate(obs)
	}

	resp := EstimateResponse{Category: distance.Category(0)}
	if ok {
		resp.Distance = &cm
		resp.Category = distance.Category(cm)
		resp.Label = distance.FormatLabel(req.Class, cm, s.unit)
	}
	return c.JSON(resp)
}

// handleDistancesWS streams per-frame readings until the client leaves
func (s *Server) handleDistancesWS(conn *websocket.Conn) {
	ctx, cancel := context.WithTimeout(s.ctx, subscribeTimeout)
	client, err := hub.NewClient(ctx, s.distances, conn)
	cancel()
	if err != nil {
		s.logger.Warn("subscribe failed", "error", err)
		conn.Close()
		return
	}
	client.Run(s.ctx)
}
