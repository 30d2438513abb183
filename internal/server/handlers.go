package server

import (
	"encoding/json"
	"io"
	"math"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/YuminosukeSato/weldsim/pkg/errors"
	"github.com/YuminosukeSato/weldsim/powerquality"
	"github.com/YuminosukeSato/weldsim/weld"
)

const (
	infoNote   = "Models are trained on synthetic data for demonstration only."
	healthNote = "weldsim inference server running"
)

type modelInfoResponse struct {
	Features []string               `json:"features"`
	Models   weld.ModelDescriptions `json:"models"`
	Note     string                 `json:"note"`
	Bank     weld.BankInfo          `json:"bank"`
}

type predictResponse struct {
	Input map[string]*float64 `json:"input"`
	weld.PredictionResult
}

type simulateResponse struct {
	Simulation []weld.TrajectoryPoint `json:"simulation"`
	Segments   int                    `json:"segments"`
	LengthMm   float64                `json:"length_mm"`
}

type powerQualityClass struct {
	Code int                `json:"code"`
	Name powerquality.Class `json:"name"`
}

type retrainRequest struct {
	Samples  *int    `json:"samples"`
	Seed     *uint64 `json:"seed"`
	DataSeed *uint64 `json:"data_seed"`
	Kind     *string `json:"kind"`
}

func (s *Server) modelInfo(c *gin.Context) {
	bank := s.svc.Bank()
	if bank == nil {
		s.fail(c, errors.NewPredictionError("model_info", errors.New("no model bank loaded")))
		return
	}
	c.JSON(http.StatusOK, modelInfoResponse{
		Features: bank.FeatureOrder(),
		Models:   bank.Describe(),
		Note:     infoNote,
		Bank:     bank.Info(),
	})
}

func (s *Server) predict(c *gin.Context) {
	raw, err := readObject(c.Request.Body)
	if err != nil {
		s.fail(c, err)
		return
	}
	res, err := s.svc.Predict(c.Request.Context(), raw)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, predictResponse{Input: weld.EchoInput(raw), PredictionResult: res})
}

func (s *Server) simulate(c *gin.Context) {
	raw, err := readObject(c.Request.Body)
	if err != nil {
		s.fail(c, err)
		return
	}

	lengthMm := weld.DefaultLengthMm
	if v, ok := raw["length_mm"]; ok {
		if lengthMm, err = weld.Number("length_mm", v); err != nil {
			s.fail(c, err)
			return
		}
	}
	segments := weld.DefaultSegments
	if v, ok := raw["segments"]; ok {
		f, err := weld.Number("segments", v)
		if err != nil {
			s.fail(c, err)
			return
		}
		if math.Abs(f) > weld.MaxSegments+1 {
			s.fail(c, errors.NewInvalidInputError("segments", v, "must be between 1 and 10000"))
			return
		}
		segments = int(math.Trunc(f))
	}

	points, err := s.svc.Simulate(c.Request.Context(), raw, lengthMm, segments)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, simulateResponse{Simulation: points, Segments: segments, LengthMm: lengthMm})
}

func (s *Server) health(c *gin.Context) {
	resp := gin.H{"status": "ok", "note": healthNote}
	if s.drift != nil {
		resp["drift"] = s.drift.Stats()
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) powerQualityClasses(c *gin.Context) {
	classes := powerquality.Classes()
	out := make([]powerQualityClass, 0, len(classes))
	for _, cls := range classes {
		out = append(out, powerQualityClass{Code: cls.Code(), Name: cls})
	}
	c.JSON(http.StatusOK, gin.H{"classes": out})
}

func (s *Server) retrain(c *gin.Context) {
	var req retrainRequest
	if err := decodeStrict(c.Request.Body, &req); err != nil {
		s.fail(c, err)
		return
	}

	samples := s.cfg.Bank.Samples
	if req.Samples != nil {
		samples = *req.Samples
	}
	dataSeed := s.cfg.Bank.DataSeed
	if req.DataSeed != nil {
		dataSeed = *req.DataSeed
	}
	opts := s.cfg.BankOptions()
	if req.Seed != nil {
		opts = append(opts, weld.WithSeed(*req.Seed))
	}
	if req.Kind != nil {
		kind, err := weld.ParseKind(*req.Kind)
		if err != nil {
			s.fail(c, errors.NewInvalidInputError("kind", *req.Kind, "must be 'forest' or 'linear'"))
			return
		}
		opts = append(opts, weld.WithKind(kind))
	}

	ts, err := weld.GenerateSynthetic(samples, dataSeed)
	if err != nil {
		s.fail(c, err)
		return
	}
	bank, err := s.svc.Retrain(c.Request.Context(), ts, append(opts, weld.WithSource("synthetic"))...)
	if err != nil {
		s.fail(c, err)
		return
	}
	if s.recorder != nil {
		if err := s.recorder.Record(c.Request.Context(), bank.Info()); err != nil {
			s.logger.Warn("failed to record training run", err)
		}
	}
	c.JSON(http.StatusOK, bank.Info())
}

// readObject decodes a JSON object body. An empty body is an empty object.
func readObject(body io.Reader) (weld.RawInput, error) {
	var v any
	if err := decodeStrict(body, &v); err != nil {
		return nil, err
	}
	if v == nil {
		return weld.RawInput{}, nil
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, errors.NewInvalidInputError("body", v, "must be a JSON object")
	}
	return weld.RawInput(obj), nil
}

// decodeStrict decodes exactly one JSON value. An empty body leaves v
// untouched; anything after the first value is malformed.
func decodeStrict(body io.Reader, v any) error {
	dec := json.NewDecoder(body)
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		if err == io.EOF {
			return nil
		}
		return errors.NewInvalidInputError("body", nil, "malformed JSON: "+err.Error())
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.NewInvalidInputError("body", nil, "malformed JSON: unexpected data after the top-level value")
	}
	return nil
}
