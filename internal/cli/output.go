package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/YuminosukeSato/weldsim/pkg/errors"
	"github.com/YuminosukeSato/weldsim/weld"
)

// emit writes v as indented JSON, or as text when format is "text" and v
// knows how to render itself.
func (o *RootOptions) emit(v any) error {
	if o.Format == "text" {
		if t, ok := v.(texter); ok {
			_, err := io.WriteString(o.Out, t.Text())
			return err
		}
	}
	enc := json.NewEncoder(o.Out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type texter interface {
	Text() string
}

func decodeInput(r io.Reader) (weld.RawInput, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		if err == io.EOF {
			return weld.RawInput{}, nil
		}
		return nil, errors.NewInvalidInputError("input", nil, "malformed JSON: "+err.Error())
	}
	if v == nil {
		return weld.RawInput{}, nil
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, errors.NewInvalidInputError("input", v, "must be a JSON object")
	}
	return weld.RawInput(obj), nil
}

type predictOutput struct {
	Input map[string]*float64 `json:"input"`
	weld.PredictionResult
}

func (p predictOutput) Text() string {
	return fmt.Sprintf("penetration_mm:     %.4f\nbead_width_mm:      %.4f\ndefect_probability: %.4f\ndefect_label:       %d\n",
		p.PenetrationMm, p.BeadWidthMm, p.DefectProbability, p.DefectLabel)
}

type simulateOutput struct {
	Simulation []weld.TrajectoryPoint `json:"simulation"`
	Segments   int                    `json:"segments"`
	LengthMm   float64                `json:"length_mm"`
}

func (s simulateOutput) Text() string {
	out := fmt.Sprintf("%10s %12s %11s %14s %13s %8s %6s\n",
		"position", "travel_speed", "torch_angle", "penetration", "bead_width", "p_defect", "label")
	for _, p := range s.Simulation {
		out += fmt.Sprintf("%10.3f %12.4f %11.4f %14.4f %13.4f %8.4f %6d\n",
			p.PositionMm, p.TravelSpeed, p.TorchAngle, p.PenetrationMm, p.BeadWidthMm, p.DefectProbability, p.DefectLabel)
	}
	return out
}

type infoOutput struct {
	Features []string               `json:"features"`
	Models   weld.ModelDescriptions `json:"models"`
	Bank     weld.BankInfo          `json:"bank"`
	Runs     []weld.BankInfo        `json:"runs,omitempty"`
}

func (i infoOutput) Text() string {
	out := fmt.Sprintf("bank:        %s (%s, seed %d, %d samples)\n", i.Bank.ID, i.Bank.Kind, i.Bank.Seed, i.Bank.Samples)
	out += fmt.Sprintf("penetration: %s\nbead_width:  %s\ndefect:      %s\nfeatures:    %v\n",
		i.Models.Penetration, i.Models.BeadWidth, i.Models.Defect, i.Features)
	if r := i.Bank.Report; r != nil {
		out += reportText(r)
	}
	for _, run := range i.Runs {
		out += fmt.Sprintf("run %s  %s  %-6s seed=%d samples=%d\n",
			run.ID, run.TrainedAt.Format("2006-01-02T15:04:05Z07:00"), run.Kind, run.Seed, run.Samples)
	}
	return out
}

type trainOutput struct {
	Bank weld.BankInfo `json:"bank"`
	Path string        `json:"path"`
}

func (t trainOutput) Text() string {
	out := fmt.Sprintf("trained %s bank %s on %d samples -> %s\n", t.Bank.Kind, t.Bank.ID, t.Bank.Samples, t.Path)
	if t.Bank.Report != nil {
		out += reportText(t.Bank.Report)
	}
	return out
}

func reportText(r *weld.EvaluationReport) string {
	rows := map[string]string{
		"penetration": fmt.Sprintf("r2=%.4f rmse=%.4f mae=%.4f", r.Penetration.R2, r.Penetration.RMSE, r.Penetration.MAE),
		"bead_width":  fmt.Sprintf("r2=%.4f rmse=%.4f mae=%.4f", r.BeadWidth.R2, r.BeadWidth.RMSE, r.BeadWidth.MAE),
		"defect":      fmt.Sprintf("accuracy=%.4f log_loss=%.4f auc=%.4f", r.Defect.Accuracy, r.Defect.LogLoss, r.Defect.AUC),
	}
	keys := make([]string, 0, len(rows))
	for k := range rows {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := fmt.Sprintf("hold-out (%d rows):\n", r.HoldoutSamples)
	for _, k := range keys {
		out += fmt.Sprintf("  %-12s %s\n", k, rows[k])
	}
	return out
}
