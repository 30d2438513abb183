// Package weldsim trains and serves surrogate models for arc welding runs.
//
// A run is described by eight process parameters: welding mode, current,
// voltage, wire feed speed, travel speed, torch angle, gas flow rate and
// material thickness. A model bank maps them to penetration depth, bead width and the
// probability that the joint is defective.
//
// # Layout
//
//   - weld: feature parsing, synthetic data, model bank, trajectory simulation
//     and the concurrency-safe Service wrapping them
//   - powerquality: power-quality disturbance class codes
//   - sklearn/ensemble, sklearn/tree, sklearn/linear_model, linear: estimators
//   - preprocessing, metrics: standard scaling and evaluation scores
//   - sklearn/drift: ADWIN change detection over predicted defect probability
//   - internal/server: HTTP API (gin) with optional Redis rate limiting
//   - internal/registry: SQLite log of training runs
//   - internal/chart: trajectory plots (gonum/plot)
//   - internal/config: YAML, .env and WELDSIM_ environment configuration
//   - cmd/weldsim: cobra CLI (serve, train, predict, simulate, plot, info)
//
// # Quick Start
//
//	weldsim train --out bank.gob --samples 2500 --seed 0
//	weldsim serve --bank bank.gob --addr :5000
//
//	curl -s localhost:5000/predict -d '{"current": 180, "travel_speed": 8}'
//
// Library use:
//
//	ts, _ := weld.GenerateSynthetic(2500, 42)
//	bank, err := weld.Train(ctx, ts, weld.WithSeed(0))
//	if err != nil {
//	    return err
//	}
//	svc := weld.NewService(bank)
//	res, err := svc.Predict(ctx, weld.RawInput{"current": 180.0})
package weldsim
