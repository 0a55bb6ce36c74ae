// Package objectives holds the per-sample math of the boosting losses.
//
// Every objective is generic over the float type it computes in, so the same
// definition serves the double precision CPU zone and the single precision
// CUDA zone. Zones pick the matching Ops.
package objectives

import (
	"math"
	"sort"

	"github.com/pkg/errors"
)

var (
	//ErrUnknownParameter is returned for a parameter key the objective does not accept.
	ErrUnknownParameter = errors.New("unknown parameter")
	//ErrParameterValue is returned for a parameter outside its domain.
	ErrParameterValue = errors.New("parameter value out of range")
	//ErrConfigMismatch is returned when the objective cannot serve the requested output count.
	ErrConfigMismatch = errors.New("objective does not match the output count")
)

//Kind tells a zone how targets and scores are laid out.
type Kind int

const (
	//Regression reads one float64 target and one score per sample.
	Regression Kind = iota
	//Binary reads an int64 class index and one score per sample.
	Binary
	//Multiclass reads an int64 class index and one score per class.
	Multiclass
)

//Link maps a score to a prediction.
type Link int

const (
	IdentityLink Link = iota
	LogLink
	LogitLink
	SoftmaxLink
)

//Inverse converts a single score into the prediction space of the link.
//SoftmaxLink is not defined per score and returns the score unchanged.
func (l Link) Inverse(score float64) float64 {
	switch l {
	case LogLink:
		return math.Exp(score)
	case LogitLink:
		return sigmoid(Float64Ops, score)
	default:
		return score
	}
}

//Objective is one configured loss in precision F.
type Objective[F Float] struct {
	Name            string
	Kind            Kind
	Link            Link
	Classes         int
	HasHessian      bool
	TargetNotNeeded bool
	UpdateMultiple  float64

	//GradientHessian and Metric serve Regression and Binary objectives.
	GradientHessian func(score, target F) (gradient, hessian F)
	Metric          func(score, target F) F

	//FinishMetric turns the weighted mean of Metric into the reported value.
	FinishMetric func(meanMetric float64) float64
}

//Factory builds an objective for outputs scores per sample.
type Factory[F Float] func(outputs int, params Params, ops Ops[F]) (*Objective[F], error)

//Params are the key=value pairs that follow the objective name.
type Params map[string]float64

//Keys returns the parameter names in sorted order.
func (p Params) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

type paramReader struct {
	params Params
	used   map[string]bool
}

func readParams(params Params) *paramReader {
	return &paramReader{params: params, used: make(map[string]bool)}
}

func (r *paramReader) float(key string, defaultValue float64) float64 {
	r.used[key] = true
	if v, ok := r.params[key]; ok {
		return v
	}
	return defaultValue
}

func (r *paramReader) done() error {
	for _, key := range r.params.Keys() {
		if !r.used[key] {
			return errors.Wrapf(ErrUnknownParameter, "%q", key)
		}
	}
	return nil
}

func singleOutput(name string, outputs int) error {
	if outputs != 1 {
		return errors.Wrapf(ErrConfigMismatch, "%s needs 1 output, got %d", name, outputs)
	}
	return nil
}

func identityFinish(meanMetric float64) float64 {
	return meanMetric
}

func devianceFinish(meanMetric float64) float64 {
	return 2 * meanMetric
}
