package ebl

import (
	"github.com/pkg/errors"
	"github.com/tarstars/bridged_boosting/golang/bridged_boost/lossbridge"
	"github.com/tarstars/bridged_boosting/golang/bridged_boost/objectives"
	"gonum.org/v1/gonum/mat"
)

//metricProbe follows the scores of a dataset the model is not fitted on and
//measures the loss through a zero update.
type metricProbe struct {
	scope    *lossbridge.ScopedLoss
	features *mat.Dense
	classes  int
	total    float64

	bridge     lossbridge.ApplyUpdateBridge
	zero       []float64
	regression []float64
	labels     []int64
}

func newMetricProbe(scope *lossbridge.ScopedLoss, dataset Dataset, classes, width int) (*metricProbe, error) {
	h, w, err := dataset.validatedDimensions()
	if err != nil {
		return nil, err
	}
	if w != width {
		return nil, errors.Errorf("%d features, the model has %d", w, width)
	}
	probe := &metricProbe{
		scope:    scope,
		features: dataset.Features,
		classes:  classes,
		total:    dataset.weightTotal(),
		zero:     make([]float64, classes),
	}

	stride := 1
	if scope.Wrapper.LossHasHessian {
		stride = 2
	}
	probe.bridge = lossbridge.ApplyUpdateBridge{
		Samples:              h,
		Classes:              classes,
		Pack:                 -1,
		Weights:              dataset.Weights,
		SampleScores:         make([]float64, h*classes),
		GradientsAndHessians: make([]float64, h*classes*stride),
	}
	if classes > 1 {
		probe.bridge.MulticlassMidwayTemp = make([]float64, h*classes)
	}

	link, _ := lossbridge.Link(&scope.Wrapper)
	if link == objectives.LogitLink || link == objectives.SoftmaxLink {
		if probe.labels, _, err = dataset.classTargets(); err != nil {
			return nil, err
		}
		probe.bridge.SetClassTargets(probe.labels)
	} else {
		probe.regression = dataset.regressionTargets()
		probe.bridge.SetRegressionTargets(probe.regression)
	}
	return probe, nil
}

func (probe *metricProbe) addIntercept(intercept []float64) {
	scores := probe.bridge.SampleScores
	for p := 0; p < probe.bridge.Samples; p++ {
		for k, v := range intercept {
			scores[p*probe.classes+k] += v
		}
	}
}

//addTerm adds the cell update of feature q to every sample.
func (probe *metricProbe) addTerm(cuts []float64, q int, update []float64) {
	scores := probe.bridge.SampleScores
	for p := 0; p < probe.bridge.Samples; p++ {
		cell := binOf(cuts, probe.features.At(p, q))
		for k := 0; k < probe.classes; k++ {
			scores[p*probe.classes+k] += update[cell*probe.classes+k]
		}
	}
}

func (probe *metricProbe) evaluate() (float64, error) {
	probe.bridge.UpdateTensorScores = probe.zero
	probe.bridge.Pack = -1
	probe.bridge.Packed = nil
	probe.bridge.CalcMetric = true
	probe.bridge.MetricOut = 0
	if status := probe.scope.Apply(&probe.bridge); status != lossbridge.StatusSuccess {
		return 0, errors.WithMessage(status.Err(), "measure metric")
	}
	value, status := lossbridge.FinishMetric(&probe.scope.Wrapper, probe.bridge.MetricOut/probe.total)
	if status != lossbridge.StatusSuccess {
		return 0, status.Err()
	}
	return value, nil
}
