package ebl

import (
	"log"

	"github.com/pkg/errors"
	"github.com/tarstars/bridged_boosting/golang/bridged_boost/lossbridge"
	"github.com/tarstars/bridged_boosting/golang/bridged_boost/objectives"
)

//EBoosterParams collect arguments required to construct a booster.
type EBoosterParams struct {
	Matrix        Dataset
	NStages       int
	LearningRate  float64
	MaxBins       int
	RegLambda     float64
	Loss          string
	Zone          lossbridge.Zone
	PrintMessages []Dataset
	ThreadsNum    int
}

//trainer holds the buffers shared with the loss bridge during fitting.
type trainer struct {
	scope      *lossbridge.ScopedLoss
	classes    int
	classKind  bool
	h          int
	bridge     lossbridge.ApplyUpdateBridge
	regression []float64
	labels     []int64
}

//acquireLoss asks the zone for a single output first and widens the loss to
//one output per class when a classification loss meets more than two classes.
func acquireLoss(scope *lossbridge.ScopedLoss, params EBoosterParams) (classes int, classKind bool, labels []int64, err error) {
	if status := scope.Acquire(params.Zone, &lossbridge.Config{OutputCount: 1}, []byte(params.Loss)); status != lossbridge.StatusSuccess {
		return 0, false, nil, errors.WithMessagef(status.Err(), "loss %q in zone %v", params.Loss, params.Zone)
	}
	link, _ := lossbridge.Link(&scope.Wrapper)
	if link != objectives.LogitLink {
		return 1, false, nil, nil
	}

	labels, seen, err := params.Matrix.classTargets()
	if err != nil {
		return 0, false, nil, err
	}
	if seen <= 2 {
		return 1, true, labels, nil
	}
	if status := scope.Acquire(params.Zone, &lossbridge.Config{OutputCount: seen}, []byte(params.Loss)); status != lossbridge.StatusSuccess {
		return 0, false, nil, errors.WithMessagef(status.Err(), "loss %q with %d classes", params.Loss, seen)
	}
	return seen, true, labels, nil
}

func newTrainer(scope *lossbridge.ScopedLoss, params EBoosterParams, h int) (*trainer, error) {
	classes, classKind, labels, err := acquireLoss(scope, params)
	if err != nil {
		return nil, err
	}
	tr := &trainer{scope: scope, classes: classes, classKind: classKind, h: h, labels: labels}

	stride := 1
	if scope.Wrapper.LossHasHessian {
		stride = 2
	}
	tr.bridge = lossbridge.ApplyUpdateBridge{
		Samples:              h,
		Classes:              classes,
		Pack:                 -1,
		Weights:              params.Matrix.Weights,
		SampleScores:         make([]float64, h*classes),
		GradientsAndHessians: make([]float64, h*classes*stride),
	}
	if classes > 1 {
		tr.bridge.MulticlassMidwayTemp = make([]float64, h*classes)
	}
	if classKind {
		tr.bridge.SetClassTargets(tr.labels)
	} else {
		tr.regression = params.Matrix.regressionTargets()
		tr.bridge.SetRegressionTargets(tr.regression)
	}
	return tr, nil
}

//apply pushes one update tensor through the loss. Losses that keep their
//residuals in the gradient buffer stop reading targets after the first call.
func (tr *trainer) apply(ut *UpdateTensor, pack int, packed []uint64, calcMetric bool) (float64, error) {
	tr.bridge.UpdateTensorScores = ut.Scores()
	tr.bridge.Pack = pack
	tr.bridge.Packed = packed
	tr.bridge.CalcMetric = calcMetric
	tr.bridge.MetricOut = 0
	if status := tr.scope.Apply(&tr.bridge); status != lossbridge.StatusSuccess {
		return 0, errors.WithMessage(status.Err(), "apply update")
	}
	if tr.scope.Wrapper.TargetNotNeeded {
		tr.bridge.Targets = nil
	}
	return tr.bridge.MetricOut, nil
}

func (tr *trainer) gradients(weights []float64) gradientSource {
	return gradientSource{
		gradientsAndHessians: tr.bridge.GradientsAndHessians,
		hasHessian:           tr.scope.Wrapper.LossHasHessian,
		weights:              weights,
		classes:              tr.classes,
	}
}

//NewEBooster fits a cyclic additive model: an intercept, then NStages passes
//of one Newton step per binned feature.
func NewEBooster(params EBoosterParams) (*EBooster, error) {
	h, w, err := params.Matrix.validatedDimensions()
	if err != nil {
		return nil, errors.WithMessage(err, "training dataset")
	}
	if h == 0 {
		return nil, errors.New("training dataset is empty")
	}
	if params.NStages < 0 || params.LearningRate <= 0 || params.RegLambda < 0 {
		return nil, errors.Errorf("n_stages %d, learning_rate %v and reg_lambda %v are not usable",
			params.NStages, params.LearningRate, params.RegLambda)
	}
	monitors := make([]*metricProbe, 0, len(params.PrintMessages))

	binned, err := BinFeatures(params.Matrix.Features, params.MaxBins, params.ThreadsNum)
	if err != nil {
		return nil, err
	}

	var scope lossbridge.ScopedLoss
	defer scope.Close()
	tr, err := newTrainer(&scope, params, h)
	if err != nil {
		return nil, err
	}
	link, _ := lossbridge.Link(&scope.Wrapper)
	_, lossName, _ := lossbridge.Describe(&scope.Wrapper)

	ebooster := &EBooster{
		Loss:                params.Loss,
		LossName:            lossName,
		Zone:                params.Zone.String(),
		Classes:             tr.classes,
		Link:                link,
		Intercept:           make([]float64, tr.classes),
		Terms:               make([]Term, w),
		LearningCurveTitles: []string{"train"},
	}
	for q, feature := range binned {
		ebooster.Terms[q] = Term{Feature: q, Cuts: feature.Cuts, Scores: make([]float64, feature.Cells()*tr.classes)}
	}
	for _, dataset := range params.PrintMessages {
		probe, err := newMetricProbe(&scope, dataset, tr.classes, w)
		if err != nil {
			return nil, errors.WithMessagef(err, "dataset %q", dataset.description())
		}
		monitors = append(monitors, probe)
		ebooster.LearningCurveTitles = append(ebooster.LearningCurveTitles, dataset.description())
	}

	trainTotal := params.Matrix.weightTotal()
	scale := params.LearningRate * scope.Wrapper.UpdateMultiple

	intercept, err := NewUpdateTensor(1, tr.classes, -1)
	if err != nil {
		return nil, err
	}
	if _, err := tr.apply(intercept, -1, nil, false); err != nil {
		return nil, err
	}
	BuildHistogram(tr.gradients(params.Matrix.Weights), 1, h, func(int) int { return 0 }).
		NewtonStep(scope.Wrapper.UpdateMultiple, params.RegLambda, intercept)
	if _, err := tr.apply(intercept, -1, nil, false); err != nil {
		return nil, err
	}
	copy(ebooster.Intercept, intercept.Scores())
	for _, probe := range monitors {
		probe.addIntercept(ebooster.Intercept)
	}

	updates := make([]*UpdateTensor, w)
	for q, feature := range binned {
		if updates[q], err = NewUpdateTensor(feature.Cells(), tr.classes, q); err != nil {
			return nil, err
		}
	}

	for stage := 0; stage < params.NStages; stage++ {
		cycle := Cycle{Updates: make([][]float64, w)}
		trainMetric := 0.0
		for q, feature := range binned {
			bins := feature.Bins
			BuildHistogram(tr.gradients(params.Matrix.Weights), feature.Cells(), h, func(p int) int { return bins[p] }).
				NewtonStep(scale, params.RegLambda, updates[q])
			metric, err := tr.apply(updates[q], feature.Pack, feature.Packed, q == w-1)
			if err != nil {
				return nil, errors.WithMessagef(err, "stage %d feature %d", stage, q)
			}
			trainMetric = metric
			cycle.Updates[q] = append([]float64(nil), updates[q].Scores()...)
			ebooster.Terms[q].add(updates[q].Scores())
			for _, probe := range monitors {
				probe.addTerm(ebooster.Terms[q].Cuts, q, updates[q].Scores())
			}
		}
		if w == 0 {
			zero, err := NewUpdateTensor(1, tr.classes, -1)
			if err != nil {
				return nil, err
			}
			if trainMetric, err = tr.apply(zero, -1, nil, true); err != nil {
				return nil, err
			}
		}
		ebooster.Cycles = append(ebooster.Cycles, cycle)

		row := make([]float64, 0, 1+len(monitors))
		value, status := lossbridge.FinishMetric(&scope.Wrapper, trainMetric/trainTotal)
		if status != lossbridge.StatusSuccess {
			return nil, status.Err()
		}
		row = append(row, value)
		for _, probe := range monitors {
			value, err := probe.evaluate()
			if err != nil {
				return nil, err
			}
			row = append(row, value)
		}
		ebooster.LearningCurves = append(ebooster.LearningCurves, row)
		log.Printf("stage %d: %v\n", stage+1, row)
	}
	return ebooster, nil
}
