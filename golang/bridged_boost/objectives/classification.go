package objectives

import (
	"github.com/pkg/errors"
)

//NewLogLoss is binary cross entropy with one output and softmax cross
//entropy with more than two. Two outputs are refused: binary problems carry a
//single logit.
func NewLogLoss[F Float](outputs int, params Params, ops Ops[F]) (*Objective[F], error) {
	if err := readParams(params).done(); err != nil {
		return nil, err
	}
	switch {
	case outputs == 1:
		return &Objective[F]{
			Name:           "log_loss",
			Kind:           Binary,
			Link:           LogitLink,
			Classes:        1,
			HasHessian:     true,
			UpdateMultiple: 1,
			GradientHessian: func(score, target F) (F, F) {
				p := sigmoid(ops, score)
				return p - target, p * (1 - p)
			},
			Metric: func(score, target F) F {
				return softplus(ops, score) - target*score
			},
			FinishMetric: identityFinish,
		}, nil
	case outputs > 2:
		return &Objective[F]{
			Name:           "log_loss",
			Kind:           Multiclass,
			Link:           SoftmaxLink,
			Classes:        outputs,
			HasHessian:     true,
			UpdateMultiple: float64(outputs-1) / float64(outputs),
			FinishMetric:   identityFinish,
		}, nil
	default:
		return nil, errors.Wrapf(ErrConfigMismatch, "log_loss needs 1 or more than 2 outputs, got %d", outputs)
	}
}

//MulticlassGradients fills the per class gradient and hessian of one sample
//whose class probabilities are in probs and returns its metric contribution
//-log(probs[target]) computed as lse-scores[target].
func MulticlassGradients[F Float](probs []F, lse, targetScore F, target int, gradients, hessians []F) F {
	for k, p := range probs {
		g := p
		if k == target {
			g -= 1
		}
		gradients[k] = g
		hessians[k] = p * (1 - p)
	}
	return lse - targetScore
}

//All returns a fresh name to factory table with every objective.
func All[F Float]() map[string]Factory[F] {
	return map[string]Factory[F]{
		"rmse":             NewRmse[F],
		"log_loss":         NewLogLoss[F],
		"gamma_deviance":   NewGammaDeviance[F],
		"poisson_deviance": NewPoissonDeviance[F],
		"tweedie_deviance": NewTweedieDeviance[F],
		"pseudo_huber":     NewPseudoHuber[F],
	}
}
