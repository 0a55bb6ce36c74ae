package objectives

import (
	"math"

	"github.com/pkg/errors"
)

const gammaEpsilon = 1e-9

//NewRmse is the squared error objective. Its gradient is the residual, so a
//zone may run it without targets once the residuals are stored.
func NewRmse[F Float](outputs int, params Params, ops Ops[F]) (*Objective[F], error) {
	if err := readParams(params).done(); err != nil {
		return nil, err
	}
	if err := singleOutput("rmse", outputs); err != nil {
		return nil, err
	}
	return &Objective[F]{
		Name:            "rmse",
		Kind:            Regression,
		Link:            IdentityLink,
		Classes:         1,
		HasHessian:      false,
		TargetNotNeeded: true,
		UpdateMultiple:  1,
		GradientHessian: func(score, target F) (F, F) {
			return score - target, 1
		},
		Metric: func(score, target F) F {
			residual := score - target
			return residual * residual
		},
		FinishMetric: math.Sqrt,
	}, nil
}

//NewGammaDeviance uses a log link; targets must be positive.
func NewGammaDeviance[F Float](outputs int, params Params, ops Ops[F]) (*Objective[F], error) {
	if err := readParams(params).done(); err != nil {
		return nil, err
	}
	if err := singleOutput("gamma_deviance", outputs); err != nil {
		return nil, err
	}
	return &Objective[F]{
		Name:           "gamma_deviance",
		Kind:           Regression,
		Link:           LogLink,
		Classes:        1,
		HasHessian:     true,
		UpdateMultiple: 1,
		GradientHessian: func(score, target F) (F, F) {
			ratio := target / ops.Exp(score)
			return 1 - ratio, ratio
		},
		Metric: func(score, target F) F {
			frac := target / (ops.Exp(score) + gammaEpsilon)
			return frac - 1 - ops.Log(frac)
		},
		FinishMetric: devianceFinish,
	}, nil
}

//NewPoissonDeviance uses a log link. The hessian is inflated by
//exp(max_delta_step) to keep the Newton steps bounded.
func NewPoissonDeviance[F Float](outputs int, params Params, ops Ops[F]) (*Objective[F], error) {
	reader := readParams(params)
	maxDeltaStep := reader.float("max_delta_step", 0.7)
	if err := reader.done(); err != nil {
		return nil, err
	}
	if !(maxDeltaStep > 0) || math.IsInf(maxDeltaStep, 0) {
		return nil, errors.Wrapf(ErrParameterValue, "max_delta_step=%v must be positive", maxDeltaStep)
	}
	if err := singleOutput("poisson_deviance", outputs); err != nil {
		return nil, err
	}
	hessianScale := F(math.Exp(maxDeltaStep))
	return &Objective[F]{
		Name:           "poisson_deviance",
		Kind:           Regression,
		Link:           LogLink,
		Classes:        1,
		HasHessian:     true,
		UpdateMultiple: 1,
		GradientHessian: func(score, target F) (F, F) {
			prediction := ops.Exp(score)
			return prediction - target, prediction * hessianScale
		},
		Metric: func(score, target F) F {
			prediction := ops.Exp(score)
			if target <= 0 {
				return prediction
			}
			return target*(ops.Log(target)-score) - (target - prediction)
		},
		FinishMetric: devianceFinish,
	}, nil
}

//NewTweedieDeviance uses a log link with variance_power in (1, 2).
func NewTweedieDeviance[F Float](outputs int, params Params, ops Ops[F]) (*Objective[F], error) {
	reader := readParams(params)
	rho := reader.float("variance_power", 1.5)
	if err := reader.done(); err != nil {
		return nil, err
	}
	if !(rho > 1 && rho < 2) {
		return nil, errors.Wrapf(ErrParameterValue, "variance_power=%v must be in (1, 2)", rho)
	}
	if err := singleOutput("tweedie_deviance", outputs); err != nil {
		return nil, err
	}
	oneMinus := F(1 - rho)
	twoMinus := F(2 - rho)
	return &Objective[F]{
		Name:           "tweedie_deviance",
		Kind:           Regression,
		Link:           LogLink,
		Classes:        1,
		HasHessian:     true,
		UpdateMultiple: 1,
		GradientHessian: func(score, target F) (F, F) {
			a := ops.Exp(oneMinus * score)
			b := ops.Exp(twoMinus * score)
			return -target*a + b, -target*oneMinus*a + twoMinus*b
		},
		Metric: func(score, target F) F {
			var first F
			if target > 0 {
				first = ops.Pow(target, twoMinus) / (oneMinus * twoMinus)
			}
			return first - target*ops.Exp(oneMinus*score)/oneMinus + ops.Exp(twoMinus*score)/twoMinus
		},
		FinishMetric: devianceFinish,
	}, nil
}

//NewPseudoHuber is quadratic near zero and linear beyond delta.
func NewPseudoHuber[F Float](outputs int, params Params, ops Ops[F]) (*Objective[F], error) {
	reader := readParams(params)
	delta := reader.float("delta", 1)
	if err := reader.done(); err != nil {
		return nil, err
	}
	if !(delta > 0) || math.IsInf(delta, 0) {
		return nil, errors.Wrapf(ErrParameterValue, "delta=%v must be positive", delta)
	}
	if err := singleOutput("pseudo_huber", outputs); err != nil {
		return nil, err
	}
	d := F(delta)
	return &Objective[F]{
		Name:           "pseudo_huber",
		Kind:           Regression,
		Link:           IdentityLink,
		Classes:        1,
		HasHessian:     true,
		UpdateMultiple: 1,
		GradientHessian: func(score, target F) (F, F) {
			r := (score - target) / d
			root := ops.Sqrt(1 + r*r)
			return (score - target) / root, 1 / (root * root * root)
		},
		Metric: func(score, target F) F {
			r := (score - target) / d
			return d * d * (ops.Sqrt(1+r*r) - 1)
		},
		FinishMetric: identityFinish,
	}, nil
}
