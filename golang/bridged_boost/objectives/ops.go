package objectives

import (
	"math"

	"github.com/chewxy/math32"
	"gonum.org/v1/gonum/floats"
)

//Float is the precision an objective computes in.
type Float interface {
	~float32 | ~float64
}

//Ops carries the transcendental functions of one precision.
type Ops[F Float] struct {
	Exp       func(F) F
	Log       func(F) F
	Sqrt      func(F) F
	Pow       func(x, y F) F
	LogSumExp func([]F) F
}

//Float64Ops is the double precision math used by the CPU zone.
var Float64Ops = Ops[float64]{
	Exp:       math.Exp,
	Log:       math.Log,
	Sqrt:      math.Sqrt,
	Pow:       math.Pow,
	LogSumExp: floats.LogSumExp,
}

//Float32Ops is the single precision math used by the CUDA zone.
var Float32Ops = Ops[float32]{
	Exp:       math32.Exp,
	Log:       math32.Log,
	Sqrt:      math32.Sqrt,
	Pow:       math32.Pow,
	LogSumExp: logSumExp32,
}

func logSumExp32(s []float32) float32 {
	maxScore := math32.Inf(-1)
	for _, v := range s {
		if v > maxScore {
			maxScore = v
		}
	}
	if math32.IsInf(maxScore, 0) {
		return maxScore
	}
	var sum float32
	for _, v := range s {
		sum += math32.Exp(v - maxScore)
	}
	return maxScore + math32.Log(sum)
}

//Softmax writes class probabilities of scores into probs and returns log(sum(exp(scores))).
func Softmax[F Float](ops Ops[F], scores, probs []F) F {
	lse := ops.LogSumExp(scores)
	for k, s := range scores {
		probs[k] = ops.Exp(s - lse)
	}
	return lse
}

//softplus is log(1+exp(x)) without overflow for large x.
func softplus[F Float](ops Ops[F], x F) F {
	if x > 0 {
		return x + ops.Log(1+ops.Exp(-x))
	}
	return ops.Log(1 + ops.Exp(x))
}

func sigmoid[F Float](ops Ops[F], x F) F {
	if x >= 0 {
		return 1 / (1 + ops.Exp(-x))
	}
	e := ops.Exp(x)
	return e / (1 + e)
}
