package ebl

import (
	"gorgonia.org/tensor"
)

//Histogram sums gradients and hessians of the samples falling into each cell.
type Histogram struct {
	Gradients *tensor.Dense
	Hessians  *tensor.Dense
}

//gradientSource describes the gradient buffer filled by the last ApplyUpdate.
type gradientSource struct {
	gradientsAndHessians []float64
	hasHessian           bool
	weights              []float64
	classes              int
}

func (src gradientSource) stride() int {
	if src.hasHessian {
		return 2
	}
	return 1
}

//BuildHistogram accumulates per cell sums. cellOf maps a sample to its cell;
//losses without a hessian use the sample weight in its place.
func BuildHistogram(src gradientSource, cells, samples int, cellOf func(p int) int) Histogram {
	k := src.classes
	gradients := tensor.New(tensor.WithShape(cells, k), tensor.Of(tensor.Float64))
	hessians := tensor.New(tensor.WithShape(cells, k), tensor.Of(tensor.Float64))
	g := gradients.Data().([]float64)
	h := hessians.Data().([]float64)
	stride := src.stride()

	for p := 0; p < samples; p++ {
		cell := cellOf(p)
		for c := 0; c < k; c++ {
			slot := (p*k + c) * stride
			g[cell*k+c] += src.gradientsAndHessians[slot]
			switch {
			case src.hasHessian:
				h[cell*k+c] += src.gradientsAndHessians[slot+1]
			case src.weights != nil:
				h[cell*k+c] += src.weights[p]
			default:
				h[cell*k+c]++
			}
		}
	}
	return Histogram{Gradients: gradients, Hessians: hessians}
}

//NewtonStep writes -scale*G/(H+regLambda) into every cell of ut. Cells
//without curvature get no update.
func (hist Histogram) NewtonStep(scale, regLambda float64, ut *UpdateTensor) {
	g := hist.Gradients.Data().([]float64)
	h := hist.Hessians.Data().([]float64)
	classes := ut.Classes()
	for cell := 0; cell < ut.Cells(); cell++ {
		for class := 0; class < classes; class++ {
			i := cell*classes + class
			denominator := h[i] + regLambda
			if denominator <= 0 {
				ut.Set(cell, class, 0)
				continue
			}
			ut.Set(cell, class, -scale*g[i]/denominator)
		}
	}
}
