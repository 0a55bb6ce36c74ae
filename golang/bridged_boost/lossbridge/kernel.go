package lossbridge

import (
	"github.com/tarstars/bridged_boosting/golang/bridged_boost/objectives"
)

type kernelScratch[F objectives.Float] struct {
	scores    []F
	probs     []F
	gradients []F
	hessians  []F
}

func newKernelScratch[F objectives.Float](classes int) *kernelScratch[F] {
	return &kernelScratch[F]{
		scores:    make([]F, classes),
		probs:     make([]F, classes),
		gradients: make([]F, classes),
		hessians:  make([]F, classes),
	}
}

func shapeOf[F objectives.Float](w *LossWrapper, objective *objectives.Objective[F]) bridgeShape {
	return bridgeShape{
		classes:    objective.Classes,
		hasHessian: objective.HasHessian,
		multiclass: objective.Kind == objectives.Multiclass,
		classKind:  objective.Kind != objectives.Regression,
		targetFree: w.TargetNotNeeded,
	}
}

//zoneLoss recovers the loss object of w after checking that w belongs to zone
//and that bridge fits it.
func zoneLoss[F objectives.Float](w *LossWrapper, bridge *ApplyUpdateBridge, zone Zone) (*lossObject[F], Status) {
	table := tableOf(w)
	if table == nil || w.Loss == nil || bridge == nil {
		return nil, StatusInvalidParameter
	}
	if table.zone != zone {
		return nil, StatusUnexpectedInternal
	}
	loss := (*lossObject[F])(w.Loss)
	if err := bridge.validate(shapeOf(w, loss.objective)); err != nil {
		return nil, StatusOf(err)
	}
	return loss, StatusSuccess
}

//applyRange runs samples [first, last) and returns their weighted metric sum.
//Distinct ranges touch distinct slots of the bridge buffers.
func applyRange[F objectives.Float](loss *lossObject[F], b *ApplyUpdateBridge, first, last int, scratch *kernelScratch[F]) float64 {
	objective := loss.objective
	stride := gradientStride(objective.HasHessian)
	metric := 0.0
	regressionTargets := b.regressionTargets()
	classTargets := b.classTargets()

	for i := first; i < last; i++ {
		cell := b.CellIndex(i)
		weight := 1.0
		if b.Weights != nil {
			weight = b.Weights[i]
		}

		if objective.Kind == objectives.Multiclass {
			metric += applyMulticlass(loss, b, i, cell, int(classTargets[i]), weight, stride, scratch)
			continue
		}

		update := b.UpdateTensorScores[cell]
		slot := i * stride
		b.SampleScores[i] += update

		if b.Targets == nil {
			// stored gradients are weighted residuals
			residual := F(b.GradientsAndHessians[slot]) + F(weight)*F(update)
			b.GradientsAndHessians[slot] = float64(residual)
			if b.CalcMetric && weight > 0 {
				metric += float64(residual) * float64(residual) / weight
			}
			continue
		}

		score := F(b.SampleScores[i])
		var target F
		if objective.Kind == objectives.Regression {
			target = F(regressionTargets[i])
		} else {
			target = F(classTargets[i])
		}

		gradient, hessian := objective.GradientHessian(score, target)
		w := F(weight)
		b.GradientsAndHessians[slot] = float64(gradient * w)
		if objective.HasHessian {
			b.GradientsAndHessians[slot+1] = float64(hessian * w)
		}
		if b.CalcMetric {
			metric += weight * float64(objective.Metric(score, target))
		}
	}
	return metric
}

func applyMulticlass[F objectives.Float](loss *lossObject[F], b *ApplyUpdateBridge, i, cell, target int, weight float64, stride int, scratch *kernelScratch[F]) float64 {
	classes := b.Classes
	base := i * classes
	cellBase := cell * classes

	for k := 0; k < classes; k++ {
		b.SampleScores[base+k] += b.UpdateTensorScores[cellBase+k]
		scratch.scores[k] = F(b.SampleScores[base+k])
	}
	lse := objectives.Softmax(loss.ops, scratch.scores, scratch.probs)
	midway := b.MulticlassMidwayTemp[base : base+classes]
	for k, p := range scratch.probs {
		midway[k] = float64(p)
	}

	sampleMetric := objectives.MulticlassGradients(scratch.probs, lse, scratch.scores[target], target, scratch.gradients, scratch.hessians)

	w := F(weight)
	for k := 0; k < classes; k++ {
		slot := (base + k) * stride
		b.GradientsAndHessians[slot] = float64(scratch.gradients[k] * w)
		b.GradientsAndHessians[slot+1] = float64(scratch.hessians[k] * w)
	}
	if !b.CalcMetric {
		return 0
	}
	return weight * float64(sampleMetric)
}
