package lossbridge

import (
	"github.com/tarstars/bridged_boosting/golang/bridged_boost/objectives"
)

var cpu64Registry = objectives.All[float64]()

func applyCpu64(w *LossWrapper, bridge *ApplyUpdateBridge) (status Status) {
	defer func() {
		if r := recover(); r != nil {
			status = StatusUnexpectedInternal
		}
	}()

	loss, status := zoneLoss[float64](w, bridge, ZoneCpu64)
	if status != StatusSuccess {
		return status
	}
	metric := applyRange(loss, bridge, 0, bridge.Samples, newKernelScratch[float64](bridge.Classes))
	if bridge.CalcMetric {
		bridge.MetricOut += metric
	}
	return StatusSuccess
}
