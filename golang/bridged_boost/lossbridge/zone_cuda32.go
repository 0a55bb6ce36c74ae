package lossbridge

import (
	"github.com/tarstars/bridged_boosting/golang/bridged_boost/objectives"
)

//SamplesPerBlock is the number of samples one kernel block processes.
const SamplesPerBlock = 256

var cuda32Registry = cuda32Objectives()

func cuda32Objectives() map[string]objectives.Factory[float32] {
	all := objectives.All[float32]()
	registry := make(map[string]objectives.Factory[float32])
	for _, name := range []string{"rmse", "log_loss", "gamma_deviance", "poisson_deviance"} {
		registry[name] = all[name]
	}
	return registry
}

func applyCuda32(w *LossWrapper, bridge *ApplyUpdateBridge) (status Status) {
	defer func() {
		if r := recover(); r != nil {
			status = StatusDeviceFault
		}
	}()

	loss, status := zoneLoss[float32](w, bridge, ZoneCuda32)
	if status != StatusSuccess {
		return status
	}
	device := currentDevice()
	if device == nil {
		return StatusZoneUnavailable
	}

	blocks := (bridge.Samples + SamplesPerBlock - 1) / SamplesPerBlock
	partials := make([]float64, blocks)
	err := device.Launch(blocks, func(block int) {
		first := block * SamplesPerBlock
		last := first + SamplesPerBlock
		if last > bridge.Samples {
			last = bridge.Samples
		}
		partials[block] = applyRange(loss, bridge, first, last, newKernelScratch[float32](bridge.Classes))
	})
	if err != nil {
		return StatusDeviceFault
	}

	if bridge.CalcMetric {
		metric := 0.0
		for _, partial := range partials {
			metric += partial
		}
		bridge.MetricOut += metric
	}
	return StatusSuccess
}
