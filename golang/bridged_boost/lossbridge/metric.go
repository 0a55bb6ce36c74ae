package lossbridge

import (
	"github.com/pkg/errors"
	"github.com/tarstars/bridged_boosting/golang/bridged_boost/objectives"
)

//NewMetric checks a standalone metric specification against the CPU zone.
//The metric wrapper has no output shape yet, so a valid specification still
//ends in ErrNotYetAvailable.
func NewMetric(config *Config, spec []byte) error {
	parsed, err := parseSpec(spec)
	if err != nil {
		return err
	}
	factory, ok := cpu64Registry[parsed.name]
	if !ok {
		return errors.Wrapf(ErrUnknownLoss, "metric %q", parsed.name)
	}
	if err := checkConfig(config); err != nil {
		return err
	}
	if _, err := factory(config.OutputCount, parsed.params, objectives.Float64Ops); err != nil {
		return errors.Wrapf(ErrInvalidParameter, "%s: %v", parsed.name, err)
	}
	return errors.Wrapf(ErrNotYetAvailable, "standalone metric %q", parsed.name)
}

//CreateMetricCpu64 is the status form of NewMetric.
func CreateMetricCpu64(config *Config, spec []byte) Status {
	return StatusOf(NewMetric(config, spec))
}
