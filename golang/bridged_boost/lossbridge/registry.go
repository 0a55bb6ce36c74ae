// Package lossbridge resolves textual loss specifications to zone specific
// implementations and applies boosting updates through them.
//
// A zone is a precision and execution target with its own registry: the CPU
// zone computes in float64 on the calling goroutine, the CUDA zone computes
// in float32 through the registered Device. Creation fills a LossWrapper with
// a plain function value and two opaque handles; callers then invoke
// w.ApplyUpdate(w, bridge) once per round and release the wrapper with
// FreeLossWrapperInternals.
package lossbridge

import (
	"sort"
	"unsafe"

	"github.com/pkg/errors"
	"github.com/tarstars/bridged_boosting/golang/bridged_boost/objectives"
)

//Zone is an execution target with its own loss registry.
type Zone int

const (
	ZoneCpu64 Zone = iota
	ZoneCuda32
)

var zoneNames = map[Zone]string{
	ZoneCpu64:  "cpu_64",
	ZoneCuda32: "cuda_32",
}

func (z Zone) String() string {
	if name, ok := zoneNames[z]; ok {
		return name
	}
	return "unknown_zone"
}

//ParseZone maps "cpu_64" and "cuda_32" to zones.
func ParseZone(name string) (Zone, error) {
	for zone, zoneName := range zoneNames {
		if zoneName == name {
			return zone, nil
		}
	}
	return 0, errors.Wrapf(ErrZoneUnavailable, "zone %q", name)
}

//Losses lists the loss names registered in zone.
func Losses(zone Zone) []string {
	var names []string
	switch zone {
	case ZoneCpu64:
		for name := range cpu64Registry {
			names = append(names, name)
		}
	case ZoneCuda32:
		for name := range cuda32Registry {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

//NewLoss creates a wrapper in zone and explains a failure with a descriptive
//error whose cause is one of the status sentinels.
func NewLoss(zone Zone, config *Config, spec []byte) (LossWrapper, error) {
	parsed, err := parseSpec(spec)
	if err != nil {
		return LossWrapper{}, err
	}
	switch zone {
	case ZoneCpu64:
		return buildWrapper(ZoneCpu64, cpu64Registry, objectives.Float64Ops, applyCpu64, config, parsed)
	case ZoneCuda32:
		if currentDevice() == nil {
			return LossWrapper{}, errors.Wrap(ErrZoneUnavailable, "no device registered for cuda_32")
		}
		return buildWrapper(ZoneCuda32, cuda32Registry, objectives.Float32Ops, applyCuda32, config, parsed)
	default:
		return LossWrapper{}, errors.Wrapf(ErrZoneUnavailable, "zone %d", int(zone))
	}
}

//CreateLoss fills out with a wrapper created in zone. On failure the handles
//of out are left nil.
func CreateLoss(zone Zone, config *Config, spec []byte, out *LossWrapper) Status {
	if out == nil {
		return StatusInvalidParameter
	}
	InitializeLossWrapperUnfailing(out)
	wrapper, err := NewLoss(zone, config, spec)
	if err != nil {
		return StatusOf(err)
	}
	*out = wrapper
	return StatusSuccess
}

//CreateLossCpu64 creates a double precision wrapper.
func CreateLossCpu64(config *Config, spec []byte, out *LossWrapper) Status {
	return CreateLoss(ZoneCpu64, config, spec, out)
}

//CreateLossCuda32 creates a single precision wrapper run by the registered device.
func CreateLossCuda32(config *Config, spec []byte, out *LossWrapper) Status {
	return CreateLoss(ZoneCuda32, config, spec, out)
}

func checkConfig(config *Config) error {
	if config == nil {
		return errors.Wrap(ErrInvalidParameter, "nil config")
	}
	if config.OutputCount < 1 || config.OutputCount == 2 {
		return errors.Wrapf(ErrInvalidParameter, "output count %d, want 1 or more than 2", config.OutputCount)
	}
	return nil
}

func buildWrapper[F objectives.Float](
	zone Zone,
	registry map[string]objectives.Factory[F],
	ops objectives.Ops[F],
	apply ApplyUpdateFunc,
	config *Config,
	spec lossSpec,
) (LossWrapper, error) {
	factory, ok := registry[spec.name]
	if !ok {
		return LossWrapper{}, errors.Wrapf(ErrUnknownLoss, "%q is not registered in %s", spec.name, zone)
	}
	if err := checkConfig(config); err != nil {
		return LossWrapper{}, err
	}
	objective, err := factory(config.OutputCount, spec.params, ops)
	if err != nil {
		return LossWrapper{}, errors.Wrapf(ErrInvalidParameter, "%s: %v", spec.name, err)
	}

	table := &functionTable{
		zone:         zone,
		name:         objective.Name,
		kind:         objective.Kind,
		link:         objective.Link,
		classes:      objective.Classes,
		finishMetric: objective.FinishMetric,
	}
	loss := &lossObject[F]{objective: objective, ops: ops}
	return LossWrapper{
		ApplyUpdate:      apply,
		Loss:             unsafe.Pointer(loss),
		FunctionPointers: unsafe.Pointer(table),
		UpdateMultiple:   objective.UpdateMultiple,
		LossHasHessian:   objective.HasHessian,
		TargetNotNeeded:  objective.TargetNotNeeded,
	}, nil
}
