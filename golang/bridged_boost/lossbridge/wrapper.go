package lossbridge

import (
	"unsafe"

	"github.com/tarstars/bridged_boosting/golang/bridged_boost/objectives"
)

//ApplyUpdateFunc applies one round of updates through the zone that created w.
type ApplyUpdateFunc func(w *LossWrapper, bridge *ApplyUpdateBridge) Status

//LossWrapper is filled by a zone creation call. Loss and FunctionPointers are
//owned by the zone and must be released with FreeLossWrapperInternals.
type LossWrapper struct {
	ApplyUpdate      ApplyUpdateFunc
	Loss             unsafe.Pointer
	FunctionPointers unsafe.Pointer

	UpdateMultiple  float64
	LossHasHessian  bool
	TargetNotNeeded bool
}

//functionTable is what FunctionPointers refers to. It records the zone so a
//wrapper can never be applied through another zone's kernel.
type functionTable struct {
	zone         Zone
	name         string
	kind         objectives.Kind
	link         objectives.Link
	classes      int
	finishMetric func(meanMetric float64) float64
}

//lossObject is what Loss refers to.
type lossObject[F objectives.Float] struct {
	objective *objectives.Objective[F]
	ops       objectives.Ops[F]
}

//InitializeLossWrapperUnfailing clears the owned handles so a later free is safe.
func InitializeLossWrapperUnfailing(w *LossWrapper) {
	w.Loss = nil
	w.FunctionPointers = nil
}

//FreeLossWrapperInternals releases the handles owned by w. Calling it twice,
//or on an initialized but never created wrapper, does nothing.
func FreeLossWrapperInternals(w *LossWrapper) {
	w.Loss = nil
	w.FunctionPointers = nil
}

func tableOf(w *LossWrapper) *functionTable {
	if w == nil || w.FunctionPointers == nil {
		return nil
	}
	return (*functionTable)(w.FunctionPointers)
}

//Describe reports the zone and loss name behind a created wrapper.
func Describe(w *LossWrapper) (Zone, string, bool) {
	table := tableOf(w)
	if table == nil {
		return 0, "", false
	}
	return table.zone, table.name, true
}

//FinishMetric turns the weighted mean of the per-sample metric into the
//value reported for the loss of w.
func FinishMetric(w *LossWrapper, meanMetric float64) (float64, Status) {
	table := tableOf(w)
	if table == nil {
		return 0, StatusInvalidParameter
	}
	return table.finishMetric(meanMetric), StatusSuccess
}

//Link returns how scores of w map to predictions.
func Link(w *LossWrapper) (objectives.Link, Status) {
	table := tableOf(w)
	if table == nil {
		return objectives.IdentityLink, StatusInvalidParameter
	}
	return table.link, StatusSuccess
}

//ScopedLoss owns a wrapper for the lifetime of a Go caller.
type ScopedLoss struct {
	Wrapper LossWrapper
	live    bool
}

//Acquire creates the wrapper in zone. The scope stays empty on failure.
func (s *ScopedLoss) Acquire(zone Zone, config *Config, spec []byte) Status {
	s.Close()
	InitializeLossWrapperUnfailing(&s.Wrapper)
	status := CreateLoss(zone, config, spec, &s.Wrapper)
	s.live = status == StatusSuccess
	return status
}

//Apply runs ApplyUpdate of the held wrapper.
func (s *ScopedLoss) Apply(bridge *ApplyUpdateBridge) Status {
	if !s.live {
		return StatusInvalidParameter
	}
	return s.Wrapper.ApplyUpdate(&s.Wrapper, bridge)
}

//Close releases the wrapper; it may be called any number of times.
func (s *ScopedLoss) Close() {
	if s.live {
		FreeLossWrapperInternals(&s.Wrapper)
		s.Wrapper = LossWrapper{}
		s.live = false
	}
}
