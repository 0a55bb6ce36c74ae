package main

/*
#include "bridge.h"
*/
import "C"

import (
	"unsafe"
)

//cSession drives the exported entry points from C allocated arguments, the
//way a C caller holds them. Every buffer it hands out is freed by free.
type cSession struct {
	config  *C.Config
	wrapper *C.LossWrapper
	bridge  *C.ApplyUpdateBridge
	owned   []unsafe.Pointer
}

func newCSession(outputs int64) *cSession {
	s := &cSession{
		config:  (*C.Config)(C.calloc(1, C.sizeof_Config)),
		wrapper: (*C.LossWrapper)(C.calloc(1, C.sizeof_LossWrapper)),
		bridge:  (*C.ApplyUpdateBridge)(C.calloc(1, C.sizeof_ApplyUpdateBridge)),
	}
	s.config.cOutputs = C.int64_t(outputs)
	InitializeLossWrapperUnfailing(s.wrapper)
	return s
}

func (s *cSession) own(p unsafe.Pointer) unsafe.Pointer {
	s.owned = append(s.owned, p)
	return p
}

//span copies text into C memory without a terminator and returns the
//[begin, begin+length) range of it.
func (s *cSession) span(text string, length int) (begin, end unsafe.Pointer) {
	begin = s.own(C.CBytes([]byte(text)))
	return begin, unsafe.Add(begin, length)
}

func (s *cSession) createLoss(begin, end unsafe.Pointer) int32 {
	return int32(CreateLoss_Cpu_64(s.config, (*C.char)(begin), (*C.char)(end), s.wrapper))
}

func (s *cSession) createMetric(begin, end unsafe.Pointer) int32 {
	return int32(CreateMetric_Cpu_64(s.config, (*C.char)(begin), (*C.char)(end)))
}

func (s *cSession) handle() uint64 {
	return uint64(s.wrapper.handle)
}

func (s *cSession) hasApplyUpdate() bool {
	return s.wrapper.applyUpdate != nil
}

func (s *cSession) updateMultiple() float64 {
	return float64(s.wrapper.updateMultiple)
}

func (s *cSession) targetNotNeeded() bool {
	return s.wrapper.bTargetNotNeeded != 0
}

func (s *cSession) floats(values []float64) *C.double {
	if len(values) == 0 {
		return nil
	}
	p := s.own(C.calloc(C.size_t(len(values)), C.sizeof_double))
	copy(unsafe.Slice((*float64)(p), len(values)), values)
	return (*C.double)(p)
}

//setBridge fills a targetless, unpacked bridge with copies of the buffers.
func (s *cSession) setBridge(classes int64, sampleScores, gradientsAndHessians, updates []float64, calcMetric bool) {
	b := s.bridge
	b.cSamples = C.int64_t(int64(len(sampleScores)) / classes)
	b.cClasses = C.int64_t(classes)
	b.cPack = -1
	b.aSampleScores = s.floats(sampleScores)
	b.aGradientsAndHessians = s.floats(gradientsAndHessians)
	b.aUpdateTensorScores = s.floats(updates)
	b.cUpdateTensorScores = C.int64_t(len(updates))
	b.bCalcMetric = boolToC(calcMetric)
	b.metricOut = 0
}

//applyThroughWrapper calls the apply-update pointer stored in the wrapper.
func (s *cSession) applyThroughWrapper() int32 {
	return int32(callApplyUpdate(s.wrapper, s.bridge))
}

func (s *cSession) sampleScores() []float64 {
	return append([]float64(nil), unsafe.Slice((*float64)(unsafe.Pointer(s.bridge.aSampleScores)), int(s.bridge.cSamples*s.bridge.cClasses))...)
}

func (s *cSession) gradientsAndHessians(slots int) []float64 {
	return append([]float64(nil), unsafe.Slice((*float64)(unsafe.Pointer(s.bridge.aGradientsAndHessians)), slots)...)
}

func (s *cSession) metricOut() float64 {
	return float64(s.bridge.metricOut)
}

func (s *cSession) releaseWrapper() {
	FreeLossWrapperInternals(s.wrapper)
}

func (s *cSession) free() {
	FreeLossWrapperInternals(s.wrapper)
	for _, p := range s.owned {
		C.free(p)
	}
	C.free(unsafe.Pointer(s.config))
	C.free(unsafe.Pointer(s.wrapper))
	C.free(unsafe.Pointer(s.bridge))
}
