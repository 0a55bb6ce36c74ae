// SPDX-License-Identifier: Apache-2.0

package main

/*
#cgo CFLAGS: -I.
#include "bridge.h"
*/
import "C"

import (
	"io"
	"log"
	"sync"
	"unsafe"

	"github.com/pkg/errors"
	"github.com/tarstars/bridged_boosting/golang/bridged_boost/lossbridge"
	"github.com/tarstars/bridged_boosting/golang/bridged_boost/safenum"
)

var (
	handleMu   sync.Mutex
	nextHandle uint64 = 1
	wrappers          = make(map[uint64]*lossbridge.LossWrapper)

	lastErrorMu sync.Mutex
	lastError   string

	logSilenceOnce sync.Once
)

func setLastError(err error) {
	lastErrorMu.Lock()
	defer lastErrorMu.Unlock()
	if err != nil {
		lastError = err.Error()
	} else {
		lastError = ""
	}
}

func getLastError() string {
	lastErrorMu.Lock()
	defer lastErrorMu.Unlock()
	return lastError
}

func storeWrapper(w *lossbridge.LossWrapper) uint64 {
	handleMu.Lock()
	defer handleMu.Unlock()
	handle := nextHandle
	wrappers[handle] = w
	nextHandle++
	return handle
}

func fetchWrapper(handle uint64) (*lossbridge.LossWrapper, error) {
	handleMu.Lock()
	defer handleMu.Unlock()
	w, ok := wrappers[handle]
	if !ok {
		return nil, errors.Wrapf(lossbridge.ErrInvalidParameter, "invalid loss wrapper handle %d", handle)
	}
	return w, nil
}

func releaseWrapper(handle uint64) {
	handleMu.Lock()
	defer handleMu.Unlock()
	if w, ok := wrappers[handle]; ok {
		lossbridge.FreeLossWrapperInternals(w)
		delete(wrappers, handle)
	}
}

func fail(err error) C.int32_t {
	setLastError(err)
	return C.int32_t(lossbridge.StatusOf(err))
}

//specSpan copies the caller's [begin, end) text; the span is not terminated.
func specSpan(begin, end *C.char) ([]byte, error) {
	if begin == nil || end == nil {
		return nil, errors.Wrap(lossbridge.ErrMalformedSpec, "null specification span")
	}
	first, last := uintptr(unsafe.Pointer(begin)), uintptr(unsafe.Pointer(end))
	if last < first {
		return nil, errors.Wrap(lossbridge.ErrMalformedSpec, "specification ends before it begins")
	}
	length := last - first
	if !safenum.IsConvertible[C.int](length) {
		return nil, errors.Wrapf(lossbridge.ErrMalformedSpec, "specification of %d bytes", length)
	}
	return C.GoBytes(unsafe.Pointer(begin), C.int(length)), nil
}

func outputCount(config *C.Config) (lossbridge.Config, error) {
	if config == nil {
		return lossbridge.Config{}, errors.Wrap(lossbridge.ErrInvalidParameter, "null config")
	}
	if !safenum.IsConvertible[int](int64(config.cOutputs)) {
		return lossbridge.Config{}, errors.Wrapf(lossbridge.ErrInvalidParameter, "output count %d", int64(config.cOutputs))
	}
	return lossbridge.Config{OutputCount: int(config.cOutputs)}, nil
}

func enterBoundary() {
	setLastError(nil)
	logSilenceOnce.Do(func() {
		log.SetOutput(io.Discard)
	})
}

func createLoss(zone lossbridge.Zone, config *C.Config, specBegin, specEnd *C.char, out *C.LossWrapper) (status C.int32_t) {
	enterBoundary()
	defer func() {
		if r := recover(); r != nil {
			status = fail(errors.Wrapf(lossbridge.ErrUnexpectedInternal, "%v", r))
		}
	}()

	if out == nil {
		return fail(errors.Wrap(lossbridge.ErrInvalidParameter, "null wrapper"))
	}
	out.handle = 0
	out.applyUpdate = nil
	goConfig, err := outputCount(config)
	if err != nil {
		return fail(err)
	}
	spec, err := specSpan(specBegin, specEnd)
	if err != nil {
		return fail(err)
	}

	w, err := lossbridge.NewLoss(zone, &goConfig, spec)
	if err != nil {
		return fail(err)
	}

	out.handle = C.uint64_t(storeWrapper(&w))
	out.applyUpdate = applyUpdatePointer()
	out.updateMultiple = C.double(w.UpdateMultiple)
	out.bLossHasHessian = boolToC(w.LossHasHessian)
	out.bTargetNotNeeded = boolToC(w.TargetNotNeeded)
	return C.int32_t(lossbridge.StatusSuccess)
}

func boolToC(b bool) C.int32_t {
	if b {
		return 1
	}
	return 0
}

//export CreateLoss_Cpu_64
func CreateLoss_Cpu_64(config *C.Config, specBegin, specEnd *C.char, out *C.LossWrapper) C.int32_t {
	return createLoss(lossbridge.ZoneCpu64, config, specBegin, specEnd, out)
}

//export CreateLoss_Cuda_32
func CreateLoss_Cuda_32(config *C.Config, specBegin, specEnd *C.char, out *C.LossWrapper) C.int32_t {
	return createLoss(lossbridge.ZoneCuda32, config, specBegin, specEnd, out)
}

//export CreateMetric_Cpu_64
func CreateMetric_Cpu_64(config *C.Config, specBegin, specEnd *C.char) (status C.int32_t) {
	enterBoundary()
	defer func() {
		if r := recover(); r != nil {
			status = fail(errors.Wrapf(lossbridge.ErrUnexpectedInternal, "%v", r))
		}
	}()

	goConfig, err := outputCount(config)
	if err != nil {
		return fail(err)
	}
	spec, err := specSpan(specBegin, specEnd)
	if err != nil {
		return fail(err)
	}
	return fail(lossbridge.NewMetric(&goConfig, spec))
}

//export InitializeLossWrapperUnfailing
func InitializeLossWrapperUnfailing(w *C.LossWrapper) {
	if w != nil {
		w.applyUpdate = nil
		w.handle = 0
		w.updateMultiple = 0
		w.bLossHasHessian = 0
		w.bTargetNotNeeded = 0
	}
}

//export FreeLossWrapperInternals
func FreeLossWrapperInternals(w *C.LossWrapper) {
	if w == nil {
		return
	}
	if w.handle != 0 {
		releaseWrapper(uint64(w.handle))
	}
	w.handle = 0
	w.applyUpdate = nil
}

func floatSlice(ptr unsafe.Pointer, length int) []float64 {
	if ptr == nil || length == 0 {
		return nil
	}
	return unsafe.Slice((*float64)(ptr), length)
}

//goBridge views the caller's buffers without copying them; the views do not
//outlive the ApplyUpdate call.
func goBridge(w *lossbridge.LossWrapper, b *C.ApplyUpdateBridge) (lossbridge.ApplyUpdateBridge, error) {
	samples, classes := int64(b.cSamples), int64(b.cClasses)
	if samples < 0 || classes < 1 || b.cPackedWords < 0 || b.cUpdateTensorScores < 0 {
		return lossbridge.ApplyUpdateBridge{}, errors.Wrap(lossbridge.ErrInvalidParameter, "negative counts")
	}
	stride := uint64(1)
	if w.LossHasHessian {
		stride = 2
	}
	if safenum.IsMultiplyError(uint64(samples), uint64(classes), stride) {
		return lossbridge.ApplyUpdateBridge{}, errors.Wrap(lossbridge.ErrInvalidParameter, "bridge size overflows")
	}
	slots := uint64(samples) * uint64(classes) * stride
	if !safenum.IsConvertible[int](slots) {
		return lossbridge.ApplyUpdateBridge{}, errors.Wrap(lossbridge.ErrInvalidParameter, "bridge size overflows")
	}
	scores := int(samples * classes)

	bridge := lossbridge.ApplyUpdateBridge{
		Samples:              int(samples),
		Classes:              int(classes),
		Pack:                 int(b.cPack),
		Targets:              unsafe.Pointer(b.aTargets),
		Weights:              floatSlice(unsafe.Pointer(b.aWeights), int(samples)),
		SampleScores:         floatSlice(unsafe.Pointer(b.aSampleScores), scores),
		UpdateTensorScores:   floatSlice(unsafe.Pointer(b.aUpdateTensorScores), int(b.cUpdateTensorScores)),
		GradientsAndHessians: floatSlice(unsafe.Pointer(b.aGradientsAndHessians), int(slots)),
		MulticlassMidwayTemp: floatSlice(unsafe.Pointer(b.aMulticlassMidwayTemp), scores),
		CalcMetric:           b.bCalcMetric != 0,
		MetricOut:            float64(b.metricOut),
	}
	if b.aPacked != nil && b.cPackedWords > 0 {
		bridge.Packed = unsafe.Slice((*uint64)(unsafe.Pointer(b.aPacked)), int(b.cPackedWords))
	}
	return bridge, nil
}

//export ApplyUpdate
func ApplyUpdate(w *C.LossWrapper, b *C.ApplyUpdateBridge) (status C.int32_t) {
	setLastError(nil)
	defer func() {
		if r := recover(); r != nil {
			status = fail(errors.Wrapf(lossbridge.ErrUnexpectedInternal, "%v", r))
		}
	}()

	if w == nil || b == nil {
		return fail(errors.Wrap(lossbridge.ErrInvalidParameter, "null argument"))
	}
	wrapper, err := fetchWrapper(uint64(w.handle))
	if err != nil {
		return fail(err)
	}
	bridge, err := goBridge(wrapper, b)
	if err != nil {
		return fail(err)
	}

	if s := wrapper.ApplyUpdate(wrapper, &bridge); s != lossbridge.StatusSuccess {
		return fail(errors.WithMessage(s.Err(), "apply update"))
	}
	b.metricOut = C.double(bridge.MetricOut)
	return C.int32_t(lossbridge.StatusSuccess)
}

//export GetLastError
func GetLastError() *C.char {
	errStr := getLastError()
	if errStr == "" {
		return nil
	}
	return C.CString(errStr)
}

//export FreeCString
func FreeCString(str *C.char) {
	if str != nil {
		C.free(unsafe.Pointer(str))
	}
}

func main() {}
