package lossbridge

import (
	"unsafe"

	"github.com/pkg/errors"
	"github.com/tarstars/bridged_boosting/golang/bridged_boost/safenum"
)

const bitsPerWord = 64

//Config describes the model a loss is created for.
type Config struct {
	//OutputCount is 1 for regression and binary classification, the class count otherwise.
	OutputCount int
}

//ApplyUpdateBridge is the per-call view over caller owned buffers.
//
//Scores, updates and gradients are laid out sample major with Classes values
//per sample (per cell for UpdateTensorScores). GradientsAndHessians holds
//either one gradient per score or interleaved gradient, hessian pairs when
//the loss needs hessians.
type ApplyUpdateBridge struct {
	Samples int
	Classes int

	//Pack is the number of cell indices stored per word of Packed; Pack <= 0
	//sends every sample to cell 0 and Packed is not read.
	Pack   int
	Packed []uint64

	//Targets points at Samples float64 values for regression losses and at
	//Samples int64 class indices for log_loss.
	Targets unsafe.Pointer
	Weights []float64

	SampleScores         []float64
	UpdateTensorScores   []float64
	GradientsAndHessians []float64
	MulticlassMidwayTemp []float64

	CalcMetric bool
	MetricOut  float64
}

//SetRegressionTargets points the bridge at continuous targets.
func (b *ApplyUpdateBridge) SetRegressionTargets(targets []float64) {
	if len(targets) == 0 {
		b.Targets = nil
		return
	}
	b.Targets = unsafe.Pointer(&targets[0])
}

//SetClassTargets points the bridge at class index targets.
func (b *ApplyUpdateBridge) SetClassTargets(targets []int64) {
	if len(targets) == 0 {
		b.Targets = nil
		return
	}
	b.Targets = unsafe.Pointer(&targets[0])
}

func (b *ApplyUpdateBridge) regressionTargets() []float64 {
	if b.Targets == nil {
		return nil
	}
	return unsafe.Slice((*float64)(b.Targets), b.Samples)
}

func (b *ApplyUpdateBridge) classTargets() []int64 {
	if b.Targets == nil {
		return nil
	}
	return unsafe.Slice((*int64)(b.Targets), b.Samples)
}

//CellIndex returns the update tensor cell sample i belongs to.
func (b *ApplyUpdateBridge) CellIndex(i int) int {
	if b.Pack <= 0 {
		return 0
	}
	bits := bitsPerWord / b.Pack
	word := b.Packed[i/b.Pack]
	shifted := word >> (uint(bits) * uint(i%b.Pack))
	if bits == bitsPerWord {
		return int(shifted)
	}
	return int(shifted & (uint64(1)<<uint(bits) - 1))
}

//ItemsPerWord returns how many indices up to maxIndex fit into one word.
func ItemsPerWord(maxIndex uint64) int {
	bits := safenum.CountBitsRequired(maxIndex)
	if bits == 0 {
		bits = 1
	}
	return bitsPerWord / bits
}

//PackCells stores cells pack per word, least significant field first.
func PackCells(cells []int, pack int) ([]uint64, error) {
	if pack <= 0 || pack > bitsPerWord {
		return nil, errors.Wrapf(ErrInvalidParameter, "pack %d", pack)
	}
	bits := bitsPerWord / pack
	cWords := (len(cells) + pack - 1) / pack
	packed := safenum.MakeSlice[uint64](uintptr(cWords))
	if packed == nil {
		return nil, ErrOutOfMemory
	}
	for i, cell := range cells {
		if cell < 0 || (bits < bitsPerWord && uint64(cell) >= uint64(1)<<uint(bits)) {
			return nil, errors.Wrapf(ErrInvalidParameter, "cell %d does not fit %d bits", cell, bits)
		}
		packed[i/pack] |= uint64(cell) << (uint(bits) * uint(i%pack))
	}
	return packed, nil
}

//gradientStride is the number of float64 slots per score.
func gradientStride(hasHessian bool) int {
	if hasHessian {
		return 2
	}
	return 1
}

func sizeOf(counts ...int) (int, bool) {
	total := uintptr(1)
	for _, c := range counts {
		if c < 0 {
			return 0, false
		}
		if safenum.IsMultiplyError(total, uintptr(c)) {
			return 0, false
		}
		total *= uintptr(c)
	}
	if !safenum.IsConvertible[int](total) {
		return 0, false
	}
	return int(total), true
}

type bridgeShape struct {
	classes    int
	hasHessian bool
	multiclass bool
	classKind  bool
	targetFree bool
}

//validate checks that every buffer is large enough for one call and that
//every packed cell and class target is in range.
func (b *ApplyUpdateBridge) validate(shape bridgeShape) error {
	if b.Samples < 0 {
		return errors.Wrapf(ErrInvalidParameter, "negative sample count %d", b.Samples)
	}
	if b.Classes != shape.classes {
		return errors.Wrapf(ErrInvalidParameter, "bridge has %d classes, loss has %d", b.Classes, shape.classes)
	}
	scores, ok := sizeOf(b.Samples, b.Classes)
	if !ok {
		return errors.Wrap(ErrInvalidParameter, "score count overflows")
	}
	slots, ok := sizeOf(scores, gradientStride(shape.hasHessian))
	if !ok {
		return errors.Wrap(ErrInvalidParameter, "gradient count overflows")
	}
	if len(b.SampleScores) < scores {
		return errors.Wrapf(ErrInvalidParameter, "%d sample scores, need %d", len(b.SampleScores), scores)
	}
	if len(b.GradientsAndHessians) < slots {
		return errors.Wrapf(ErrInvalidParameter, "%d gradient slots, need %d", len(b.GradientsAndHessians), slots)
	}
	if b.Weights != nil && len(b.Weights) < b.Samples {
		return errors.Wrapf(ErrInvalidParameter, "%d weights, need %d", len(b.Weights), b.Samples)
	}
	if shape.multiclass && len(b.MulticlassMidwayTemp) < scores {
		return errors.Wrapf(ErrInvalidParameter, "%d midway slots, need %d", len(b.MulticlassMidwayTemp), scores)
	}
	if b.Targets == nil && !shape.targetFree && b.Samples > 0 {
		return errors.Wrap(ErrInvalidParameter, "targets are required by this loss")
	}
	if b.Samples == 0 {
		return nil
	}

	cells := len(b.UpdateTensorScores) / b.Classes
	if cells < 1 {
		return errors.Wrap(ErrInvalidParameter, "update tensor is empty")
	}
	if b.Pack > 0 {
		if b.Pack > bitsPerWord {
			return errors.Wrapf(ErrInvalidParameter, "pack %d exceeds %d", b.Pack, bitsPerWord)
		}
		if words := (b.Samples + b.Pack - 1) / b.Pack; len(b.Packed) < words {
			return errors.Wrapf(ErrInvalidParameter, "%d packed words, need %d", len(b.Packed), words)
		}
		for i := 0; i < b.Samples; i++ {
			if cell := b.CellIndex(i); cell < 0 || cell >= cells {
				return errors.Wrapf(ErrInvalidParameter, "sample %d refers to cell %d of %d", i, cell, cells)
			}
		}
	}
	if shape.classKind && b.Targets != nil {
		limit := int64(b.Classes)
		if limit == 1 {
			limit = 2
		}
		for i, target := range b.classTargets() {
			if target < 0 || target >= limit {
				return errors.Wrapf(ErrInvalidParameter, "sample %d has class %d", i, target)
			}
		}
	}
	return nil
}
