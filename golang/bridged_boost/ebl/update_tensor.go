package ebl

import (
	"github.com/pkg/errors"
	"github.com/tarstars/bridged_boosting/golang/bridged_boost/colocate"
	"github.com/tarstars/bridged_boosting/golang/bridged_boost/safenum"
	"gorgonia.org/tensor"
)

type updateHeader struct {
	Cells   uint32
	Classes uint32
	Feature int64
}

//UpdateTensor keeps the per cell score updates of one term next to a small
//header in a single allocation. Scores is handed to the bridge directly and
//View is a (cells, classes) tensor over the same memory.
type UpdateTensor struct {
	block *colocate.Block[updateHeader, float64]
	view  *tensor.Dense
}

//NewUpdateTensor allocates a zeroed tensor for feature with cells bins.
//Feature -1 is used for the intercept.
func NewUpdateTensor(cells, classes, feature int) (*UpdateTensor, error) {
	if cells < 1 || classes < 1 {
		return nil, errors.Errorf("update tensor of %d cells and %d classes", cells, classes)
	}
	if !safenum.IsConvertible[uint32](cells) || !safenum.IsConvertible[uint32](classes) {
		return nil, errors.Errorf("update tensor of %d cells and %d classes is too large", cells, classes)
	}
	if safenum.IsMultiplyError(uint(cells), uint(classes)) {
		return nil, errors.Errorf("update tensor of %d cells and %d classes is too large", cells, classes)
	}
	block, err := colocate.New[updateHeader, float64](uintptr(cells * classes))
	if err != nil {
		return nil, errors.WithMessage(err, "update tensor")
	}
	header := block.Header()
	header.Cells = uint32(cells)
	header.Classes = uint32(classes)
	header.Feature = int64(feature)

	view := tensor.New(tensor.WithShape(cells, classes), tensor.WithBacking(block.Items()))
	return &UpdateTensor{block: block, view: view}, nil
}

func (u *UpdateTensor) Cells() int {
	return int(u.block.Header().Cells)
}

func (u *UpdateTensor) Classes() int {
	return int(u.block.Header().Classes)
}

func (u *UpdateTensor) Feature() int {
	return int(u.block.Header().Feature)
}

//Scores is the flat cell major storage.
func (u *UpdateTensor) Scores() []float64 {
	return u.block.Items()
}

//View is the tensor form of Scores.
func (u *UpdateTensor) View() *tensor.Dense {
	return u.view
}

func (u *UpdateTensor) At(cell, class int) float64 {
	v, err := u.view.At(cell, class)
	HandleError(err)
	return v.(float64)
}

func (u *UpdateTensor) Set(cell, class int, v float64) {
	HandleError(u.view.SetAt(v, cell, class))
}

//Reset zeroes every cell.
func (u *UpdateTensor) Reset() {
	scores := u.Scores()
	for i := range scores {
		scores[i] = 0
	}
}
