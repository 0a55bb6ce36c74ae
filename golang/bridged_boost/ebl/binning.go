package ebl

import (
	"math"
	"sort"

	"github.com/pkg/errors"
	"github.com/tarstars/bridged_boosting/golang/bridged_boost/lossbridge"
	"gonum.org/v1/gonum/mat"
)

//columnArgsort returns row indices ordering the column ascending. Equal
//values keep their row order.
func columnArgsort(column mat.Vector) []int {
	h := column.Len()
	indices := make([]int, h)
	for p := range indices {
		indices[p] = p
	}
	sort.SliceStable(indices, func(i, j int) bool {
		return column.AtVec(indices[i]) < column.AtVec(indices[j])
	})
	return indices
}

//quantileCuts picks at most maxBins-1 distinct cut points at the quantiles of
//the column. A value equal to a cut belongs to the upper bin.
func quantileCuts(column mat.Vector, maxBins int) []float64 {
	order := columnArgsort(column)
	h := len(order)
	cuts := make([]float64, 0, maxBins)
	if h == 0 {
		return cuts
	}
	smallest := column.AtVec(order[0])
	for b := 1; b < maxBins; b++ {
		v := column.AtVec(order[b*h/maxBins])
		if math.IsNaN(v) || v <= smallest {
			continue
		}
		if len(cuts) > 0 && v <= cuts[len(cuts)-1] {
			continue
		}
		cuts = append(cuts, v)
	}
	return cuts
}

//binOf returns the number of cuts not greater than value; NaN goes to bin 0.
func binOf(cuts []float64, value float64) int {
	if math.IsNaN(value) {
		return 0
	}
	return sort.Search(len(cuts), func(i int) bool { return cuts[i] > value })
}

//BinnedFeature is one feature column cut into bins and packed for the bridge.
type BinnedFeature struct {
	Feature int
	Cuts    []float64
	Bins    []int
	Pack    int
	Packed  []uint64
}

//Cells is the number of update tensor cells of the feature.
func (feature BinnedFeature) Cells() int {
	return len(feature.Cuts) + 1
}

//PackBins stores bin indices as densely as the largest bin allows.
func PackBins(bins []int, cells int) (pack int, packed []uint64, err error) {
	pack = lossbridge.ItemsPerWord(uint64(cells - 1))
	packed, err = lossbridge.PackCells(bins, pack)
	return pack, packed, err
}

func binFeature(features *mat.Dense, q, maxBins int) (BinnedFeature, error) {
	column := features.ColView(q)
	cuts := quantileCuts(column, maxBins)
	bins := make([]int, column.Len())
	for p := range bins {
		bins[p] = binOf(cuts, column.AtVec(p))
	}
	pack, packed, err := PackBins(bins, len(cuts)+1)
	if err != nil {
		return BinnedFeature{}, errors.WithMessagef(err, "pack feature %d", q)
	}
	return BinnedFeature{Feature: q, Cuts: cuts, Bins: bins, Pack: pack, Packed: packed}, nil
}

//TaskBinFeature bins one column inside a lossbridge.Pool.
type TaskBinFeature struct {
	features *mat.Dense
	maxBins  int
	result   []BinnedFeature
	errs     []error
	q        int
}

func (task *TaskBinFeature) Run() {
	task.result[task.q], task.errs[task.q] = binFeature(task.features, task.q, task.maxBins)
}

//BinFeatures bins every column of features, on threadsNum goroutines when
//threadsNum is above one.
func BinFeatures(features *mat.Dense, maxBins, threadsNum int) ([]BinnedFeature, error) {
	if maxBins < 2 {
		return nil, errors.Errorf("max_bins must be at least 2, got %d", maxBins)
	}
	w := Width(features)
	result := make([]BinnedFeature, w)
	errs := make([]error, w)

	if threadsNum <= 1 {
		for q := 0; q < w; q++ {
			result[q], errs[q] = binFeature(features, q, maxBins)
		}
	} else {
		taskPool := lossbridge.NewPool(threadsNum)
		for q := 0; q < w; q++ {
			taskPool.AddTask(&TaskBinFeature{features, maxBins, result, errs, q})
		}
		taskPool.Close()
		taskPool.WaitAll()
	}

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}
