package ebl

import (
	"math"
	"reflect"
	"testing"

	"github.com/tarstars/bridged_boosting/golang/bridged_boost/lossbridge"
	"gonum.org/v1/gonum/mat"
)

func TestArgSortTiny(t *testing.T) {
	f := mat.NewDense(5, 1, []float64{5.0, 4.0, 6.0, 1.0, 2.0})

	fAs := columnArgsort(f.ColView(0))

	if fAs[0] != 3 || fAs[1] != 4 || fAs[2] != 1 || fAs[3] != 0 || fAs[4] != 2 {
		t.Errorf("wrong argsort %v", fAs)
	}
}

func TestQuantileCuts(t *testing.T) {
	column := mat.NewVecDense(10, []float64{9, 8, 7, 6, 5, 4, 3, 2, 1, 0})
	cuts := quantileCuts(column, 4)
	if !reflect.DeepEqual(cuts, []float64{2, 5, 7}) {
		t.Fatalf("cuts %v, want [2 5 7]", cuts)
	}

	checks := []struct {
		value float64
		bin   int
	}{
		{-1, 0}, {1, 0}, {2, 1}, {4.9, 1}, {6, 2}, {7, 3}, {100, 3}, {math.NaN(), 0},
	}
	for _, c := range checks {
		if got := binOf(cuts, c.value); got != c.bin {
			t.Errorf("binOf(%v) = %d, want %d", c.value, got, c.bin)
		}
	}
}

func TestConstantColumnHasOneCell(t *testing.T) {
	features := mat.NewDense(4, 1, []float64{3, 3, 3, 3})
	binned, err := BinFeatures(features, 8, 1)
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if len(binned[0].Cuts) != 0 || binned[0].Cells() != 1 {
		t.Fatalf("constant column got cuts %v", binned[0].Cuts)
	}
	for _, bin := range binned[0].Bins {
		if bin != 0 {
			t.Fatalf("bins %v", binned[0].Bins)
		}
	}
}

func TestBinFeaturesPoolMatchesSerial(t *testing.T) {
	features, _ := regressionData(300)
	serial, err := BinFeatures(features, 16, 1)
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	parallel, err := BinFeatures(features, 16, 4)
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if !reflect.DeepEqual(serial, parallel) {
		t.Fatalf("pooled binning differs from the serial one")
	}

	for _, feature := range serial {
		bridge := lossbridge.ApplyUpdateBridge{Pack: feature.Pack, Packed: feature.Packed}
		for p, bin := range feature.Bins {
			if got := bridge.CellIndex(p); got != bin {
				t.Fatalf("feature %d sample %d: packed cell %d, bin %d", feature.Feature, p, got, bin)
			}
		}
	}
}

func TestBinFeaturesRejectsSingleBin(t *testing.T) {
	features := mat.NewDense(2, 1, []float64{1, 2})
	if _, err := BinFeatures(features, 1, 1); err == nil {
		t.Fatalf("max_bins 1 must be refused")
	}
}
