package ebl

import (
	"math"
	"testing"
)

func TestUpdateTensorViewSharesScores(t *testing.T) {
	ut, err := NewUpdateTensor(3, 2, 5)
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if ut.Cells() != 3 || ut.Classes() != 2 || ut.Feature() != 5 {
		t.Fatalf("header %d %d %d", ut.Cells(), ut.Classes(), ut.Feature())
	}
	if len(ut.Scores()) != 6 {
		t.Fatalf("%d scores, want 6", len(ut.Scores()))
	}

	ut.Set(1, 1, 4)
	if ut.Scores()[3] != 4 {
		t.Fatalf("Set did not reach the flat scores: %v", ut.Scores())
	}
	ut.Scores()[4] = 7
	if ut.At(2, 0) != 7 {
		t.Fatalf("At(2, 0) = %v, want 7", ut.At(2, 0))
	}
	if shape := ut.View().Shape(); shape[0] != 3 || shape[1] != 2 {
		t.Fatalf("view shape %v", shape)
	}

	ut.Reset()
	for _, v := range ut.Scores() {
		if v != 0 {
			t.Fatalf("reset left %v", ut.Scores())
		}
	}
}

func TestUpdateTensorRejectsEmptyShape(t *testing.T) {
	if _, err := NewUpdateTensor(0, 1, 0); err == nil {
		t.Fatalf("zero cells must be refused")
	}
	if _, err := NewUpdateTensor(1, 0, 0); err == nil {
		t.Fatalf("zero classes must be refused")
	}
}

func TestHistogramAndNewtonStep(t *testing.T) {
	cells := []int{0, 1, 1, 0}
	cellOf := func(p int) int { return cells[p] }

	noHessian := gradientSource{gradientsAndHessians: []float64{1, 2, 3, 4}, classes: 1}
	hist := BuildHistogram(noHessian, 2, 4, cellOf)
	ut, err := NewUpdateTensor(2, 1, 0)
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	hist.NewtonStep(1, 0, ut)
	if ut.Scores()[0] != -2.5 || ut.Scores()[1] != -2.5 {
		t.Fatalf("updates %v, want [-2.5 -2.5]", ut.Scores())
	}

	weighted := gradientSource{gradientsAndHessians: []float64{1, 2, 3, 4}, classes: 1, weights: []float64{1, 1, 3, 3}}
	BuildHistogram(weighted, 2, 4, cellOf).NewtonStep(0.5, 1, ut)
	if want := -0.5 * 5 / 5; math.Abs(ut.Scores()[0]-want) > 1e-12 {
		t.Fatalf("weighted update %v, want %v", ut.Scores()[0], want)
	}

	withHessian := gradientSource{
		gradientsAndHessians: []float64{1, 0.5, 2, 0.5, 3, 1.5, 4, 1.5},
		hasHessian:           true,
		classes:              1,
	}
	BuildHistogram(withHessian, 2, 4, cellOf).NewtonStep(1, 0, ut)
	if ut.Scores()[0] != -2.5 || ut.Scores()[1] != -2.5 {
		t.Fatalf("hessian updates %v, want [-2.5 -2.5]", ut.Scores())
	}

	empty := BuildHistogram(noHessian, 2, 0, cellOf)
	empty.NewtonStep(1, 0, ut)
	if ut.Scores()[0] != 0 || ut.Scores()[1] != 0 {
		t.Fatalf("cells without samples must not move: %v", ut.Scores())
	}
}

func TestNewtonStepFillsViewCellMajor(t *testing.T) {
	cells := []int{1, 0}
	cellOf := func(p int) int { return cells[p] }

	src := gradientSource{gradientsAndHessians: []float64{1, 2, 3, 4}, classes: 2}
	ut, err := NewUpdateTensor(2, 2, 3)
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	BuildHistogram(src, 2, 2, cellOf).NewtonStep(1, 1, ut)

	want := [][]float64{{-1.5, -2}, {-0.5, -1}}
	for cell := range want {
		for class, v := range want[cell] {
			if got := ut.At(cell, class); math.Abs(got-v) > 1e-12 {
				t.Errorf("view (%d, %d) = %v, want %v", cell, class, got, v)
			}
			if got := ut.Scores()[cell*2+class]; math.Abs(got-v) > 1e-12 {
				t.Errorf("scores[%d] = %v, want %v", cell*2+class, got, v)
			}
		}
	}
}
