package ebl

import (
	"log"
	"math"
	"os"

	"github.com/pkg/errors"
	"github.com/sbinet/npyio"
	"gonum.org/v1/gonum/mat"
)

//Dataset holds the features, the target column and optional per-sample weights.
type Dataset struct {
	Features    *mat.Dense
	Target      *mat.Dense
	Weights     []float64
	Description *string
}

//SetDescription names the dataset in learning curves and log lines.
func (dataset *Dataset) SetDescription(description string) {
	dataset.Description = &description
}

func (dataset Dataset) description() string {
	if dataset.Description == nil {
		return ""
	}
	return *dataset.Description
}

//validatedDimensions returns the number of samples and features.
func (dataset Dataset) validatedDimensions() (h, w int, err error) {
	if dataset.Features == nil || dataset.Target == nil {
		return 0, 0, errors.New("dataset needs features and a target")
	}
	h, w = dataset.Features.Dims()
	targetH, targetW := dataset.Target.Dims()
	if targetH != h {
		return 0, 0, errors.Errorf("the target height %d is not equal to the features height %d", targetH, h)
	}
	if targetW != 1 {
		return 0, 0, errors.Errorf("the width of the target should be 1 not %d", targetW)
	}
	if dataset.Weights != nil && len(dataset.Weights) != h {
		return 0, 0, errors.Errorf("%d weights for %d samples", len(dataset.Weights), h)
	}
	return h, w, nil
}

func (dataset Dataset) weightTotal() float64 {
	if dataset.Weights == nil {
		return float64(Height(dataset.Target))
	}
	total := 0.0
	for _, w := range dataset.Weights {
		total += w
	}
	return total
}

func (dataset Dataset) regressionTargets() []float64 {
	targets := make([]float64, Height(dataset.Target))
	mat.Col(targets, 0, dataset.Target)
	return targets
}

//classTargets converts the target column into class indices and returns the
//number of classes seen.
func (dataset Dataset) classTargets() ([]int64, int, error) {
	h := Height(dataset.Target)
	targets := make([]int64, h)
	classes := 0
	for p := 0; p < h; p++ {
		v := dataset.Target.At(p, 0)
		if v < 0 || v != math.Trunc(v) || v > math.MaxInt32 {
			return nil, 0, errors.Errorf("target %v of sample %d is not a class index", v, p)
		}
		targets[p] = int64(v)
		if int(v)+1 > classes {
			classes = int(v) + 1
		}
	}
	return targets, classes, nil
}

//ReadNpy reads a two dimensional array from a .npy file.
func ReadNpy(fileName string) (*mat.Dense, error) {
	f, err := os.Open(fileName)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", fileName)
	}
	defer func() { HandleError(f.Close()) }()

	r, err := npyio.NewReader(f)
	if err != nil {
		return nil, errors.Wrapf(err, "read header of %s", fileName)
	}

	denseMat := &mat.Dense{}
	if err := r.Read(denseMat); err != nil {
		return nil, errors.Wrapf(err, "read %s", fileName)
	}
	return denseMat, nil
}

//WriteNpy stores a matrix as a .npy file.
func WriteNpy(fileName string, m *mat.Dense) error {
	dst, err := os.Create(fileName)
	if err != nil {
		return errors.Wrapf(err, "create %s", fileName)
	}
	if err := npyio.Write(dst, m); err != nil {
		dst.Close()
		return errors.Wrapf(err, "write %s", fileName)
	}
	return dst.Close()
}

//ReadDataset loads features, target and, when fileNameWeights is not empty,
//weights from .npy files.
func ReadDataset(fileNameFeatures, fileNameTarget, fileNameWeights string) (dataset Dataset, err error) {
	log.Print("\ttry to load features <", fileNameFeatures, ">")
	if dataset.Features, err = ReadNpy(fileNameFeatures); err != nil {
		return Dataset{}, err
	}
	log.Print("\ttry to load target <", fileNameTarget, ">")
	if dataset.Target, err = ReadNpy(fileNameTarget); err != nil {
		return Dataset{}, err
	}
	if fileNameWeights != "" {
		log.Print("\ttry to load weights <", fileNameWeights, ">")
		weights, err := ReadNpy(fileNameWeights)
		if err != nil {
			return Dataset{}, err
		}
		h, w := weights.Dims()
		if w != 1 {
			return Dataset{}, errors.Errorf("weights in %s must be a column, got width %d", fileNameWeights, w)
		}
		dataset.Weights = make([]float64, h)
		mat.Col(dataset.Weights, 0, weights)
	}
	if _, _, err := dataset.validatedDimensions(); err != nil {
		return Dataset{}, err
	}
	return dataset, nil
}
