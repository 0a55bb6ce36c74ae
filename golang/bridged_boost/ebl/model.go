package ebl

import (
	"encoding/json"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"
	"github.com/pkg/errors"
	"github.com/tarstars/bridged_boosting/golang/bridged_boost/lossbridge"
	"github.com/tarstars/bridged_boosting/golang/bridged_boost/objectives"
	"gonum.org/v1/gonum/mat"
)

//Term is the shape function of one feature: Scores holds Classes values per
//bin, summed over every cycle.
type Term struct {
	Feature int
	Cuts    []float64
	Scores  []float64
}

func (term *Term) add(update []float64) {
	for i, v := range update {
		term.Scores[i] += v
	}
}

//Cycle keeps the update every feature received in one pass.
type Cycle struct {
	Updates [][]float64
}

//EBooster is the model class.
type EBooster struct {
	Loss                string
	LossName            string
	Zone                string
	Classes             int
	Link                objectives.Link
	Intercept           []float64
	Terms               []Term
	Cycles              []Cycle
	LearningCurveTitles []string
	LearningCurves      [][]float64
}

//PredictScores returns raw scores, one column per class. A nil cyclesNumber
//uses every cycle.
func (ebooster EBooster) PredictScores(features *mat.Dense, cyclesNumber *int) (*mat.Dense, error) {
	h, w := features.Dims()
	if w != len(ebooster.Terms) {
		return nil, errors.Errorf("%d features, the model has %d", w, len(ebooster.Terms))
	}
	if h == 0 {
		return nil, errors.New("nothing to predict")
	}
	k := ebooster.Classes
	scores := mat.NewDense(h, k, nil)
	for p := 0; p < h; p++ {
		scores.SetRow(p, ebooster.Intercept)
	}

	addTerm := func(term Term, values []float64) {
		for p := 0; p < h; p++ {
			cell := binOf(term.Cuts, features.At(p, term.Feature))
			for c := 0; c < k; c++ {
				scores.Set(p, c, scores.At(p, c)+values[cell*k+c])
			}
		}
	}

	if cyclesNumber == nil {
		for _, term := range ebooster.Terms {
			addTerm(term, term.Scores)
		}
		return scores, nil
	}
	n := *cyclesNumber
	if n < 0 || n > len(ebooster.Cycles) {
		return nil, errors.Errorf("%d cycles requested, the model has %d", n, len(ebooster.Cycles))
	}
	for _, cycle := range ebooster.Cycles[:n] {
		for q, update := range cycle.Updates {
			addTerm(ebooster.Terms[q], update)
		}
	}
	return scores, nil
}

//PredictValue maps scores through the link of the loss. Multiclass models
//return one probability column per class.
func (ebooster EBooster) PredictValue(features *mat.Dense, cyclesNumber *int) (*mat.Dense, error) {
	scores, err := ebooster.PredictScores(features, cyclesNumber)
	if err != nil {
		return nil, err
	}
	h, k := scores.Dims()
	prediction := mat.NewDense(h, k, nil)
	if ebooster.Link == objectives.SoftmaxLink {
		probs := make([]float64, k)
		for p := 0; p < h; p++ {
			objectives.Softmax(objectives.Float64Ops, scores.RawRowView(p), probs)
			prediction.SetRow(p, probs)
		}
		return prediction, nil
	}
	prediction.Apply(func(_, _ int, v float64) float64 { return ebooster.Link.Inverse(v) }, scores)
	return prediction, nil
}

//LearningCurve measures the loss on dataset after every cycle in the CPU zone.
func (ebooster EBooster) LearningCurve(dataset Dataset) ([]float64, error) {
	var scope lossbridge.ScopedLoss
	defer scope.Close()
	config := lossbridge.Config{OutputCount: ebooster.Classes}
	if status := scope.Acquire(lossbridge.ZoneCpu64, &config, []byte(ebooster.Loss)); status != lossbridge.StatusSuccess {
		return nil, errors.WithMessagef(status.Err(), "loss %q", ebooster.Loss)
	}
	probe, err := newMetricProbe(&scope, dataset, ebooster.Classes, len(ebooster.Terms))
	if err != nil {
		return nil, err
	}
	probe.addIntercept(ebooster.Intercept)

	curve := make([]float64, 0, len(ebooster.Cycles))
	for _, cycle := range ebooster.Cycles {
		for q, update := range cycle.Updates {
			probe.addTerm(ebooster.Terms[q].Cuts, q, update)
		}
		value, err := probe.evaluate()
		if err != nil {
			return nil, err
		}
		curve = append(curve, value)
	}
	return curve, nil
}

func (ebooster EBooster) Save(filename string) error {
	modelByteRepr, err := json.MarshalIndent(ebooster, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode model")
	}
	return errors.Wrapf(os.WriteFile(filename, modelByteRepr, 0644), "write model to %s", filename)
}

func LoadModel(filename string) (ebooster EBooster, err error) {
	source, err := os.Open(filename)
	if err != nil {
		return EBooster{}, errors.Wrapf(err, "open model %s", filename)
	}
	defer func() { HandleError(source.Close()) }()

	decoder := json.NewDecoder(source)
	if err := decoder.Decode(&ebooster); err != nil {
		return EBooster{}, errors.Wrapf(err, "decode model %s", filename)
	}
	if len(ebooster.Intercept) != ebooster.Classes {
		return EBooster{}, errors.Errorf("model %s has %d intercepts for %d classes", filename, len(ebooster.Intercept), ebooster.Classes)
	}
	for _, term := range ebooster.Terms {
		if len(term.Scores) != (len(term.Cuts)+1)*ebooster.Classes {
			return EBooster{}, errors.Errorf("model %s: term %d has %d scores", filename, term.Feature, len(term.Scores))
		}
	}
	return ebooster, nil
}

type LearningCurvesDump struct {
	Titles []string
	Values [][]float64
}

func (ebooster EBooster) DumpLearningCurves(filenameLearningCurves string) error {
	learningCurvesDump := LearningCurvesDump{
		Titles: ebooster.LearningCurveTitles,
		Values: ebooster.LearningCurves,
	}
	bytesResult, err := json.MarshalIndent(learningCurvesDump, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode learning curves")
	}
	return errors.Wrapf(os.WriteFile(filenameLearningCurves, bytesResult, 0644), "write %s", filenameLearningCurves)
}

func binDescription(term Term, cell, classes int) string {
	var lower, upper string
	if cell > 0 {
		lower = fmt.Sprintf("%.4g <= ", term.Cuts[cell-1])
	}
	if cell < len(term.Cuts) {
		upper = fmt.Sprintf(" < %.4g", term.Cuts[cell])
	}
	values := make([]string, classes)
	for c := range values {
		values[c] = fmt.Sprintf("%.4g", term.Scores[cell*classes+c])
	}
	return fmt.Sprintf("%sx%d%s\n%s", lower, term.Feature, upper, strings.Join(values, " "))
}

//DrawGraph draws a term as a root node with one box per bin.
func (ebooster EBooster) DrawGraph(term Term) (*graphviz.Graphviz, *cgraph.Graph, error) {
	graphViz := graphviz.New()
	graph, err := graphViz.Graph()
	if err != nil {
		return nil, nil, errors.Wrap(err, "create graph")
	}

	root, err := graph.CreateNode(fmt.Sprintf("feature_%d", term.Feature))
	if err != nil {
		return nil, nil, errors.Wrap(err, "create node")
	}
	root.Set("label", fmt.Sprintf("x%d", term.Feature))

	for cell := 0; cell <= len(term.Cuts); cell++ {
		node, err := graph.CreateNode(fmt.Sprintf("feature_%d_bin_%d", term.Feature, cell))
		if err != nil {
			return nil, nil, errors.Wrap(err, "create node")
		}
		node.Set("label", binDescription(term, cell, ebooster.Classes))
		node.Set("shape", "box")
		if _, err := graph.CreateEdge("", root, node); err != nil {
			return nil, nil, errors.Wrap(err, "create edge")
		}
	}
	return graphViz, graph, nil
}

//RenderTerms writes one picture per term into picturesDirectory.
func (ebooster EBooster) RenderTerms(dumpPrefix, figureType, picturesDirectory string) error {
	graphvizType, ok := map[string]graphviz.Format{
		"png": graphviz.PNG,
		"svg": graphviz.SVG,
		"jpg": graphviz.JPG,
	}[figureType]
	if !ok {
		return errors.Errorf("unknown figure type %q", figureType)
	}

	for _, term := range ebooster.Terms {
		filename := fmt.Sprintf("%s_%05d.%s", dumpPrefix, term.Feature, figureType)
		graphViz, graph, err := ebooster.DrawGraph(term)
		if err != nil {
			return err
		}
		err = graphViz.RenderFilename(graph, graphvizType, path.Join(picturesDirectory, filename))
		HandleError(graph.Close())
		HandleError(graphViz.Close())
		if err != nil {
			return errors.Wrapf(err, "render %s", filename)
		}
	}
	return nil
}
