package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"runtime"
	"runtime/pprof"
	"strings"

	"github.com/tarstars/bridged_boosting/golang/bridged_boost/ebl"
	"github.com/tarstars/bridged_boosting/golang/bridged_boost/lossbridge"
	"gonum.org/v1/gonum/mat"
)

func decodeConfig(srcConfig string, out interface{}) {
	file, err := os.Open(srcConfig)
	ebl.HandleError(err)
	defer func() { ebl.HandleError(file.Close()) }()

	decoder := json.NewDecoder(file)
	decoder.DisallowUnknownFields()
	ebl.HandleError(decoder.Decode(out))
}

type TestConfig struct {
	Description          string `json:"description"`
	FileNameTestFeatures string `json:"filename_test_features"`
	FileNameTestTarget   string `json:"filename_test_target"`
	FileNameTestWeights  string `json:"filename_test_weights"`
}

type TrainConfig struct {
	FileNameTrainFeatures string       `json:"filename_train_features"`
	FileNameTrainTarget   string       `json:"filename_train_target"`
	FileNameTrainWeights  string       `json:"filename_train_weights"`
	Tests                 []TestConfig `json:"tests"`
	FileNameModel         string       `json:"filename_model"`
	Loss                  string       `json:"loss"`
	Zone                  string       `json:"zone"`
	NStages               int          `json:"n_stages"`
	LearningRate          float64      `json:"learning_rate"`
	MaxBins               int          `json:"max_bins"`
	RegLambda             float64      `json:"reg_lambda"`
	ThreadsNum            int          `json:"threads_num"`
}

func train(srcConfig string) {
	trainConfig := TrainConfig{Loss: "rmse", Zone: "cpu_64", MaxBins: 256, ThreadsNum: 1}
	decodeConfig(srcConfig, &trainConfig)

	zone, err := lossbridge.ParseZone(trainConfig.Zone)
	ebl.HandleError(err)
	if zone == lossbridge.ZoneCuda32 {
		lossbridge.RegisterDevice(lossbridge.NewEmulatedDevice(trainConfig.ThreadsNum))
	}
	if name, ok := lossbridge.CurrentDevice(); ok {
		log.Printf("loss %q in zone %v, device %s\n", trainConfig.Loss, zone, name)
	}

	log.Println("load train")
	datasetTrain, err := ebl.ReadDataset(
		trainConfig.FileNameTrainFeatures,
		trainConfig.FileNameTrainTarget,
		trainConfig.FileNameTrainWeights,
	)
	ebl.HandleError(err)

	var datasetTests []ebl.Dataset
	for _, testConfig := range trainConfig.Tests {
		log.Println("load", testConfig.Description)
		dataset, err := ebl.ReadDataset(
			testConfig.FileNameTestFeatures,
			testConfig.FileNameTestTarget,
			testConfig.FileNameTestWeights,
		)
		ebl.HandleError(err)
		dataset.SetDescription(testConfig.Description)
		datasetTests = append(datasetTests, dataset)
	}

	clf, err := ebl.NewEBooster(ebl.EBoosterParams{
		Matrix:        datasetTrain,
		NStages:       trainConfig.NStages,
		LearningRate:  trainConfig.LearningRate,
		MaxBins:       trainConfig.MaxBins,
		RegLambda:     trainConfig.RegLambda,
		Loss:          trainConfig.Loss,
		Zone:          zone,
		PrintMessages: datasetTests,
		ThreadsNum:    trainConfig.ThreadsNum,
	})
	ebl.HandleError(err)

	ebl.HandleError(clf.Save(trainConfig.FileNameModel))
}

type PredictConfig struct {
	DataFileName       string `json:"filename_features"`
	ModelFileName      string `json:"filename_model"`
	PredictionFileName string `json:"filename_target"`
	CyclesNumber       int    `json:"cycles_number"`
	RawScores          bool   `json:"raw_scores"`
}

func predict(srcConfig string) {
	var predictConfig PredictConfig
	decodeConfig(srcConfig, &predictConfig)

	features, err := ebl.ReadNpy(predictConfig.DataFileName)
	ebl.HandleError(err)

	clf, err := ebl.LoadModel(predictConfig.ModelFileName)
	ebl.HandleError(err)

	var optionalCyclesNumber *int
	if predictConfig.CyclesNumber != 0 {
		optionalCyclesNumber = &predictConfig.CyclesNumber
	}

	var prediction *mat.Dense
	if predictConfig.RawScores {
		prediction, err = clf.PredictScores(features, optionalCyclesNumber)
	} else {
		prediction, err = clf.PredictValue(features, optionalCyclesNumber)
	}
	ebl.HandleError(err)
	ebl.HandleError(ebl.WriteNpy(predictConfig.PredictionFileName, prediction))
}

type LcurveConfig struct {
	DataFileName          string `json:"filename_features"`
	TargetFileName        string `json:"filename_target"`
	WeightsFileName       string `json:"filename_weights"`
	ModelFileName         string `json:"filename_model"`
	LearningCurveFileName string `json:"filename_learning_curve"`
}

func lcurve(srcConfig string) {
	var lcurveConfig LcurveConfig
	decodeConfig(srcConfig, &lcurveConfig)

	dataset, err := ebl.ReadDataset(lcurveConfig.DataFileName, lcurveConfig.TargetFileName, lcurveConfig.WeightsFileName)
	ebl.HandleError(err)

	clf, err := ebl.LoadModel(lcurveConfig.ModelFileName)
	ebl.HandleError(err)

	curve, err := clf.LearningCurve(dataset)
	ebl.HandleError(err)
	if len(curve) == 0 {
		log.Panic("the model has no cycles")
	}

	ebl.HandleError(ebl.WriteNpy(lcurveConfig.LearningCurveFileName, mat.NewDense(len(curve), 1, curve)))
}

type GraphConfig struct {
	ModelFileName     string `json:"filename_model"`
	FigureType        string `json:"figure_type"`
	PicturesDirectory string `json:"pictures_directory"`
	DumpPrefix        string `json:"dump_prefix"`
}

func graph(srcConfig string) {
	var graphConfig GraphConfig
	decodeConfig(srcConfig, &graphConfig)

	clf, err := ebl.LoadModel(graphConfig.ModelFileName)
	ebl.HandleError(err)
	ebl.HandleError(clf.RenderTerms(graphConfig.DumpPrefix, graphConfig.FigureType, graphConfig.PicturesDirectory))
}

type ModelLearningCurvesConfig struct {
	PathToModel            string `json:"path_to_model"`
	FilenameLearningCurves string `json:"filename_learning_curves"`
}

func getLearningCurves(srcConfig string) {
	var modelLearningCurves ModelLearningCurvesConfig
	decodeConfig(srcConfig, &modelLearningCurves)

	clf, err := ebl.LoadModel(modelLearningCurves.PathToModel)
	ebl.HandleError(err)
	ebl.HandleError(clf.DumpLearningCurves(modelLearningCurves.FilenameLearningCurves))
}

//losses prints the registry of every zone; it takes no config.
func losses(string) {
	for _, zone := range []lossbridge.Zone{lossbridge.ZoneCpu64, lossbridge.ZoneCuda32} {
		fmt.Printf("%v: %s\n", zone, strings.Join(lossbridge.Losses(zone), " "))
	}
}

func main() {
	runMode := flag.String("mode", "train", "you can select 'train', 'predict', 'lcurve', 'graph', 'get_learning_curves' or 'losses' modes")
	config := flag.String("config", "bridged_config.json", "a config file for the run of the program")
	memprofile := flag.String("memprofile", "", "write memory profile to `file`")

	flag.Parse()

	modes := map[string]func(string){
		"train":               train,
		"predict":             predict,
		"graph":               graph,
		"lcurve":              lcurve,
		"get_learning_curves": getLearningCurves,
		"losses":              losses,
	}
	run, ok := modes[*runMode]
	if !ok {
		log.Fatalf("unknown mode %q", *runMode)
	}
	run(*config)

	if *memprofile != "" {
		f, err := os.Create(*memprofile)
		ebl.HandleError(err)
		defer func() { ebl.HandleError(f.Close()) }()
		runtime.GC()
		if err := pprof.WriteHeapProfile(f); err != nil {
			log.Fatal("could not write memory profile: ", err)
		}
	}
}
