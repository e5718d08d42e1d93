package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
	"golang.org/x/exp/rand"

	"github.com/zeidlermicha/forest"
)

// blobs draws n samples around one gaussian centre per class.
func blobs(rng *rand.Rand, n, features, classes int, spread float64) ([][]float64, []int) {
	centres := make([][]float64, classes)
	for c := range centres {
		centres[c] = make([]float64, features)
		for j := range centres[c] {
			centres[c][j] = rng.Float64() * 10
		}
	}
	inputs := make([][]float64, n)
	targets := make([]int, n)
	for i := range inputs {
		c := i % classes
		inputs[i] = make([]float64, features)
		for j := range inputs[i] {
			inputs[i][j] = centres[c][j] + rng.NormFloat64()*spread
		}
		targets[i] = c
	}
	return inputs, targets
}

func run(v *viper.Viper) error {
	logger := zap.L()
	cfg, err := forest.LoadConfig(v)
	if err != nil {
		return err
	}
	opts, err := cfg.Options()
	if err != nil {
		return err
	}
	metrics := forest.NewMetrics("forest")
	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		return err
	}
	opts = append(opts, forest.WithLogger(logger), forest.WithMetrics(metrics))
	model := forest.NewForest(opts...)

	rng := rand.New(rand.NewSource(model.Seed()))
	inputs, targets := blobs(rng, v.GetInt("samples"), v.GetInt("features"), v.GetInt("classes"), v.GetFloat64("spread"))
	data, err := forest.NewDataset(inputs, targets)
	if err != nil {
		return err
	}
	logger.Info("dataset",
		zap.Int("samples", data.Len()),
		zap.Int("features", data.NumFeatures()),
		zap.Ints("class_distribution", data.ClassDistribution()))
	train, test := data.Shuffle(rng).Split(cfg.TrainRatio)

	start := time.Now()
	if err := model.Train(train); err != nil {
		return err
	}
	trainTime := time.Since(start)
	if test.Len() == 0 {
		test = train
	}
	perf, err := model.Evaluate(test)
	if err != nil {
		return err
	}
	logger.Info("result",
		zap.Duration("training", trainTime),
		zap.Duration("prediction", perf.ExecutionTime),
		zap.Float64("accuracy", perf.Accuracy),
		zap.Int("trees", perf.TreesUsed),
		zap.Int("workers", perf.WorkersUsed),
		zap.Float64s("importance", model.Importance()))

	if name := v.GetString("dump"); name != "" {
		if err := model.DumpFile(name); err != nil {
			return err
		}
	}
	if uri := v.GetString("mongo_uri"); uri != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
		if err != nil {
			return err
		}
		defer client.Disconnect(context.Background())
		store := forest.NewMongoStore(client.Database(v.GetString("mongo_db")))
		if err := store.SaveForest(ctx, v.GetString("name"), model); err != nil {
			return err
		}
	}
	return nil
}

func main() {
	v := viper.New()
	cmd := &cobra.Command{
		Use:   "example_blobs",
		Short: "Train and score a random forest on synthetic gaussian blobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			if path := v.GetString("config"); path != "" {
				v.SetConfigFile(path)
			}
			return run(v)
		},
		SilenceUsage: true,
	}
	flags := cmd.Flags()
	flags.String("config", "", "YAML config file")
	flags.IntP("trees", "t", forest.DefaultTrees, "number of trees")
	flags.IntP("max-depth", "d", forest.DefaultMaxDepth, "maximum tree depth")
	flags.IntP("min-samples-split", "s", forest.DefaultMinSamplesSplit, "minimum samples to split a node")
	flags.IntP("features-per-tree", "f", 0, "features per tree, 0 for sqrt(features)")
	flags.Float64P("train-ratio", "r", 0.8, "training set ratio")
	flags.Int("workers", forest.NUM_CPU, "goroutines per parallel region")
	flags.Uint64("seed", 0, "master seed, 0 seeds from the clock")
	flags.String("split-policy", forest.FirstCommit.String(), "split tie-break policy: first-commit or lowest-feature")
	flags.Int("samples", 2000, "samples to generate")
	flags.Int("features", 8, "features per sample")
	flags.Int("classes", 3, "classes to generate")
	flags.Float64("spread", 1.5, "standard deviation around each class centre")
	flags.String("dump", "", "write the trained forest as JSON to this file")
	flags.String("mongo-uri", "", "save the trained forest to this MongoDB")
	flags.String("mongo-db", "forest", "MongoDB database")
	flags.String("name", "blobs", "name the forest is stored under")
	for _, name := range []string{
		"config", "trees", "max-depth", "min-samples-split", "features-per-tree", "train-ratio",
		"workers", "seed", "split-policy", "samples", "features", "classes", "spread",
		"dump", "mongo-uri", "mongo-db", "name",
	} {
		if err := v.BindPFlag(strings.ReplaceAll(name, "-", "_"), flags.Lookup(name)); err != nil {
			panic(err)
		}
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	zap.ReplaceGlobals(logger)

	err = cmd.Execute()
	_ = logger.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
