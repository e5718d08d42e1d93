package forest

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Config holds the hyperparameters and runtime settings read from a config
// file or FOREST_* environment variables.
type Config struct {
	Trees           int     `mapstructure:"trees"`
	MaxDepth        int     `mapstructure:"max_depth"`
	MinSamplesSplit int     `mapstructure:"min_samples_split"`
	FeaturesPerTree int     `mapstructure:"features_per_tree"`
	Workers         int     `mapstructure:"workers"`
	Seed            uint64  `mapstructure:"seed"` // 0 seeds from the clock
	TrainRatio      float64 `mapstructure:"train_ratio"`
	SplitPolicy     string  `mapstructure:"split_policy"`
}

// SetDefaults registers every key with its default so environment overrides
// are picked up by Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("trees", DefaultTrees)
	v.SetDefault("max_depth", DefaultMaxDepth)
	v.SetDefault("min_samples_split", DefaultMinSamplesSplit)
	v.SetDefault("features_per_tree", 0)
	v.SetDefault("workers", NUM_CPU)
	v.SetDefault("seed", 0)
	v.SetDefault("train_ratio", 0.8)
	v.SetDefault("split_policy", FirstCommit.String())
}

// LoadConfig reads the config file set on v, if any, over the defaults and
// FOREST_* environment variables.
func LoadConfig(v *viper.Viper) (Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix("FOREST")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	if v.ConfigFileUsed() != "" {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, errors.Wrapf(err, "forest: read config %s", v.ConfigFileUsed())
		}
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, errors.Wrap(err, "forest: decode config")
	}
	return c, c.check()
}

func (c Config) check() error {
	if c.Trees <= 0 {
		return errors.Wrapf(ErrNoTrees, "config trees=%d", c.Trees)
	}
	if c.TrainRatio <= 0 || c.TrainRatio > 1 {
		return errors.Errorf("forest: train_ratio %v outside (0, 1]", c.TrainRatio)
	}
	_, err := ParseSplitPolicy(c.SplitPolicy)
	return err
}

// Options turns the config into NewForest options.
func (c Config) Options() ([]Option, error) {
	policy, err := ParseSplitPolicy(c.SplitPolicy)
	if err != nil {
		return nil, err
	}
	opts := []Option{
		WithTrees(c.Trees),
		WithMaxDepth(c.MaxDepth),
		WithMinSamplesSplit(c.MinSamplesSplit),
		WithFeaturesPerTree(c.FeaturesPerTree),
		WithWorkers(c.Workers),
		WithSplitPolicy(policy),
	}
	if c.Seed != 0 {
		opts = append(opts, WithSeed(c.Seed))
	}
	return opts, nil
}
