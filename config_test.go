package forest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	c, err := LoadConfig(viper.New())
	require.NoError(t, err)
	assert.Equal(t, DefaultTrees, c.Trees)
	assert.Equal(t, DefaultMaxDepth, c.MaxDepth)
	assert.Equal(t, DefaultMinSamplesSplit, c.MinSamplesSplit)
	assert.Equal(t, 0, c.FeaturesPerTree)
	assert.Equal(t, NUM_CPU, c.Workers)
	assert.Equal(t, 0.8, c.TrainRatio)
	assert.Equal(t, "first-commit", c.SplitPolicy)
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "forest.yml")
	require.NoError(t, os.WriteFile(path, []byte(
		"trees: 40\nmax_depth: 6\nfeatures_per_tree: 3\nseed: 1234\nsplit_policy: lowest-feature\n"), 0o644))
	t.Setenv("FOREST_MAX_DEPTH", "4")

	v := viper.New()
	v.SetConfigFile(path)
	c, err := LoadConfig(v)
	require.NoError(t, err)
	assert.Equal(t, 40, c.Trees)
	assert.Equal(t, 4, c.MaxDepth, "environment wins over the file")
	assert.Equal(t, 3, c.FeaturesPerTree)
	assert.Equal(t, uint64(1234), c.Seed)

	opts, err := c.Options()
	require.NoError(t, err)
	f := NewForest(opts...)
	assert.Equal(t, 40, f.NTrees)
	assert.Equal(t, 4, f.MaxDepth)
	assert.Equal(t, 3, f.FeaturesPerTree)
	assert.Equal(t, uint64(1234), f.Seed())
	assert.Equal(t, LowestFeature, f.policy)
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	t.Setenv("FOREST_SPLIT_POLICY", "coin-flip")
	_, err := LoadConfig(viper.New())
	assert.Error(t, err)

	t.Setenv("FOREST_SPLIT_POLICY", "")
	t.Setenv("FOREST_TREES", "0")
	_, err = LoadConfig(viper.New())
	assert.Error(t, err)
}
