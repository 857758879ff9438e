package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWeights(t *testing.T) {
	weights, err := ParseWeights("midTerm:0.3, endTerm:0.7")
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"midTerm": 0.3, "endTerm": 0.7}, weights)

	_, err = ParseWeights("midTerm=0.3")
	assert.Error(t, err)

	_, err = ParseWeights("midTerm:abc")
	assert.Error(t, err)
}

func TestFromViperDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg, err := fromViper(v)
	require.NoError(t, err)
	assert.Equal(t, StoreMemory, cfg.Store.Driver)
	assert.Equal(t, MaxBatchSize, cfg.Setup.BatchSize)
	assert.InDelta(t, 0.2, cfg.Grading.DefaultWeights["midTerm"], 1e-9)
	assert.InDelta(t, 0.8, cfg.Grading.DefaultWeights["endTerm"], 1e-9)
}

func TestFromViperClampsBatchSize(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("SETUP_BATCH_SIZE", 5000)

	cfg, err := fromViper(v)
	require.NoError(t, err)
	assert.Equal(t, MaxBatchSize, cfg.Setup.BatchSize)

	v.Set("SETUP_BATCH_SIZE", 50)
	cfg, err = fromViper(v)
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.Setup.BatchSize)
}

func TestFromViperRejectsUnknownDriver(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("STORE_DRIVER", "cassandra")

	_, err := fromViper(v)
	assert.Error(t, err)
}
