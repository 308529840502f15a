package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestValidate_RejectsBadTickSize(t *testing.T) {
	cfg := Default()
	cfg.Book.TickSize = 0
	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsNonStochasticRegimeMatrix(t *testing.T) {
	cfg := Default()
	cfg.Generator.RegimeMatrix[0] = [3]float64{0.5, 0.5, 0.5}
	assert.Error(t, cfg.Validate())
}

func TestLoad_WithoutPath_ReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default().Sampler.Depth, cfg.Sampler.Depth)
}
