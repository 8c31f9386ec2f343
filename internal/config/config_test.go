package config

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gaussfit/domain/marks"
	"gaussfit/internal/errors"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"GAUSSFIT_CLAMP", "GAUSSFIT_RESCALE_MODE", "GAUSSFIT_RESCALE_FACTOR", "GAUSSFIT_BIN_WIDTH",
		"SIMPLEX_MAX_ITERATIONS", "SIMPLEX_TOLERANCE", "SIMPLEX_RESTARTS", "PORT", "MAX_CONCURRENT_ANALYSES",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.False(t, cfg.Analysis.ClampOutOfRange)
	assert.Equal(t, marks.RescaleNone, cfg.Analysis.Rescale.Mode)
	assert.Equal(t, 0.0, cfg.Analysis.BinWidth)
	assert.Equal(t, DefaultMaxIterations, cfg.Simplex.MaxIterations)
	assert.Equal(t, DefaultTolerance, cfg.Simplex.Tolerance)
	assert.Equal(t, DefaultRestarts, cfg.Simplex.Restarts)
	assert.Equal(t, DefaultPort, cfg.Server.Port)
	assert.Equal(t, DefaultMaxConcurrent, cfg.Server.MaxConcurrentAnalyses)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("GAUSSFIT_CLAMP", "true")
	t.Setenv("GAUSSFIT_RESCALE_MODE", "target")
	t.Setenv("GAUSSFIT_RESCALE_MEAN", "62.5")
	t.Setenv("GAUSSFIT_RESCALE_SD", "11")
	t.Setenv("GAUSSFIT_BIN_WIDTH", "4")
	t.Setenv("SIMPLEX_MAX_ITERATIONS", "500")
	t.Setenv("SIMPLEX_TOLERANCE", "1e-6")
	t.Setenv("SIMPLEX_RESTARTS", "3")
	t.Setenv("PORT", "9090")
	t.Setenv("MAX_CONCURRENT_ANALYSES", "2")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.Analysis.ClampOutOfRange)
	assert.Equal(t, marks.RescaleTargetMeanSD, cfg.Analysis.Rescale.Mode)
	assert.Equal(t, 62.5, cfg.Analysis.Rescale.Mean)
	assert.Equal(t, 11.0, cfg.Analysis.Rescale.SD)
	assert.Equal(t, 4.0, cfg.Analysis.BinWidth)
	assert.Equal(t, 500, cfg.Simplex.MaxIterations)
	assert.Equal(t, 1e-6, cfg.Simplex.Tolerance)
	assert.Equal(t, 3, cfg.Simplex.Restarts)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 2, cfg.Server.MaxConcurrentAnalyses)
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	cases := map[string]map[string]string{
		"unknown mode":       {"GAUSSFIT_RESCALE_MODE": "logarithmic"},
		"target without sd":  {"GAUSSFIT_RESCALE_MODE": "target", "GAUSSFIT_RESCALE_MEAN": "60"},
		"bad bin width":      {"GAUSSFIT_BIN_WIDTH": "-2"},
		"zero iterations":    {"SIMPLEX_MAX_ITERATIONS": "0"},
		"no analysis slots":  {"MAX_CONCURRENT_ANALYSES": "0"},
		"negative tolerance": {"SIMPLEX_TOLERANCE": "-1"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.CodeConfigInvalid), "got %v", err)
		})
	}
}

func TestParseBinWidth(t *testing.T) {
	for _, s := range []string{"", "auto", "AUTO", "  auto "} {
		w, err := ParseBinWidth(s)
		require.NoError(t, err)
		assert.Equal(t, 0.0, w)
	}

	w, err := ParseBinWidth("2.5")
	require.NoError(t, err)
	assert.Equal(t, 2.5, w)

	for _, s := range []string{"0", "-1", "wide", "NaN", "Inf"} {
		_, err := ParseBinWidth(s)
		assert.True(t, errors.IsCode(err, errors.CodeConfigInvalid), "input %q", s)
	}
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	assert.NoError(t, cfg.Validate())

	cfg.Analysis.Rescale = marks.RescaleSpec{Mode: marks.RescaleMultiplicative, Factor: math.Inf(1)}
	assert.Error(t, cfg.Validate())
}
