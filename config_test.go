package nbtest

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/nbtest-labs/nbtest/flags"
	"github.com/nbtest-labs/nbtest/reporting"
)

// parseRunConfig runs the run command's flag parsing against NewRunConfig.
func parseRunConfig(t *testing.T, args ...string) (*Config, error) {
	t.Helper()
	var cfg *Config
	var cfgErr error
	app := cli.NewApp()
	app.Commands = []*cli.Command{{
		Name:  "run",
		Flags: flags.RunFlags(),
		Action: func(ctx *cli.Context) error {
			cfg, cfgErr = NewRunConfig(ctx, log.NewLogger(log.DiscardHandler()))
			return nil
		},
	}}
	require.NoError(t, app.Run(append([]string{"nbtest", "run"}, args...)))
	return cfg, cfgErr
}

func TestNewRunConfigDefaults(t *testing.T) {
	cfg, err := parseRunConfig(t, "--cluster-id", "0999-abc", "/Workspace/tests")
	require.NoError(t, err)

	assert.Equal(t, "/Workspace/tests", cfg.Pattern)
	assert.Equal(t, "0999-abc", cfg.Cluster.ClusterID)
	assert.Equal(t, 120*time.Second, cfg.Timeout)
	assert.Equal(t, 5*time.Second, cfg.PollWait)
	assert.Equal(t, 1, cfg.MaxParallel)
	assert.False(t, cfg.Recursive)
	assert.Equal(t, reporting.Writers(0), cfg.Writers)
	assert.Nil(t, cfg.NotebookParams)
	assert.Equal(t, "results", cfg.OutputDir)
	assert.True(t, cfg.RunOnce)
}

func TestNewRunConfigAllFlags(t *testing.T) {
	cfg, err := parseRunConfig(t,
		"--cluster-id", "0999-abc",
		"--timeout", "30s",
		"--max-parallel", "4",
		"--poll-wait", "2s",
		"--recursive",
		"--junit-report",
		"--tags-report",
		"--param", "env=staging",
		"--output-dir", "out",
		"--run-interval", "1h",
		"/Workspace/tests",
	)
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, 4, cfg.MaxParallel)
	assert.Equal(t, 2*time.Second, cfg.PollWait)
	assert.True(t, cfg.Recursive)
	assert.True(t, cfg.Writers.Has(reporting.WriterJUnit))
	assert.True(t, cfg.Writers.Has(reporting.WriterTags))
	assert.Equal(t, map[string]string{"env": "staging"}, cfg.NotebookParams)
	assert.Equal(t, "out", cfg.OutputDir)
	assert.Equal(t, time.Hour, cfg.RunInterval)
	assert.False(t, cfg.RunOnce)
}

func TestNewRunConfigMissingPattern(t *testing.T) {
	_, err := parseRunConfig(t, "--cluster-id", "0999-abc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pattern is required")
}

func TestNewRunConfigClusterTypeRequiresConfig(t *testing.T) {
	_, err := parseRunConfig(t, "--cluster-type", "gpu", "/Workspace/tests")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cluster-config")
}

func TestNewRunConfigParamsFile(t *testing.T) {
	paramsFile := filepath.Join(t.TempDir(), "params.yaml")
	require.NoError(t, os.WriteFile(paramsFile, []byte("env: prod\nregion: eu-west-1\n"), 0644))

	cfg, err := parseRunConfig(t,
		"--cluster-id", "0999-abc",
		"--params-file", paramsFile,
		"--param", "env=staging",
		"/Workspace/tests",
	)
	require.NoError(t, err)

	// Flag values win over file values.
	assert.Equal(t, map[string]string{
		"env":    "staging",
		"region": "eu-west-1",
	}, cfg.NotebookParams)
}

func TestNewRunConfigBadParamsFile(t *testing.T) {
	_, err := parseRunConfig(t,
		"--cluster-id", "0999-abc",
		"--params-file", filepath.Join(t.TempDir(), "missing.yaml"),
		"/Workspace/tests",
	)
	require.Error(t, err)
}

func TestReadNotebookParams(t *testing.T) {
	tests := []struct {
		name    string
		pairs   []string
		want    map[string]string
		wantErr bool
	}{
		{
			name:  "single pair",
			pairs: []string{"a=1"},
			want:  map[string]string{"a": "1"},
		},
		{
			name:  "value containing equals",
			pairs: []string{"query=a=b"},
			want:  map[string]string{"query": "a=b"},
		},
		{
			name:    "missing equals",
			pairs:   []string{"nope"},
			wantErr: true,
		},
		{
			name:    "empty key",
			pairs:   []string{"=v"},
			wantErr: true,
		},
		{
			name:  "none",
			pairs: nil,
			want:  nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := readNotebookParams(tt.pairs, "")
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
