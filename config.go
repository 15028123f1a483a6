package nbtest

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/nbtest-labs/nbtest/client"
	"github.com/nbtest-labs/nbtest/cluster"
	"github.com/nbtest-labs/nbtest/flags"
	"github.com/nbtest-labs/nbtest/reporting"
)

// Config holds the application configuration for one run.
type Config struct {
	Pattern         string            // Workspace path or single-test path to run
	Cluster         cluster.Selector  // How the compute target was chosen
	Timeout         time.Duration     // Per-test wall-clock timeout
	PollWait        time.Duration     // Interval between job status polls
	MaxParallel     int               // Concurrency bound, 1 = sequential
	MaxPollFailures int               // Consecutive poll errors before demotion
	Recursive       bool              // Descend into workspace subdirectories
	Writers         reporting.Writers // Report sinks selected via flags
	NotebookParams  map[string]string // Parameters passed to every notebook
	OutputDir       string            // Directory for reports and artifacts
	RunInterval     time.Duration     // Interval between test runs
	RunOnce         bool              // Exit after one run instead of looping
	Log             log.Logger

	// Client overrides the workspace client built from the environment.
	// Used by tests.
	Client client.JobClient
}

// NewRunConfig creates a Config for the run command from the cli context.
func NewRunConfig(ctx *cli.Context, logger log.Logger) (*Config, error) {
	if err := flags.CheckRun(ctx); err != nil {
		return nil, err
	}

	pattern := ctx.Args().First()
	if pattern == "" {
		return nil, errors.New("a test path or pattern is required")
	}

	params, err := readNotebookParams(
		ctx.StringSlice(flags.Params.Name),
		ctx.String(flags.ParamsFile.Name),
	)
	if err != nil {
		return nil, err
	}

	var writers reporting.Writers
	if ctx.Bool(flags.JUnitReport.Name) {
		writers |= reporting.WriterJUnit
	}
	if ctx.Bool(flags.TagsReport.Name) {
		writers |= reporting.WriterTags
	}

	runInterval := ctx.Duration(flags.RunInterval.Name)

	return &Config{
		Pattern: pattern,
		Cluster: cluster.Selector{
			ClusterID:  ctx.String(flags.ClusterID.Name),
			ConfigPath: ctx.String(flags.ClusterConfig.Name),
			Type:       ctx.String(flags.ClusterType.Name),
		},
		Timeout:         ctx.Duration(flags.Timeout.Name),
		PollWait:        ctx.Duration(flags.PollWait.Name),
		MaxParallel:     ctx.Int(flags.MaxParallel.Name),
		MaxPollFailures: ctx.Int(flags.MaxPollFailures.Name),
		Recursive:       ctx.Bool(flags.Recursive.Name),
		Writers:         writers,
		NotebookParams:  params,
		OutputDir:       ctx.String(flags.OutputDir.Name),
		RunInterval:     runInterval,
		RunOnce:         runInterval == 0,
		Log:             logger,
	}, nil
}

// readNotebookParams merges the params file (if any) with --param flags.
// Flag values win over file values.
func readNotebookParams(pairs []string, file string) (map[string]string, error) {
	params := make(map[string]string)

	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("params file %q not readable: %w", file, err)
		}
		if err := yaml.Unmarshal(data, &params); err != nil {
			return nil, fmt.Errorf("params file %q is not a valid YAML mapping: %w", file, err)
		}
	}

	for _, pair := range pairs {
		key, value, found := strings.Cut(pair, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("invalid parameter %q, expected key=value", pair)
		}
		params[key] = value
	}

	if len(params) == 0 {
		return nil, nil
	}
	return params, nil
}
