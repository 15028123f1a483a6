package flags

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"
)

const EnvVarPrefix = "NBTEST"

// prefixEnvVars adds the application prefix to the environment variable name.
func prefixEnvVars(name string) []string {
	return []string{EnvVarPrefix + "_" + name}
}

var (
	ClusterID = &cli.StringFlag{
		Name:    "cluster-id",
		Value:   "",
		EnvVars: prefixEnvVars("CLUSTER_ID"),
		Usage:   "ID of an existing cluster to run the tests on",
	}
	ClusterConfig = &cli.StringFlag{
		Name:    "cluster-config",
		Value:   "",
		EnvVars: prefixEnvVars("CLUSTER_CONFIG"),
		Usage:   "Path to a JSON cluster config file (eg. 'cluster.json')",
	}
	ClusterType = &cli.StringFlag{
		Name:    "cluster-type",
		Value:   "",
		EnvVars: prefixEnvVars("CLUSTER_TYPE"),
		Usage:   "Named overlay from the cluster config file to apply on top of the base config",
	}
	Timeout = &cli.DurationFlag{
		Name:    "timeout",
		Value:   120 * time.Second,
		EnvVars: prefixEnvVars("TIMEOUT"),
		Usage:   "Per-test wall-clock timeout measured from job submission",
	}
	MaxParallel = &cli.IntFlag{
		Name:    "max-parallel",
		Value:   1,
		EnvVars: prefixEnvVars("MAX_PARALLEL"),
		Usage:   "Maximum number of tests running concurrently (1 = sequential)",
	}
	PollWait = &cli.DurationFlag{
		Name:    "poll-wait",
		Value:   5 * time.Second,
		EnvVars: prefixEnvVars("POLL_WAIT"),
		Usage:   "Interval between job status polls",
	}
	MaxPollFailures = &cli.IntFlag{
		Name:    "max-poll-failures",
		Value:   5,
		EnvVars: prefixEnvVars("MAX_POLL_FAILURES"),
		Usage:   "Consecutive poll failures before a test is marked errored",
	}
	Recursive = &cli.BoolFlag{
		Name:    "recursive",
		Aliases: []string{"r"},
		Value:   false,
		EnvVars: prefixEnvVars("RECURSIVE"),
		Usage:   "Descend into workspace subdirectories when discovering tests",
	}
	JUnitReport = &cli.BoolFlag{
		Name:    "junit-report",
		Value:   false,
		EnvVars: prefixEnvVars("JUNIT_REPORT"),
		Usage:   "Write a JUnit XML report after the run",
	}
	TagsReport = &cli.BoolFlag{
		Name:    "tags-report",
		Value:   false,
		EnvVars: prefixEnvVars("TAGS_REPORT"),
		Usage:   "Write a CSV report of test case tags after the run",
	}
	Params = &cli.StringSliceFlag{
		Name:    "param",
		EnvVars: prefixEnvVars("PARAM"),
		Usage:   "Notebook parameter as key=value (repeatable)",
	}
	ParamsFile = &cli.StringFlag{
		Name:    "params-file",
		Value:   "",
		EnvVars: prefixEnvVars("PARAMS_FILE"),
		Usage:   "Path to a YAML file of notebook parameters",
	}
	OutputDir = &cli.StringFlag{
		Name:    "output-dir",
		Value:   "results",
		EnvVars: prefixEnvVars("OUTPUT_DIR"),
		Usage:   "Directory for reports and per-test output artifacts",
	}
	RunInterval = &cli.DurationFlag{
		Name:    "run-interval",
		Value:   0,
		EnvVars: prefixEnvVars("RUN_INTERVAL"),
		Usage:   "Interval between test runs (e.g. '1h', '30m'). Set to 0 or omit for run-once mode.",
	}
	LogLevel = &cli.StringFlag{
		Name:    "log-level",
		Value:   "info",
		EnvVars: prefixEnvVars("LOG_LEVEL"),
		Usage:   "The lowest log level that will be output (trace|debug|info|warn|error|crit)",
	}
)

var runFlags = []cli.Flag{
	ClusterID,
	ClusterConfig,
	ClusterType,
	Timeout,
	MaxParallel,
	PollWait,
	MaxPollFailures,
	Recursive,
	JUnitReport,
	TagsReport,
	Params,
	ParamsFile,
	OutputDir,
	RunInterval,
	LogLevel,
}

var listFlags = []cli.Flag{
	Recursive,
	LogLevel,
}

// RunFlags returns the flags for the run command.
func RunFlags() []cli.Flag {
	return runFlags
}

// ListFlags returns the flags for the list command.
func ListFlags() []cli.Flag {
	return listFlags
}

// CheckRun validates flag combinations for the run command.
func CheckRun(ctx *cli.Context) error {
	if ctx.IsSet(ClusterType.Name) && !ctx.IsSet(ClusterConfig.Name) {
		return fmt.Errorf("flag %s requires %s", ClusterType.Name, ClusterConfig.Name)
	}
	if ctx.Int(MaxParallel.Name) < 1 {
		return fmt.Errorf("flag %s must be at least 1", MaxParallel.Name)
	}
	return nil
}
