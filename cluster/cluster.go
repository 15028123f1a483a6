// Package cluster resolves the compute target a test run executes on.
// A run targets either an existing interactive cluster (by ID) or a
// job cluster defined inline or assembled from a JSON config file.
package cluster

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// ErrNoSelector indicates that neither a cluster ID, an inline cluster
// definition, nor a config file path was supplied.
var ErrNoSelector = errors.New("a cluster ID, cluster definition, or cluster config path must be provided")

// Selector describes how the caller chose the compute target.
// Exactly one of ClusterID, Definition, or ConfigPath must be set.
type Selector struct {
	ClusterID  string         // Existing cluster to attach runs to
	Definition map[string]any // Inline job-cluster definition
	ConfigPath string         // Path to a JSON cluster config file
	Type       string         // Named overlay under cluster_configs, optional
}

// Target is the resolved compute target, ready to embed in a run submission.
// Exactly one of ClusterID and JobCluster is non-empty.
type Target struct {
	ClusterID  string
	JobCluster map[string]any
}

// clusterFile mirrors the on-disk config layout: a base_config object
// optionally overlaid by a named entry under cluster_configs.
type clusterFile struct {
	BaseConfig     map[string]any            `json:"base_config"`
	ClusterConfigs map[string]map[string]any `json:"cluster_configs"`
}

// Resolve validates the selector and produces a Target. All configuration
// errors surface here, before any test is dispatched.
func (s Selector) Resolve() (*Target, error) {
	set := 0
	if s.ClusterID != "" {
		set++
	}
	if s.Definition != nil {
		set++
	}
	if s.ConfigPath != "" {
		set++
	}
	switch {
	case set == 0:
		return nil, ErrNoSelector
	case set > 1:
		return nil, errors.New("cluster ID, cluster definition, and cluster config path are mutually exclusive")
	}

	if s.ClusterID != "" {
		return &Target{ClusterID: s.ClusterID}, nil
	}
	if s.Definition != nil {
		return &Target{JobCluster: s.Definition}, nil
	}

	cfg, err := ReadJobClusterConfig(s.ConfigPath, s.Type)
	if err != nil {
		return nil, err
	}
	return &Target{JobCluster: cfg}, nil
}

// ReadJobClusterConfig loads a cluster config file and merges the overlay
// named by clusterType over base_config. Overlay keys win. An unknown
// clusterType is a configuration error.
func ReadJobClusterConfig(path string, clusterType string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cluster config %q not readable: %w", path, err)
	}

	var file clusterFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("cluster config %q is not valid JSON: %w", path, err)
	}
	if file.BaseConfig == nil {
		return nil, fmt.Errorf("base_config section not found in %q", path)
	}

	merged := make(map[string]any, len(file.BaseConfig))
	for k, v := range file.BaseConfig {
		merged[k] = v
	}

	if clusterType != "" {
		overlay, ok := file.ClusterConfigs[clusterType]
		if !ok {
			return nil, fmt.Errorf("cluster type %q not found in %q", clusterType, path)
		}
		for k, v := range overlay {
			merged[k] = v
		}
	}

	return merged, nil
}
