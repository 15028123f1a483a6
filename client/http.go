package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/log"
)

const (
	// EnvHost and EnvToken name the environment variables carrying the
	// workspace credentials, matching the Databricks CLI convention.
	EnvHost  = "DATABRICKS_HOST"
	EnvToken = "DATABRICKS_TOKEN"

	jobsSubmitPath    = "/api/2.1/jobs/runs/submit"
	jobsGetPath       = "/api/2.1/jobs/runs/get"
	jobsCancelPath    = "/api/2.1/jobs/runs/cancel"
	jobsGetOutputPath = "/api/2.1/jobs/runs/get-output"
	workspaceListPath = "/api/2.0/workspace/list"

	defaultRequestTimeout = 30 * time.Second
)

// ErrMissingCredentials indicates the workspace host or token environment
// variables are not set.
var ErrMissingCredentials = fmt.Errorf("%s and %s environment variables are not set", EnvHost, EnvToken)

// APIError is a non-2xx response from the backend.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("backend returned %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("backend returned %d: %s", e.StatusCode, e.Message)
}

var _ JobClient = (*HTTPClient)(nil)

// HTTPClient implements JobClient against the Databricks REST API.
type HTTPClient struct {
	host       string
	token      string
	httpClient *http.Client
	log        log.Logger
}

// NewHTTPClient creates a client for the given workspace host and token.
func NewHTTPClient(host, token string, logger log.Logger) (*HTTPClient, error) {
	if host == "" || token == "" {
		return nil, ErrMissingCredentials
	}
	return &HTTPClient{
		host:       strings.TrimRight(host, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: defaultRequestTimeout},
		log:        logger.New("component", "job-client"),
	}, nil
}

// NewHTTPClientFromEnv creates a client from the DATABRICKS_HOST and
// DATABRICKS_TOKEN environment variables.
func NewHTTPClientFromEnv(logger log.Logger) (*HTTPClient, error) {
	return NewHTTPClient(os.Getenv(EnvHost), os.Getenv(EnvToken), logger)
}

type submitRequest struct {
	RunName           string            `json:"run_name"`
	ExistingClusterID string            `json:"existing_cluster_id,omitempty"`
	NewCluster        map[string]any    `json:"new_cluster,omitempty"`
	TimeoutSeconds    int64             `json:"timeout_seconds,omitempty"`
	NotebookTask      notebookTask      `json:"notebook_task"`
}

type notebookTask struct {
	NotebookPath   string            `json:"notebook_path"`
	BaseParameters map[string]string `json:"base_parameters,omitempty"`
}

type submitResponse struct {
	RunID int64 `json:"run_id"`
}

// Submit submits the notebook as a one-time run and returns its handle.
func (c *HTTPClient) Submit(ctx context.Context, req RunRequest) (JobHandle, error) {
	body := submitRequest{
		RunName: fmt.Sprintf("nbtest run of %s", path.Base(req.NotebookPath)),
		NotebookTask: notebookTask{
			NotebookPath:   req.NotebookPath,
			BaseParameters: req.Params,
		},
	}
	if req.Timeout > 0 {
		body.TimeoutSeconds = int64(req.Timeout.Seconds())
	}
	if req.Cluster != nil {
		body.ExistingClusterID = req.Cluster.ClusterID
		body.NewCluster = req.Cluster.JobCluster
	}

	var resp submitResponse
	if err := c.post(ctx, jobsSubmitPath, body, &resp); err != nil {
		return JobHandle{}, fmt.Errorf("failed to submit %s: %w", req.NotebookPath, err)
	}
	c.log.Debug("Submitted notebook run", "notebook", req.NotebookPath, "runId", resp.RunID)
	return JobHandle{RunID: resp.RunID}, nil
}

type runState struct {
	LifeCycleState string `json:"life_cycle_state"`
	ResultState    string `json:"result_state"`
	StateMessage   string `json:"state_message"`
}

type getRunResponse struct {
	RunID int64    `json:"run_id"`
	State runState `json:"state"`
}

// Poll fetches the current status of a submitted run.
func (c *HTTPClient) Poll(ctx context.Context, handle JobHandle) (JobStatus, error) {
	var resp getRunResponse
	query := url.Values{"run_id": {fmt.Sprintf("%d", handle.RunID)}}
	if err := c.get(ctx, jobsGetPath, query, &resp); err != nil {
		return JobStatus{}, fmt.Errorf("failed to poll run %d: %w", handle.RunID, err)
	}
	return JobStatus{
		Lifecycle: RunLifecycle(resp.State.LifeCycleState),
		Result:    RunResultState(resp.State.ResultState),
		Message:   resp.State.StateMessage,
	}, nil
}

// Cancel requests cancellation of a run. Callers treat failures as
// best-effort; the run may already be terminal.
func (c *HTTPClient) Cancel(ctx context.Context, handle JobHandle) error {
	body := map[string]int64{"run_id": handle.RunID}
	if err := c.post(ctx, jobsCancelPath, body, nil); err != nil {
		return fmt.Errorf("failed to cancel run %d: %w", handle.RunID, err)
	}
	return nil
}

type getOutputResponse struct {
	NotebookOutput struct {
		Result    string `json:"result"`
		Truncated bool   `json:"truncated"`
	} `json:"notebook_output"`
}

// Output fetches the exit payload of a terminal run. An empty result means
// the notebook never called exit with a value.
func (c *HTTPClient) Output(ctx context.Context, handle JobHandle) (string, error) {
	var resp getOutputResponse
	query := url.Values{"run_id": {fmt.Sprintf("%d", handle.RunID)}}
	if err := c.get(ctx, jobsGetOutputPath, query, &resp); err != nil {
		return "", fmt.Errorf("failed to fetch output of run %d: %w", handle.RunID, err)
	}
	if resp.NotebookOutput.Truncated {
		c.log.Warn("Notebook output was truncated by the backend", "runId", handle.RunID)
	}
	return resp.NotebookOutput.Result, nil
}

type workspaceObject struct {
	ObjectType string `json:"object_type"`
	Path       string `json:"path"`
}

type workspaceListResponse struct {
	Objects []workspaceObject `json:"objects"`
}

// ListNotebooks lists the notebooks under a workspace path, descending into
// directories when recursive is set. Results are returned in lexical order.
func (c *HTTPClient) ListNotebooks(ctx context.Context, listPath string, recursive bool) ([]Notebook, error) {
	var notebooks []Notebook
	pending := []string{listPath}

	for len(pending) > 0 {
		dir := pending[0]
		pending = pending[1:]

		var resp workspaceListResponse
		query := url.Values{"path": {dir}}
		if err := c.get(ctx, workspaceListPath, query, &resp); err != nil {
			return nil, fmt.Errorf("failed to list workspace path %q: %w", dir, err)
		}

		for _, obj := range resp.Objects {
			switch obj.ObjectType {
			case "NOTEBOOK":
				notebooks = append(notebooks, Notebook{Path: obj.Path, Name: path.Base(obj.Path)})
			case "DIRECTORY":
				if recursive {
					pending = append(pending, obj.Path)
				}
			}
		}
	}

	sort.Slice(notebooks, func(i, j int) bool { return notebooks[i].Path < notebooks[j].Path })
	return notebooks, nil
}

func (c *HTTPClient) post(ctx context.Context, apiPath string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+apiPath, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *HTTPClient) get(ctx context.Context, apiPath string, query url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.host+apiPath+"?"+query.Encode(), nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *HTTPClient) do(req *http.Request, out any) error {
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: string(data)}
		var parsed struct {
			ErrorCode string `json:"error_code"`
			Message   string `json:"message"`
		}
		if jsonErr := json.Unmarshal(data, &parsed); jsonErr == nil && parsed.Message != "" {
			apiErr.Code = parsed.ErrorCode
			apiErr.Message = parsed.Message
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// IsConfigurationError reports whether the error stems from missing or
// invalid client configuration rather than a transient backend condition.
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrMissingCredentials)
}
