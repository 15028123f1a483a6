package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nbtest-labs/nbtest/cluster"
)

func testLogger() log.Logger {
	return log.NewLogger(log.DiscardHandler())
}

func TestNewHTTPClientRequiresCredentials(t *testing.T) {
	_, err := NewHTTPClient("", "", testLogger())
	assert.ErrorIs(t, err, ErrMissingCredentials)
	assert.True(t, IsConfigurationError(err))

	_, err = NewHTTPClient("https://example.cloud", "", testLogger())
	assert.ErrorIs(t, err, ErrMissingCredentials)
}

func TestSubmitBuildsRunRequest(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, jobsSubmitPath, r.URL.Path)
		require.Equal(t, "Bearer token-123", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_ = json.NewEncoder(w).Encode(submitResponse{RunID: 42})
	}))
	defer srv.Close()

	c, err := NewHTTPClient(srv.URL, "token-123", testLogger())
	require.NoError(t, err)

	handle, err := c.Submit(context.Background(), RunRequest{
		NotebookPath: "/tests/test_orders",
		Params:       map[string]string{"env": "staging"},
		Cluster:      &cluster.Target{ClusterID: "0819-abc"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(42), handle.RunID)

	assert.Equal(t, "0819-abc", captured["existing_cluster_id"])
	task := captured["notebook_task"].(map[string]any)
	assert.Equal(t, "/tests/test_orders", task["notebook_path"])
}

func TestPollParsesState(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, jobsGetPath, r.URL.Path)
		require.Equal(t, "42", r.URL.Query().Get("run_id"))
		_ = json.NewEncoder(w).Encode(getRunResponse{
			RunID: 42,
			State: runState{LifeCycleState: "TERMINATED", ResultState: "SUCCESS"},
		})
	}))
	defer srv.Close()

	c, err := NewHTTPClient(srv.URL, "t", testLogger())
	require.NoError(t, err)

	status, err := c.Poll(context.Background(), JobHandle{RunID: 42})
	require.NoError(t, err)
	assert.True(t, status.Terminal())
	assert.True(t, status.Succeeded())
}

func TestPollAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error_code":"INTERNAL_ERROR","message":"backend unavailable"}`))
	}))
	defer srv.Close()

	c, err := NewHTTPClient(srv.URL, "t", testLogger())
	require.NoError(t, err)

	_, err = c.Poll(context.Background(), JobHandle{RunID: 7})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backend unavailable")
}

func TestListNotebooksRecursive(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, workspaceListPath, r.URL.Path)
		switch r.URL.Query().Get("path") {
		case "/tests":
			_ = json.NewEncoder(w).Encode(workspaceListResponse{Objects: []workspaceObject{
				{ObjectType: "NOTEBOOK", Path: "/tests/test_b"},
				{ObjectType: "DIRECTORY", Path: "/tests/nested"},
			}})
		case "/tests/nested":
			_ = json.NewEncoder(w).Encode(workspaceListResponse{Objects: []workspaceObject{
				{ObjectType: "NOTEBOOK", Path: "/tests/nested/test_a"},
				{ObjectType: "LIBRARY", Path: "/tests/nested/helper"},
			}})
		default:
			t.Fatalf("unexpected list path %q", r.URL.Query().Get("path"))
		}
	}))
	defer srv.Close()

	c, err := NewHTTPClient(srv.URL, "t", testLogger())
	require.NoError(t, err)

	notebooks, err := c.ListNotebooks(context.Background(), "/tests", true)
	require.NoError(t, err)
	require.Len(t, notebooks, 2)
	// Lexical order regardless of traversal order.
	assert.Equal(t, "/tests/nested/test_a", notebooks[0].Path)
	assert.Equal(t, "/tests/test_b", notebooks[1].Path)
	assert.Equal(t, "test_a", notebooks[0].Name)
}

func TestListNotebooksNonRecursiveSkipsDirectories(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		_ = json.NewEncoder(w).Encode(workspaceListResponse{Objects: []workspaceObject{
			{ObjectType: "NOTEBOOK", Path: "/tests/test_a"},
			{ObjectType: "DIRECTORY", Path: "/tests/nested"},
		}})
	}))
	defer srv.Close()

	c, err := NewHTTPClient(srv.URL, "t", testLogger())
	require.NoError(t, err)

	notebooks, err := c.ListNotebooks(context.Background(), "/tests", false)
	require.NoError(t, err)
	assert.Len(t, notebooks, 1)
	assert.Equal(t, 1, calls)
}
