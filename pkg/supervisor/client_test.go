package supervisor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const projectJSON = `{
	"name": "gitops-dev",
	"config_file": "/workspace/process-compose.yaml",
	"uptime_seconds": 512.3,
	"status": "running",
	"processes": {
		"web": {
			"status": "Running",
			"pid": 4242,
			"restart_count": 1,
			"mem_rss_kb": 10240,
			"cpu_percent": 2.5,
			"uptime_seconds": 500.0,
			"is_ready": true,
			"health": "healthy"
		},
		"worker": {
			"status": "Crashed",
			"restart_count": 7,
			"exit_code": 137
		},
		"api": {
			"status": "Running",
			"pid": 4243,
			"is_ready": true,
			"health": "healthy"
		}
	}
}`

func newTestServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *Client) {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClient(server.URL)
	t.Cleanup(client.Close)

	return server, client
}

func Test_GetProject(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/project", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(projectJSON))
	})

	info, err := client.GetProject(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "gitops-dev", info.ProjectName)
	assert.Equal(t, "/workspace/process-compose.yaml", info.ConfigFile)
	assert.Equal(t, 3, info.ProcessesCount)
	assert.Equal(t, 2, info.RunningProcesses)
	assert.Equal(t, 512.3, info.UptimeSeconds)
	assert.Equal(t, "running", info.Status)

	// processes sorted by name
	require.Len(t, info.Processes, 3)
	assert.Equal(t, "api", info.Processes[0].Name)
	assert.Equal(t, "web", info.Processes[2].Name)

	web := info.Processes[2]
	require.NotNil(t, web.PID)
	assert.Equal(t, 4242, *web.PID)
	assert.Equal(t, 1, web.RestartCount)
	require.NotNil(t, web.MemoryKB)
	assert.Equal(t, int64(10240), *web.MemoryKB)
	assert.True(t, web.IsReady)
	assert.Equal(t, "healthy", web.HealthCheckStatus)

	worker := info.Processes[1]
	assert.Equal(t, "Crashed", worker.Status)
	assert.Nil(t, worker.PID)
	require.NotNil(t, worker.LastExitCode)
	assert.Equal(t, 137, *worker.LastExitCode)
	assert.Equal(t, "unknown", worker.HealthCheckStatus)
}

func Test_GetProject_DefaultsUnknown(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"processes": {"web": {}}}`))
	})

	info, err := client.GetProject(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "unknown", info.ProjectName)
	assert.Equal(t, "unknown", info.ConfigFile)
	assert.Equal(t, "unknown", info.Status)
	require.Len(t, info.Processes, 1)
	assert.Equal(t, "unknown", info.Processes[0].Status)
}

func Test_GetProcess(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/processes/web":
			w.Write([]byte(`{"status": "Running", "pid": 4242, "is_ready": true}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	proc, err := client.GetProcess(context.Background(), "web")
	require.NoError(t, err)
	assert.Equal(t, "web", proc.Name)
	assert.Equal(t, StatusRunning, proc.Status)
	assert.True(t, proc.IsReady)

	_, err = client.GetProcess(context.Background(), "ghost")
	require.Error(t, err)
	assert.Equal(t, ErrProcessNotFound, errors.Cause(err))
}

func Test_Actions(t *testing.T) {
	var gotPath string
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	})

	result, err := client.RestartProcess(context.Background(), "web")
	require.NoError(t, err)
	assert.Equal(t, "/processes/web/restart", gotPath)
	assert.Equal(t, "success", result.Status)
	assert.Equal(t, "Process web restart initiated", result.Message)

	_, err = client.StartProcess(context.Background(), "web")
	require.NoError(t, err)
	assert.Equal(t, "/processes/web/start", gotPath)

	_, err = client.StopProcess(context.Background(), "web")
	require.NoError(t, err)
	assert.Equal(t, "/processes/web/stop", gotPath)
}

func Test_Actions_Rejected(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte("process is disabled"))
	})

	result, err := client.StartProcess(context.Background(), "web")
	require.Error(t, err)
	assert.Nil(t, result)
	assert.Equal(t, ErrActionRejected, errors.Cause(err))
	assert.Contains(t, err.Error(), "process is disabled")
}

func Test_ProcessLogs(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/processes/web/logs", r.URL.Path)
		require.Equal(t, "25", r.URL.Query().Get("tail"))
		w.Write([]byte("line one\nline two\nline three\n"))
	})

	lines, err := client.ProcessLogs(context.Background(), "web", 25)
	require.NoError(t, err)
	assert.Equal(t, []string{"line one", "line two", "line three"}, lines)
}

func Test_ProcessLogs_Empty(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("\n"))
	})

	lines, err := client.ProcessLogs(context.Background(), "web", 10)
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func Test_IsAvailable(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	})
	assert.True(t, client.IsAvailable(context.Background()))

	down := NewClient("http://127.0.0.1:1")
	defer down.Close()
	assert.False(t, down.IsAvailable(context.Background()))
}
