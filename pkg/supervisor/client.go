package supervisor

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	cleanhttp "github.com/hashicorp/go-cleanhttp"
	"github.com/pkg/errors"
)

const (
	requestTimeout = 10 * time.Second
	pingTimeout    = 5 * time.Second
)

var (
	// ErrProcessNotFound reports a process name the supervisor does not know.
	ErrProcessNotFound = errors.New("process not found")
	// ErrActionRejected reports an action the supervisor refused.
	ErrActionRejected = errors.New("action rejected")
)

// ProcessState is one supervised process as reported by the remote
// process-compose API. Identity is the process name within its project.
type ProcessState struct {
	Name              string   `json:"name"`
	Status            string   `json:"status"`
	PID               *int     `json:"pid"`
	RestartCount      int      `json:"restart_count"`
	MemoryKB          *int64   `json:"memory_kb"`
	CPUPercent        *float64 `json:"cpu_percent"`
	UptimeSeconds     *float64 `json:"uptime_seconds"`
	LastExitCode      *int     `json:"last_exit_code"`
	IsReady           bool     `json:"is_ready"`
	HealthCheckStatus string   `json:"health_check_status"`
}

// ProjectInfo is the remote project roll-up.
type ProjectInfo struct {
	ProjectName      string         `json:"project_name"`
	ConfigFile       string         `json:"config_file"`
	ProcessesCount   int            `json:"processes_count"`
	RunningProcesses int            `json:"running_processes"`
	Processes        []ProcessState `json:"processes"`
	UptimeSeconds    float64        `json:"uptime_seconds"`
	Status           string         `json:"status"`
}

// ActionResult describes a completed start/stop/restart action.
type ActionResult struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Client talks to a process-compose supervisor API. The underlying HTTP
// client pools connections; CloseIdleConnections releases them on shutdown.
type Client struct {
	apiURL     string
	httpClient *http.Client
}

func NewClient(apiURL string) *Client {
	httpClient := cleanhttp.DefaultClient()
	httpClient.Timeout = requestTimeout

	return &Client{
		apiURL:     strings.TrimRight(apiURL, "/"),
		httpClient: httpClient,
	}
}

// Close releases pooled connections.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

// wire format of the process-compose API

type processResponse struct {
	Status        string   `json:"status"`
	PID           *int     `json:"pid"`
	RestartCount  int      `json:"restart_count"`
	MemRSSKB      *int64   `json:"mem_rss_kb"`
	CPUPercent    *float64 `json:"cpu_percent"`
	UptimeSeconds *float64 `json:"uptime_seconds"`
	ExitCode      *int     `json:"exit_code"`
	IsReady       bool     `json:"is_ready"`
	Health        string   `json:"health"`
}

type projectResponse struct {
	Name          string                     `json:"name"`
	ConfigFile    string                     `json:"config_file"`
	UptimeSeconds float64                    `json:"uptime_seconds"`
	Status        string                     `json:"status"`
	Processes     map[string]processResponse `json:"processes"`
}

func (r processResponse) toState(name string) ProcessState {
	status := r.Status
	if status == "" {
		status = "unknown"
	}
	health := r.Health
	if health == "" {
		health = "unknown"
	}
	return ProcessState{
		Name:              name,
		Status:            status,
		PID:               r.PID,
		RestartCount:      r.RestartCount,
		MemoryKB:          r.MemRSSKB,
		CPUPercent:        r.CPUPercent,
		UptimeSeconds:     r.UptimeSeconds,
		LastExitCode:      r.ExitCode,
		IsReady:           r.IsReady,
		HealthCheckStatus: health,
	}
}

// GetProject returns the remote project roll-up.
func (c *Client) GetProject(ctx context.Context) (*ProjectInfo, error) {
	var project projectResponse
	if err := c.getJSON(ctx, "/project", &project); err != nil {
		return nil, errors.Wrap(err, "get project info")
	}

	processes := make([]ProcessState, 0, len(project.Processes))
	for name, proc := range project.Processes {
		processes = append(processes, proc.toState(name))
	}
	sort.Slice(processes, func(i, j int) bool {
		return processes[i].Name < processes[j].Name
	})

	running := 0
	for _, proc := range processes {
		if proc.Status == StatusRunning {
			running++
		}
	}

	name := project.Name
	if name == "" {
		name = "unknown"
	}
	configFile := project.ConfigFile
	if configFile == "" {
		configFile = "unknown"
	}
	status := project.Status
	if status == "" {
		status = "unknown"
	}

	return &ProjectInfo{
		ProjectName:      name,
		ConfigFile:       configFile,
		ProcessesCount:   len(processes),
		RunningProcesses: running,
		Processes:        processes,
		UptimeSeconds:    project.UptimeSeconds,
		Status:           status,
	}, nil
}

// GetProcess returns one process by name. Returns ErrProcessNotFound when
// the supervisor does not know the name.
func (c *Client) GetProcess(ctx context.Context, name string) (*ProcessState, error) {
	resp, err := c.do(ctx, http.MethodGet, "/processes/"+name, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "get process %s", name)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, errors.Wrapf(ErrProcessNotFound, "process %s", name)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("get process %s: unexpected status %d", name, resp.StatusCode)
	}

	var proc processResponse
	if err := json.NewDecoder(resp.Body).Decode(&proc); err != nil {
		return nil, errors.Wrapf(err, "decode process %s", name)
	}

	state := proc.toState(name)
	return &state, nil
}

// StartProcess asks the supervisor to start the named process.
func (c *Client) StartProcess(ctx context.Context, name string) (*ActionResult, error) {
	return c.action(ctx, name, "start")
}

// StopProcess asks the supervisor to stop the named process.
func (c *Client) StopProcess(ctx context.Context, name string) (*ActionResult, error) {
	return c.action(ctx, name, "stop")
}

// RestartProcess asks the supervisor to restart the named process.
func (c *Client) RestartProcess(ctx context.Context, name string) (*ActionResult, error) {
	return c.action(ctx, name, "restart")
}

func (c *Client) action(ctx context.Context, name string, verb string) (*ActionResult, error) {
	resp, err := c.do(ctx, http.MethodPost, fmt.Sprintf("/processes/%s/%s", name, verb), nil)
	if err != nil {
		return nil, errors.Wrapf(err, "%s process %s", verb, name)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, errors.Wrapf(ErrActionRejected, "failed to %s %s: %s", verb, name, strings.TrimSpace(string(body)))
	}

	return &ActionResult{
		Status:  "success",
		Message: fmt.Sprintf("Process %s %s initiated", name, verb),
	}, nil
}

// ProcessLogs returns the last tail lines of a process log.
func (c *Client) ProcessLogs(ctx context.Context, name string, tail int) ([]string, error) {
	path := fmt.Sprintf("/processes/%s/logs?tail=%s", name, strconv.Itoa(tail))
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "get logs for %s", name)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "read logs for %s", name)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("get logs for %s: unexpected status %d", name, resp.StatusCode)
	}

	text := strings.TrimSpace(string(body))
	if text == "" {
		return []string{}, nil
	}
	return strings.Split(text, "\n"), nil
}

// IsAvailable reports whether the supervisor API answers its health endpoint.
func (c *Client) IsAvailable(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	resp, err := c.do(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("unexpected status %d from %s", resp.StatusCode, path)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) do(ctx context.Context, method string, path string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.apiURL+path, body)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	return c.httpClient.Do(req)
}
