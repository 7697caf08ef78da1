package handlers_test

import (
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"testing"

	"github.com/gitopslab/clusterpulse/pkg/apiserver"
	"github.com/gitopslab/clusterpulse/pkg/cluster"
	"github.com/gitopslab/clusterpulse/pkg/handlers"
	"github.com/gitopslab/clusterpulse/pkg/platform"
	"github.com/gitopslab/clusterpulse/pkg/probes"
	"github.com/gitopslab/clusterpulse/pkg/supervisor"
	"github.com/gitopslab/clusterpulse/pkg/sysmetrics"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	dynamicfake "k8s.io/client-go/dynamic/fake"
	"k8s.io/client-go/kubernetes/fake"
)

func readyRunningPod(namespace string, name string, labels map[string]string, image string) *corev1.Pod {
	return &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{Namespace: namespace, Name: name, Labels: labels},
		Spec: corev1.PodSpec{
			NodeName:   "k3d-dev-server-0",
			Containers: []corev1.Container{{Name: "main", Image: image}},
		},
		Status: corev1.PodStatus{
			Phase: corev1.PodRunning,
			ContainerStatuses: []corev1.ContainerStatus{
				{Name: "main", Ready: true},
			},
		},
	}
}

func readyNode(name string) *corev1.Node {
	return &corev1.Node{
		ObjectMeta: metav1.ObjectMeta{Name: name},
		Status: corev1.NodeStatus{
			Conditions: []corev1.NodeCondition{
				{Type: corev1.NodeReady, Status: corev1.ConditionTrue},
			},
		},
	}
}

func service(namespace string, name string) *corev1.Service {
	return &corev1.Service{ObjectMeta: metav1.ObjectMeta{Namespace: namespace, Name: name}}
}

// healthyClusterObjects builds a fixture where every platform probe passes.
func healthyClusterObjects() []runtime.Object {
	return []runtime.Object{
		readyNode("k3d-dev-server-0"),
		readyNode("k3d-dev-agent-0"),
		readyNode("k3d-dev-agent-1"),

		readyRunningPod("argocd", "argocd-server-0", map[string]string{"app.kubernetes.io/name": "argocd-server"}, "argocd:v2"),
		service("argocd", "argocd-server"),

		readyRunningPod("git", "gitea-0", map[string]string{"app.kubernetes.io/name": "gitea"}, "gitea:1.21"),
		readyRunningPod("git", "gitea-postgresql-0", map[string]string{"app.kubernetes.io/component": "postgresql"}, "postgres:16"),
		service("git", "gitea-http"),

		readyRunningPod("kube-system", "traefik-0", map[string]string{"app.kubernetes.io/name": "traefik"}, "traefik:v3"),
		service("kube-system", "traefik"),

		readyRunningPod("cert-manager", "cert-manager-0", map[string]string{"app.kubernetes.io/name": "cert-manager"}, "cert-manager:v1"),
		readyRunningPod("cert-manager", "cert-manager-webhook-0", map[string]string{"app.kubernetes.io/name": "webhook"}, "webhook:v1"),
		readyRunningPod("cert-manager", "cert-manager-cainjector-0", map[string]string{"app.kubernetes.io/name": "cainjector"}, "cainjector:v1"),

		readyRunningPod("monitoring", "monitor-0", map[string]string{"app": "k8s-health-monitor"}, "registry.localhost:5001/clusterpulse:latest"),
	}
}

func newTestRouter(t *testing.T, handler *handlers.Handler) *mux.Router {
	r := mux.NewRouter()
	apiserver.RegisterRoutes(r, handler)
	return r
}

func newHealthyHandler(t *testing.T) *handlers.Handler {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { listener.Close() })

	client := fake.NewSimpleClientset(healthyClusterObjects()...)
	return &handlers.Handler{
		Client:  client,
		Probes:  probes.NewRunner(client, probes.Options{GatewayAddr: listener.Addr().String()}),
		Metrics: sysmetrics.NewCollector(),
	}
}

func doRequest(t *testing.T, router *mux.Router, method string, path string, out interface{}) int {
	req := httptest.NewRequest(method, path, nil)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	if out != nil && recorder.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), out))
	}
	return recorder.Code
}

func Test_Healthz(t *testing.T) {
	router := newTestRouter(t, &handlers.Handler{})

	for _, path := range []string{"/healthz", "/health"} {
		var health probes.ServiceHealth
		code := doRequest(t, router, http.MethodGet, path, &health)

		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, "clusterpulse", health.Service)
		assert.Equal(t, probes.StatusHealthy, health.Status)
	}
}

func Test_GetVersion(t *testing.T) {
	router := newTestRouter(t, &handlers.Handler{})

	var build map[string]interface{}
	code := doRequest(t, router, http.MethodGet, "/version", &build)

	assert.Equal(t, http.StatusOK, code)
	assert.NotEmpty(t, build["version"])
}

func Test_GetCluster_HealthyPlatform(t *testing.T) {
	router := newTestRouter(t, newHealthyHandler(t))

	var snapshot cluster.Snapshot
	code := doRequest(t, router, http.MethodGet, "/cluster", &snapshot)

	require.Equal(t, http.StatusOK, code)
	assert.True(t, snapshot.Healthy)
	assert.Equal(t, 3, snapshot.NodesReady)
	assert.Equal(t, 3, snapshot.NodesTotal)
	assert.Equal(t, 8, snapshot.PodsRunning)
	assert.Equal(t, 6, snapshot.ServicesHealthy)
	assert.Equal(t, 6, snapshot.ServicesTotal)
}

func Test_GetPlatform_HealthyPlatform(t *testing.T) {
	router := newTestRouter(t, newHealthyHandler(t))

	var status platform.Status
	code := doRequest(t, router, http.MethodGet, "/gitops", &status)

	require.Equal(t, http.StatusOK, code)
	assert.True(t, status.PlatformHealthy)
	assert.Equal(t, 6, status.Services.Healthy)
	assert.Equal(t, "3/3", status.Infrastructure.NodesReady)
	assert.Equal(t, float64(100), status.Infrastructure.PodSuccessRate)

	require.Len(t, status.Components, 6)
	for role, component := range status.Components {
		require.NotNil(t, component, "component %s", role)
		assert.Equal(t, probes.StatusHealthy, component.Status)
	}
}

func Test_GetServices(t *testing.T) {
	router := newTestRouter(t, newHealthyHandler(t))

	var services []probes.ServiceHealth
	code := doRequest(t, router, http.MethodGet, "/services", &services)

	require.Equal(t, http.StatusOK, code)
	require.Len(t, services, 6)
	assert.Equal(t, "ArgoCD", services[0].Service)
	assert.Equal(t, "k3d LoadBalancer", services[5].Service)
}

func Test_GetNodes(t *testing.T) {
	router := newTestRouter(t, newHealthyHandler(t))

	var nodes []cluster.Node
	code := doRequest(t, router, http.MethodGet, "/nodes", &nodes)

	require.Equal(t, http.StatusOK, code)
	require.Len(t, nodes, 3)
}

func Test_GetPods(t *testing.T) {
	router := newTestRouter(t, newHealthyHandler(t))

	var pods []cluster.Pod
	code := doRequest(t, router, http.MethodGet, "/pods?namespace=git", &pods)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, pods, 2)
	assert.Equal(t, "gitea-0", pods[0].Name)

	code = doRequest(t, router, http.MethodGet, "/pods?limit=1", nil)
	assert.Equal(t, http.StatusOK, code)

	code = doRequest(t, router, http.MethodGet, "/pods?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func Test_GetGiteaStatus(t *testing.T) {
	router := newTestRouter(t, newHealthyHandler(t))

	var status handlers.GiteaStatusResponse
	code := doRequest(t, router, http.MethodGet, "/gitea", &status)

	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", status.Status)
	assert.Equal(t, 1, status.PodsRunning)
	assert.Equal(t, "1/1 pods running", status.Message)
}

func Test_GetGiteaStatus_NotFound(t *testing.T) {
	router := newTestRouter(t, &handlers.Handler{Client: fake.NewSimpleClientset()})

	var status handlers.GiteaStatusResponse
	code := doRequest(t, router, http.MethodGet, "/gitea", &status)

	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "not_found", status.Status)
	assert.Equal(t, "No Gitea pods found", status.Message)
}

func argoApplication(name string, sync string, health string, revision string) *unstructured.Unstructured {
	return &unstructured.Unstructured{
		Object: map[string]interface{}{
			"apiVersion": "argoproj.io/v1alpha1",
			"kind":       "Application",
			"metadata": map[string]interface{}{
				"name":      name,
				"namespace": "argocd",
			},
			"status": map[string]interface{}{
				"sync": map[string]interface{}{
					"status":   sync,
					"revision": revision,
				},
				"health": map[string]interface{}{
					"status": health,
				},
			},
		},
	}
}

func Test_GetArgoApplications(t *testing.T) {
	gvr := schema.GroupVersionResource{Group: "argoproj.io", Version: "v1alpha1", Resource: "applications"}
	dynamicClient := dynamicfake.NewSimpleDynamicClientWithCustomListKinds(
		runtime.NewScheme(),
		map[schema.GroupVersionResource]string{gvr: "ApplicationList"},
		argoApplication("web", "Synced", "Healthy", "0123456789abcdef"),
		argoApplication("worker", "OutOfSync", "Degraded", ""),
	)

	router := newTestRouter(t, &handlers.Handler{Dynamic: dynamicClient})

	var response handlers.ArgoApplicationsResponse
	code := doRequest(t, router, http.MethodGet, "/argocd", &response)

	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 2, response.Total)
	assert.Equal(t, 1, response.Synced)
	assert.Equal(t, 1, response.Healthy)

	byName := map[string]handlers.ArgoApplication{}
	for _, app := range response.Applications {
		byName[app.Name] = app
	}

	assert.Equal(t, "Synced", byName["web"].Sync)
	assert.Equal(t, "Healthy", byName["web"].Health)
	assert.Equal(t, "01234567", byName["web"].Revision)
	assert.Equal(t, "Unknown", byName["worker"].Revision)
}

func Test_GetResourceAlerts(t *testing.T) {
	router := newTestRouter(t, &handlers.Handler{Metrics: sysmetrics.NewCollector()})

	var response handlers.ResourceAlertsResponse
	code := doRequest(t, router, http.MethodGet, "/processes/alerts", &response)

	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, len(response.Alerts), response.Count)
}

func Test_RestartProcess_Rejections(t *testing.T) {
	router := newTestRouter(t, &handlers.Handler{Metrics: sysmetrics.NewCollector()})

	// the test binary is not on the allow-list
	code := doRequest(t, router, http.MethodPost, "/processes/"+strconv.Itoa(os.Getpid())+"/restart", nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code = doRequest(t, router, http.MethodPost, "/processes/2147480000/restart", nil)
	assert.Equal(t, http.StatusNotFound, code)

	code = doRequest(t, router, http.MethodPost, "/processes/notapid/restart", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func newSupervisorHandler(t *testing.T, upstream http.HandlerFunc) *handlers.Handler {
	server := httptest.NewServer(upstream)
	t.Cleanup(server.Close)

	client := supervisor.NewClient(server.URL)
	t.Cleanup(client.Close)

	return &handlers.Handler{Supervisor: client}
}

func Test_GetComposeProject(t *testing.T) {
	handler := newSupervisorHandler(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"name": "dev", "status": "running", "processes": {"web": {"status": "Running"}}}`))
	})
	router := newTestRouter(t, handler)

	var project supervisor.ProjectInfo
	code := doRequest(t, router, http.MethodGet, "/compose/project", &project)

	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "dev", project.ProjectName)
	assert.Equal(t, 1, project.ProcessesCount)
	assert.Equal(t, 1, project.RunningProcesses)
}

func Test_GetComposeProject_Unavailable(t *testing.T) {
	client := supervisor.NewClient("http://127.0.0.1:1")
	t.Cleanup(client.Close)
	router := newTestRouter(t, &handlers.Handler{Supervisor: client})

	code := doRequest(t, router, http.MethodGet, "/compose/project", nil)
	assert.Equal(t, http.StatusServiceUnavailable, code)
}

func Test_GetComposeProcess_NotFound(t *testing.T) {
	handler := newSupervisorHandler(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	router := newTestRouter(t, handler)

	code := doRequest(t, router, http.MethodGet, "/compose/processes/ghost", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func Test_ComposeActions(t *testing.T) {
	var gotPath string
	handler := newSupervisorHandler(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	})
	router := newTestRouter(t, handler)

	var result supervisor.ActionResult
	code := doRequest(t, router, http.MethodPost, "/compose/processes/web/restart", &result)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "/processes/web/restart", gotPath)
	assert.Equal(t, "success", result.Status)

	code = doRequest(t, router, http.MethodPost, "/compose/processes/web/start", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "/processes/web/start", gotPath)

	code = doRequest(t, router, http.MethodPost, "/compose/processes/web/stop", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "/processes/web/stop", gotPath)
}

func Test_ComposeAction_Rejected(t *testing.T) {
	handler := newSupervisorHandler(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte("disabled"))
	})
	router := newTestRouter(t, handler)

	code := doRequest(t, router, http.MethodPost, "/compose/processes/web/start", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func Test_GetComposeProcessLogs(t *testing.T) {
	handler := newSupervisorHandler(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "50", r.URL.Query().Get("tail"))
		w.Write([]byte("a\nb\n"))
	})
	router := newTestRouter(t, handler)

	var response handlers.ComposeLogsResponse
	code := doRequest(t, router, http.MethodGet, "/compose/processes/web/logs?tail=50", &response)

	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, []string{"a", "b"}, response.Logs)
	assert.Equal(t, 2, response.Count)
}

func Test_GetComposeHealth_ErrorIsAStatus(t *testing.T) {
	client := supervisor.NewClient("http://127.0.0.1:1")
	t.Cleanup(client.Close)
	router := newTestRouter(t, &handlers.Handler{Supervisor: client})

	var health supervisor.Health
	code := doRequest(t, router, http.MethodGet, "/compose/health", &health)

	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "error", health.Status)
}

func Test_Cors(t *testing.T) {
	router := newTestRouter(t, newHealthyHandler(t))

	req := httptest.NewRequest(http.MethodOptions, "/cluster", nil)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "*", recorder.Header().Get("Access-Control-Allow-Origin"))
}
