package apiserver

import (
	"net/http"
	"time"

	"github.com/gitopslab/clusterpulse/pkg/handlers"
	"github.com/gitopslab/clusterpulse/pkg/k8sutil"
	"github.com/gitopslab/clusterpulse/pkg/logger"
	"github.com/gitopslab/clusterpulse/pkg/probes"
	"github.com/gitopslab/clusterpulse/pkg/supervisor"
	"github.com/gitopslab/clusterpulse/pkg/sysmetrics"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Params carries the startup configuration.
type Params struct {
	ListenAddr    string
	SupervisorURL string
	QueryTimeout  time.Duration
	ProbeOptions  probes.Options
}

// Start builds the collaborator handles, wires the routes and serves until
// the listener fails.
func Start(params Params) error {
	clientset, err := k8sutil.GetClientset()
	if err != nil {
		return errors.Wrap(err, "failed to get clientset")
	}

	dynamicClient, err := k8sutil.GetDynamicClient()
	if err != nil {
		return errors.Wrap(err, "failed to get dynamic client")
	}

	supervisorClient := supervisor.NewClient(params.SupervisorURL)
	defer supervisorClient.Close()

	handler := &handlers.Handler{
		Client:       clientset,
		Dynamic:      dynamicClient,
		Probes:       probes.NewRunner(clientset, params.ProbeOptions),
		Metrics:      sysmetrics.NewCollector(),
		Supervisor:   supervisorClient,
		QueryTimeout: params.QueryTimeout,
	}

	r := mux.NewRouter()
	RegisterRoutes(r, handler)

	srv := &http.Server{
		Handler: r,
		Addr:    params.ListenAddr,
	}

	logger.Info("starting clusterpulse API", zap.String("addr", params.ListenAddr))
	return srv.ListenAndServe()
}

// RegisterRoutes attaches every API route to the router.
func RegisterRoutes(r *mux.Router, handler *handlers.Handler) {
	r.Use(handlers.CorsMiddleware, handlers.LoggingMiddleware)

	r.HandleFunc("/healthz", handler.Healthz)
	r.HandleFunc("/health", handler.Healthz)
	r.Path("/version").Methods("OPTIONS", "GET").HandlerFunc(handler.GetVersion)

	// Cluster
	r.Path("/cluster").Methods("OPTIONS", "GET").HandlerFunc(handler.GetCluster)
	r.Path("/nodes").Methods("OPTIONS", "GET").HandlerFunc(handler.GetNodes)
	r.Path("/pods").Methods("OPTIONS", "GET").HandlerFunc(handler.GetPods)
	r.Path("/services").Methods("OPTIONS", "GET").HandlerFunc(handler.GetServices)

	// GitOps platform
	r.Path("/gitops").Methods("OPTIONS", "GET").HandlerFunc(handler.GetPlatform)
	r.Path("/argocd").Methods("OPTIONS", "GET").HandlerFunc(handler.GetArgoApplications)
	r.Path("/gitea").Methods("OPTIONS", "GET").HandlerFunc(handler.GetGiteaStatus)

	// Host processes and resources
	r.Path("/processes/system").Methods("OPTIONS", "GET").HandlerFunc(handler.GetSystemResources)
	r.Path("/processes/top").Methods("OPTIONS", "GET").HandlerFunc(handler.GetTopProcesses)
	r.Path("/processes/kubernetes").Methods("OPTIONS", "GET").HandlerFunc(handler.GetPlatformProcesses)
	r.Path("/processes/alerts").Methods("OPTIONS", "GET").HandlerFunc(handler.GetResourceAlerts)
	r.Path("/processes/{pid}/restart").Methods("OPTIONS", "POST").HandlerFunc(handler.RestartProcess)

	// Remote supervisor proxy
	r.Path("/compose/project").Methods("OPTIONS", "GET").HandlerFunc(handler.GetComposeProject)
	r.Path("/compose/processes").Methods("OPTIONS", "GET").HandlerFunc(handler.GetComposeProcesses)
	r.Path("/compose/health").Methods("OPTIONS", "GET").HandlerFunc(handler.GetComposeHealth)
	r.Path("/compose/processes/{name}").Methods("OPTIONS", "GET").HandlerFunc(handler.GetComposeProcess)
	r.Path("/compose/processes/{name}/logs").Methods("OPTIONS", "GET").HandlerFunc(handler.GetComposeProcessLogs)
	r.Path("/compose/processes/{name}/start").Methods("OPTIONS", "POST").HandlerFunc(handler.StartComposeProcess)
	r.Path("/compose/processes/{name}/stop").Methods("OPTIONS", "POST").HandlerFunc(handler.StopComposeProcess)
	r.Path("/compose/processes/{name}/restart").Methods("OPTIONS", "POST").HandlerFunc(handler.RestartComposeProcess)
}
