package platform

import (
	"fmt"
	"math"
	"time"

	"github.com/gitopslab/clusterpulse/pkg/cluster"
	"github.com/gitopslab/clusterpulse/pkg/probes"
)

// podTolerance is the fraction of pods that must be ready for the platform
// judgment: up to 10% may be not-ready so transient rollout churn does not
// flap the signal.
const podTolerance = 0.9

// Component roles in the components mapping. The mapping always carries all
// six keys, each holding the matching probe result or null.
const (
	ComponentGitOps        = "gitops"
	ComponentGitRepository = "git_repository"
	ComponentIngress       = "ingress"
	ComponentTLSManager    = "tls_manager"
	ComponentRegistry      = "registry"
	ComponentLoadBalancer  = "loadbalancer"
)

// componentServices maps each logical role to the service name its probe
// declares.
var componentServices = map[string]string{
	ComponentGitOps:        "ArgoCD",
	ComponentGitRepository: "Gitea",
	ComponentIngress:       "Traefik",
	ComponentTLSManager:    "cert-manager",
	ComponentRegistry:      "Local Registry",
	ComponentLoadBalancer:  "k3d LoadBalancer",
}

// Status is the GitOps-platform health roll-up.
type Status struct {
	PlatformHealthy bool                             `json:"platform_healthy"`
	Services        ServiceSummary                   `json:"services"`
	Infrastructure  Infrastructure                   `json:"infrastructure"`
	Components      map[string]*probes.ServiceHealth `json:"components"`
	Timestamp       time.Time                        `json:"timestamp"`
}

// ServiceSummary rolls up the probe results.
type ServiceSummary struct {
	Healthy int                    `json:"healthy"`
	Total   int                    `json:"total"`
	Details []probes.ServiceHealth `json:"details"`
}

// Infrastructure reports node/pod readiness ratios.
type Infrastructure struct {
	NodesReady     string  `json:"nodes_ready"`
	PodsRunning    string  `json:"pods_running"`
	PodSuccessRate float64 `json:"pod_success_rate"`
}

// Evaluate combines the probe results with node and pod readiness into the
// platform judgment. Unlike the lenient cluster rule, the platform is healthy
// only when every service is healthy, every node is ready, and at least 90%
// of pods are ready.
func Evaluate(services []probes.ServiceHealth, nodes []cluster.Node, pods []cluster.Pod) Status {
	healthyServices := probes.HealthyCount(services)
	totalServices := len(services)

	readyNodes := 0
	for _, node := range nodes {
		if node.Ready {
			readyNodes++
		}
	}
	totalNodes := len(nodes)

	runningPods := 0
	for _, pod := range pods {
		if pod.Ready {
			runningPods++
		}
	}
	totalPods := len(pods)

	platformHealthy := healthyServices == totalServices &&
		readyNodes == totalNodes &&
		float64(runningPods) >= float64(totalPods)*podTolerance

	return Status{
		PlatformHealthy: platformHealthy,
		Services: ServiceSummary{
			Healthy: healthyServices,
			Total:   totalServices,
			Details: services,
		},
		Infrastructure: Infrastructure{
			NodesReady:     fmt.Sprintf("%d/%d", readyNodes, totalNodes),
			PodsRunning:    fmt.Sprintf("%d/%d", runningPods, totalPods),
			PodSuccessRate: podSuccessRate(runningPods, totalPods),
		},
		Components: mapComponents(services),
		Timestamp:  time.Now(),
	}
}

// podSuccessRate is a percentage rounded to one decimal, 0 when there are no
// pods.
func podSuccessRate(running, total int) float64 {
	if total == 0 {
		return 0
	}
	rate := float64(running) / float64(total) * 100
	return math.Round(rate*10) / 10
}

// mapComponents resolves each fixed role to its probe result. Roles with no
// matching probe result stay nil, never an error.
func mapComponents(services []probes.ServiceHealth) map[string]*probes.ServiceHealth {
	components := make(map[string]*probes.ServiceHealth, len(componentServices))
	for role, serviceName := range componentServices {
		components[role] = nil
		for i := range services {
			if services[i].Service == serviceName {
				components[role] = &services[i]
				break
			}
		}
	}
	return components
}
