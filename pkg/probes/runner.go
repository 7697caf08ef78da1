package probes

import (
	"context"

	"golang.org/x/sync/errgroup"
	"k8s.io/client-go/kubernetes"
)

// maxConcurrentProbes bounds the fan-out so a single query cycle cannot
// overwhelm the API server.
const maxConcurrentProbes = 8

// Options carries the deployment-specific probe targets. Zero values are
// replaced with the k3d platform defaults.
type Options struct {
	MonitorNamespace  string
	MonitorSelector   string
	RegistryPrefix    string
	RegistryEndpoints []string
	GatewayAddr       string
}

func (o *Options) setDefaults() {
	if o.MonitorNamespace == "" {
		o.MonitorNamespace = "monitoring"
	}
	if o.MonitorSelector == "" {
		o.MonitorSelector = "app=k8s-health-monitor"
	}
	if o.RegistryPrefix == "" {
		o.RegistryPrefix = "registry.localhost:5001"
	}
	if len(o.RegistryEndpoints) == 0 {
		o.RegistryEndpoints = []string{
			"http://registry.localhost:5001/v2/",
			"http://host.k3d.internal:5001/v2/",
		}
	}
	if o.GatewayAddr == "" {
		o.GatewayAddr = "host.k3d.internal:80"
	}
}

// Runner owns the fixed probe set and executes it concurrently.
type Runner struct {
	probes []Probe
}

// NewRunner constructs the six platform probes in their fixed declaration
// order: GitOps controller, git server, ingress, certificate manager,
// registry, load balancer.
func NewRunner(client kubernetes.Interface, opts Options) *Runner {
	opts.setDefaults()

	return &Runner{
		probes: []Probe{
			&ArgoCDProbe{Client: client},
			&GiteaProbe{Client: client},
			&TraefikProbe{Client: client},
			&CertManagerProbe{Client: client},
			&RegistryProbe{
				Client:           client,
				MonitorNamespace: opts.MonitorNamespace,
				MonitorSelector:  opts.MonitorSelector,
				ImagePrefix:      opts.RegistryPrefix,
				Endpoints:        opts.RegistryEndpoints,
				httpClient:       newRegistryHTTPClient(),
			},
			&LoadBalancerProbe{GatewayAddr: opts.GatewayAddr},
		},
	}
}

// Run executes every probe in a bounded concurrent batch and returns the
// results in declaration order. Probes are independent: one probe's failure
// never aborts its siblings, and each failure is already folded into that
// probe's own status.
func (r *Runner) Run(ctx context.Context) []ServiceHealth {
	results := make([]ServiceHealth, len(r.probes))

	g := errgroup.Group{}
	g.SetLimit(maxConcurrentProbes)
	for i, probe := range r.probes {
		i, probe := i, probe
		g.Go(func() error {
			results[i] = probe.Check(ctx)
			return nil
		})
	}
	g.Wait()

	return results
}

// HealthyCount counts results with status healthy.
func HealthyCount(results []ServiceHealth) int {
	count := 0
	for _, result := range results {
		if result.Status == StatusHealthy {
			count++
		}
	}
	return count
}
