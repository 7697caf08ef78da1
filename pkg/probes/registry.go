package probes

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	cleanhttp "github.com/hashicorp/go-cleanhttp"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
)

const (
	registryService     = "Local Registry"
	registryErrorMaxLen = 80
	registryHTTPTimeout = 3 * time.Second
)

// RegistryProbe validates the local container registry in two tiers. First it
// inspects the monitor's own pod: a Running pod whose container image came from
// the internal registry host proves the registry works without touching the
// network. Only when that is inconclusive does it fall back to HTTP against the
// candidate registry endpoints. The probe never reports error: the registry is
// infrastructure-adjacent, and over-reporting unhealthy here generates false
// pages, so inconclusive results are a warning.
type RegistryProbe struct {
	Client kubernetes.Interface

	// MonitorNamespace/MonitorSelector locate the monitor's own pod.
	MonitorNamespace string
	MonitorSelector  string

	// ImagePrefix is the internal registry host container images are pulled from.
	ImagePrefix string

	// Endpoints are candidate registry URLs for the HTTP fallback, in order.
	Endpoints []string

	// httpClient is set once at construction. Check only reads it: one probe
	// instance serves concurrent query cycles.
	httpClient *http.Client
}

func newRegistryHTTPClient() *http.Client {
	httpClient := cleanhttp.DefaultClient()
	httpClient.Timeout = registryHTTPTimeout
	return httpClient
}

func (p *RegistryProbe) Name() string {
	return registryService
}

func (p *RegistryProbe) Check(ctx context.Context) ServiceHealth {
	working, err := p.imagePulledFromRegistry(ctx)
	if err != nil {
		return warning(registryService, fmt.Sprintf("Registry check inconclusive: %s", truncateError(err, registryErrorMaxLen)))
	}
	if working {
		return healthy(registryService, "Registry operational (image pulled successfully)")
	}

	for _, endpoint := range p.Endpoints {
		ok, err := p.probeEndpoint(ctx, endpoint)
		if err != nil {
			continue
		}
		if ok {
			return healthy(registryService, "Registry accessible via HTTP")
		}
	}
	return warning(registryService, "Registry not directly accessible (may still be working)")
}

func (p *RegistryProbe) imagePulledFromRegistry(ctx context.Context) (bool, error) {
	pods, err := p.Client.CoreV1().Pods(p.MonitorNamespace).List(ctx, metav1.ListOptions{LabelSelector: p.MonitorSelector})
	if err != nil {
		return false, err
	}
	if len(pods.Items) == 0 {
		return false, nil
	}

	pod := pods.Items[0]
	if pod.Status.Phase != corev1.PodRunning {
		return false, nil
	}
	for _, container := range pod.Spec.Containers {
		if strings.HasPrefix(container.Image, p.ImagePrefix) {
			return true, nil
		}
	}
	return false, nil
}

// probeEndpoint accepts 200 and 401: an auth challenge still proves the
// registry is serving.
func (p *RegistryProbe) probeEndpoint(ctx context.Context, endpoint string) (bool, error) {
	httpClient := p.httpClient
	if httpClient == nil {
		httpClient = newRegistryHTTPClient()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, err
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusUnauthorized, nil
}
