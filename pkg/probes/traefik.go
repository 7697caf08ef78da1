package probes

import (
	"context"
	"fmt"

	"k8s.io/client-go/kubernetes"
)

const (
	traefikService   = "Traefik"
	traefikNamespace = "kube-system"
	traefikSelector  = "app.kubernetes.io/name=traefik"
	traefikSvcName   = "traefik"
)

// TraefikProbe checks the ingress controller pods and service in kube-system.
type TraefikProbe struct {
	Client kubernetes.Interface
}

func (p *TraefikProbe) Name() string {
	return traefikService
}

func (p *TraefikProbe) Check(ctx context.Context) ServiceHealth {
	podCount, podsReady, err := podsAllRunning(ctx, p.Client, traefikNamespace, traefikSelector)
	if err != nil {
		return failed(traefikService, fmt.Sprintf("Ingress check failed: %v", err))
	}

	svcOK, err := serviceExists(ctx, p.Client, traefikNamespace, traefikSvcName)
	if err != nil {
		return failed(traefikService, fmt.Sprintf("Ingress check failed: %v", err))
	}

	if podsReady && svcOK {
		return healthy(traefikService, fmt.Sprintf("Ingress controller ready (%d pods)", podCount))
	}
	return unhealthy(traefikService, "Ingress controller not ready")
}
