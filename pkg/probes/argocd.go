package probes

import (
	"context"
	"fmt"

	"k8s.io/client-go/kubernetes"
)

const (
	argoCDService   = "ArgoCD"
	argoCDNamespace = "argocd"
	argoCDSelector  = "app.kubernetes.io/name=argocd-server"
	argoCDSvcName   = "argocd-server"
)

// ArgoCDProbe checks the GitOps controller: server pods must all be Running
// and the argocd-server service must exist.
type ArgoCDProbe struct {
	Client kubernetes.Interface
}

func (p *ArgoCDProbe) Name() string {
	return argoCDService
}

func (p *ArgoCDProbe) Check(ctx context.Context) ServiceHealth {
	podCount, podsReady, err := podsAllRunning(ctx, p.Client, argoCDNamespace, argoCDSelector)
	if err != nil {
		return failed(argoCDService, fmt.Sprintf("GitOps check failed: %v", err))
	}

	svcOK, err := serviceExists(ctx, p.Client, argoCDNamespace, argoCDSvcName)
	if err != nil {
		return failed(argoCDService, fmt.Sprintf("GitOps check failed: %v", err))
	}

	if podsReady && svcOK {
		return healthy(argoCDService, fmt.Sprintf("GitOps controller ready (%d pods)", podCount))
	}
	return unhealthy(argoCDService, "GitOps controller not ready")
}
