package probes

import (
	"context"
	"fmt"

	"k8s.io/client-go/kubernetes"
)

const (
	giteaService     = "Gitea"
	giteaNamespace   = "git"
	giteaAppSelector = "app.kubernetes.io/name=gitea"
	giteaDBSelector  = "app.kubernetes.io/component=postgresql"
	giteaSvcName     = "gitea-http"
)

// GiteaProbe checks the git server: application pods, database pods, and the
// HTTP service must all check out.
type GiteaProbe struct {
	Client kubernetes.Interface
}

func (p *GiteaProbe) Name() string {
	return giteaService
}

func (p *GiteaProbe) Check(ctx context.Context) ServiceHealth {
	appCount, appReady, err := podsAllRunning(ctx, p.Client, giteaNamespace, giteaAppSelector)
	if err != nil {
		return failed(giteaService, fmt.Sprintf("Git server check failed: %v", err))
	}

	dbCount, dbReady, err := podsAllRunning(ctx, p.Client, giteaNamespace, giteaDBSelector)
	if err != nil {
		return failed(giteaService, fmt.Sprintf("Git server check failed: %v", err))
	}

	svcOK, err := serviceExists(ctx, p.Client, giteaNamespace, giteaSvcName)
	if err != nil {
		return failed(giteaService, fmt.Sprintf("Git server check failed: %v", err))
	}

	if appReady && dbReady && svcOK {
		return healthy(giteaService, fmt.Sprintf("Git server ready (app: %d, db: %d pods)", appCount, dbCount))
	}
	return unhealthy(giteaService, "Git server not ready")
}
