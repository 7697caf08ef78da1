package probes

import (
	"context"
	"fmt"

	"k8s.io/client-go/kubernetes"
)

const (
	certManagerService   = "cert-manager"
	certManagerNamespace = "cert-manager"
	certControllerSel    = "app.kubernetes.io/name=cert-manager"
	certWebhookSelector  = "app.kubernetes.io/name=webhook"
	certCAInjectorSel    = "app.kubernetes.io/name=cainjector"
)

// CertManagerProbe checks the certificate manager. The controller, webhook and
// CA injector must each have at least one pod with every pod Running: partial
// readiness still blocks certificate issuance.
type CertManagerProbe struct {
	Client kubernetes.Interface
}

func (p *CertManagerProbe) Name() string {
	return certManagerService
}

func (p *CertManagerProbe) Check(ctx context.Context) ServiceHealth {
	controllerCount, controllerReady, err := podsAllRunning(ctx, p.Client, certManagerNamespace, certControllerSel)
	if err != nil {
		return failed(certManagerService, fmt.Sprintf("TLS manager check failed: %v", err))
	}

	webhookCount, webhookReady, err := podsAllRunning(ctx, p.Client, certManagerNamespace, certWebhookSelector)
	if err != nil {
		return failed(certManagerService, fmt.Sprintf("TLS manager check failed: %v", err))
	}

	injectorCount, injectorReady, err := podsAllRunning(ctx, p.Client, certManagerNamespace, certCAInjectorSel)
	if err != nil {
		return failed(certManagerService, fmt.Sprintf("TLS manager check failed: %v", err))
	}

	if controllerReady && webhookReady && injectorReady {
		total := controllerCount + webhookCount + injectorCount
		return healthy(certManagerService, fmt.Sprintf("TLS certificate manager ready (%d pods)", total))
	}
	return unhealthy(certManagerService, "TLS certificate manager not ready")
}
