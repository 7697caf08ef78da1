package probes

import (
	"context"
	"time"

	"github.com/pkg/errors"
	corev1 "k8s.io/api/core/v1"
	kuberneteserrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
)

// Status is the normalized health vocabulary shared by every probe.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
	StatusWarning   Status = "warning"
	StatusError     Status = "error"
)

// ServiceHealth is the result of a single probe invocation.
type ServiceHealth struct {
	Service   string    `json:"service"`
	Status    Status    `json:"status"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Probe checks the health of one platform component. Check never fails past
// its own boundary: any collaborator error is folded into the returned status.
type Probe interface {
	Name() string
	Check(ctx context.Context) ServiceHealth
}

func healthy(service, message string) ServiceHealth {
	return ServiceHealth{Service: service, Status: StatusHealthy, Message: message, Timestamp: time.Now()}
}

func unhealthy(service, message string) ServiceHealth {
	return ServiceHealth{Service: service, Status: StatusUnhealthy, Message: message, Timestamp: time.Now()}
}

func warning(service, message string) ServiceHealth {
	return ServiceHealth{Service: service, Status: StatusWarning, Message: message, Timestamp: time.Now()}
}

func failed(service, message string) ServiceHealth {
	return ServiceHealth{Service: service, Status: StatusError, Message: message, Timestamp: time.Now()}
}

// podsAllRunning lists pods by label selector and reports the pod count and
// whether the selection is non-empty with every pod in phase Running.
func podsAllRunning(ctx context.Context, client kubernetes.Interface, namespace string, selector string) (int, bool, error) {
	pods, err := client.CoreV1().Pods(namespace).List(ctx, metav1.ListOptions{LabelSelector: selector})
	if err != nil {
		return 0, false, errors.Wrapf(err, "list pods in %s with selector %s", namespace, selector)
	}

	if len(pods.Items) == 0 {
		return 0, false, nil
	}
	for _, pod := range pods.Items {
		if pod.Status.Phase != corev1.PodRunning {
			return len(pods.Items), false, nil
		}
	}
	return len(pods.Items), true, nil
}

// serviceExists reports whether a named service is present in the namespace.
func serviceExists(ctx context.Context, client kubernetes.Interface, namespace string, name string) (bool, error) {
	_, err := client.CoreV1().Services(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		if kuberneteserrors.IsNotFound(err) {
			return false, nil
		}
		return false, errors.Wrapf(err, "get service %s/%s", namespace, name)
	}
	return true, nil
}

// truncateError trims collaborator error text embedded into probe messages.
func truncateError(err error, max int) string {
	text := err.Error()
	if len(text) > max {
		return text[:max]
	}
	return text
}
