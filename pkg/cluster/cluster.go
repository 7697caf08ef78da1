package cluster

import (
	"context"
	"sort"
	"time"

	"github.com/gitopslab/clusterpulse/pkg/probes"
	"github.com/pkg/errors"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/duration"
	"k8s.io/client-go/kubernetes"
)

// Snapshot is the cluster-level health roll-up for one query cycle.
type Snapshot struct {
	Healthy         bool      `json:"healthy"`
	NodesReady      int       `json:"nodes_ready"`
	NodesTotal      int       `json:"nodes_total"`
	PodsRunning     int       `json:"pods_running"`
	PodsTotal       int       `json:"pods_total"`
	ServicesHealthy int       `json:"services_healthy"`
	ServicesTotal   int       `json:"services_total"`
	Timestamp       time.Time `json:"timestamp"`
}

// Node is a read-only projection of an orchestrator node.
type Node struct {
	Name           string `json:"name"`
	Status         string `json:"status"`
	Ready          bool   `json:"ready"`
	CPUCapacity    string `json:"cpu_capacity"`
	MemoryCapacity string `json:"memory_capacity"`
	PodCapacity    string `json:"pod_capacity"`
	Architecture   string `json:"architecture"`
	OSImage        string `json:"os_image"`
}

// Pod is a read-only projection of an orchestrator pod.
type Pod struct {
	Name      string `json:"name"`
	Namespace string `json:"namespace"`
	Status    string `json:"status"`
	Ready     bool   `json:"ready"`
	Restarts  int    `json:"restarts"`
	Age       string `json:"age"`
	Node      string `json:"node"`
}

// GetSnapshot combines node readiness, pod phases and the supplied service
// results into one cluster-health judgment. The rule is deliberately lenient:
// every node must be Ready, but pod and service health only need to be
// non-zero. The stricter platform-level judgment lives in pkg/platform.
func GetSnapshot(ctx context.Context, client kubernetes.Interface, services []probes.ServiceHealth) (*Snapshot, error) {
	nodes, err := client.CoreV1().Nodes().List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, errors.Wrap(err, "list nodes")
	}

	nodesReady := 0
	for _, node := range nodes.Items {
		if isNodeReady(node.Status.Conditions) {
			nodesReady++
		}
	}

	pods, err := client.CoreV1().Pods("").List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, errors.Wrap(err, "list pods")
	}

	podsRunning := 0
	for _, pod := range pods.Items {
		if pod.Status.Phase == corev1.PodRunning {
			podsRunning++
		}
	}

	servicesHealthy := probes.HealthyCount(services)

	healthy := nodesReady == len(nodes.Items) &&
		podsRunning > 0 &&
		servicesHealthy > 0

	return &Snapshot{
		Healthy:         healthy,
		NodesReady:      nodesReady,
		NodesTotal:      len(nodes.Items),
		PodsRunning:     podsRunning,
		PodsTotal:       len(pods.Items),
		ServicesHealthy: servicesHealthy,
		ServicesTotal:   len(services),
		Timestamp:       time.Now(),
	}, nil
}

// GetNodes returns projections of every node in the cluster.
func GetNodes(ctx context.Context, client kubernetes.Interface) ([]Node, error) {
	nodes, err := client.CoreV1().Nodes().List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, errors.Wrap(err, "list nodes")
	}

	views := []Node{}
	for _, node := range nodes.Items {
		status := string(node.Status.Phase)
		if status == "" {
			status = "Unknown"
		}

		views = append(views, Node{
			Name:           node.Name,
			Status:         status,
			Ready:          isNodeReady(node.Status.Conditions),
			CPUCapacity:    capacityString(node.Status.Capacity, corev1.ResourceCPU),
			MemoryCapacity: capacityString(node.Status.Capacity, corev1.ResourceMemory),
			PodCapacity:    capacityString(node.Status.Capacity, corev1.ResourcePods),
			Architecture:   node.Status.NodeInfo.Architecture,
			OSImage:        node.Status.NodeInfo.OSImage,
		})
	}
	return views, nil
}

// GetPods returns pod projections sorted by name ascending, optionally scoped
// to one namespace and truncated at limit.
func GetPods(ctx context.Context, client kubernetes.Interface, namespace string, limit int) ([]Pod, error) {
	pods, err := client.CoreV1().Pods(namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, errors.Wrapf(err, "list pods in namespace %q", namespace)
	}

	views := []Pod{}
	for _, pod := range pods.Items {
		if limit > 0 && len(views) >= limit {
			break
		}

		status := string(pod.Status.Phase)
		if status == "" {
			status = "Unknown"
		}

		node := pod.Spec.NodeName
		if node == "" {
			node = "Unknown"
		}

		views = append(views, Pod{
			Name:      pod.Name,
			Namespace: pod.Namespace,
			Status:    status,
			Ready:     isPodReady(pod.Status.ContainerStatuses),
			Restarts:  restartCount(pod.Status.ContainerStatuses),
			Age:       duration.HumanDuration(time.Since(pod.CreationTimestamp.Time)),
			Node:      node,
		})
	}

	sort.Slice(views, func(i, j int) bool {
		return views[i].Name < views[j].Name
	})
	return views, nil
}

func isNodeReady(conditions []corev1.NodeCondition) bool {
	for _, condition := range conditions {
		if condition.Type == corev1.NodeReady && condition.Status == corev1.ConditionTrue {
			return true
		}
	}
	return false
}

// isPodReady requires every container in the pod to report ready.
func isPodReady(statuses []corev1.ContainerStatus) bool {
	if len(statuses) == 0 {
		return false
	}
	for _, status := range statuses {
		if !status.Ready {
			return false
		}
	}
	return true
}

func restartCount(statuses []corev1.ContainerStatus) int {
	count := 0
	for _, status := range statuses {
		count += int(status.RestartCount)
	}
	return count
}

func capacityString(capacity corev1.ResourceList, name corev1.ResourceName) string {
	if quantity, ok := capacity[name]; ok {
		return quantity.String()
	}
	return "Unknown"
}
