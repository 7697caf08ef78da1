package sysmetrics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_MatchesPlatformKeyword(t *testing.T) {
	tests := []struct {
		name    string
		process string
		cmdline []string
		want    bool
	}{
		{name: "k3s server", process: "k3s-server", want: true},
		{name: "containerd shim", process: "containerd-shim-runc-v2", want: true},
		{name: "case insensitive", process: "Python3.11", want: true},
		{name: "keyword in cmdline only", process: "sh", cmdline: []string{"sh", "-c", "kubectl get pods"}, want: true},
		{name: "unrelated daemon", process: "sshd", cmdline: []string{"sshd", "-D"}, want: false},
		{name: "empty", process: "", want: false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.want, matchesPlatformKeyword(test.process, test.cmdline))
		})
	}
}

func Test_TopProcesses(t *testing.T) {
	collector := NewCollector()

	views, err := collector.TopProcesses(context.Background(), 5)
	require.NoError(t, err)
	require.NotEmpty(t, views)
	assert.LessOrEqual(t, len(views), 5)

	// sorted by CPU descending
	for i := 1; i < len(views); i++ {
		assert.GreaterOrEqual(t, views[i-1].CPUPercent, views[i].CPUPercent)
	}
	for _, view := range views {
		assert.NotEmpty(t, view.Name)
		assert.LessOrEqual(t, len(view.Cmdline), 3)
	}
}
