package cli

import (
	"strings"
	"time"

	"github.com/gitopslab/clusterpulse/pkg/apiserver"
	"github.com/gitopslab/clusterpulse/pkg/logger"
	"github.com/gitopslab/clusterpulse/pkg/probes"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func APICmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "api",
		Short: "Starts the API server",
		Long:  ``,
		PreRun: func(cmd *cobra.Command, args []string) {
			viper.BindPFlags(cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			v := viper.GetViper()

			if v.GetString("log-level") == "debug" {
				logger.SetDebug()
			}

			return apiserver.Start(apiserver.Params{
				ListenAddr:    v.GetString("listen"),
				SupervisorURL: v.GetString("supervisor-url"),
				QueryTimeout:  v.GetDuration("query-timeout"),
				ProbeOptions: probes.Options{
					MonitorNamespace:  v.GetString("monitor-namespace"),
					MonitorSelector:   v.GetString("monitor-selector"),
					RegistryPrefix:    v.GetString("registry-prefix"),
					RegistryEndpoints: v.GetStringSlice("registry-endpoint"),
					GatewayAddr:       v.GetString("gateway-addr"),
				},
			})
		},
	}

	cmd.Flags().String("listen", ":8000", "address the API server listens on")
	cmd.Flags().String("supervisor-url", "http://localhost:8080", "process-compose API URL")
	cmd.Flags().Duration("query-timeout", 30*time.Second, "overall deadline for one query cycle")
	cmd.Flags().String("monitor-namespace", "", "namespace the monitor's own pod runs in")
	cmd.Flags().String("monitor-selector", "", "label selector for the monitor's own pod")
	cmd.Flags().String("registry-prefix", "", "image prefix that proves a pull from the local registry")
	cmd.Flags().StringSlice("registry-endpoint", nil, "candidate registry URLs for the HTTP fallback")
	cmd.Flags().String("gateway-addr", "", "host:port of the k3d host gateway")

	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	return cmd
}
