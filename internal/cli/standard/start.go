package standard

import (
	"github.com/spf13/cobra"

	"github.com/ccheshirecat/safepaw/internal/server/config"
)

func newStartCmd(d deps) *cobra.Command {
	var (
		host    string
		uiPort  int
		apiPort int
	)

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start SafePaw server daemon",
		Long:  "Starts the SafePaw UI server and REST API daemon. Flags override SAFEPAW_* environment variables.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("host") {
				cfg.Host = host
			}
			if cmd.Flags().Changed("ui-port") {
				cfg.UIPort = uiPort
			}
			if cmd.Flags().Changed("api-port") {
				cfg.APIPort = apiPort
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return d.serve(cmd.Context(), cfg, d.logger)
		},
	}

	cmd.Flags().StringVar(&host, "host", "0.0.0.0", "Host address to bind servers (e.g., 0.0.0.0, 127.0.0.1, localhost)")
	cmd.Flags().IntVar(&uiPort, "ui-port", 8888, "Port for the UI server")
	cmd.Flags().IntVar(&apiPort, "api-port", 8889, "Port for the REST API server")
	return cmd
}
