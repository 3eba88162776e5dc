package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shankarsamidala/deals/internal/config"
	"github.com/shankarsamidala/deals/internal/version"
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show dealwatch configuration summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "dealwatch %s (commit %s)\n\n", version.Version, version.Commit)

			// Show paths
			fmt.Fprintf(out, "Config:  %s\n", paths.Config)
			fmt.Fprintf(out, "Data:    %s\n", paths.Data)
			fmt.Fprintf(out, "Logs:    %s\n", paths.Logs)
			fmt.Fprintln(out)

			// Load swallows a missing file, so check for it here.
			if _, err := os.Stat(paths.Config); os.IsNotExist(err) {
				fmt.Fprintln(out, "Config:  not found (using defaults)")
			}
			cfg, err := config.Load(paths.Config)
			if err != nil {
				fmt.Fprintf(out, "Config:  error loading: %v\n", err)
				return nil
			}

			token := "(not set)"
			if cfg.Telegram.Token != "" {
				token = "configured"
			}
			fmt.Fprintf(out, "Token:    %s\n", token)
			fmt.Fprintf(out, "Channels: %s\n", joinOrNone(cfg.Telegram.Channels))
			fmt.Fprintf(out, "Keywords: %s\n", joinOrNone(cfg.Telegram.Keywords))

			fmt.Fprintf(out, "Monitor:  watch=%s connect=%s reconnects=%d\n",
				cfg.Monitor.WatchInterval, cfg.Monitor.ConnectTimeout, cfg.Monitor.ReconnectAttempts)
			fmt.Fprintf(out, "Sink:     store=%s queue=%d\n", cfg.Sink.Store, cfg.Sink.QueueSize)
			fmt.Fprintf(out, "Gateway:  port=%d bind=%s\n", cfg.Gateway.Port, cfg.Gateway.Bind)

			if cfg.Alerts.Webhook != "" {
				fmt.Fprintf(out, "Alerts:   webhook configured, minInterval=%s\n", cfg.Alerts.MinInterval)
			} else {
				fmt.Fprintln(out, "Alerts:   (not configured)")
			}

			// Validation
			issues := config.Validate(&cfg)
			if len(issues) > 0 {
				fmt.Fprintf(out, "\nValidation issues (%d):\n", len(issues))
				for _, issue := range issues {
					fmt.Fprintf(out, "  - %s: %s\n", issue.Path, issue.Message)
				}
			}

			return nil
		},
	}

	return cmd
}

func joinOrNone(vals []string) string {
	if len(vals) == 0 {
		return "(none)"
	}
	return strings.Join(vals, ", ")
}
