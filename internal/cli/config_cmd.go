package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/shankarsamidala/deals/internal/config"
)

// configKeys are the settable leaves of the dealwatch config file. The list
// keys accept comma-separated values on `config set`.
var configKeys = map[string]struct{ list bool }{
	"telegram.token":            {},
	"telegram.channels":         {list: true},
	"telegram.keywords":         {list: true},
	"monitor.watchInterval":     {},
	"monitor.connectTimeout":    {},
	"monitor.reconnectAttempts": {},
	"monitor.reconnectBase":     {},
	"monitor.floodWaitCap":      {},
	"sink.store":                {},
	"sink.queueSize":            {},
	"alerts.webhook":            {},
	"alerts.minInterval":        {},
	"gateway.port":              {},
	"gateway.bind":              {},
	"logging.level":             {},
	"logging.style":             {},
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Get or set configuration values",
	}

	cmd.AddCommand(newConfigGetCmd())
	cmd.AddCommand(newConfigSetCmd())
	cmd.AddCommand(newConfigUnsetCmd())
	cmd.AddCommand(newConfigPathCmd())

	return cmd
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "get <key>",
		Short:   "Get a configuration value",
		Example: "  dealwatch config get telegram.channels",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.ParseConfigPath(args[0])
			if err != nil {
				return err
			}

			raw, err := config.LoadRaw(paths.Config)
			if err != nil {
				return err
			}

			val, ok := config.GetValueAtPath(raw, path)
			if !ok {
				return fmt.Errorf("key %q not found", args[0])
			}

			return printValue(cmd, val)
		},
	}
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Example: "  dealwatch config set telegram.token 12345:AAbbcc\n" +
			"  dealwatch config set telegram.channels @dealsfeed,@bargains\n" +
			"  dealwatch config set monitor.reconnectAttempts 5",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateKey(args[0]); err != nil {
				return err
			}
			path, err := config.ParseConfigPath(args[0])
			if err != nil {
				return err
			}

			raw, err := config.LoadRaw(paths.Config)
			if err != nil {
				return err
			}

			value := parseValue(args[0], args[1])
			config.SetValueAtPath(raw, path, value)

			if err := checkResult(cmd, raw); err != nil {
				return err
			}

			if err := config.SaveRaw(paths.Config, raw); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %v\n", args[0], value)
			return nil
		},
	}
}

func newConfigUnsetCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "unset <key>",
		Short:   "Remove a configuration value",
		Example: "  dealwatch config unset alerts.webhook",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateKey(args[0]); err != nil {
				return err
			}
			path, err := config.ParseConfigPath(args[0])
			if err != nil {
				return err
			}

			raw, err := config.LoadRaw(paths.Config)
			if err != nil {
				return err
			}

			if !config.UnsetValueAtPath(raw, path) {
				return fmt.Errorf("key %q not found", args[0])
			}

			if err := config.SaveRaw(paths.Config, raw); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Unset %s\n", args[0])
			return nil
		},
	}
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config file path",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), paths.Config)
		},
	}
}

// validateKey rejects keys the dealwatch config schema does not define, so a
// typo like monitor.watchinterval fails loudly instead of writing a value the
// loader would silently ignore.
func validateKey(key string) error {
	if _, ok := configKeys[key]; ok {
		return nil
	}
	known := make([]string, 0, len(configKeys))
	for k := range configKeys {
		known = append(known, k)
	}
	sort.Strings(known)
	return fmt.Errorf("unknown config key %q (known keys: %s)", key, strings.Join(known, ", "))
}

// checkResult re-parses the mutated raw map as a Config and reports any
// validation issues. Parse failures (a bad duration string, say) abort the
// write; incompleteness like a missing token is only a warning, since configs
// are built up one `set` at a time.
func checkResult(cmd *cobra.Command, raw map[string]any) error {
	data, err := yaml.Marshal(raw)
	if err != nil {
		return err
	}
	var cfg config.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("resulting config would not load: %w", err)
	}
	config.ApplyDefaults(&cfg)
	for _, issue := range config.Validate(&cfg) {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", issue)
	}
	return nil
}

// printValue outputs a value in a human-readable format.
func printValue(cmd *cobra.Command, v any) error {
	out := cmd.OutOrStdout()
	switch val := v.(type) {
	case string:
		fmt.Fprintln(out, val)
	case map[string]any, []any:
		data, err := yaml.Marshal(val)
		if err != nil {
			return err
		}
		fmt.Fprint(out, string(data))
	default:
		fmt.Fprintln(out, val)
	}
	return nil
}

// parseValue interprets a raw CLI string as a typed config value. List keys
// split on commas; everything else tries bool, then integer, then string.
// Durations stay strings, which is how the yaml loader wants them.
func parseValue(key, s string) any {
	if spec, ok := configKeys[key]; ok && spec.list {
		parts := strings.Split(s, ",")
		items := make([]any, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				items = append(items, p)
			}
		}
		return items
	}

	switch strings.ToLower(s) {
	case "true":
		return true
	case "false":
		return false
	}

	var n int
	if _, err := fmt.Sscanf(s, "%d", &n); err == nil && fmt.Sprintf("%d", n) == s {
		return n
	}

	return s
}
