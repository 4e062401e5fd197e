package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ghalamif/vesagent"
)

const defaultConfigPath = "./data/config.yaml"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "ves-agent: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "ves-agent",
		Short: "Forward collectd samples and notifications to a VES event listener",
		Long: `ves-agent caches collectd value lists, assembles one VES measurement
event per virtual machine on a fixed schedule and forwards notifications
as fault events.

Commands:
  run        Start the agent using the provided config
  validate   Load and validate a config file without starting the agent
  stats      Poll the Prometheus metrics endpoint and print live counters`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newRunCmd(),
		newValidateCmd(),
		newStatsCmd(),
	)
	return root
}

func newRunCmd() *cobra.Command {
	var cfgPath string
	cmd := &cobra.Command{
		Use:     "run",
		Short:   "Start the agent",
		Example: `  ves-agent run --config ./data/config.yaml`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			flow, err := vesagent.Conf(cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			return flow.Run(cmd.Context())
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", defaultConfigPath, "Path to agent configuration file")
	return cmd
}

func newValidateCmd() *cobra.Command {
	var cfgPath string
	cmd := &cobra.Command{
		Use:     "validate",
		Short:   "Load and validate a config file",
		Example: `  ves-agent validate --config ./data/config.yaml`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := vesagent.LoadConfig(cfgPath)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "config %s looks good\nlistener: %s\ninterval: %s\n",
				cfgPath, cfg.Plugin.ListenerURL(), cfg.Plugin.SendEventInterval)
			return nil
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", defaultConfigPath, "Path to configuration file to validate")
	return cmd
}

func newStatsCmd() *cobra.Command {
	var (
		url      string
		interval time.Duration
		once     bool
	)
	cmd := &cobra.Command{
		Use:     "stats",
		Short:   "Print live counters from the metrics endpoint",
		Example: `  ves-agent stats --url http://localhost:9100/metrics --interval 1s`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			if once {
				return printMetricsSnapshot(out, url)
			}

			ticker := time.NewTicker(interval)
			defer ticker.Stop()

			fmt.Fprintf(out, "Streaming metrics from %s (Ctrl+C to stop)\n", url)
			for {
				select {
				case <-cmd.Context().Done():
					return nil
				case <-ticker.C:
					if err := printMetricsSnapshot(out, url); err != nil {
						fmt.Fprintf(cmd.ErrOrStderr(), "stats error: %v\n", err)
					}
				}
			}
		},
	}
	cmd.Flags().StringVar(&url, "url", "http://localhost:9100/metrics", "Prometheus metrics endpoint")
	cmd.Flags().DurationVar(&interval, "interval", 2*time.Second, "Refresh interval")
	cmd.Flags().BoolVar(&once, "once", false, "Print a single snapshot and exit")
	return cmd
}

var statKeys = []string{
	"ves_samples_ingested_total",
	"ves_events_sent_total",
	"ves_send_failures_total",
	"ves_vm_skipped_total",
	"ves_cache_series",
}

func printMetricsSnapshot(w io.Writer, url string) error {
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	targets, err := scanMetrics(resp.Body)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "[%s] samples=%g sent=%g failed=%g skipped=%g series=%g\n",
		time.Now().Format(time.RFC3339),
		targets["ves_samples_ingested_total"],
		targets["ves_events_sent_total"],
		targets["ves_send_failures_total"],
		targets["ves_vm_skipped_total"],
		targets["ves_cache_series"],
	)
	return nil
}

// scanMetrics sums the samples of each stat key in Prometheus text format;
// labeled series of one metric are added together.
func scanMetrics(r io.Reader) (map[string]float64, error) {
	targets := make(map[string]float64, len(statKeys))
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "#") {
			continue
		}
		name, rest, ok := strings.Cut(line, " ")
		if !ok {
			continue
		}
		if i := strings.IndexByte(name, '{'); i >= 0 {
			// labels may contain spaces; the value follows the closing brace
			end := strings.LastIndexByte(line, '}')
			if end < 0 {
				continue
			}
			name, rest = name[:i], strings.TrimSpace(line[end+1:])
		}
		for _, key := range statKeys {
			if name != key {
				continue
			}
			var value float64
			if _, err := fmt.Sscanf(rest, "%g", &value); err == nil {
				targets[key] += value
			}
		}
	}
	return targets, scanner.Err()
}
