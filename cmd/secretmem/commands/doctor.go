package commands

import (
	"fmt"
	"io"
	"math"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/systmms/secretmem/internal/config"
	dserrors "github.com/systmms/secretmem/internal/errors"
	"github.com/systmms/secretmem/pkg/secretmem"
)

func NewDoctorCommand(cfg *config.Config) *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Report which secret memory backends work on this system",
		Long: `Probe every secret memory backend and show which one is used.

This command checks:
- The OS page size
- Which backend the process-wide allocator selected
- Whether each backend can allocate, lock and release a page
- The locked-memory limit (RLIMIT_MEMLOCK) where the OS has one`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Load(); err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			out := cmd.OutOrStdout()
			platform := secretmem.Platform()
			results := secretmem.Probe()

			displaySystem(out, platform.Backend())
			displayProbeResults(out, results, verbose)

			usable := 0
			for _, result := range results {
				if result.Err == nil {
					usable++
				}
			}
			_, _ = fmt.Fprintf(out, "\nSummary: %d/%d backends usable\n", usable, len(results))

			if platform.Backend() == secretmem.BackendNone {
				return dserrors.UserError{
					Message:    "No secret memory backend is usable on this system",
					Suggestion: "Run with --verbose to see why each backend failed",
				}
			}

			cfg.Logger.Info("Secret memory is available (%s)", platform.Backend())
			return nil
		},
	}

	cmd.Flags().BoolVar(&verbose, "verbose", false, "Show details and remediation hints for failed backends")

	return cmd
}

func displaySystem(out io.Writer, selected secretmem.Backend) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	_, _ = fmt.Fprintf(w, "PAGE SIZE\t%d\n", secretmem.PageSize())
	_, _ = fmt.Fprintf(w, "SELECTED\t%s\n", selected)
	if soft, hard, ok := memlockLimit(); ok {
		_, _ = fmt.Fprintf(w, "MEMLOCK\t%s (hard %s)\n", formatLimit(soft), formatLimit(hard))
	}
	_, _ = fmt.Fprintln(w)

	_ = w.Flush()
}

// displayProbeResults shows backend probe outcomes in a formatted table
func displayProbeResults(out io.Writer, results []secretmem.ProbeResult, verbose bool) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	_, _ = fmt.Fprintf(w, "BACKEND\tSTATUS\tMESSAGE\n")
	_, _ = fmt.Fprintf(w, "-------\t------\t-------\n")

	for _, result := range results {
		status := "✓ usable"
		message := "page allocated, locked and released"
		if result.Err != nil {
			status = "✗ unavailable"
			message = result.Err.Error()
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", result.Backend, status, message)
	}

	_ = w.Flush()

	if !verbose {
		return
	}
	for _, result := range results {
		if result.Err == nil {
			continue
		}
		_, _ = fmt.Fprintf(out, "\n%v\n", dserrors.BackendError(result.Backend.String(), "probe", result.Err))
	}
}

func formatLimit(v uint64) string {
	const mib = 1 << 20
	switch {
	case v == math.MaxUint64:
		return "unlimited"
	case v >= mib:
		return fmt.Sprintf("%.1f MiB", float64(v)/mib)
	default:
		return fmt.Sprintf("%d KiB", v/1024)
	}
}
