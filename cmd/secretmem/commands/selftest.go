package commands

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"
	"github.com/systmms/secretmem/internal/config"
	dserrors "github.com/systmms/secretmem/internal/errors"
	"github.com/systmms/secretmem/internal/metrics"
	"github.com/systmms/secretmem/pkg/secretbox"
	"github.com/systmms/secretmem/pkg/secretmem"
)

// residue is written into a region before release and must not be seen
// in a later allocation.
const residue = 0xAA

func NewSelfTestCommand(cfg *config.Config) *cobra.Command {
	var (
		showMetrics bool
		backends    []string
	)

	cmd := &cobra.Command{
		Use:   "selftest",
		Short: "Exercise every usable backend end to end",
		Long: `Run allocation, protection and zeroization checks against each backend.

For every backend and configured size this command:
- Allocates a region, fills it, makes it read-only, verifies and releases it
- Moves a value through a locked and unlocked container and closes it
- Releases a region full of a marker byte and checks a fresh region is clean

Sizes, iterations and the backends to test are read from secretmem.yaml;
--backend overrides the backend list.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Load(); err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			def := cfg.Definition
			if len(backends) > 0 {
				def.SelfTest.Backends = backends
				if err := def.Validate(); err != nil {
					return err
				}
			}

			if showMetrics || def.Metrics.Enabled {
				metrics.InitMetrics()
			}

			var results []CheckResult
			for _, probe := range secretmem.Probe() {
				if !def.WantsBackend(probe.Backend) {
					continue
				}
				if probe.Err != nil {
					cfg.Logger.Debug("Skipping %s: %v", probe.Backend, probe.Err)
					results = append(results, CheckResult{
						Backend: probe.Backend,
						Status:  "skipped",
						Message: probe.Err.Error(),
					})
					continue
				}

				alloc := secretmem.Instrument(probe.Allocator)
				for _, size := range def.SelfTest.Sizes {
					results = append(results, runChecks(alloc, size, def.SelfTest.Iterations))
				}
			}

			out := cmd.OutOrStdout()
			displayCheckResults(out, results)

			if showMetrics || def.Metrics.Enabled {
				if err := writeMetrics(out, prometheus.DefaultGatherer); err != nil {
					return fmt.Errorf("failed to gather metrics: %w", err)
				}
			}

			passed, failed := 0, 0
			var firstErr error
			for _, result := range results {
				switch result.Status {
				case "ok":
					passed++
				case "failed":
					failed++
					if firstErr == nil {
						firstErr = result.Err
					}
				}
			}
			_, _ = fmt.Fprintf(out, "\nSummary: %d passed, %d failed\n", passed, failed)

			if failed > 0 {
				return fmt.Errorf("%d self-test checks failed, first: %w", failed, firstErr)
			}
			if passed == 0 {
				return fmt.Errorf("no backend was tested; check selftest.backends in %s", cfg.Path)
			}
			cfg.Logger.Info("All self-test checks passed")
			return nil
		},
	}

	cmd.Flags().BoolVar(&showMetrics, "metrics", false, "Print the collected Prometheus metrics")
	cmd.Flags().StringSliceVar(&backends, "backend", nil, "Only test these backends (overrides selftest.backends)")
	_ = cmd.RegisterFlagCompletionFunc("backend", completeBackendNames)

	return cmd
}

// CheckResult is the outcome of the checks for one backend and size
type CheckResult struct {
	Backend  secretmem.Backend
	Size     int
	Status   string // ok, failed, skipped
	Message  string
	Duration time.Duration
	// Err is set for failed checks.
	Err error
}

func runChecks(alloc secretmem.Allocator, size, iterations int) CheckResult {
	result := CheckResult{Backend: alloc.Backend(), Size: size, Status: "ok"}
	start := time.Now()

	for range iterations {
		for _, check := range []struct {
			name string
			run  func(secretmem.Allocator, int) error
		}{
			{"region", checkRegion},
			{"container", checkContainer},
			{"zeroization", checkResidue},
		} {
			if err := check.run(alloc, size); err != nil {
				result.Status = "failed"
				result.Message = fmt.Sprintf("%s: %v", check.name, err)
				result.Err = dserrors.BackendError(alloc.Backend().String(), check.name+" check", err)
				result.Duration = time.Since(start)
				return result
			}
		}
	}

	result.Duration = time.Since(start)
	result.Message = fmt.Sprintf("%d iterations", iterations)
	return result
}

func checkRegion(alloc secretmem.Allocator, size int) (err error) {
	r, err := alloc.Allocate(size)
	if err != nil {
		return err
	}
	defer func() {
		if releaseErr := alloc.Release(r); err == nil {
			err = releaseErr
		}
	}()

	if got, want := r.Len(), secretmem.AlignedSize(size, 1); got != want {
		return fmt.Errorf("region length %d, want %d", got, want)
	}

	data := r.Bytes()
	for i := range data {
		data[i] = byte(i)
	}
	if err := alloc.MarkReadOnly(r); err != nil {
		return err
	}
	for i, b := range r.Bytes() {
		if b != byte(i) {
			return fmt.Errorf("byte %d changed while read-only", i)
		}
	}
	return alloc.MarkReadWrite(r)
}

func checkContainer(alloc secretmem.Allocator, _ int) error {
	var key [64]byte
	for i := range key {
		key[i] = byte(255 - i)
	}

	u, err := secretbox.NewIn(alloc, key)
	if err != nil {
		return err
	}
	locked, err := u.Lock()
	if err != nil {
		_ = u.Close()
		return err
	}
	if locked.Value() != key {
		_ = locked.Close()
		return fmt.Errorf("locked value differs from the stored value")
	}
	u, err = locked.Unlock()
	if err != nil {
		_ = locked.Close()
		return err
	}
	u.Set([64]byte{})
	return u.Close()
}

func checkResidue(alloc secretmem.Allocator, size int) error {
	r, err := alloc.Allocate(size)
	if err != nil {
		return err
	}
	data := r.Bytes()
	for i := range data {
		data[i] = residue
	}
	if err := alloc.Release(r); err != nil {
		return err
	}

	fresh, err := alloc.Allocate(size)
	if err != nil {
		return err
	}
	defer func() { _ = alloc.Release(fresh) }()

	if i := bytes.IndexByte(fresh.Bytes(), residue); i >= 0 {
		return fmt.Errorf("marker byte found at offset %d of a fresh region", i)
	}
	return nil
}

// displayCheckResults shows self-test outcomes in a formatted table
func displayCheckResults(out io.Writer, results []CheckResult) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	_, _ = fmt.Fprintf(w, "BACKEND\tSIZE\tSTATUS\tTIME\tMESSAGE\n")
	_, _ = fmt.Fprintf(w, "-------\t----\t------\t----\t-------\n")

	for _, result := range results {
		status := result.Status
		switch result.Status {
		case "ok":
			status = "✓ " + status
		case "failed":
			status = "✗ " + status
		default:
			status = "- " + status
		}

		size := "-"
		if result.Size > 0 {
			size = fmt.Sprintf("%d", result.Size)
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			result.Backend, size, status, result.Duration.Round(time.Microsecond), result.Message)
	}

	_ = w.Flush()
}

func writeMetrics(out io.Writer, gatherer prometheus.Gatherer) error {
	families, err := gatherer.Gather()
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintln(out)
	for _, family := range families {
		if !strings.HasPrefix(family.GetName(), "secretmem_") {
			continue
		}
		if _, err := expfmt.MetricFamilyToText(out, family); err != nil {
			return err
		}
	}
	return nil
}
