package commands

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	dserrors "github.com/systmms/secretmem/internal/errors"
	"github.com/systmms/secretmem/pkg/secretmem"
	"github.com/systmms/secretmem/pkg/secretmem/secretmemtest"
)

func TestSelfTestCommand_PlatformBackend(t *testing.T) {
	selected := secretmem.Platform().Backend()
	if selected == secretmem.BackendNone {
		t.Skip("no secret memory backend on this system")
	}

	cfg := testConfig(t, `selftest:
  sizes: [32, 5000]
  iterations: 2
  backends: [`+selected.String()+`]
`)

	output, err := executeCommand(t, NewSelfTestCommand(cfg))
	require.NoError(t, err, output)

	assert.Contains(t, output, selected.String())
	assert.Contains(t, output, "5000")
	assert.Contains(t, output, "✓ ok")
	assert.Contains(t, output, "Summary: 2 passed, 0 failed")
}

func TestSelfTestCommand_Metrics(t *testing.T) {
	if secretmem.Platform().Backend() == secretmem.BackendNone {
		t.Skip("no secret memory backend on this system")
	}

	cfg := testConfig(t, `selftest:
  sizes: [64]
  iterations: 1
`)

	output, err := executeCommand(t, NewSelfTestCommand(cfg), "--metrics")
	require.NoError(t, err, output)

	assert.Contains(t, output, "secretmem_allocations_total")
	assert.Contains(t, output, "secretmem_releases_total")
	assert.Contains(t, output, `status="success"`)
}

func TestSelfTestCommand_OnlyForeignBackend(t *testing.T) {
	foreign := "windows"
	if runtime.GOOS == "windows" {
		foreign = "posix"
	}

	cfg := testConfig(t, "selftest:\n  backends: ["+foreign+"]\n")

	output, err := executeCommand(t, NewSelfTestCommand(cfg))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no backend was tested")
	assert.Contains(t, output, "- skipped")
}

func TestRunChecks(t *testing.T) {
	t.Parallel()

	for _, probe := range secretmem.Probe() {
		if probe.Err != nil {
			continue
		}
		t.Run(probe.Backend.String(), func(t *testing.T) {
			t.Parallel()

			result := runChecks(probe.Allocator, secretmem.PageSize()+1, 1)
			assert.Equal(t, "ok", result.Status, result.Message)
			assert.Equal(t, probe.Backend, result.Backend)
		})
	}
}

func TestRunChecks_ReportsBackendError(t *testing.T) {
	t.Parallel()

	platform := secretmem.Platform()
	if platform.Backend() == secretmem.BackendNone {
		t.Skip("no secret memory backend on this system")
	}

	faulty := secretmemtest.NewFaulty(platform)
	faulty.FailReadOnly(true)

	result := runChecks(faulty, 32, 1)
	assert.Equal(t, "failed", result.Status)
	assert.Contains(t, result.Message, "region:")

	var userErr dserrors.UserError
	require.ErrorAs(t, result.Err, &userErr)
	assert.Contains(t, userErr.Message, platform.Backend().String()+" backend failed during region check")
	assert.ErrorIs(t, result.Err, secretmemtest.ErrInjected)
	assert.Zero(t, faulty.Live(), "a failed check must release its region")
}
