package commands

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/systmms/secretmem/pkg/secretmem"
)

func TestDoctorCommand_BasicExecution(t *testing.T) {
	cfg := testConfig(t, "")

	output, err := executeCommand(t, NewDoctorCommand(cfg))

	assert.Contains(t, output, "PAGE SIZE")
	assert.Contains(t, output, "BACKEND")
	assert.Contains(t, output, "STATUS")
	assert.Contains(t, output, "Summary")

	selected := secretmem.Platform().Backend()
	assert.Regexp(t, `SELECTED\s+`+selected.String(), output)
	if selected == secretmem.BackendNone {
		assert.Error(t, err)
	} else {
		assert.NoError(t, err)
	}
}

func TestDoctorCommand_ListsEveryBackend(t *testing.T) {
	cfg := testConfig(t, "")

	output, _ := executeCommand(t, NewDoctorCommand(cfg), "--verbose")

	for _, backend := range []secretmem.Backend{
		secretmem.BackendMemfdSecret,
		secretmem.BackendPosix,
		secretmem.BackendWindows,
	} {
		assert.Contains(t, output, backend.String())
	}
	assert.Contains(t, output, "✗ unavailable", "at least one backend is foreign to any OS")
	assert.Contains(t, output, "backend failed during probe")
	assert.Contains(t, output, "Details:")
}

func TestDoctorCommand_InvalidConfig(t *testing.T) {
	cfg := testConfig(t, "version: 2\n")

	_, err := executeCommand(t, NewDoctorCommand(cfg))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported configuration version")
}

func TestFormatLimit(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   uint64
		want string
	}{
		{math.MaxUint64, "unlimited"},
		{8 << 20, "8.0 MiB"},
		{64 * 1024, "64 KiB"},
		{0, "0 KiB"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, formatLimit(tt.in))
	}
}
