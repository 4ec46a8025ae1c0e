package commands

import (
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	dserrors "github.com/systmms/secretmem/internal/errors"
	"github.com/systmms/secretmem/pkg/secretmem"
)

func TestCompleteBackendNames(t *testing.T) {
	t.Parallel()

	names, directive := completeBackendNames(nil, nil, "")
	assert.Equal(t, cobra.ShellCompDirectiveNoFileComp, directive)
	require.Len(t, names, 3)

	for _, result := range secretmem.Probe() {
		want := result.Backend.String() + "\tusable"
		if result.Err != nil {
			want = result.Backend.String() + "\tunavailable"
		}
		assert.Contains(t, names, want)
	}

	names, _ = completeBackendNames(nil, nil, "po")
	require.Len(t, names, 1)
	assert.True(t, strings.HasPrefix(names[0], "posix\t"))

	names, _ = completeBackendNames(nil, nil, "tmpfs")
	assert.Empty(t, names)
}

func TestSelfTestCommand_BackendFlagCompletion(t *testing.T) {
	root := &cobra.Command{Use: "secretmem"}
	root.AddCommand(NewSelfTestCommand(testConfig(t, "")))

	output, err := executeCommand(t, root, cobra.ShellCompRequestCmd, "selftest", "--backend", "mem")
	require.NoError(t, err)
	assert.Contains(t, output, "memfd_secret")
	assert.NotContains(t, output, "windows")
	assert.Contains(t, output, ":4")
}

func TestSelfTestCommand_BackendFlagRejectsUnknown(t *testing.T) {
	cfg := testConfig(t, "")

	_, err := executeCommand(t, NewSelfTestCommand(cfg), "--backend", "tmpfs")
	var cfgErr dserrors.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "selftest.backends", cfgErr.Field)
}

func TestCompletionCommand_Bash(t *testing.T) {
	root := &cobra.Command{Use: "secretmem"}
	root.AddCommand(NewCompletionCommand(testConfig(t, "")))

	output, err := executeCommand(t, root, "completion", "bash")
	require.NoError(t, err)
	assert.Contains(t, output, "secretmem")
}
