package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
	"github.com/systmms/secretmem/internal/config"
	"github.com/systmms/secretmem/internal/logging"
)

// testConfig returns a config pointing at a secretmem.yaml with content,
// or at a missing default file when content is empty.
func testConfig(t *testing.T, content string) *config.Config {
	t.Helper()

	path := filepath.Join(t.TempDir(), config.DefaultPath)
	if content != "" {
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	return &config.Config{
		Path:   path,
		Logger: logging.NewWithWriter(&bytes.Buffer{}, false, true),
	}
}

func executeCommand(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}
