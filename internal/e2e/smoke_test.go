package e2e

import (
	"bytes"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const steamID = "76561197960287930"

func TestSmokeFlow(t *testing.T) {
	home := t.TempDir()
	binaryPath := buildBinary(t)
	statsPath := filepath.Join(home, "stats.toml")
	require.NoError(t, writeStatsFixture(statsPath))

	stdout, stderr, err := runUnlock(t, binaryPath, home,
		"--backend", "local",
		"--stats-file", statsPath,
		"--steamid", steamID,
		"--achievement", "ACH_WIN_ONE_GAME",
		"--app-id", "480",
	)
	require.NoError(t, err, "stderr: %s", stderr)
	assert.Equal(t, "ok\n", stdout)

	stats, err := os.ReadFile(statsPath)
	require.NoError(t, err)
	assert.Contains(t, string(stats), "ACH_WIN_ONE_GAME")
	assert.Contains(t, string(stats), steamID)
}

func TestSmokeTimeout(t *testing.T) {
	home := t.TempDir()
	binaryPath := buildBinary(t)
	statsPath := filepath.Join(home, "stats.toml")
	require.NoError(t, writeStatsFixture(statsPath))

	cmd := exec.Command(binaryPath,
		"--backend", "local",
		"--stats-file", statsPath,
		"--steamid", steamID,
		"--achievement", "ACH_WIN_ONE_GAME",
		"--app-id", "480",
		"--timeout-ms", "100",
	)
	// Every call takes longer than the whole run is allowed to.
	cmd.Env = append(os.Environ(), "HOME="+home, "GSUNLOCK_LOCAL_LATENCY_TICKS=1000")
	stdout, stderr, err := run(cmd)

	var exitErr *exec.ExitError
	require.True(t, errors.As(err, &exitErr), "want exit error, got %v", err)
	assert.Equal(t, 1, exitErr.ExitCode())
	assert.Empty(t, stdout)
	assert.Equal(t, "logon_timeout\n", stderr)
}

func TestSmokeUsageError(t *testing.T) {
	home := t.TempDir()
	binaryPath := buildBinary(t)

	_, stderr, err := runUnlock(t, binaryPath, home, "--achievement", "ACH_WIN_ONE_GAME", "--app-id", "480")

	var exitErr *exec.ExitError
	require.True(t, errors.As(err, &exitErr), "want exit error, got %v", err)
	assert.Equal(t, 2, exitErr.ExitCode())
	assert.Contains(t, stderr, "missing required flag --steamid")
}

func buildBinary(t *testing.T) string {
	t.Helper()

	binaryPath := filepath.Join(t.TempDir(), "gsunlock-e2e")
	cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/gsunlock")
	cmd.Dir = repoRoot(t)

	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "build gsunlock binary: %s", string(output))
	return binaryPath
}

func runUnlock(t *testing.T, binaryPath, home string, args ...string) (string, string, error) {
	t.Helper()

	cmd := exec.Command(binaryPath, args...)
	cmd.Env = append(os.Environ(), "HOME="+home)
	return run(cmd)
}

func run(cmd *exec.Cmd) (string, string, error) {
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

func repoRoot(t *testing.T) string {
	t.Helper()

	wd, err := os.Getwd()
	require.NoError(t, err)
	return filepath.Clean(filepath.Join(wd, "..", ".."))
}

func writeStatsFixture(path string) error {
	stats := `version = 1

[[apps]]
app_id = 480
achievements = ["ACH_WIN_ONE_GAME", "ACH_TRAVEL_FAR_ACCUM"]
`
	return os.WriteFile(path, []byte(stats), 0o600)
}
