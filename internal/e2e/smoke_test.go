package e2e

import (
	"bytes"
	"io"
	"log/slog"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/bnema/stayctl/internal/devauthority"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestSmokeFlow(t *testing.T) {
	home := t.TempDir()
	binaryPath := buildBinary(t)

	authority := devauthority.New(devauthority.Config{
		BcryptCost: bcrypt.MinCost,
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, authority.AddUser("ada@example.com", "pw-1", "Ada"))
	ts := httptest.NewServer(authority.Handler())
	t.Cleanup(ts.Close)
	baseURL := ts.URL + devauthority.DefaultBasePath

	stdout, stderr, err := runStayctl(t, binaryPath, home, baseURL,
		"login", "--email", "ada@example.com", "--password", "pw-1", "--remember",
	)
	require.NoError(t, err, "stderr: %s", stderr)
	assert.Contains(t, stdout, "Signed in as ada@example.com")

	authority.ExpireAccess()
	stdout, stderr, err = runStayctl(t, binaryPath, home, baseURL, "api", "get", "/categories")
	require.NoError(t, err, "stderr: %s", stderr)
	assert.Contains(t, stdout, "Cabins")
	assert.Equal(t, int32(1), authority.RefreshCalls())

	stdout, stderr, err = runStayctl(t, binaryPath, home, baseURL, "logout")
	require.NoError(t, err, "stderr: %s", stderr)
	assert.Contains(t, stdout, "Signed out")

	stdout, stderr, err = runStayctl(t, binaryPath, home, baseURL, "status")
	require.NoError(t, err, "stderr: %s", stderr)
	assert.Contains(t, stdout, "Not signed in")
}

func buildBinary(t *testing.T) string {
	t.Helper()

	binaryPath := filepath.Join(t.TempDir(), "stayctl-e2e")
	cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/stayctl")
	cmd.Dir = repoRoot(t)

	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "build stayctl binary: %s", string(output))
	return binaryPath
}

func runStayctl(t *testing.T, binaryPath, home, baseURL string, args ...string) (string, string, error) {
	t.Helper()

	cmd := exec.Command(binaryPath, args...)
	cmd.Env = append(os.Environ(),
		"HOME="+home,
		"XDG_RUNTIME_DIR="+filepath.Join(home, "run"),
		"STAYCTL_AUTHORITY_BASE_URL="+baseURL,
		"STAYCTL_STORAGE_BACKEND=toml",
	)

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
