package command

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/MrEthical07/goSession/config"
)

type result struct {
	stdout string
	stderr string
	err    error
}

// run executes the CLI with args and captures its output.
func run(t *testing.T, stdin string, args ...string) result {
	t.Helper()
	app := App()
	var out, errOut bytes.Buffer
	app.Writer = &out
	app.ErrWriter = &errOut
	app.Reader = strings.NewReader(stdin)
	err := app.Run(append([]string{"gosession"}, args...))
	return result{stdout: out.String(), stderr: errOut.String(), err: err}
}

func decodeJSON(t *testing.T, s string, v any) {
	t.Helper()
	if err := json.Unmarshal([]byte(s), v); err != nil {
		t.Fatalf("json.Unmarshal(%q) error = %v", s, err)
	}
}

func testSecret(fill byte, size int) string {
	return config.EncodeSecret(bytes.Repeat([]byte{fill}, size))
}

// writeConfig writes a signed-mode configuration with one key k1 plus extra YAML.
func writeConfig(t *testing.T, extra string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gosession.yaml")
	doc := "mode: signed\nkeys:\n  - id: k1\n    secret: " + testSecret(1, 32) + "\n" + extra
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}
