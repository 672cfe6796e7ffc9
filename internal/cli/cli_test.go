package cli

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mithrel/diarychain/internal/db"
)

type testEnv struct {
	dir     string
	cfgPath string
	diary   string
	ledger  string
}

func newTestEnv(t *testing.T, backend string) testEnv {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "xdg-data"))
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg-config"))
	t.Setenv("PAGER", "cat")

	diary := filepath.Join(dir, "diary")
	if err := os.MkdirAll(diary, 0o755); err != nil {
		t.Fatal(err)
	}
	key := base64.StdEncoding.EncodeToString([]byte("anexampleverysecurekey12345678!!"))
	esc := func(s string) string { return strings.ReplaceAll(s, "\\", "\\\\") }
	content := `data_dir = "` + esc(filepath.Join(dir, "data")) + `"
diary_dir = "` + esc(diary) + `"

[storage]
backend = "` + backend + `"

[key]
provider = "config"
value = "` + key + `"

[log]
level = "warn"
`
	cfg := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(cfg, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return testEnv{
		dir:     dir,
		cfgPath: cfg,
		diary:   diary,
		ledger:  filepath.Join(dir, "data", db.DefaultFileName(backend)),
	}
}

func (e testEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--config", e.cfgPath}, args...))
	err := root.Execute()
	return out.String(), err
}

func (e testEnv) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := e.run(t, args...)
	if err != nil {
		t.Fatalf("%v: %v\n%s", args, err, out)
	}
	return out
}

func (e testEnv) writeEntry(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(e.diary, name)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestCLIBatchVerifyExport(t *testing.T) {
	env := newTestEnv(t, db.BackendJSON)
	env.writeEntry(t, "2024-05-01.md", "first day")
	env.writeEntry(t, "2024-05-02.md", "second day")
	env.writeEntry(t, "2024-05-03.md", "third day")

	out := env.mustRun(t, "batch")
	if !strings.Contains(out, "Added: 3") || !strings.Contains(out, "Skipped: 0") {
		t.Fatalf("unexpected batch output: %q", out)
	}

	out = env.mustRun(t, "batch")
	if !strings.Contains(out, "Added: 0") || !strings.Contains(out, "Skipped: 3") {
		t.Fatalf("second batch should skip everything: %q", out)
	}

	out = env.mustRun(t, "verify")
	if !strings.Contains(out, "OK block 2 2024-05-03.md") || !strings.Contains(out, "chain intact (3 blocks)") {
		t.Fatalf("unexpected verify output: %q", out)
	}

	csvPath := filepath.Join(env.dir, "out", "report.csv")
	out = env.mustRun(t, "export", csvPath)
	if !strings.Contains(out, "Exported 3 blocks") {
		t.Fatalf("unexpected export output: %q", out)
	}
	data, err := os.ReadFile(csvPath)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 csv lines, got %d:\n%s", len(lines), data)
	}
	if lines[0] != "index,filename,timestamp,hash,previous_hash" {
		t.Fatalf("bad header %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "0,2024-05-01.md,") || !strings.HasSuffix(lines[1], ",0000000000000000") {
		t.Fatalf("bad genesis row %q", lines[1])
	}
}

func TestCLIVerifyDetectsTamper(t *testing.T) {
	env := newTestEnv(t, db.BackendJSON)
	for _, n := range []string{"a.md", "b.md", "c.md"} {
		env.mustRun(t, "append", env.writeEntry(t, n, "content of "+n))
	}

	raw, err := os.ReadFile(env.ledger)
	if err != nil {
		t.Fatal(err)
	}
	var blocks []map[string]any
	if err := json.Unmarshal(raw, &blocks); err != nil {
		t.Fatal(err)
	}
	blocks[1]["data_hash"] = strings.Repeat("f", 64)
	raw, _ = json.MarshalIndent(blocks, "", "  ")
	if err := os.WriteFile(env.ledger, raw, 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := env.run(t, "verify")
	if err == nil {
		t.Fatalf("expected verify to fail:\n%s", out)
	}
	if !strings.Contains(err.Error(), "block 2") {
		t.Fatalf("violation should name block 2, got %v", err)
	}
	if !strings.Contains(out, "OK block 1 b.md") || !strings.Contains(out, "FAIL block 2") {
		t.Fatalf("unexpected verify output: %q", out)
	}
}

func TestCLIStrictVerifyFlagsMetadataEdit(t *testing.T) {
	env := newTestEnv(t, db.BackendJSON)
	env.mustRun(t, "append", env.writeEntry(t, "a.md", "x"))

	raw, err := os.ReadFile(env.ledger)
	if err != nil {
		t.Fatal(err)
	}
	raw = bytes.Replace(raw, []byte(`"block_index": 0`), []byte(`"block_index": 7`), 1)
	if err := os.WriteFile(env.ledger, raw, 0o644); err != nil {
		t.Fatal(err)
	}
	// Links are still fine; only strict mode sees the rewrite.
	env.mustRun(t, "verify")
	if out, err := env.run(t, "verify", "--strict"); err == nil {
		t.Fatalf("strict verify should fail:\n%s", out)
	}
}

func TestCLICheck(t *testing.T) {
	env := newTestEnv(t, db.BackendJSONL)
	env.mustRun(t, "append", env.writeEntry(t, "2024-06-01.md", "hello"))

	out := env.mustRun(t, "check", "2024-06-01.md")
	if !strings.Contains(out, "Index: 0") || !strings.Contains(out, "Previous: 0000000000000000") {
		t.Fatalf("unexpected check output: %q", out)
	}

	out, err := env.run(t, "check", "2024-06-01")
	if err != nil {
		t.Fatalf("check miss should succeed, got %v", err)
	}
	if !strings.Contains(out, "2024-06-01 is not on the chain") {
		t.Fatalf("expected miss message, got %q", out)
	}
	if !strings.Contains(out, "Did you mean:") || !strings.Contains(out, "2024-06-01.md") {
		t.Fatalf("expected suggestion, got %q", out)
	}

	out = env.mustRun(t, "check", "zzz-unrelated.txt")
	if !strings.Contains(out, "zzz-unrelated.txt is not on the chain") {
		t.Fatalf("expected miss message, got %q", out)
	}
}

func TestCLILockUnlock(t *testing.T) {
	env := newTestEnv(t, db.BackendJSON)
	env.mustRun(t, "append", env.writeEntry(t, "a.md", "x"))

	out := env.mustRun(t, "lock")
	if !strings.Contains(out, "read-only") {
		t.Fatalf("unexpected lock output: %q", out)
	}
	_, err := env.run(t, "append", env.writeEntry(t, "b.md", "y"))
	if !errors.Is(err, db.ErrReadOnly) {
		t.Fatalf("append on locked ledger should fail with ErrReadOnly, got %v", err)
	}

	env.mustRun(t, "unlock")
	env.mustRun(t, "append", filepath.Join(env.diary, "b.md"))
	out = env.mustRun(t, "list", "--output", "csv")
	if strings.Count(out, "\n") != 3 {
		t.Fatalf("expected header plus two rows, got %q", out)
	}
}

func TestCLILockRejectsDatabaseBackends(t *testing.T) {
	env := newTestEnv(t, db.BackendSQLite)
	if _, err := env.run(t, "lock"); err == nil {
		t.Fatalf("lock should be refused for sqlite")
	}
}

func TestCLIListAndInfo(t *testing.T) {
	env := newTestEnv(t, db.BackendBolt)
	env.writeEntry(t, "one.md", "1")
	env.writeEntry(t, "two.md", "2")
	env.mustRun(t, "batch")

	out := env.mustRun(t, "list", "--output", "json")
	var blocks []map[string]any
	if err := json.Unmarshal([]byte(out), &blocks); err != nil {
		t.Fatalf("decode list json: %v\n%s", err, out)
	}
	if len(blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(blocks))
	}

	out = env.mustRun(t, "list", "--since", "2000-01-01", "--until", "2000-01-02", "--output", "ndjson")
	if strings.TrimSpace(out) != "" {
		t.Fatalf("window should exclude every block, got %q", out)
	}

	out = env.mustRun(t, "info")
	for _, want := range []string{"backend:", "bolt", "blocks:", "2", "head:"} {
		if !strings.Contains(out, want) {
			t.Fatalf("info missing %q: %q", want, out)
		}
	}
}

func TestCLIMissingKey(t *testing.T) {
	env := newTestEnv(t, db.BackendJSON)
	t.Setenv("DIARYCHAIN_KEY_VALUE", "")
	cfg, _ := os.ReadFile(env.cfgPath)
	cfg = bytes.Replace(cfg, []byte("value = "), []byte("# value = "), 1)
	if err := os.WriteFile(env.cfgPath, cfg, 0o600); err != nil {
		t.Fatal(err)
	}
	_, err := env.run(t, "append", env.writeEntry(t, "a.md", "x"))
	if err == nil || !strings.Contains(err.Error(), "no key configured") {
		t.Fatalf("expected missing key error, got %v", err)
	}
}

func TestCLIKeyGenerate(t *testing.T) {
	env := newTestEnv(t, db.BackendJSON)
	out := env.mustRun(t, "key", "generate")
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(out))
	if err != nil || len(raw) != 32 {
		t.Fatalf("expected a 32-byte base64 key, got %q (%v)", out, err)
	}

	target := filepath.Join(env.dir, "generated.toml")
	env.mustRun(t, "key", "generate", "--write-config", "-o", target)
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "[key]") || !strings.Contains(string(data), "provider = \"config\"") {
		t.Fatalf("unexpected config:\n%s", data)
	}
}

func TestCLIConfigGenerate(t *testing.T) {
	env := newTestEnv(t, db.BackendJSON)
	target := filepath.Join(env.dir, "fresh", "config.toml")
	env.mustRun(t, "config", "generate", "-o", target)
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "# diarychain configuration (TOML)") {
		t.Fatalf("unexpected header:\n%s", data)
	}
	if _, err := env.run(t, "config", "generate", "-o", target); err == nil {
		t.Fatalf("second generate without --overwrite should fail")
	}
	out := env.mustRun(t, "config", "check")
	if !strings.Contains(out, "Config OK") {
		t.Fatalf("unexpected check output: %q", out)
	}
}

func TestCLICompletion(t *testing.T) {
	env := newTestEnv(t, db.BackendJSON)
	out := env.mustRun(t, "completion", "generate", "bash")
	if !strings.Contains(out, "diarychain") {
		t.Fatalf("completion script does not mention the binary")
	}
}

func TestPagerCommand(t *testing.T) {
	t.Setenv("PAGER", "")
	if got := pagerCommand(""); got != defaultPager {
		t.Fatalf("expected default pager, got %q", got)
	}
	t.Setenv("PAGER", "more")
	if got := pagerCommand(""); got != "more" {
		t.Fatalf("expected $PAGER, got %q", got)
	}
	if got := pagerCommand("most -s"); got != "most -s" {
		t.Fatalf("configured pager should win, got %q", got)
	}
	if got := pagerCommand("none"); got != "" {
		t.Fatalf("none should disable paging, got %q", got)
	}
}
