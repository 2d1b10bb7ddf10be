package hook

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/polaminggkub-debug/crux/internal/filter"
	"github.com/polaminggkub-debug/crux/internal/resolve"
)

func TestInstallNew(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".claude", "settings.json")

	changed, err := Install(path)
	require.NoError(t, err)
	assert.True(t, changed)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	entries := gjson.GetBytes(data, "hooks.PreToolUse").Array()
	require.Len(t, entries, 1)
	assert.Equal(t, "Bash", entries[0].Get("matcher").String())
	assert.Equal(t, Command, entries[0].Get("hooks.0.command").String())
}

func TestInstallKeepsExistingSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	existing := `{"theme":"dark","hooks":{"PreToolUse":[{"matcher":"Edit","hooks":[{"type":"command","command":"lint"}]}],"PostToolUse":[]}}`
	require.NoError(t, os.WriteFile(path, []byte(existing), 0644))

	changed, err := Install(path)
	require.NoError(t, err)
	assert.True(t, changed)

	data, _ := os.ReadFile(path)
	assert.Equal(t, "dark", gjson.GetBytes(data, "theme").String())
	assert.True(t, gjson.GetBytes(data, "hooks.PostToolUse").Exists())
	assert.Len(t, gjson.GetBytes(data, "hooks.PreToolUse").Array(), 2)

	bak, err := os.ReadFile(path + ".bak")
	require.NoError(t, err)
	assert.Equal(t, existing, string(bak))

	// A second install is a no-op.
	changed, err = Install(path)
	require.NoError(t, err)
	assert.False(t, changed)
	data, _ = os.ReadFile(path)
	assert.Len(t, gjson.GetBytes(data, "hooks.PreToolUse").Array(), 2)
}

func TestInstallInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	_, err := Install(path)
	assert.ErrorIs(t, err, errInvalidSettings)
	data, _ := os.ReadFile(path)
	assert.Equal(t, "{not json", string(data))
}

func TestUninstall(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	existing := `{"theme":"dark","hooks":{"PreToolUse":[{"matcher":"Edit","hooks":[{"type":"command","command":"lint"}]}]}}`
	require.NoError(t, os.WriteFile(path, []byte(existing), 0644))
	_, err := Install(path)
	require.NoError(t, err)

	changed, err := Uninstall(path)
	require.NoError(t, err)
	assert.True(t, changed)

	data, _ := os.ReadFile(path)
	entries := gjson.GetBytes(data, "hooks.PreToolUse").Array()
	require.Len(t, entries, 1)
	assert.Equal(t, "lint", entries[0].Get("hooks.0.command").String())
}

func TestUninstallRemovesEmptyHooks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	_, err := Install(path)
	require.NoError(t, err)

	changed, err := Uninstall(path)
	require.NoError(t, err)
	assert.True(t, changed)
	data, _ := os.ReadFile(path)
	assert.False(t, gjson.GetBytes(data, "hooks").Exists())
}

func TestUninstallMissing(t *testing.T) {
	changed, err := Uninstall(filepath.Join(t.TempDir(), "none.json"))
	require.NoError(t, err)
	assert.False(t, changed)
}

type fakeResolver map[string]bool

func (f fakeResolver) ResolveString(cmd string) resolve.Result {
	if f[strings.Fields(cmd)[0]] {
		return resolve.SpecResult{Spec: &filter.Spec{Command: cmd}}
	}
	return resolve.Passthrough{}
}

func TestRewrite(t *testing.T) {
	res := fakeResolver{"git": true}
	tests := []struct {
		cmd, want string
	}{
		{"git status", "crux run git status"},
		{"  git log -5 ", "crux run git log -5"},
		{"ls -la", ""},
		{"crux run git status", ""},
		{"git commit -m 'a\nb'", ""},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Rewrite(res, tt.cmd), "cmd %q", tt.cmd)
	}
}

func TestHandle(t *testing.T) {
	res := fakeResolver{"go": true}
	in := `{"hook_event_name":"PreToolUse","tool_name":"Bash","tool_input":{"command":"go test ./...","description":"run tests"}}`

	var out bytes.Buffer
	require.NoError(t, Handle(strings.NewReader(in), &out, res))

	got := gjson.Parse(out.String())
	assert.Equal(t, "PreToolUse", got.Get("hookSpecificOutput.hookEventName").String())
	assert.Equal(t, "crux run go test ./...", got.Get("hookSpecificOutput.updatedInput.command").String())
	assert.Equal(t, "run tests", got.Get("hookSpecificOutput.updatedInput.description").String())
}

func TestHandleIgnores(t *testing.T) {
	res := fakeResolver{"go": true}
	for _, in := range []string{
		`{"tool_name":"Edit","tool_input":{"file_path":"a.go"}}`,
		`{"tool_name":"Bash","tool_input":{"command":"echo hi"}}`,
		`{"tool_name":"Bash","tool_input":{}}`,
	} {
		var out bytes.Buffer
		require.NoError(t, Handle(strings.NewReader(in), &out, res))
		assert.Empty(t, out.String(), in)
	}
}

func TestHandleInvalidInput(t *testing.T) {
	var out bytes.Buffer
	assert.Error(t, Handle(strings.NewReader("nope"), &out, fakeResolver{}))
}
