// Package hook connects crux to the agent's PreToolUse hook: it installs
// the hook into the agent settings file and answers hook invocations by
// rewriting shell commands to run through crux.
package hook

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Command is what the agent runs for every Bash tool call.
const Command = "crux hook handle"

const preToolUse = "hooks.PreToolUse"

var errInvalidSettings = errors.New("settings file is not valid JSON")

// SettingsPath returns ~/.claude/settings.json.
func SettingsPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".claude", "settings.json"), nil
}

// Install adds the crux hook to the settings file at path, creating the
// file if needed. An existing file is first copied to path+".bak". It
// reports false when the hook was already present.
func Install(path string) (bool, error) {
	data, err := readSettings(path)
	if err != nil {
		return false, err
	}
	if installed(data) {
		return false, nil
	}

	entry := `{"matcher":"Bash","hooks":[{"type":"command","command":"` + Command + `"}]}`
	if !gjson.GetBytes(data, preToolUse).IsArray() {
		data, err = sjson.SetRawBytes(data, preToolUse, []byte("[]"))
		if err != nil {
			return false, fmt.Errorf("patch settings: %w", err)
		}
	}
	data, err = sjson.SetRawBytes(data, preToolUse+".-1", []byte(entry))
	if err != nil {
		return false, fmt.Errorf("patch settings: %w", err)
	}
	return true, writeSettings(path, data)
}

// Uninstall removes every crux hook from the settings file. A missing file
// is not an error.
func Uninstall(path string) (bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read settings: %w", err)
	}
	if !gjson.ValidBytes(data) {
		return false, errInvalidSettings
	}
	if !installed(data) {
		return false, nil
	}

	var kept []string
	for _, e := range gjson.GetBytes(data, preToolUse).Array() {
		if !isCrux(e) {
			kept = append(kept, e.Raw)
		}
	}

	if len(kept) > 0 {
		data, err = sjson.SetRawBytes(data, preToolUse, []byte("["+strings.Join(kept, ",")+"]"))
	} else {
		data, err = sjson.DeleteBytes(data, preToolUse)
		if err == nil && len(gjson.GetBytes(data, "hooks").Map()) == 0 {
			data, err = sjson.DeleteBytes(data, "hooks")
		}
	}
	if err != nil {
		return false, fmt.Errorf("patch settings: %w", err)
	}
	if err := backup(path); err != nil {
		return false, err
	}
	return true, writeSettings(path, data)
}

func installed(data []byte) bool {
	for _, e := range gjson.GetBytes(data, preToolUse).Array() {
		if isCrux(e) {
			return true
		}
	}
	return false
}

func isCrux(entry gjson.Result) bool {
	for _, h := range entry.Get("hooks").Array() {
		if h.Get("command").String() == Command {
			return true
		}
	}
	return false
}

func readSettings(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return []byte("{}"), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}
	if !gjson.ValidBytes(data) {
		return nil, errInvalidSettings
	}
	if err := backup(path); err != nil {
		return nil, err
	}
	return data, nil
}

func backup(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read settings: %w", err)
	}
	if err := os.WriteFile(path+".bak", data, 0644); err != nil {
		return fmt.Errorf("backup settings: %w", err)
	}
	return nil
}

func writeSettings(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}
	pretty := gjson.GetBytes(data, "@pretty").Raw
	if err := os.WriteFile(path, []byte(pretty), 0644); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return nil
}
