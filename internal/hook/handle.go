package hook

import (
	"fmt"
	"io"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/polaminggkub-debug/crux/internal/resolve"
)

// Resolver is the part of resolve.Resolver that Handle needs.
type Resolver interface {
	ResolveString(cmd string) resolve.Result
}

// Rewrite returns the crux form of a shell command, or "" when the command
// should run unchanged: it has no filter, already runs through crux, or
// spans several lines.
func Rewrite(res Resolver, cmd string) string {
	cmd = strings.TrimSpace(cmd)
	if cmd == "" || strings.Contains(cmd, "\n") {
		return ""
	}
	if cmd == "crux" || strings.HasPrefix(cmd, "crux ") {
		return ""
	}
	if resolve.IsPassthrough(res.ResolveString(cmd)) {
		return ""
	}
	return "crux run " + cmd
}

// Handle reads one PreToolUse event from r. For a Bash call whose command
// has a filter it writes a response to w that replaces the command with
// its crux form, keeping the other tool input fields. Anything else
// produces no output, which lets the call proceed untouched.
func Handle(r io.Reader, w io.Writer, res Resolver) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read hook input: %w", err)
	}
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("hook input is not valid JSON")
	}
	event := gjson.ParseBytes(data)
	if event.Get("tool_name").String() != "Bash" {
		return nil
	}
	input := event.Get("tool_input")
	rewritten := Rewrite(res, input.Get("command").String())
	if rewritten == "" {
		return nil
	}

	updated, err := sjson.Set(input.Raw, "command", rewritten)
	if err != nil {
		return fmt.Errorf("rewrite command: %w", err)
	}
	out, err := sjson.Set(`{}`, "hookSpecificOutput.hookEventName", "PreToolUse")
	if err == nil {
		out, err = sjson.SetRaw(out, "hookSpecificOutput.updatedInput", updated)
	}
	if err != nil {
		return fmt.Errorf("build hook output: %w", err)
	}
	_, err = io.WriteString(w, out+"\n")
	return err
}
