package resolve

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"git status", []string{"git", "status"}},
		{"  git   log  -n 5 ", []string{"git", "log", "-n", "5"}},
		{`git commit -m "fix: a b"`, []string{"git", "commit", "-m", "fix: a b"}},
		{`echo 'it''s'`, []string{"echo", "its"}},
		{`echo "say \"hi\""`, []string{"echo", `say "hi"`}},
		{`ls my\ dir`, []string{"ls", "my dir"}},
		{`echo ""`, []string{"echo", ""}},
		{"", nil},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, Split(tt.in)); diff != "" {
				t.Errorf("Split(%q) (-want +got):\n%s", tt.in, diff)
			}
		})
	}
}

func TestSplitFirstCommand(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"cargo test 2>&1", []string{"cargo", "test"}},
		{"cargo test 2>&1 | tail -30", []string{"cargo", "test"}},
		{"go build ./... 2>/dev/null", []string{"go", "build", "./..."}},
		{"make &>/dev/null", []string{"make"}},
		{"git log | head -5 | sort", []string{"git", "log"}},
		{"kubectl get pods | awk '{print $1}'", []string{"kubectl", "get", "pods"}},
		{"go vet ./... && go test ./...", []string{"go", "vet", "./..."}},
		{"CGO_ENABLED=0 go build", []string{"go", "build"}},
		{`echo "$HOME" $(pwd) ~/bin`, []string{"echo", `"$HOME"`, "$(pwd)", "~/bin"}},
		{"(cd x && make)", nil},
		{`echo "unterminated`, []string{"echo", `"unterminated`}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, Split(tt.in)); diff != "" {
				t.Errorf("Split(%q) (-want +got):\n%s", tt.in, diff)
			}
		})
	}
}

func TestCandidates(t *testing.T) {
	got := Candidates([]string{"bash", "-c", "npx tsc --noEmit 2>&1"})
	want := [][]string{{"npx", "tsc", "--noEmit"}, {"tsc", "--noEmit"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Candidates (-want +got):\n%s", diff)
	}
	if c := Candidates([]string{"bash", "script.sh"}); c != nil {
		t.Errorf("plain script should have no candidates, got %v", c)
	}
	if c := Candidates(nil); c != nil {
		t.Errorf("empty command: %v", c)
	}
}
