package script

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polaminggkub-debug/crux/internal/stage"
)

func eval(t *testing.T, src, input string, code int) (string, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return Evaluator{}.Evaluate(ctx, stage.ScriptRequest{Source: src, Input: input, ExitCode: code})
}

func TestEvaluate(t *testing.T) {
	src := `
import "strings"

func Filter(input string, exitCode int) string {
	if exitCode != 0 {
		return "failed"
	}
	return strings.ToUpper(input)
}`
	out, err := eval(t, src, "hello \"world\"\n", 0)
	require.NoError(t, err)
	assert.Equal(t, "HELLO \"WORLD\"\n", out)

	out, err = eval(t, src, "x", 2)
	require.NoError(t, err)
	assert.Equal(t, "failed", out)
}

func TestEvaluateWithPackageClause(t *testing.T) {
	src := "package main\n\nfunc Filter(input string, exitCode int) string { return input + \"!\" }\n"
	out, err := eval(t, src, "hi", 0)
	require.NoError(t, err)
	assert.Equal(t, "hi!", out)
}

func TestEvaluateForbiddenImport(t *testing.T) {
	for _, pkg := range []string{"os", "os/exec", "net/http", "unsafe"} {
		src := "import _ \"" + pkg + "\"\n\nfunc Filter(input string, exitCode int) string { return input }\n"
		_, err := eval(t, src, "x", 0)
		assert.True(t, errors.Is(err, ErrForbiddenImport), "%s: %v", pkg, err)
	}
}

func TestEvaluateErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"syntax", "func Filter(input string exitCode int) string {"},
		{"missing", "func Other() {}"},
		{"wrong signature", "func Filter(input string) string { return input }"},
		{"panic", "func Filter(input string, exitCode int) string { var m map[string]int; m[\"a\"] = 1; return input }"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := eval(t, tt.src, "x", 0)
			assert.Error(t, err)
		})
	}
}

func TestEvaluateTimeout(t *testing.T) {
	src := `
func Filter(input string, exitCode int) string {
	n := 0
	for {
		n++
	}
	return input
}`
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := Evaluator{}.Evaluate(ctx, stage.ScriptRequest{Source: src, Input: "x"})
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 3*time.Second)
}

func TestEvaluateEvaluatorTimeout(t *testing.T) {
	src := "func Filter(input string, exitCode int) string { for { } }"
	e := Evaluator{Timeout: 50 * time.Millisecond}

	start := time.Now()
	_, err := e.Evaluate(context.Background(), stage.ScriptRequest{Source: src})
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 3*time.Second)
}
