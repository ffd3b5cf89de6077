package maincmd_test

import (
	"bytes"
	"flag"
	"path/filepath"
	"testing"

	"github.com/mna/mainer"
	"github.com/mna/rlox/internal/filetest"
	"github.com/mna/rlox/internal/maincmd"
	"github.com/stretchr/testify/require"
)

var testUpdateScenarioTests = flag.Bool("test.update-scenario-tests", false, "If set, replace expected scenario test results with actual results.")

// wantExit maps each scenario script to the process exit code a shell
// running it is expected to observe (spec section 7: 64 usage, 65
// compile error, 70 runtime error, 0 success).
var wantExit = map[string]int{
	"arithmetic.lox":      0,
	"string_concat.lox":   0,
	"for_loop.lox":        0,
	"counter_closure.lox": 0,
	"shared_capture.lox":  0,
	"arity_error.lox":     70,
	"scope_error.lox":     65,
}

func TestRunScenarios(t *testing.T) {
	srcDir, resultDir := filepath.Join("testdata", "in"), filepath.Join("testdata", "out")

	for _, fi := range filetest.SourceFiles(t, srcDir, ".lox") {
		t.Run(fi.Name(), func(t *testing.T) {
			var out, errOut bytes.Buffer
			stdio := mainer.Stdio{Stdout: &out, Stderr: &errOut}

			c := &maincmd.Cmd{BuildVersion: "test", BuildDate: "test"}
			code := c.Main([]string{"rlox", filepath.Join(srcDir, fi.Name())}, stdio)

			filetest.DiffOutput(t, fi, out.String(), resultDir, testUpdateScenarioTests)
			filetest.DiffErrors(t, fi, errOut.String(), resultDir, testUpdateScenarioTests)

			want, ok := wantExit[fi.Name()]
			require.True(t, ok, "missing expected exit code for %s", fi.Name())
			require.Equal(t, want, int(code))
		})
	}
}

func TestMissingScriptArgumentExitsUsageError(t *testing.T) {
	var out, errOut bytes.Buffer
	stdio := mainer.Stdio{Stdout: &out, Stderr: &errOut}

	c := &maincmd.Cmd{BuildVersion: "test", BuildDate: "test"}
	code := c.Main([]string{"rlox"}, stdio)
	require.Equal(t, 64, int(code))
	require.Equal(t, "Usage: rlox [script]\n", out.String())
}

func TestUnreadableScriptExitsUsageError(t *testing.T) {
	var out, errOut bytes.Buffer
	stdio := mainer.Stdio{Stdout: &out, Stderr: &errOut}

	c := &maincmd.Cmd{BuildVersion: "test", BuildDate: "test"}
	code := c.Main([]string{"rlox", filepath.Join("testdata", "in", "does-not-exist.lox")}, stdio)
	require.Equal(t, 64, int(code))
}

func TestTraceFlagEmitsDisassemblyAndRunID(t *testing.T) {
	var out, errOut bytes.Buffer
	stdio := mainer.Stdio{Stdout: &out, Stderr: &errOut}

	c := &maincmd.Cmd{BuildVersion: "test", BuildDate: "test", Trace: true}
	code := c.Main([]string{"rlox", filepath.Join("testdata", "in", "arithmetic.lox")}, stdio)
	require.Equal(t, 0, int(code))
	require.Contains(t, errOut.String(), "== ")
	require.Contains(t, errOut.String(), "rlox: trace ")
	require.Contains(t, errOut.String(), "exit 0")
}
