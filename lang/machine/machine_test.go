package machine_test

import (
	"bytes"
	"testing"

	"github.com/mna/rlox/lang/compiler"
	"github.com/mna/rlox/lang/machine"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, source string) (string, error) {
	t.Helper()
	proto, errs := compiler.Compile(source)
	require.Empty(t, errs)

	var out bytes.Buffer
	th := &machine.Thread{Stdout: &out}
	_, err := th.RunProgram(proto)
	return out.String(), err
}

func TestArithmeticPrecedence(t *testing.T) {
	out, err := run(t, `print 1 + 2 * 3;`)
	require.NoError(t, err)
	require.Equal(t, "7\n", out)
}

func TestStringConcatenation(t *testing.T) {
	out, err := run(t, `print "hello" + " " + "world";`)
	require.NoError(t, err)
	require.Equal(t, "hello world\n", out)
}

func TestForLoopAccumulates(t *testing.T) {
	out, err := run(t, `
		var sum = 0;
		for (var i = 1; i <= 5; i = i + 1) {
			sum = sum + i;
		}
		print sum;
	`)
	require.NoError(t, err)
	require.Equal(t, "15\n", out)
}

func TestClosureCounterCapturesByReference(t *testing.T) {
	out, err := run(t, `
		fun makeCounter() {
			var count = 0;
			fun increment() {
				count = count + 1;
				return count;
			}
			return increment;
		}
		var counter = makeCounter();
		print counter();
		print counter();
		print counter();
	`)
	require.NoError(t, err)
	require.Equal(t, "1\n2\n3\n", out)
}

func TestTwoClosuresShareCapturedVariable(t *testing.T) {
	out, err := run(t, `
		fun makePair() {
			var value = 0;
			fun get() { return value; }
			fun set(v) { value = v; }
			fun pair(which) {
				if (which) { return get; }
				return set;
			}
			return pair;
		}
		var pair = makePair();
		var get = pair(true);
		var set = pair(false);
		set(42);
		print get();
	`)
	require.NoError(t, err)
	require.Equal(t, "42\n", out)
}

func TestCallArityMismatchIsRuntimeError(t *testing.T) {
	_, err := run(t, `
		fun f(a, b) { return a + b; }
		f(1);
	`)
	require.Error(t, err)
	require.Contains(t, err.Error(), "Expected 2 arguments but got 1.")
}

func TestCallingNonCallableIsRuntimeError(t *testing.T) {
	_, err := run(t, `
		var x = 1;
		x();
	`)
	require.Error(t, err)
	require.Contains(t, err.Error(), "Can only call functions and classes.")
}

func TestClockIsPredeclared(t *testing.T) {
	out, err := run(t, `print clock() >= 0;`)
	require.NoError(t, err)
	require.Equal(t, "true\n", out)
}

func TestIfElseBranches(t *testing.T) {
	out, err := run(t, `
		if (1 < 2) { print "yes"; } else { print "no"; }
	`)
	require.NoError(t, err)
	require.Equal(t, "yes\n", out)
}

func TestLogicalAndOrShortCircuit(t *testing.T) {
	out, err := run(t, `
		print false and (nil + 1 == 1);
		print true or (nil + 1 == 1);
	`)
	require.NoError(t, err)
	require.Equal(t, "false\ntrue\n", out)
}
