package executor

import (
	"context"
	"runtime"
	"strings"
	"testing"
	"time"

	"git.home.luguber.info/inful/relpack/internal/errors"
	"git.home.luguber.info/inful/relpack/internal/platform"
)

func TestArgStringification(t *testing.T) {
	if got := Arg("plain"); got != "plain" {
		t.Errorf("string passthrough broken: %q", got)
	}
	// Structured values with a String method must stringify, not fmt their Go representation.
	if got := Arg(platform.LinuxX64); got != "x86_64-unknown-linux-gnu" {
		t.Errorf("Stringer not used: %q", got)
	}
	if got := Arg(42); got != "42" {
		t.Errorf("fallback stringification broken: %q", got)
	}
}

func TestArgsSequence(t *testing.T) {
	got := Args("build", "--target", platform.WindowsX64, "--release")
	want := []string{"build", "--target", "x86_64-pc-windows-msvc", "--release"}
	if len(got) != len(want) {
		t.Fatalf("Args length = %d", len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Args[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestRunNonZeroExitIsFatal(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses /bin/sh")
	}
	var r Runner
	err := r.Run(context.Background(), Spec{Command: "/bin/sh", Args: []string{"-c", "echo boom >&2; exit 3"}})
	if err == nil {
		t.Fatal("expected failure for non-zero exit")
	}
	if !errors.IsKind(err, errors.KindToolExecFailed) {
		t.Errorf("wrong error kind: %v", err)
	}
	var pe *errors.PipelineError
	if errors.As(err, &pe) {
		if out, _ := pe.Context["output"].(string); !strings.Contains(out, "boom") {
			t.Errorf("captured output missing: %v", pe.Context)
		}
	}
}

func TestOutputCapture(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses /bin/sh")
	}
	var r Runner
	out, err := r.Output(context.Background(), Spec{Command: "/bin/sh", Args: []string{"-c", "echo hello"}})
	if err != nil {
		t.Fatalf("Output failed: %v", err)
	}
	if !strings.Contains(out, "hello") {
		t.Errorf("output not captured: %q", out)
	}
}

func TestRunEnvOverride(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses /bin/sh")
	}
	var r Runner
	out, err := r.Output(context.Background(), Spec{
		Command: "/bin/sh",
		Args:    []string{"-c", "echo $RELPACK_TEST_VAR"},
		Env:     map[string]string{"RELPACK_TEST_VAR": "wired"},
	})
	if err != nil {
		t.Fatalf("Output failed: %v", err)
	}
	if !strings.Contains(out, "wired") {
		t.Errorf("env override not applied: %q", out)
	}
}

func TestRunContextTimeout(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses /bin/sh")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	var r Runner
	err := r.Run(ctx, Spec{Command: "/bin/sh", Args: []string{"-c", "sleep 5"}})
	if err == nil {
		t.Fatal("expected timeout failure")
	}
	if !errors.IsKind(err, errors.KindToolExecFailed) {
		t.Errorf("wrong error kind for timeout: %v", err)
	}
}

func TestEmptyCommand(t *testing.T) {
	var r Runner
	if err := r.Run(context.Background(), Spec{}); err == nil {
		t.Fatal("empty command must fail")
	}
}
