// Package executor is a scoped process-execution wrapper for the external
// tools the pipeline drives (compiler toolchain, signing tools, lipo).
//
// All argument values and the working directory are normalized to plain
// strings before invocation; structured values (Triples, path-like types)
// must be stringified because process argv is text, and some host shells
// reject anything else.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/relpack/internal/errors"
	"git.home.luguber.info/inful/relpack/internal/logfields"
)

// Spec describes one external command invocation.
type Spec struct {
	Command string
	Args    []string
	Env     map[string]string // overrides merged over the parent environment
	WorkDir string
}

// Arg stringifies a single argument value. fmt.Stringer values use their
// String method; everything else goes through fmt.Sprint.
func Arg(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

// Args stringifies a sequence of argument values.
func Args(vs ...any) []string {
	out := make([]string, 0, len(vs))
	for _, v := range vs {
		out = append(out, Arg(v))
	}
	return out
}

// Runner executes external commands and surfaces non-zero exits as
// pipeline-fatal errors.
type Runner struct{}

// Run executes the command, streaming nothing back to the caller; combined
// output is captured and attached to the error on failure. A non-zero exit
// is always an error: the pipeline never packages a binary produced by a
// failed tool run.
func (r Runner) Run(ctx context.Context, spec Spec) error {
	_, err := r.run(ctx, spec)
	return err
}

// Output executes the command and returns its combined stdout+stderr.
func (r Runner) Output(ctx context.Context, spec Spec) (string, error) {
	return r.run(ctx, spec)
}

func (r Runner) run(ctx context.Context, spec Spec) (string, error) {
	if spec.Command == "" {
		return "", errors.New(errors.KindToolExecFailed, "empty command")
	}

	cmd := exec.CommandContext(ctx, spec.Command, spec.Args...)
	if spec.WorkDir != "" {
		cmd.Dir = filepath.Clean(spec.WorkDir)
	}
	if len(spec.Env) > 0 {
		env := os.Environ()
		for k, v := range spec.Env {
			env = append(env, k+"="+v)
		}
		cmd.Env = env
	}

	slog.Debug("Running external command",
		logfields.Command(spec.Command),
		slog.String("args", strings.Join(spec.Args, " ")),
		logfields.Path(spec.WorkDir))

	out, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return string(out), errors.Wrapf(ctx.Err(), errors.KindToolExecFailed,
				"%s timed out or was canceled", spec.Command).
				WithContext("output", strings.TrimSpace(string(out)))
		}
		return string(out), errors.Wrapf(err, errors.KindToolExecFailed,
			"%s %s failed", spec.Command, strings.Join(spec.Args, " ")).
			WithContext("output", strings.TrimSpace(string(out)))
	}
	return string(out), nil
}

// LookPath reports whether the named tool is resolvable on PATH, returning
// a tool_not_found error with an install hint when it is not.
func LookPath(tool, hint string) (string, error) {
	path, err := exec.LookPath(tool)
	if err != nil {
		e := errors.Newf(errors.KindToolNotFound, "required tool %q not found on PATH", tool)
		if hint != "" {
			e = e.WithContext("hint", hint)
		}
		return "", e
	}
	return path, nil
}
