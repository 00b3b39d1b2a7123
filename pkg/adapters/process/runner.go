package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"sort"
	"strings"

	"github.com/bytedance/sonic"
)

// EnvPrefix prefixes every input passed to a process.
const EnvPrefix = "AGENTGRAPH_INPUT_"

// ErrNotRegistered is returned for names missing from the allow-list.
var ErrNotRegistered = errors.New("process function not registered")

var envKeyPattern = regexp.MustCompile(`[^A-Z0-9_]`)

// Runner executes allow-listed local processes as worker functions.
// Inputs travel as environment variables and as a JSON object on stdin, never as flags.
type Runner struct {
	registry map[string]ProcessConfig
	baseDir  string
}

// RunnerOption configures the runner.
type RunnerOption func(*Runner)

// WithRegistry populates the allow-list from a loaded config.
func WithRegistry(functions map[string]ProcessConfig) RunnerOption {
	return func(r *Runner) {
		for name, fn := range functions {
			fn.Name = name
			r.registry[name] = fn
		}
	}
}

// WithBaseDir sets the working directory for executed processes.
func WithBaseDir(dir string) RunnerOption {
	return func(r *Runner) {
		r.baseDir = dir
	}
}

// NewRunner creates a new Process Runner.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{
		registry: make(map[string]ProcessConfig),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a trusted command to the allow-list.
func (r *Runner) Register(name string, command string, args ...string) {
	r.registry[name] = ProcessConfig{Name: name, Command: command, Args: args}
}

// Names lists the registered functions in sorted order.
func (r *Runner) Names() []string {
	names := make([]string, 0, len(r.registry))
	for name := range r.registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Function returns a worker function bound to the named process.
func (r *Runner) Function(name string) func(ctx context.Context, inputs map[string]any) (any, error) {
	return func(ctx context.Context, inputs map[string]any) (any, error) {
		return r.Execute(ctx, name, inputs)
	}
}

// Execute runs the named process. A JSON object or array on stdout is decoded,
// anything else is returned as trimmed text.
func (r *Runner) Execute(ctx context.Context, name string, inputs map[string]any) (any, error) {
	proc, ok := r.registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotRegistered, name)
	}

	stdin, err := sonic.ConfigStd.Marshal(inputs)
	if err != nil {
		return nil, fmt.Errorf("failed to encode inputs: %w", err)
	}

	cmd := exec.CommandContext(ctx, proc.Command, proc.Args...)
	cmd.Dir = r.baseDir
	cmd.Stdin = bytes.NewReader(stdin)
	cmd.Env = append(cmd.Environ(), environment(proc.Environment, inputs)...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("process %s failed: %w: %s", name, err, strings.TrimSpace(stderr.String()))
	}

	trimmed := strings.TrimSpace(stdout.String())
	if (strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}")) ||
		(strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]")) {
		var decoded any
		if err := sonic.ConfigStd.UnmarshalFromString(trimmed, &decoded); err == nil {
			return decoded, nil
		}
	}
	return trimmed, nil
}

func environment(static map[string]string, inputs map[string]any) []string {
	env := make([]string, 0, len(static)+len(inputs))
	for k, v := range static {
		env = append(env, k+"="+v)
	}
	for k, v := range inputs {
		env = append(env, EnvPrefix+envKey(k)+"="+envValue(v))
	}
	return env
}

func envKey(k string) string {
	return envKeyPattern.ReplaceAllString(strings.ToUpper(k), "_")
}

// envValue renders primitives directly and everything else as JSON.
func envValue(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case int, int64, float64, bool:
		return fmt.Sprintf("%v", v)
	default:
		if b, err := sonic.ConfigStd.Marshal(v); err == nil {
			return string(b)
		}
		return fmt.Sprintf("%v", v)
	}
}
