package test

import (
	"io"
	"strings"

	utilcmd "github.com/py2image/python-to-image/pkg/util/cmd"
)

// FakeCmdRunner provides a fake command runner
type FakeCmdRunner struct {
	Name string
	Args []string
	Opts utilcmd.CommandOpts
	Err  error

	// Output is written to the command's stdout, simulating the process
	// output.
	Output string

	// Calls records every command line, one entry per invocation.
	Calls []string
}

// RunWithOptions runs a fake command with options
func (f *FakeCmdRunner) RunWithOptions(opts utilcmd.CommandOpts, name string, arg ...string) error {
	f.Name = name
	f.Args = arg
	f.Opts = opts
	f.Calls = append(f.Calls, name)
	if opts.Stdout != nil && len(f.Output) > 0 {
		opts.Stdout.Write([]byte(f.Output))
	}
	return f.Err
}

// Run runs a fake command
func (f *FakeCmdRunner) Run(name string, arg ...string) error {
	return f.RunWithOptions(utilcmd.CommandOpts{}, name, arg...)
}

// StartWithStdoutPipe is not implemented for the fake runner
func (f *FakeCmdRunner) StartWithStdoutPipe(opts utilcmd.CommandOpts, name string, arg ...string) (io.ReadCloser, error) {
	f.Name = name
	f.Args = arg
	f.Opts = opts
	f.Calls = append(f.Calls, name)
	return io.NopCloser(strings.NewReader("")), f.Err
}

// Wait waits for a fake command to finish
func (f *FakeCmdRunner) Wait() error {
	return f.Err
}
