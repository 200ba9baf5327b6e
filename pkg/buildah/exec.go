package buildah

import (
	"bytes"
	"strings"

	utilcmd "github.com/py2image/python-to-image/pkg/util/cmd"
	utillog "github.com/py2image/python-to-image/pkg/util/log"
)

var log = utillog.StderrLog

// buildahCmd is the executable consulted for every operation.
const buildahCmd = "buildah"

// execute runs a buildah subcommand and returns its stdout. A failing command
// returns an error and, when verbose, logs both output streams.
func execute(runner utilcmd.CommandRunner, args []string, verbose bool) ([]byte, error) {
	log.V(3).Infof("Executing '%s %s'", buildahCmd, strings.Join(args, " "))

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	opts := utilcmd.CommandOpts{
		Stdout: &stdout,
		Stderr: &stderr,
	}
	if err := runner.RunWithOptions(opts, buildahCmd, args...); err != nil {
		if verbose {
			log.V(0).Infof("ERROR: Command '%s %s' failed with error '%s', stdout: '%s', stderr: '%s'",
				buildahCmd, strings.Join(args, " "), err, stdout.Bytes(), stderr.Bytes())
		}
		return nil, err
	}
	if verbose {
		log.V(5).Infof("command='%s %s', stdout='%s', stderr='%s'",
			buildahCmd, strings.Join(args, " "), stdout.Bytes(), stderr.Bytes())
	}
	return stdout.Bytes(), nil
}
