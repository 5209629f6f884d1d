// Abstractions for running subprocesses and capturing their output.

package process

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Run the program with the arguments, collecting its output and returning it.  If there is an error
// in running the program or the program exits with a nonzero code then an error is returned along
// with stderr and stdout is empty, otherwise stdout and stderr are returned but the assumption is
// that the command exited with code zero.
//
// A positive timeout bounds the invocation; the subprocess is killed when it expires or when ctx is
// canceled, and the error says so.  A hung oracle must not be able to stall an entire run.

func RunSubprocess(
	ctx context.Context,
	programPath string,
	arguments []string,
	timeout time.Duration,
) (string, string, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	cmd := exec.CommandContext(ctx, programPath, arguments...)
	var stdout strings.Builder
	var stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	errs := stderr.String()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return "", errs, errors.Join(fmt.Errorf("While running %s", programPath), err)
	}
	outs := stdout.String()
	return outs, errs, nil
}
