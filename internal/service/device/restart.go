package device

import (
	"context"
	"os"
	"os/exec"

	"github.com/oshokin/sleepwake/internal/logger"
)

// execRestart builds the default deep-sleep restart hook: it re-executes the
// current binary with the same arguments and exits. The replacement process
// boots from the persisted wake handoff, which stands in for the reset that
// ends deep sleep on hardware. The command is started asynchronously; the OS
// takes over the rest.
func execRestart(ctx context.Context) func() {
	return func() {
		executable, err := os.Executable()
		if err != nil {
			logger.FatalKV(ctx, "Locate executable for restart", "error", err)
		}

		command := exec.Command(executable, os.Args[1:]...)
		command.Stdout = os.Stdout
		command.Stderr = os.Stderr

		if err = command.Start(); err != nil {
			logger.FatalKV(ctx, "Restart after deep-sleep wake", "error", err)
		}

		logger.InfoKV(ctx, "Deep-sleep wake, handing off", "pid", command.Process.Pid)
		os.Exit(0)
	}
}
