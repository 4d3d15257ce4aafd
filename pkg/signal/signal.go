package signal

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
)

// WaitForProcessInterruption blocks until SIGINT or SIGTERM, then runs the
// callback. A second signal forces an immediate exit.
func WaitForProcessInterruption(cb func()) {
	interruptCh := make(chan os.Signal, 1)
	signal.Notify(interruptCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-interruptCh
	logrus.Infof("graceful shutdown on %q", sig.String())
	go func() {
		sig = <-interruptCh
		logrus.Warnf("forced shutdown on %q", sig.String())
		signum := 0
		if v, ok := sig.(syscall.Signal); ok {
			signum = int(v)
		}
		os.Exit(128 + signum)
	}()
	cb()
}
