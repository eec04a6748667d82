package tpgo

import (
	"os"
	"os/signal"
	"sync"
	"syscall"

	"go.uber.org/zap"
)

// exitHook stops a lifecycle when the process receives SIGINT or SIGTERM,
// then re-delivers the signal so the process still terminates.
type exitHook struct {
	ch   chan os.Signal
	done chan struct{}
	once sync.Once
}

func installExitHook(lc *Lifecycle) *exitHook {
	h := &exitHook{
		ch:   make(chan os.Signal, 1),
		done: make(chan struct{}),
	}
	signal.Notify(h.ch, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-h.ch:
			if err := lc.Stop(); err != nil {
				lc.logger().Error("stopping engine on signal", zap.Stringer("signal", sig), zap.Error(err))
			}
			signal.Stop(h.ch)
			if p, err := os.FindProcess(os.Getpid()); err == nil {
				_ = p.Signal(sig)
			}
		case <-h.done:
		}
	}()
	return h
}

// remove uninstalls the hook without waiting for its goroutine.
func (h *exitHook) remove() {
	h.once.Do(func() {
		signal.Stop(h.ch)
		close(h.done)
	})
}
