package errors

import (
	"sync"

	"github.com/ezoic/newsclf/pkg/log"
)

var (
	warnMu      sync.RWMutex
	warnHandler = defaultWarnHandler
)

// defaultWarnHandler logs through the package-level provider, so the configured level applies.
func defaultWarnHandler(w error) {
	log.GetLoggerWithName("errors").Warn("warning", "error", w)
}

// SetWarningHandler replaces the function called by Warn and returns the previous one.
// Passing nil restores the default handler, which logs through pkg/log.
func SetWarningHandler(h func(error)) func(error) {
	warnMu.Lock()
	defer warnMu.Unlock()
	prev := warnHandler
	if h == nil {
		h = defaultWarnHandler
	}
	warnHandler = h
	return prev
}

// Warn reports a non-fatal condition such as a ConvergenceWarning.
func Warn(w error) {
	if w == nil {
		return
	}
	warnMu.RLock()
	h := warnHandler
	warnMu.RUnlock()
	h(w)
}
