package cli

import (
	"fmt"
	"sync"

	"github.com/matzehuels/pyseek/pkg/python"
)

// reporter prints engine warnings once each and routes debug messages to the
// logger.
type reporter struct {
	c *CLI

	mu   sync.Mutex
	seen map[string]bool
}

func newReporter(c *CLI) *reporter {
	return &reporter{c: c, seen: make(map[string]bool)}
}

func (r *reporter) Warnf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	r.mu.Lock()
	dup := r.seen[msg]
	r.seen[msg] = true
	r.mu.Unlock()
	if !dup {
		r.c.printWarning("%s", msg)
	}
}

func (r *reporter) Debugf(format string, args ...any) {
	r.c.Logger.Debugf(format, args...)
}

var _ python.Reporter = (*reporter)(nil)
