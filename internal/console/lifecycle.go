package console

import (
	"fmt"
	"runtime"
)

// DefaultBannerHint is the informational phrase every default banner carries.
const DefaultBannerHint = `Type "exit()" or press Ctrl-D to leave.`

// DefaultBanner returns the banner shown when BeginInteraction gets none.
func DefaultBanner() string {
	return fmt.Sprintf("Lua 5.1 (gopher-lua) on %s/%s\n%s\n", runtime.GOOS, runtime.GOARCH, DefaultBannerHint)
}

type beginConfig struct {
	banner    string
	hasBanner bool
}

// BeginOption configures BeginInteraction.
type BeginOption func(*beginConfig)

// WithBanner sets the banner text. An empty string suppresses the banner.
func WithBanner(banner string) BeginOption {
	return func(c *beginConfig) {
		c.banner = banner
		c.hasBanner = true
	}
}

// WithOptionalBanner applies WithBanner when banner is non-nil, so a
// configuration value that was never set falls back to the default banner.
func WithOptionalBanner(banner *string) BeginOption {
	return func(c *beginConfig) {
		if banner != nil {
			WithBanner(*banner)(c)
		}
	}
}

// BeginInteraction enters interactive mode: it writes the banner, installs
// the adapter as the evaluator's sink, clears the line and continuation
// state, and writes the primary prompt.
//
// Calling it while already interacting does nothing.
func (a *Adapter) BeginInteraction(opts ...BeginOption) {
	if a.state == Interacting {
		a.log.Warn("begin interaction while already interacting")
		return
	}

	cfg := beginConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if !cfg.hasBanner {
		cfg.banner = DefaultBanner()
	}
	a.writeString(cfg.banner)

	a.prevSink = a.eval.Redirect(a)
	a.continuing = false
	a.pending.Reset()
	a.state = Interacting
	a.log.Debug("interaction started")

	a.writePrompt()
}

// EndInteraction leaves interactive mode and asks the host to restore its
// prior mode. Calling it while idle does nothing.
func (a *Adapter) EndInteraction() {
	if !a.leave() {
		return
	}
	a.log.Debug("interaction interrupted")
	if a.host != nil {
		a.host.RestorePriorMode()
	}
}

// Exit leaves interactive mode on end of input and asks the host to exit
// interactive mode. Calling it while idle does nothing.
func (a *Adapter) Exit() {
	if !a.leave() {
		return
	}
	a.log.Debug("interaction exited")
	if a.host != nil {
		a.host.ExitInteractiveMode()
	}
}

// leave restores the previous sink and goes idle. It reports false if the
// adapter was not interacting.
func (a *Adapter) leave() bool {
	if a.state != Interacting {
		return false
	}
	a.eval.Redirect(a.prevSink)
	a.prevSink = nil
	a.pending.Reset()
	a.continuing = false
	a.state = Idle
	return true
}
