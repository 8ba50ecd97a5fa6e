package mqtt

import "github.com/sirupsen/logrus"

// tracer is the minimal logging surface the core needs: the direct
// analogue of DBG_MQTT (SPEC_FULL.md §6/§10), a trace-gate the host's
// debug/trace logging collaborator is expected to provide. debugTracer
// backs it with github.com/sirupsen/logrus; noopTracer backs it with
// nothing, for callers that never set ClientConfig.Debug.
type tracer interface {
	Tracef(format string, args ...any)
	Warnf(format string, args ...any)
}

type noopTracer struct{}

func (noopTracer) Tracef(string, ...any) {}
func (noopTracer) Warnf(string, ...any)  {}

// debugTracer logs through a *logrus.Logger, tagging every entry with the
// current connection epoch (an github.com/rs/xid identifier minted fresh on
// every Client.Connect call, just before Transport.Open) so overlapping reconnect attempts stay
// distinguishable in a shared log stream.
type debugTracer struct {
	log   *logrus.Logger
	epoch func() string
}

func (t debugTracer) entry() *logrus.Entry {
	return t.log.WithField("conn_epoch", t.epoch())
}

func (t debugTracer) Tracef(format string, args ...any) { t.entry().Tracef(format, args...) }
func (t debugTracer) Warnf(format string, args ...any)  { t.entry().Warnf(format, args...) }
