package internal

import "go.uber.org/zap"

// MsgHistoryMiss and MsgTimeTravelDisabled are the single source of truth
// for both the debug log line emitted at the no-op site and the text of the
// corresponding exported sentinel error in the public package, so the two
// never drift apart.
const (
	MsgHistoryMiss        = "no snapshot at requested frame"
	MsgTimeTravelDisabled = "time travel is disabled on this timeline"
)

// newLogger mirrors the "attach a logger to the owning struct, default it to
// something safe" convention used throughout umh-core's FSM instances: a
// development logger when debug output was asked for, a no-op logger
// otherwise, so call sites never have to nil-check before logging.
func newLogger(debug bool) *zap.SugaredLogger {
	if !debug {
		return zap.NewNop().Sugar()
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop().Sugar()
	}
	return logger.Sugar()
}
