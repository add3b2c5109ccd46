package ingest

import "go.uber.org/zap"

// State is the lifecycle position of one upload request.
type State int

const (
	StateReceived State = iota
	StateValidated
	StateStaged
	StateUploading
	StateSucceeded
	StateFailed
	StateCleaned
)

var stateNames = [...]string{"received", "validated", "staged", "uploading", "succeeded", "failed", "cleaned"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

type tracker struct {
	state State
	log   *zap.Logger
}

func newTracker(log *zap.Logger) *tracker {
	return &tracker{state: StateReceived, log: log}
}

func (t *tracker) advance(next State) {
	t.log.Debug("upload state", zap.Stringer("from", t.state), zap.Stringer("to", next))
	t.state = next
}
