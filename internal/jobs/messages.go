package jobs

import "github.com/cotalabs/cotiza/internal/models"

// messageKind discriminates the worker-to-manager channel payloads.
type messageKind int

const (
	msgStarted messageKind = iota
	msgProgress
	msgCompleted
	msgFailed
)

// workerMessage is one update sent by a worker over its job channel. The
// worker sends zero or more msgStarted/msgProgress messages, then exactly one
// terminal message (msgCompleted or msgFailed), then closes the channel.
type workerMessage struct {
	kind     messageKind
	progress *models.JobProgress
	result   *models.JobResult
	err      string
}

func (m workerMessage) terminal() bool {
	return m.kind == msgCompleted || m.kind == msgFailed
}
