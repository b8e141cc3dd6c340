package store

// TaskStatus is the lifecycle state of one producer operation for the
// active video.
type TaskStatus string

const (
	StatusIdle    TaskStatus = "idle"
	StatusRunning TaskStatus = "running"
	StatusDone    TaskStatus = "done"
	StatusError   TaskStatus = "error"
)

// TaskKind names a status-tracked producer operation.
type TaskKind string

const (
	TaskAnalyze   TaskKind = "analyze"
	TaskHighlight TaskKind = "highlight"
	TaskRagSetup  TaskKind = "ragSetup"
)

// TaskKinds lists every status-tracked operation.
var TaskKinds = []TaskKind{TaskAnalyze, TaskHighlight, TaskRagSetup}

const (
	HighlightModeText  = "text"
	HighlightModeVoice = "voice"
)
