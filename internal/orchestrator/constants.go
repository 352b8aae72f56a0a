package orchestrator

// History store sizing used by the run command and the HTTP server.
const (
	HistoryMaxEntries  = 200
	HistoryEventBuffer = 256
)
