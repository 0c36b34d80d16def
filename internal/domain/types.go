package domain

// ItemStatus tracks the lifecycle of a single queued media file.
type ItemStatus string

const (
	ItemStatusQueued       ItemStatus = "queued"
	ItemStatusInitializing ItemStatus = "initializing"
	ItemStatusTranscribing ItemStatus = "transcribing"
	ItemStatusDone         ItemStatus = "done"
	ItemStatusFailed       ItemStatus = "failed"
	ItemStatusSkipped      ItemStatus = "skipped"
)

// IsTerminal reports whether the status ends an item's lifecycle.
func (s ItemStatus) IsTerminal() bool {
	switch s {
	case ItemStatusDone, ItemStatusFailed, ItemStatusSkipped:
		return true
	}
	return false
}

// EngineState tracks the lazily initialized transcription engine.
type EngineState string

const (
	EngineStateUninitialized EngineState = "uninitialized"
	EngineStateReady         EngineState = "ready"
	EngineStateFailed        EngineState = "failed"
)

// Settings contains user-selectable runtime configuration.
type Settings struct {
	Model         string `json:"model"`
	ModelDir      string `json:"modelDir"`
	OutputDir     string `json:"outputDir"`
	Language      string `json:"language"`
	WriteCaptions bool   `json:"writeCaptions"`
}

// Item is one queued media file together with its current status.
type Item struct {
	Path   string     `json:"path"`
	Status ItemStatus `json:"status"`
}
