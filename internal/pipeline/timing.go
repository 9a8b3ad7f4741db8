package pipeline

import (
	"encoding/json"
	"os"
	"sync"
	"time"
)

type timingEvent struct {
	RunID      string  `json:"run_id,omitempty"`
	Phase      string  `json:"phase"`
	Kind       string  `json:"kind"`
	Request    string  `json:"request,omitempty"`
	Status     string  `json:"status,omitempty"`
	StartMS    float64 `json:"start_ms"`
	DurationMS float64 `json:"duration_ms"`
	EndMS      float64 `json:"end_ms"`
}

type timingRecorder struct {
	enabled bool
	start   time.Time
	mu      sync.Mutex
	events  []timingEvent
	file    *os.File
	enc     *json.Encoder
	err     error
}

func newTimingRecorder(start time.Time, path string) *timingRecorder {
	tr := &timingRecorder{start: start}
	if path == "" {
		return tr
	}
	f, err := os.Create(path)
	if err != nil {
		tr.err = err
		return tr
	}
	tr.enabled = true
	tr.file = f
	tr.enc = json.NewEncoder(f)
	return tr
}

func (tr *timingRecorder) Enabled() bool {
	return tr != nil && tr.enabled
}

func (tr *timingRecorder) Err() error {
	if tr == nil {
		return nil
	}
	return tr.err
}

func (tr *timingRecorder) Close() {
	if tr == nil || tr.file == nil {
		return
	}
	_ = tr.file.Close()
}

func (tr *timingRecorder) record(runID, phase, kind, request, status string, start time.Time, duration time.Duration) {
	if tr == nil || !tr.enabled {
		return
	}
	startMS := durationToMS(start.Sub(tr.start))
	durationMS := durationToMS(duration)
	event := timingEvent{
		RunID:      runID,
		Phase:      phase,
		Kind:       kind,
		Request:    request,
		Status:     status,
		StartMS:    startMS,
		DurationMS: durationMS,
		EndMS:      startMS + durationMS,
	}
	tr.mu.Lock()
	tr.events = append(tr.events, event)
	if tr.enc != nil {
		_ = tr.enc.Encode(event)
	}
	tr.mu.Unlock()
}

// RecordStage records a generator stage of one request.
func (tr *timingRecorder) RecordStage(runID, phase, request string, start time.Time, duration time.Duration) {
	tr.record(runID, phase, "stage", request, "", start, duration)
}

// RecordRequest records the whole processing of one request.
func (tr *timingRecorder) RecordRequest(runID, request, status string, start time.Time, duration time.Duration) {
	tr.record(runID, "request", "request", request, status, start, duration)
}

func durationToMS(d time.Duration) float64 {
	return float64(d.Nanoseconds()) / 1_000_000.0
}
