package testutil

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/vk/buildgridgo/internal/buildctx"
	"github.com/vk/buildgridgo/internal/registry"
)

// ExecutionRecord holds the start and end times of one recorded action.
type ExecutionRecord struct {
	Start time.Time
	End   time.Time
}

// RecorderModule registers a "record" action for tests. Each call sleeps
// for the optional duration, records its timings under id and returns id.
// With fail set the action returns an error instead.
type RecorderModule struct {
	mu      sync.Mutex
	order   []string
	records map[string]ExecutionRecord
}

type recordInput struct {
	ID    string `bggo:"id"`
	Sleep string `bggo:"sleep,optional"`
	Fail  bool   `bggo:"fail,optional"`
}

// NewRecorderModule creates an empty recorder.
func NewRecorderModule() *RecorderModule {
	return &RecorderModule{records: make(map[string]ExecutionRecord)}
}

// Register implements the registry.Module interface.
func (m *RecorderModule) Register(r *registry.Registry) {
	r.RegisterAction("record", registry.Typed("Records its execution for tests.", m.run))
}

func (m *RecorderModule) run(ctx context.Context, _ *buildctx.Context, in *recordInput) (string, error) {
	start := time.Now()
	if in.Sleep != "" {
		d, err := time.ParseDuration(in.Sleep)
		if err != nil {
			return "", err
		}
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if in.Fail {
		return "", errors.New("recorded failure: " + in.ID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.order = append(m.order, in.ID)
	m.records[in.ID] = ExecutionRecord{Start: start, End: time.Now()}
	return in.ID, nil
}

// Order returns the ids of completed actions in completion order.
func (m *RecorderModule) Order() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.order...)
}

// Record returns the timings recorded for id.
func (m *RecorderModule) Record(id string) (ExecutionRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[id]
	return r, ok
}
