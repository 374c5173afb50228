package device

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// MockClient is an in-memory Client for testing.
type MockClient struct {
	mu     sync.Mutex
	values map[string]any

	// AutoComplete resets any ":Acquire" variable to 0 right after it is set.
	AutoComplete bool

	// Puts records every write in order
	Puts []MockPut
}

// MockPut records a write.
type MockPut struct {
	PV    string
	Value any
}

// NewMockClient creates a MockClient holding values.
func NewMockClient(values map[string]any) *MockClient {
	m := &MockClient{values: make(map[string]any)}
	for k, v := range values {
		m.values[k] = v
	}
	return m
}

func (m *MockClient) Get(ctx context.Context, pv string) (any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[pv]
	if !ok {
		return nil, fmt.Errorf("unknown process variable %s", pv)
	}
	return v, nil
}

func (m *MockClient) Put(ctx context.Context, pv string, value any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Puts = append(m.Puts, MockPut{PV: pv, Value: value})
	m.values[pv] = value
	if m.AutoComplete && strings.HasSuffix(pv, ":Acquire") {
		m.values[pv] = 0
	}
	return nil
}

var _ Client = (*MockClient)(nil)
