package graph

import (
	"context"
	"errors"

	"github.com/quiver-labs/finagent/internal/model"
)

// mockProvider is a scripted model.Provider for graph node tests: each
// call to Complete pops the next entry off Responses (or returns Err if
// set), recording every request it was asked to answer so assertions can
// inspect what prompt a node actually built.
type mockProvider struct {
	Responses []string
	Err       error

	Requests []model.Request
	calls    int
}

func (m *mockProvider) Complete(_ context.Context, req model.Request) (string, error) {
	m.Requests = append(m.Requests, req)
	if m.Err != nil {
		return "", m.Err
	}
	if m.calls >= len(m.Responses) {
		return "", errors.New("mockProvider: out of scripted responses")
	}
	resp := m.Responses[m.calls]
	m.calls++
	return resp, nil
}

func (m *mockProvider) Name() string { return "mock" }

// errBoom is a shared scripted failure for tests that only care that the
// provider call failed, not why.
var errBoom = errors.New("mockProvider: scripted failure")
