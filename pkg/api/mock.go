package api

import (
	"context"
)

type MockAPIGenerator struct {
	MockClient MockAPIClient

	// Calls records every url the generator was asked for.
	Calls []string
}

func (m *MockAPIGenerator) New(domain, path string, args ...any) Client {
	m.Calls = append(m.Calls, domain+path)
	return &m.MockClient
}

type MockAPIClient struct {
	HeaderFunc func(name, value string) Client
	GETFunc    func(ctx context.Context, opts ...Opt) (*Response, error)
}

func (c *MockAPIClient) Header(name, value string) Client {
	if c.HeaderFunc != nil {
		return c.HeaderFunc(name, value)
	}

	return c
}

func (c *MockAPIClient) GET(ctx context.Context, opts ...Opt) (*Response, error) {
	if c.GETFunc != nil {
		return c.GETFunc(ctx, opts...)
	}

	panic("not implemented")
}
