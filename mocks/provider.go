package mocks

import (
	"context"

	"github.com/questx-lab/authserver/pkg/authenticator"
	"github.com/stretchr/testify/mock"
)

type Provider struct {
	mock.Mock

	ProviderName string
}

func NewProvider(name string) *Provider {
	return &Provider{ProviderName: name}
}

func (p *Provider) Name() string {
	return p.ProviderName
}

func (p *Provider) BuildAuthorizationURL(
	arg1 context.Context, arg2 string, arg3 authenticator.ScopeTier,
) (string, error) {
	args := p.Called(arg1, arg2, arg3)
	return args.String(0), args.Error(1)
}

func (p *Provider) ExchangeCode(arg1 context.Context, arg2, arg3 string) (*authenticator.Tokens, error) {
	args := p.Called(arg1, arg2, arg3)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*authenticator.Tokens), args.Error(1)
}

func (p *Provider) ExchangeRefreshToken(arg1 context.Context, arg2 string) (*authenticator.Tokens, error) {
	args := p.Called(arg1, arg2)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*authenticator.Tokens), args.Error(1)
}

func (p *Provider) FetchIdentity(arg1 context.Context, arg2 string) (*authenticator.Identity, error) {
	args := p.Called(arg1, arg2)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*authenticator.Identity), args.Error(1)
}
