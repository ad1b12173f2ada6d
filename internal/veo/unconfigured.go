package veo

import "context"

// Unconfigured stands in for the real client when no credential is set,
// so the gateway can still serve its endpoints and report the problem.
type Unconfigured struct{}

func (Unconfigured) Name() string { return "Veo:unconfigured" }

func (Unconfigured) Generate(context.Context, string, []byte, string) (*Operation, error) {
	return nil, ErrKeyNotConfigured
}

func (Unconfigured) Wait(context.Context, *Operation) (*Operation, error) {
	return nil, ErrKeyNotConfigured
}

func (Unconfigured) Result(context.Context, *Operation) ([]byte, string, error) {
	return nil, "", ErrKeyNotConfigured
}
