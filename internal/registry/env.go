package registry

import (
	"context"
	"errors"
	"fmt"
)

// Records is the transactional key-value view a registry call runs against.
// Values are JSON-encodable; Get reports false when the key is absent.
type Records interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, value any) error
	Has(ctx context.Context, key string) (bool, error)
}

// Authenticator proves that the current caller controls an identity.
type Authenticator interface {
	// Require fails if the caller has not proven control of identity.
	Require(ctx context.Context, identity string) error
	// Validate fails if identity is not a well-formed identity string.
	Validate(identity string) error
}

// Env is everything one registry call may touch.
type Env struct {
	Records Records
	Auth    Authenticator
	// Now is the ledger time of the current transaction in seconds.
	Now    uint64
	Events Emitter
}

func (env Env) validate() error {
	if env.Records == nil {
		return errors.New("registry: env has no records")
	}
	if env.Auth == nil {
		return errors.New("registry: env has no authenticator")
	}
	return nil
}

func (env Env) emit(e Event) {
	if env.Events != nil {
		env.Events.Emit(e)
	}
}

func (env Env) require(ctx context.Context, identity string, fatal bool) error {
	if err := env.Auth.Require(ctx, identity); err != nil {
		return unauthenticated(identity, fatal, err)
	}
	return nil
}

// load reads key into dst, wrapping storage failures.
func (env Env) load(ctx context.Context, key string, dst any) (bool, error) {
	ok, err := env.Records.Get(ctx, key, dst)
	if err != nil {
		return false, fmt.Errorf("read %s: %w", key, err)
	}
	return ok, nil
}

func (env Env) store(ctx context.Context, key string, value any) error {
	if err := env.Records.Set(ctx, key, value); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}
