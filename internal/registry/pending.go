package registry

import (
	"context"
	"slices"
)

// pendingIndex maps an identity to the transfer ids awaiting its decision.
// Every mutation rewrites the identity's whole list. The transfer state
// machine is the only writer.
type pendingIndex struct {
	env Env
}

func (p pendingIndex) list(ctx context.Context, identity string) ([]string, error) {
	ids := []string{}
	if _, err := p.env.load(ctx, PendingKey(identity), &ids); err != nil {
		return nil, err
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

func (p pendingIndex) add(ctx context.Context, identity, transferID string) error {
	ids, err := p.list(ctx, identity)
	if err != nil {
		return err
	}
	return p.env.store(ctx, PendingKey(identity), append(ids, transferID))
}

// remove rebuilds the list without transferID, keeping the order of the rest.
// Removing an absent id rewrites the list unchanged.
func (p pendingIndex) remove(ctx context.Context, identity, transferID string) error {
	ids, err := p.list(ctx, identity)
	if err != nil {
		return err
	}
	kept := slices.DeleteFunc(ids, func(id string) bool { return id == transferID })
	return p.env.store(ctx, PendingKey(identity), kept)
}
