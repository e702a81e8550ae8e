package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/certledger/internal/canon"
)

// EventRecord is a published registry event as kept in the event log.
//
// Payload is the JSON encoding of the event, strings kept as published. ID
// is the content address of the record, computed by ComputeEventID over the
// canonical form of every other field.
type EventRecord struct {
	ID      string          `json:"id"`
	Seq     int64           `json:"seq"`
	TxID    string          `json:"tx_id"`
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

// ComputeEventID returns the content-addressed id of an event.
func ComputeEventID(kind string, seq int64, txID string, payload json.RawMessage) (string, error) {
	id, err := canon.Digest(canon.DomainEvent, map[string]any{
		"kind":    kind,
		"payload": payload,
		"seq":     seq,
		"tx_id":   txID,
	})
	if err != nil {
		return "", fmt.Errorf("compute event id: %w", err)
	}
	return id, nil
}

// NewEventRecord encodes payload and stamps the record's id. A payload with
// no canonical form (floats, nulls) is rejected.
func NewEventRecord(kind string, seq int64, txID string, payload any) (EventRecord, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return EventRecord{}, fmt.Errorf("encode %s payload: %w", kind, err)
	}
	id, err := ComputeEventID(kind, seq, txID, data)
	if err != nil {
		return EventRecord{}, err
	}
	return EventRecord{ID: id, Seq: seq, TxID: txID, Kind: kind, Payload: data}, nil
}

// Verify recomputes the record's id and reports a mismatch.
func (r EventRecord) Verify() error {
	want, err := ComputeEventID(r.Kind, r.Seq, r.TxID, r.Payload)
	if err != nil {
		return err
	}
	if want != r.ID {
		return fmt.Errorf("event %d: id %s does not match content (want %s)", r.Seq, r.ID, want)
	}
	return nil
}
