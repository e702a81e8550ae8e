package registry

import "context"

// historyLedger is the append-only list of completed transfers per
// certificate. Entries are never rewritten or pruned.
type historyLedger struct {
	env Env
}

func (h historyLedger) list(ctx context.Context, certificateID string) ([]TransferHistoryEntry, error) {
	entries := []TransferHistoryEntry{}
	if _, err := h.env.load(ctx, HistoryKey(certificateID), &entries); err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []TransferHistoryEntry{}
	}
	return entries, nil
}

func (h historyLedger) append(ctx context.Context, t TransferRequest) (TransferHistoryEntry, error) {
	entries, err := h.list(ctx, t.CertificateID)
	if err != nil {
		return TransferHistoryEntry{}, err
	}

	var at uint64
	if t.CompletedAt != nil {
		at = *t.CompletedAt
	}
	entry := TransferHistoryEntry{
		TransferID:    t.ID,
		CertificateID: t.CertificateID,
		From:          t.From,
		To:            t.To,
		TransferredAt: at,
		Fee:           t.Fee,
		Memo:          t.Memo,
	}
	if err := h.env.store(ctx, HistoryKey(t.CertificateID), append(entries, entry)); err != nil {
		return TransferHistoryEntry{}, err
	}
	return entry, nil
}
