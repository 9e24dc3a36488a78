package service

import (
	"context"
	"fmt"
)

// NextSeqno returns the seqno the next item of feed receives: one past the
// last assigned, starting at 1. It must run inside RunInTx so that the read
// and the later SetSeqno are atomic.
func NextSeqno(ctx context.Context, store Store, feed string) (uint64, error) {
	last, err := store.LastSeqno(ctx, feed)
	if err != nil {
		return 0, err
	}
	if last == ^uint64(0) {
		return 0, fmt.Errorf("feed %s has exhausted its seqno space", feed)
	}
	return last + 1, nil
}
