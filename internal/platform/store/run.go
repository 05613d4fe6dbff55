package store

import "context"

// RunInTx calls fn inside a transaction of tx, passing ctx through
func RunInTx(ctx context.Context, tx TxRunner, fn func(ctx context.Context, q RowQuerier) error) error {
	return tx.Tx(ctx, func(q RowQuerier) error {
		return fn(ctx, q)
	})
}
