package postgres

import (
	"context"
	"fmt"

	"cueclub/internal/core/tenant"
)

// MustGetTxManager pulls the club's *TxManager out of the request
// context. Repos use it for GetQuerier/GetTx; domain code stays on the
// tx.Manager interface and never calls this.
//
// Panics when the ClubDB middleware did not run, which is a wiring bug
// rather than a runtime condition.
func MustGetTxManager(ctx context.Context) *TxManager {
	txm := tenant.MustGetTxManager(ctx)
	pgTxm, ok := txm.(*TxManager)
	if !ok || pgTxm == nil {
		panic(fmt.Sprintf("TxManager in context has unexpected type: %T", txm))
	}
	return pgTxm
}
