package handler

import (
	"context"
	"net/http"

	"github.com/web3-frozen/sonic-vault/internal/ledger"
)

type LedgerReader interface {
	All(ctx context.Context) (map[string]float64, error)
}

// Ledger dumps the whole deposit document.
func Ledger(l LedgerReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doc, err := l.All(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error(), nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"key":      ledger.DepositsKey,
			"deposits": doc,
		})
	}
}
