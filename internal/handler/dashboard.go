package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/web3-frozen/sonic-vault/internal/dashboard"
)

func Summary(d *dashboard.Dashboard) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, d.Summary())
	}
}

func Pool(d *dashboard.Dashboard) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, d.PoolDetail())
	}
}

// Position reads ?wallet=, falling back to the server's own wallet.
func Position(d *dashboard.Dashboard, defaultWallet string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wallet := strings.TrimSpace(r.URL.Query().Get("wallet"))
		if wallet == "" {
			wallet = defaultWallet
		}
		if wallet == "" {
			writeError(w, http.StatusBadRequest, "wallet is required", nil)
			return
		}

		pos, err := d.Position(r.Context(), wallet)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error(), nil)
			return
		}
		writeJSON(w, http.StatusOK, pos)
	}
}

// Quote previews ?amount= at ?slippage= (percent, default 0.5).
func Quote(d *dashboard.Dashboard) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		amount, err := strconv.ParseFloat(strings.TrimSpace(q.Get("amount")), 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "amount must be a number", nil)
			return
		}

		slippage := dashboard.DefaultSlippage
		if s := strings.TrimSpace(q.Get("slippage")); s != "" {
			slippage, err = strconv.ParseFloat(s, 64)
			if err != nil || slippage < 0 || slippage > 100 {
				writeError(w, http.StatusBadRequest, "slippage must be a percentage between 0 and 100", nil)
				return
			}
		}
		writeJSON(w, http.StatusOK, d.Quote(amount, slippage))
	}
}
