package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/web3-frozen/sonic-vault/internal/deposit"
	"github.com/web3-frozen/sonic-vault/internal/display"
)

const depositTimeout = 2 * time.Minute

// VaultState tells the deposit status endpoint whether the cap is reached.
type VaultState interface {
	VaultFull() bool
}

type depositRequest struct {
	// Amount accepts "0.1" or 0.1.
	Amount json.RawMessage `json:"amount"`
}

// Deposit submits a deposit from the server wallet. Once accepted the
// deposit runs to completion even if the client goes away.
func Deposit(sub *deposit.Submitter, wallet deposit.Wallet) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req depositRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<10)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body", nil)
			return
		}
		amount := strings.Trim(strings.TrimSpace(string(req.Amount)), `"`)

		ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), depositTimeout)
		defer cancel()

		receipt, err := sub.Submit(ctx, wallet, amount)
		if err != nil {
			writeDepositError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"status":  deposit.Settled,
			"receipt": receipt,
		})
	}
}

func writeDepositError(w http.ResponseWriter, err error) {
	var ve *deposit.ValidationError
	if errors.As(err, &ve) {
		extra := map[string]any{"rule": ve.Rule}
		if ve.Rule == deposit.RuleVaultFull {
			extra["label"] = display.LabelVaultFull
		}
		writeError(w, http.StatusUnprocessableEntity, err.Error(), extra)
		return
	}
	var de *deposit.DepositError
	if errors.As(err, &de) {
		extra := map[string]any{"stage": de.Stage}
		if de.Signature != "" {
			extra["signature"] = de.Signature
		}
		writeError(w, http.StatusBadGateway, err.Error(), extra)
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error(), nil)
}

type depositStatus struct {
	deposit.Status
	Connected bool   `json:"connected"`
	CanSubmit bool   `json:"can_submit"`
	Label     string `json:"label"`
}

// DepositStatus reports ?wallet= (default: the server wallet) and the
// deposit button state derived from it.
func DepositStatus(sub *deposit.Submitter, wallet deposit.Wallet, vault VaultState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		addr := strings.TrimSpace(r.URL.Query().Get("wallet"))
		if addr == "" {
			addr = wallet.Address()
		}

		st := sub.Status(addr)
		connected := addr != ""
		processing := st.Stage.InFlight()
		full := vault.VaultFull()
		writeJSON(w, http.StatusOK, depositStatus{
			Status:    st,
			Connected: connected,
			CanSubmit: connected && !processing && !full,
			Label:     display.DepositLabel(connected, processing, full),
		})
	}
}
