// internal/wallet/relayed.go
//
// Injected handle built from an outcome relayed by the browser.

package wallet

import (
	"context"
	"encoding/json"
)

// Relayed replays the outcome of an eth_requestAccounts call that ran in the
// player's browser. The mini-app posts what its extension returned and the
// server resolves it through the same Provider path as any other handle.
type Relayed struct {
	Accounts []string
	Err      *RPCError
}

// Request answers eth_requestAccounts from the relayed outcome.
func (r *Relayed) Request(ctx context.Context, method string, params []any) (json.RawMessage, error) {
	if r.Err != nil {
		return nil, r.Err
	}
	if method != "eth_requestAccounts" && method != "eth_accounts" {
		return nil, &RPCError{Code: 4200, Message: "unsupported method " + method}
	}
	return json.Marshal(r.Accounts)
}
