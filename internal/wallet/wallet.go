// internal/wallet/wallet.go
//
// Wallet providers that resolve a player's address.
// Responsibilities:
//   - Kind: the supported providers (MetaMask, Rabby, Core).
//   - Provider: the single capability every variant offers (Connect → address).
//   - Mapping EIP-1193 failures onto ErrNotInstalled / ErrUserRejected.
//
// Notes:
//   - The variants differ only in name and which injected handle they wrap,
//     so one implementation serves all three.
//   - Addresses are returned exactly as the provider reported them.
package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Kind identifies a wallet provider.
type Kind int

const (
	MetaMask Kind = iota + 1
	Rabby
	Core
)

var (
	ErrNotInstalled  = errors.New("wallet not installed")
	ErrUserRejected  = errors.New("user rejected request")
	ErrNoAccounts    = errors.New("wallet returned no accounts")
	ErrUnknownWallet = errors.New("unknown wallet provider")
)

// CodeUserRejected is the EIP-1193 error code for a declined request.
const CodeUserRejected = 4001

func (k Kind) String() string {
	switch k {
	case MetaMask:
		return "MetaMask"
	case Rabby:
		return "Rabby"
	case Core:
		return "Core"
	default:
		return "unknown"
	}
}

// ParseKind parses "metamask", "rabby" or "core" (case-insensitive).
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "metamask":
		return MetaMask, nil
	case "rabby":
		return Rabby, nil
	case "core":
		return Core, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownWallet, s)
	}
}

// Provider resolves the connected account address.
type Provider interface {
	Kind() Kind
	Connect(ctx context.Context) (string, error)
}

// Injected is an EIP-1193 style request handle exposed by a wallet.
type Injected interface {
	Request(ctx context.Context, method string, params []any) (json.RawMessage, error)
}

// RPCError is an EIP-1193 provider error.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string { return fmt.Sprintf("provider error %d: %s", e.Code, e.Message) }

// injectedProvider is the shared implementation behind every Kind.
type injectedProvider struct {
	kind     Kind
	injected Injected
}

// New returns the provider for kind. A nil handle means the wallet is not installed.
func New(kind Kind, h Injected) (Provider, error) {
	switch kind {
	case MetaMask, Rabby, Core:
		return &injectedProvider{kind: kind, injected: h}, nil
	default:
		return nil, ErrUnknownWallet
	}
}

func (p *injectedProvider) Kind() Kind { return p.kind }

// Connect asks for account access and returns the first account.
func (p *injectedProvider) Connect(ctx context.Context) (string, error) {
	if p.injected == nil {
		return "", fmt.Errorf("%s %w", p.kind, ErrNotInstalled)
	}
	raw, err := p.injected.Request(ctx, "eth_requestAccounts", []any{})
	if err != nil {
		var rpcErr *RPCError
		if errors.As(err, &rpcErr) && rpcErr.Code == CodeUserRejected {
			return "", fmt.Errorf("%s: %w", p.kind, ErrUserRejected)
		}
		return "", fmt.Errorf("%s connection error: %w", p.kind, err)
	}

	var accounts []string
	if err := json.Unmarshal(raw, &accounts); err != nil {
		return "", fmt.Errorf("%s: decode accounts: %w", p.kind, err)
	}
	if len(accounts) == 0 {
		return "", fmt.Errorf("%s: %w", p.kind, ErrNoAccounts)
	}
	if err := ValidateAddress(accounts[0]); err != nil {
		return "", fmt.Errorf("%s: %w", p.kind, err)
	}
	return accounts[0], nil
}
