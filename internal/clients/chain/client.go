// Package chain provides the Solana RPC connection used by every on-chain
// component, plus the fee settings attached to outgoing transactions.
package chain

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog"
)

// RPC is the subset of the Solana JSON-RPC API this daemon calls.
// *rpc.Client satisfies it; tests substitute fakes.
type RPC interface {
	GetAccountInfoWithOpts(ctx context.Context, account solana.PublicKey, opts *rpc.GetAccountInfoOpts) (*rpc.GetAccountInfoResult, error)
	GetProgramAccountsWithOpts(ctx context.Context, program solana.PublicKey, opts *rpc.GetProgramAccountsOpts) (rpc.GetProgramAccountsResult, error)
	GetTokenAccountsByOwner(ctx context.Context, owner solana.PublicKey, conf *rpc.GetTokenAccountsConfig, opts *rpc.GetTokenAccountsOpts) (*rpc.GetTokenAccountsResult, error)
	GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error)
	SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts rpc.TransactionOpts) (solana.Signature, error)
	GetHealth(ctx context.Context) (string, error)
}

// Client is a Solana RPC connection bound to one commitment level
type Client struct {
	rpc        RPC
	endpoint   string
	commitment rpc.CommitmentType
	log        zerolog.Logger
}

// NewClient creates a client for the given JSON-RPC endpoint
func NewClient(endpoint string, commitment string, log zerolog.Logger) *Client {
	return NewClientWithRPC(rpc.New(endpoint), endpoint, commitment, log)
}

// NewClientWithRPC wraps an existing RPC implementation
func NewClientWithRPC(r RPC, endpoint string, commitment string, log zerolog.Logger) *Client {
	if commitment == "" {
		commitment = string(rpc.CommitmentConfirmed)
	}
	return &Client{
		rpc:        r,
		endpoint:   endpoint,
		commitment: rpc.CommitmentType(commitment),
		log:        log.With().Str("client", "solana-rpc").Logger(),
	}
}

// RPC returns the underlying JSON-RPC API
func (c *Client) RPC() RPC {
	return c.rpc
}

// Commitment returns the commitment level used for reads and preflight
func (c *Client) Commitment() rpc.CommitmentType {
	return c.commitment
}

// Endpoint returns the JSON-RPC URL
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Health reports whether the node considers itself healthy
func (c *Client) Health(ctx context.Context) error {
	status, err := c.rpc.GetHealth(ctx)
	if err != nil {
		return fmt.Errorf("rpc health check failed: %w", err)
	}
	if status != rpc.HealthOk {
		return fmt.Errorf("rpc node unhealthy: %s", status)
	}
	return nil
}

// LatestBlockhash fetches a recent blockhash for transaction construction
func (c *Client) LatestBlockhash(ctx context.Context) (solana.Hash, error) {
	out, err := c.rpc.GetLatestBlockhash(ctx, c.commitment)
	if err != nil {
		return solana.Hash{}, fmt.Errorf("failed to get latest blockhash: %w", err)
	}
	if out == nil || out.Value == nil {
		return solana.Hash{}, fmt.Errorf("failed to get latest blockhash: empty response")
	}
	return out.Value.Blockhash, nil
}

// SendTransaction submits a signed transaction with preflight at the client's commitment
func (c *Client) SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	sig, err := c.rpc.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		PreflightCommitment: c.commitment,
	})
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to send transaction: %w", err)
	}

	c.log.Debug().Str("signature", sig.String()).Msg("Transaction sent")
	return sig, nil
}
