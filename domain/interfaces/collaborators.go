package interfaces

import (
	"context"
	"math/big"
)

// TransferResult is the outcome of a token transfer
type TransferResult struct {
	Success bool
	TxRef   string
	Error   string
}

// TransferStatus is the on-chain outcome of a broadcast transfer
type TransferStatus string

const (
	TransferStatusPending   TransferStatus = "pending"
	TransferStatusConfirmed TransferStatus = "confirmed"
	TransferStatusReverted  TransferStatus = "reverted"
)

// TokenTransferClient moves tokens from the bot wallet to user wallets
type TokenTransferClient interface {
	// ValidateAddress reports whether the address is well formed for the target chain
	ValidateAddress(address string) bool

	// SendTokens transfers a whole-token amount. Failures are reported in the result, not as errors.
	// A failed result carries a TxRef when the transaction was broadcast.
	SendTokens(ctx context.Context, address string, amount int64) TransferResult

	// TransferStatus looks up the receipt of a broadcast transfer
	TransferStatus(ctx context.Context, txRef string) (TransferStatus, error)
}

// TokenBalanceReader reads on-chain token balances in base units
type TokenBalanceReader interface {
	BalanceOf(ctx context.Context, address string) (*big.Int, error)
	Decimals(ctx context.Context) (uint8, error)
}

// CommunitySizer reports the size of the community used to scale prize pools
type CommunitySizer interface {
	MemberCount(ctx context.Context) (int64, error)
}

// PrizePoolPolicy computes the prize pool for a new race
type PrizePoolPolicy interface {
	// Name identifies the policy in logs
	Name() string

	// PrizePool returns the pool for a community of the given size
	PrizePool(memberCount int64) int64
}
