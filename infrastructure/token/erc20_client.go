package token

import (
	"context"
	"crypto/ecdsa"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"pixelponies/domain/interfaces"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// ERC20ABI covers the calls the bot makes against the reward token
const ERC20ABI = `[
	{
		"inputs": [{"name": "account", "type": "address"}],
		"name": "balanceOf",
		"outputs": [{"name": "", "type": "uint256"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [
			{"name": "to", "type": "address"},
			{"name": "amount", "type": "uint256"}
		],
		"name": "transfer",
		"outputs": [{"name": "", "type": "bool"}],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"inputs": [],
		"name": "decimals",
		"outputs": [{"name": "", "type": "uint8"}],
		"stateMutability": "view",
		"type": "function"
	}
]`

const (
	gasBufferPercent    = 120
	receiptPollInterval = 2 * time.Second
)

// chainBackend is the subset of the RPC client the token client needs
type chainBackend interface {
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *ethtypes.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*ethtypes.Receipt, error)
}

// Config holds the chain settings for the token client
type Config struct {
	RPCURL          string
	ChainID         int64
	PrivateKey      string // hex, without 0x
	TokenAddress    string
	TransferTimeout time.Duration
}

// ERC20Client sends reward tokens from the bot wallet
type ERC20Client struct {
	backend         chainBackend
	closeFn         func()
	chainID         *big.Int
	privateKey      *ecdsa.PrivateKey
	fromAddress     common.Address
	tokenAddress    common.Address
	erc20ABI        abi.ABI
	transferTimeout time.Duration
	pollInterval    time.Duration

	// Transfers are serialized so pending nonces never collide
	sendMu sync.Mutex

	decimalsMu sync.Mutex
	decimals   *uint8
}

// NewERC20Client dials the RPC endpoint and loads the bot wallet
func NewERC20Client(cfg Config) (*ERC20Client, error) {
	client, err := ethclient.Dial(cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RPC %s: %w", cfg.RPCURL, err)
	}

	c, err := newERC20Client(client, cfg)
	if err != nil {
		client.Close()
		return nil, err
	}
	c.closeFn = client.Close
	return c, nil
}

func newERC20Client(backend chainBackend, cfg Config) (*ERC20Client, error) {
	if !common.IsHexAddress(cfg.TokenAddress) {
		return nil, fmt.Errorf("invalid token address %q", cfg.TokenAddress)
	}

	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse bot private key: %w", err)
	}

	erc20ABI, err := abi.JSON(strings.NewReader(ERC20ABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse ERC20 ABI: %w", err)
	}

	timeout := cfg.TransferTimeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}

	return &ERC20Client{
		backend:         backend,
		closeFn:         func() {},
		chainID:         big.NewInt(cfg.ChainID),
		privateKey:      privateKey,
		fromAddress:     crypto.PubkeyToAddress(privateKey.PublicKey),
		tokenAddress:    common.HexToAddress(cfg.TokenAddress),
		erc20ABI:        erc20ABI,
		transferTimeout: timeout,
		pollInterval:    receiptPollInterval,
	}, nil
}

// Close releases the RPC connection
func (c *ERC20Client) Close() {
	c.closeFn()
}

// BotAddress returns the wallet rewards are paid from
func (c *ERC20Client) BotAddress() string {
	return c.fromAddress.Hex()
}

// ValidateAddress reports whether the address is a well formed 20-byte hex address
func (c *ERC20Client) ValidateAddress(address string) bool {
	return common.IsHexAddress(strings.TrimSpace(address))
}

// Decimals returns the token's decimals, read once and cached
func (c *ERC20Client) Decimals(ctx context.Context) (uint8, error) {
	c.decimalsMu.Lock()
	defer c.decimalsMu.Unlock()

	if c.decimals != nil {
		return *c.decimals, nil
	}

	result, err := c.call(ctx, "decimals")
	if err != nil {
		return 0, err
	}

	var decimals uint8
	if err := c.erc20ABI.UnpackIntoInterface(&decimals, "decimals", result); err != nil {
		return 0, fmt.Errorf("failed to unpack decimals: %w", err)
	}

	c.decimals = &decimals
	return decimals, nil
}

// BalanceOf returns the token balance of an address in base units
func (c *ERC20Client) BalanceOf(ctx context.Context, address string) (*big.Int, error) {
	if !c.ValidateAddress(address) {
		return nil, fmt.Errorf("invalid address %q", address)
	}

	result, err := c.call(ctx, "balanceOf", common.HexToAddress(address))
	if err != nil {
		return nil, err
	}

	var balance *big.Int
	if err := c.erc20ABI.UnpackIntoInterface(&balance, "balanceOf", result); err != nil {
		return nil, fmt.Errorf("failed to unpack balanceOf: %w", err)
	}

	return balance, nil
}

// SendTokens transfers a whole-token amount and waits for the receipt.
// Every failure is reported in the result.
func (c *ERC20Client) SendTokens(ctx context.Context, address string, amount int64) interfaces.TransferResult {
	logger := log.WithFields(log.Fields{
		"recipient": address,
		"amount":    amount,
	})

	txHash, err := c.sendTokens(ctx, address, amount)
	if err != nil {
		logger.WithError(err).Error("Token transfer failed")
		result := interfaces.TransferResult{Success: false, Error: err.Error()}
		if txHash != (common.Hash{}) {
			result.TxRef = txHash.Hex()
		}
		return result
	}

	logger.WithField("tx_hash", txHash.Hex()).Info("Token transfer confirmed")
	return interfaces.TransferResult{Success: true, TxRef: txHash.Hex()}
}

// TransferStatus reports whether a broadcast transfer was mined, reverted or is still unknown
func (c *ERC20Client) TransferStatus(ctx context.Context, txRef string) (interfaces.TransferStatus, error) {
	if !isTxHash(txRef) {
		return "", fmt.Errorf("invalid transaction hash %q", txRef)
	}

	receipt, err := c.backend.TransactionReceipt(ctx, common.HexToHash(txRef))
	if errors.Is(err, ethereum.NotFound) {
		return interfaces.TransferStatusPending, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get receipt for %s: %w", txRef, err)
	}

	if receipt.Status == ethtypes.ReceiptStatusSuccessful {
		return interfaces.TransferStatusConfirmed, nil
	}
	return interfaces.TransferStatusReverted, nil
}

func isTxHash(s string) bool {
	s = strings.TrimPrefix(s, "0x")
	if len(s) != 2*common.HashLength {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}

func (c *ERC20Client) sendTokens(ctx context.Context, address string, amount int64) (common.Hash, error) {
	if !c.ValidateAddress(address) {
		return common.Hash{}, fmt.Errorf("invalid recipient address %q", address)
	}
	if amount <= 0 {
		return common.Hash{}, fmt.Errorf("transfer amount must be positive, got %d", amount)
	}

	decimals, err := c.Decimals(ctx)
	if err != nil {
		return common.Hash{}, err
	}

	tokenAmount := ToBaseUnits(amount, decimals)

	balance, err := c.BalanceOf(ctx, c.fromAddress.Hex())
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to read bot balance: %w", err)
	}
	if balance.Cmp(tokenAmount) < 0 {
		return common.Hash{}, fmt.Errorf("insufficient balance: need %d, have %s",
			amount, FromBaseUnits(balance, decimals).String())
	}

	data, err := c.erc20ABI.Pack("transfer", common.HexToAddress(address), tokenAmount)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to pack transfer: %w", err)
	}

	c.sendMu.Lock()
	signedTx, err := c.buildTransferTx(ctx, data)
	if err == nil {
		err = c.backend.SendTransaction(ctx, signedTx)
		if err != nil {
			err = fmt.Errorf("failed to send transaction: %w", err)
		}
	}
	c.sendMu.Unlock()
	if err != nil {
		return common.Hash{}, err
	}

	receipt, err := c.waitForReceipt(ctx, signedTx.Hash())
	if err != nil {
		return signedTx.Hash(), err
	}
	if receipt.Status != ethtypes.ReceiptStatusSuccessful {
		return signedTx.Hash(), fmt.Errorf("transaction %s reverted", signedTx.Hash().Hex())
	}

	return signedTx.Hash(), nil
}

func (c *ERC20Client) buildTransferTx(ctx context.Context, data []byte) (*ethtypes.Transaction, error) {
	gasEstimate, err := c.backend.EstimateGas(ctx, ethereum.CallMsg{
		From: c.fromAddress,
		To:   &c.tokenAddress,
		Data: data,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to estimate gas: %w", err)
	}
	gasLimit := gasEstimate * gasBufferPercent / 100

	nonce, err := c.backend.PendingNonceAt(ctx, c.fromAddress)
	if err != nil {
		return nil, fmt.Errorf("failed to get nonce: %w", err)
	}

	gasPrice, err := c.backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get gas price: %w", err)
	}

	tx := ethtypes.NewTransaction(nonce, c.tokenAddress, big.NewInt(0), gasLimit, gasPrice, data)

	signedTx, err := ethtypes.SignTx(tx, ethtypes.NewEIP155Signer(c.chainID), c.privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}

	return signedTx, nil
}

func (c *ERC20Client) waitForReceipt(ctx context.Context, txHash common.Hash) (*ethtypes.Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, c.transferTimeout)
	defer cancel()

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		receipt, err := c.backend.TransactionReceipt(ctx, txHash)
		if err == nil {
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			return nil, fmt.Errorf("failed to get receipt for %s: %w", txHash.Hex(), err)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("timed out waiting for receipt of %s: %w", txHash.Hex(), ctx.Err())
		case <-ticker.C:
		}
	}
}

func (c *ERC20Client) call(ctx context.Context, method string, args ...any) ([]byte, error) {
	data, err := c.erc20ABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", method, err)
	}

	result, err := c.backend.CallContract(ctx, ethereum.CallMsg{
		To:   &c.tokenAddress,
		Data: data,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to call %s: %w", method, err)
	}

	return result, nil
}

// ToBaseUnits scales a whole-token amount by the token's decimals
func ToBaseUnits(amount int64, decimals uint8) *big.Int {
	return decimal.NewFromInt(amount).Shift(int32(decimals)).BigInt()
}

// FromBaseUnits converts base units back to a token amount
func FromBaseUnits(value *big.Int, decimals uint8) decimal.Decimal {
	return decimal.NewFromBigInt(value, -int32(decimals))
}
