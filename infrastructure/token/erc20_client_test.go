package token

import (
	"context"
	"encoding/hex"
	"errors"
	"math/big"
	"strings"
	"sync"
	"testing"
	"time"

	"pixelponies/domain/interfaces"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testTokenAddress = "0x6ab297799335E7b0f60d9e05439Df156cf694Ba7"
	testRecipient    = "0x00000000000000000000000000000000000000aa"
)

// fakeChain answers ERC20 calls from in-memory state
type fakeChain struct {
	t        *testing.T
	erc20ABI abi.ABI

	mu              sync.Mutex
	decimals        uint8
	balance         *big.Int
	gasEstimate     uint64
	estimateErr     error
	receiptStatus   uint64
	receiptErr      error
	pendingReceipts int
	decimalsCalls   int
	sent            []*ethtypes.Transaction
}

func newFakeChain(t *testing.T) *fakeChain {
	parsed, err := abi.JSON(strings.NewReader(ERC20ABI))
	require.NoError(t, err)

	return &fakeChain{
		t:             t,
		erc20ABI:      parsed,
		decimals:      18,
		balance:       ToBaseUnits(1_000_000, 18),
		gasEstimate:   50_000,
		receiptStatus: ethtypes.ReceiptStatusSuccessful,
	}
}

func (f *fakeChain) CallContract(_ context.Context, call ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	method, err := f.erc20ABI.MethodById(call.Data[:4])
	require.NoError(f.t, err)

	switch method.Name {
	case "decimals":
		f.decimalsCalls++
		return method.Outputs.Pack(f.decimals)
	case "balanceOf":
		return method.Outputs.Pack(f.balance)
	}
	return nil, errors.New("unexpected call " + method.Name)
}

func (f *fakeChain) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return uint64(len(f.sent)), nil
}

func (f *fakeChain) SuggestGasPrice(context.Context) (*big.Int, error) {
	return big.NewInt(1_000_000), nil
}

func (f *fakeChain) EstimateGas(context.Context, ethereum.CallMsg) (uint64, error) {
	return f.gasEstimate, f.estimateErr
}

func (f *fakeChain) SendTransaction(_ context.Context, tx *ethtypes.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, tx)
	return nil
}

func (f *fakeChain) TransactionReceipt(context.Context, common.Hash) (*ethtypes.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pendingReceipts > 0 {
		f.pendingReceipts--
		return nil, ethereum.NotFound
	}
	if f.receiptErr != nil {
		return nil, f.receiptErr
	}
	return &ethtypes.Receipt{Status: f.receiptStatus}, nil
}

func newTestClient(t *testing.T, chain *fakeChain) *ERC20Client {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	client, err := newERC20Client(chain, Config{
		ChainID:         8453,
		PrivateKey:      hex.EncodeToString(crypto.FromECDSA(key)),
		TokenAddress:    testTokenAddress,
		TransferTimeout: time.Second,
	})
	require.NoError(t, err)
	client.pollInterval = 10 * time.Millisecond
	return client
}

func TestERC20Client_ValidateAddress(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, newFakeChain(t))

	tests := []struct {
		address string
		want    bool
	}{
		{testRecipient, true},
		{"0x6ab297799335E7b0f60d9e05439Df156cf694Ba7", true},
		{"0x123", false},
		{"not-an-address", false},
		{"", false},
	}

	for _, tt := range tests {
		tt := tt
		assert.Equal(t, tt.want, client.ValidateAddress(tt.address), tt.address)
	}
}

func TestERC20Client_SendTokens(t *testing.T) {
	t.Parallel()

	t.Run("success applies gas buffer", func(t *testing.T) {
		t.Parallel()

		chain := newFakeChain(t)
		chain.pendingReceipts = 2
		client := newTestClient(t, chain)

		result := client.SendTokens(context.Background(), testRecipient, 850)

		require.True(t, result.Success, result.Error)
		require.Len(t, chain.sent, 1)

		tx := chain.sent[0]
		assert.Equal(t, result.TxRef, tx.Hash().Hex())
		assert.Equal(t, uint64(60_000), tx.Gas())
		assert.Equal(t, common.HexToAddress(testTokenAddress), *tx.To())

		args, err := chain.erc20ABI.Methods["transfer"].Inputs.Unpack(tx.Data()[4:])
		require.NoError(t, err)
		assert.Equal(t, common.HexToAddress(testRecipient), args[0])
		assert.Equal(t, 0, ToBaseUnits(850, 18).Cmp(args[1].(*big.Int)))

		signer := ethtypes.NewEIP155Signer(big.NewInt(8453))
		from, err := ethtypes.Sender(signer, tx)
		require.NoError(t, err)
		assert.Equal(t, client.BotAddress(), from.Hex())
	})

	t.Run("insufficient balance", func(t *testing.T) {
		t.Parallel()

		chain := newFakeChain(t)
		chain.balance = ToBaseUnits(10, 18)
		client := newTestClient(t, chain)

		result := client.SendTokens(context.Background(), testRecipient, 11)

		assert.False(t, result.Success)
		assert.Contains(t, result.Error, "insufficient balance")
		assert.Empty(t, chain.sent)
	})

	t.Run("reverted transaction keeps hash", func(t *testing.T) {
		t.Parallel()

		chain := newFakeChain(t)
		chain.receiptStatus = ethtypes.ReceiptStatusFailed
		client := newTestClient(t, chain)

		result := client.SendTokens(context.Background(), testRecipient, 5)

		assert.False(t, result.Success)
		assert.Contains(t, result.Error, "reverted")
		assert.NotEmpty(t, result.TxRef)
	})

	t.Run("gas estimation failure", func(t *testing.T) {
		t.Parallel()

		chain := newFakeChain(t)
		chain.estimateErr = errors.New("execution reverted")
		client := newTestClient(t, chain)

		result := client.SendTokens(context.Background(), testRecipient, 5)

		assert.False(t, result.Success)
		assert.Contains(t, result.Error, "failed to estimate gas")
		assert.Empty(t, chain.sent)
	})

	t.Run("invalid recipient", func(t *testing.T) {
		t.Parallel()

		chain := newFakeChain(t)
		client := newTestClient(t, chain)

		result := client.SendTokens(context.Background(), "0xnope", 5)

		assert.False(t, result.Success)
		assert.Contains(t, result.Error, "invalid recipient address")
	})

	t.Run("receipt timeout", func(t *testing.T) {
		t.Parallel()

		chain := newFakeChain(t)
		chain.pendingReceipts = 1_000_000
		client := newTestClient(t, chain)
		client.transferTimeout = 50 * time.Millisecond

		result := client.SendTokens(context.Background(), testRecipient, 5)

		assert.False(t, result.Success)
		assert.Contains(t, result.Error, "timed out")
		assert.NotEmpty(t, result.TxRef)
	})
}

func TestERC20Client_TransferStatus(t *testing.T) {
	t.Parallel()

	txHash := "0x5e1c0f5a2b3d4e6f708192a3b4c5d6e7f8091a2b3c4d5e6f708192a3b4c5d6e7"

	tests := []struct {
		name        string
		setup       func(*fakeChain)
		txRef       string
		want        interfaces.TransferStatus
		errContains string
	}{
		{
			name:  "mined",
			setup: func(*fakeChain) {},
			txRef: txHash,
			want:  interfaces.TransferStatusConfirmed,
		},
		{
			name:  "reverted",
			setup: func(c *fakeChain) { c.receiptStatus = ethtypes.ReceiptStatusFailed },
			txRef: txHash,
			want:  interfaces.TransferStatusReverted,
		},
		{
			name:  "not yet mined",
			setup: func(c *fakeChain) { c.pendingReceipts = 1 },
			txRef: txHash,
			want:  interfaces.TransferStatusPending,
		},
		{
			name:        "rpc failure",
			setup:       func(c *fakeChain) { c.receiptErr = errors.New("connection refused") },
			txRef:       txHash,
			errContains: "failed to get receipt",
		},
		{
			name:        "malformed hash",
			setup:       func(*fakeChain) {},
			txRef:       "0xPENDING",
			errContains: "invalid transaction hash",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			chain := newFakeChain(t)
			tt.setup(chain)
			client := newTestClient(t, chain)

			status, err := client.TransferStatus(context.Background(), tt.txRef)
			if tt.errContains != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, status)
		})
	}
}

func TestERC20Client_DecimalsCached(t *testing.T) {
	t.Parallel()

	chain := newFakeChain(t)
	chain.decimals = 6
	client := newTestClient(t, chain)

	for i := 0; i < 3; i++ {
		decimals, err := client.Decimals(context.Background())
		require.NoError(t, err)
		assert.Equal(t, uint8(6), decimals)
	}
	assert.Equal(t, 1, chain.decimalsCalls)
}

func TestUnitConversion(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "1500000", ToBaseUnits(15, 5).String())
	assert.Equal(t, "12", ToBaseUnits(12, 0).String())
	assert.Equal(t, "2.5", FromBaseUnits(big.NewInt(2_500_000), 6).String())
}
