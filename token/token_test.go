package token_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/payroll-ledger/payroll"
	"github.com/warp/payroll-ledger/token"
)

const (
	owner   = payroll.Address("owner")
	spender = payroll.Address("spender")
	other   = payroll.Address("other")
)

func amt(n int64) payroll.Amount { return payroll.NewAmount(n) }

func TestMint_IncreasesBalanceAndSupply(t *testing.T) {
	tok := token.NewMemory()
	require.NoError(t, tok.Mint(owner, amt(100)))
	require.NoError(t, tok.Mint(other, amt(50)))

	assert.True(t, tok.BalanceOf(owner).Equal(amt(100)))
	assert.True(t, tok.TotalSupply().Equal(amt(150)))

	assert.ErrorIs(t, tok.Mint(payroll.ZeroAddress, amt(1)), token.ErrZeroAddress)
}

func TestTransfer_Guards(t *testing.T) {
	tok := token.NewMemory()
	require.NoError(t, tok.Mint(owner, amt(100)))

	require.NoError(t, tok.Transfer(owner, other, amt(60)))
	assert.True(t, tok.BalanceOf(owner).Equal(amt(40)))
	assert.True(t, tok.BalanceOf(other).Equal(amt(60)))

	// Balance guard: conservation means supply never changes on failure.
	assert.ErrorIs(t, tok.Transfer(owner, other, amt(41)), token.ErrInsufficientBalance)
	assert.ErrorIs(t, tok.Transfer(owner, payroll.ZeroAddress, amt(1)), token.ErrZeroAddress)
	assert.True(t, tok.TotalSupply().Equal(amt(100)))
}

func TestTransferFrom_ConsumesAllowance(t *testing.T) {
	tok := token.NewMemory()
	require.NoError(t, tok.Mint(owner, amt(100)))

	// No approval yet.
	assert.ErrorIs(t, tok.TransferFrom(spender, owner, other, amt(10)), token.ErrInsufficientAllowance)

	require.NoError(t, tok.Approve(owner, spender, amt(30)))
	require.NoError(t, tok.TransferFrom(spender, owner, other, amt(20)))
	assert.True(t, tok.Allowance(owner, spender).Equal(amt(10)))

	// Allowance guard binds even while the balance would cover it.
	assert.ErrorIs(t, tok.TransferFrom(spender, owner, other, amt(11)), token.ErrInsufficientAllowance)
}

func TestHolding_ImplementsTransferor(t *testing.T) {
	tok := token.NewMemory()
	require.NoError(t, tok.Mint(owner, amt(100)))
	require.NoError(t, tok.Mint(other, amt(100)))
	require.NoError(t, tok.Approve(other, owner, amt(100)))

	h := token.Bind(tok, owner)
	ctx := context.Background()

	// Transfer pays out of the bound account.
	require.NoError(t, h.Transfer(ctx, spender, amt(25)))
	assert.True(t, tok.BalanceOf(owner).Equal(amt(75)))

	// TransferFrom spends on the bound account's authority.
	require.NoError(t, h.TransferFrom(ctx, other, owner, amt(40)))
	assert.True(t, tok.BalanceOf(owner).Equal(amt(115)))
	assert.True(t, tok.Allowance(other, owner).Equal(amt(60)))
}
