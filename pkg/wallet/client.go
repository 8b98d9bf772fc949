package wallet

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
)

const polygonUSDC = "0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174"

const usdcDecimals = 1e6

// Client reads token balances and allowances from the chain. It is
// the precondition source for buy orders: balance and allowance are
// checked here before anything gets signed.
type Client struct {
	rpcURL string
	logger *zap.Logger
}

// Balances holds the USDC balance and the allowance granted to each
// requested spender, both in whole USD.
type Balances struct {
	USDC       float64
	Allowances map[string]float64 // spender address -> allowance
}

// NewClient creates a new wallet client.
func NewClient(rpcURL string, logger *zap.Logger) (*Client, error) {
	if rpcURL == "" {
		return nil, errors.New("rpcURL cannot be empty")
	}

	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	return &Client{
		rpcURL: rpcURL,
		logger: logger,
	}, nil
}

// GetBalances fetches the USDC balance of owner and its allowance for
// every spender in spenders.
func (c *Client) GetBalances(ctx context.Context, owner common.Address, spenders []string) (*Balances, error) {
	client, err := ethclient.DialContext(ctx, c.rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial RPC: %w", err)
	}
	defer client.Close()

	usdcBalance, err := c.getERC20Balance(ctx, client, owner, polygonUSDC)
	if err != nil {
		return nil, fmt.Errorf("get USDC balance: %w", err)
	}

	balances := &Balances{
		USDC:       rawToUSD(usdcBalance),
		Allowances: make(map[string]float64, len(spenders)),
	}

	for _, spender := range spenders {
		allowance, err := c.getERC20Allowance(ctx, client, owner, polygonUSDC, spender)
		if err != nil {
			return nil, fmt.Errorf("get USDC allowance for %s: %w", spender, err)
		}

		balances.Allowances[spender] = rawToUSD(allowance)
	}

	USDCBalanceGauge.Set(balances.USDC)

	return balances, nil
}

// getERC20Balance fetches an ERC20 token balance for an address.
func (c *Client) getERC20Balance(
	ctx context.Context,
	client *ethclient.Client,
	owner common.Address,
	tokenAddr string,
) (*big.Int, error) {
	balanceOfABI := `[{"constant":true,"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"type":"function"}]`

	parsedABI, err := abi.JSON(strings.NewReader(balanceOfABI))
	if err != nil {
		return nil, fmt.Errorf("parse ABI: %w", err)
	}

	data, err := parsedABI.Pack("balanceOf", owner)
	if err != nil {
		return nil, fmt.Errorf("pack ABI: %w", err)
	}

	tokenAddress := common.HexToAddress(tokenAddr)
	msg := ethereum.CallMsg{
		To:   &tokenAddress,
		Data: data,
	}

	result, err := client.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, fmt.Errorf("call contract: %w", err)
	}

	return new(big.Int).SetBytes(result), nil
}

// getERC20Allowance fetches an ERC20 token allowance.
func (c *Client) getERC20Allowance(
	ctx context.Context,
	client *ethclient.Client,
	owner common.Address,
	tokenAddr string,
	spender string,
) (*big.Int, error) {
	allowanceABI := `[{"constant":true,"inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"name":"allowance","outputs":[{"name":"","type":"uint256"}],"type":"function"}]`

	parsedABI, err := abi.JSON(strings.NewReader(allowanceABI))
	if err != nil {
		return nil, fmt.Errorf("parse ABI: %w", err)
	}

	data, err := parsedABI.Pack("allowance", owner, common.HexToAddress(spender))
	if err != nil {
		return nil, fmt.Errorf("pack ABI: %w", err)
	}

	tokenAddress := common.HexToAddress(tokenAddr)
	msg := ethereum.CallMsg{
		To:   &tokenAddress,
		Data: data,
	}

	result, err := client.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, fmt.Errorf("call contract: %w", err)
	}

	return new(big.Int).SetBytes(result), nil
}

func rawToUSD(raw *big.Int) float64 {
	f, _ := new(big.Float).Quo(new(big.Float).SetInt(raw), big.NewFloat(usdcDecimals)).Float64()
	return f
}
