// Package client wraps an exchange connection: the transport API, account
// state, the currency-dependent betting minimums, and the execution routing
// for orders placed through it.
package client

import (
	"context"

	"github.com/yanun0323/logs"

	"github.com/vincentmele/flumine/internal/errors"
	"github.com/vincentmele/flumine/internal/order"
	"github.com/vincentmele/flumine/internal/resources"
)

// API is the exchange transport surface the framework depends on.
type API interface {
	Login(ctx context.Context) error
	KeepAlive(ctx context.Context) error
	Logout(ctx context.Context) error

	// SubmitOrderPackage executes a place, cancel, update or replace batch
	// and returns the exchange's view of the affected orders.
	SubmitOrderPackage(ctx context.Context, pkg *order.Package) ([]resources.CurrentOrder, error)

	CurrentOrders(ctx context.Context) (*resources.CurrentOrders, error)
	ClearedOrders(ctx context.Context, marketID string) (*resources.ClearedOrders, error)
	ClearedMarkets(ctx context.Context) (*resources.ClearedMarkets, error)
	MarketCatalogue(ctx context.Context, marketIDs []string) ([]*resources.MarketCatalogue, error)
	AccountDetails(ctx context.Context) (*resources.AccountDetails, error)
	AccountFunds(ctx context.Context) (*resources.AccountFunds, error)
}

// Client is one exchange account. Paper routes orders to simulated execution
// while still consuming the live feed; Backtest additionally replaces the
// feed with recorded data.
type Client struct {
	API   API
	Paper bool

	// Execution is wired by the engine when the client is added: simulated
	// for paper and backtest clients, live otherwise.
	Execution order.ExecutionClient

	AccountDetails *resources.AccountDetails
	AccountFunds   *resources.AccountFunds
}

// New creates a live trading client around an exchange transport.
func New(api API) *Client {
	return &Client{API: api}
}

// NewPaper creates a client that consumes the live feed but simulates its
// order flow.
func NewPaper(api API) *Client {
	return &Client{API: api, Paper: true}
}

// NewBacktest creates a feedless client for replaying recorded data.
func NewBacktest() *Client {
	return &Client{Paper: true}
}

// Login authenticates the session.
func (c *Client) Login(ctx context.Context) error {
	if c.API == nil {
		return nil
	}
	if err := c.API.Login(ctx); err != nil {
		return errors.Wrap(err, "login")
	}
	logs.Info("client logged in")
	return nil
}

// KeepAlive extends the session.
func (c *Client) KeepAlive(ctx context.Context) error {
	if c.API == nil {
		return nil
	}
	return errors.Wrap(c.API.KeepAlive(ctx), "keep alive")
}

// Logout ends the session.
func (c *Client) Logout(ctx context.Context) error {
	if c.API == nil {
		return nil
	}
	if err := c.API.Logout(ctx); err != nil {
		return errors.Wrap(err, "logout")
	}
	logs.Info("client logged out")
	return nil
}

// UpdateAccountDetails refreshes the cached account details and funds.
func (c *Client) UpdateAccountDetails(ctx context.Context) error {
	if c.API == nil {
		return nil
	}
	details, err := c.API.AccountDetails(ctx)
	if err != nil {
		return errors.Wrap(err, "account details")
	}
	funds, err := c.API.AccountFunds(ctx)
	if err != nil {
		return errors.Wrap(err, "account funds")
	}
	c.AccountDetails = details
	c.AccountFunds = funds
	return nil
}

func (c *Client) currency() string {
	if c.AccountDetails == nil {
		return ""
	}
	return c.AccountDetails.CurrencyCode
}

var minBetSizes = map[string]float64{
	"GBP": 1, "EUR": 1, "USD": 2, "AUD": 3,
	"CAD": 2.5, "DKK": 10, "HKD": 15, "NOK": 10,
	"SEK": 15, "SGD": 4, "RON": 5, "NZD": 3,
}

var minBetPayouts = map[string]float64{
	"GBP": 10, "EUR": 10, "USD": 20, "AUD": 30,
	"CAD": 25, "DKK": 100, "HKD": 125, "NOK": 100,
	"SEK": 150, "SGD": 30, "RON": 50, "NZD": 30,
}

var minBSPLiabilities = map[string]float64{
	"GBP": 10, "EUR": 10, "USD": 20, "AUD": 30,
	"CAD": 30, "DKK": 150, "HKD": 170, "NOK": 150,
	"SEK": 200, "SGD": 35, "NZD": 30,
}

// MinBetSize is the exchange minimum stake for the account currency.
func (c *Client) MinBetSize() float64 {
	if v, ok := minBetSizes[c.currency()]; ok {
		return v
	}
	return 2
}

// MinBetPayout is the minimum price*size for below-minimum stakes.
func (c *Client) MinBetPayout() float64 {
	if v, ok := minBetPayouts[c.currency()]; ok {
		return v
	}
	return 10
}

// MinBSPLiability is the minimum liability for on-close orders.
func (c *Client) MinBSPLiability() float64 {
	if v, ok := minBSPLiabilities[c.currency()]; ok {
		return v
	}
	return 10
}

// Execute forwards an order package to the client's execution subsystem.
func (c *Client) Execute(pkg *order.Package) error {
	if c.Execution == nil {
		return errors.New("client has no execution wired")
	}
	return c.Execution.Execute(pkg)
}
