// Package ledger wraps the on-chain RailPay contracts behind a small
// client surface: one blockchain write or read per call, no batching,
// no retries. Retry policy belongs to the settlement coordinator because
// blind retry of a write risks double-minting.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Config carries the explicit connection and signing configuration for a
// ledger client. No process-wide singletons; callers construct clients
// from this object.
type Config struct {
	RPCURL           string
	PrivateKey       string // hex, optional for read-only use
	ChainID          int64
	TicketContract   common.Address
	PassContract     common.Address
	PaymentsContract common.Address
	ConfirmDepth     uint64
	ConfirmTimeout   time.Duration
}

// contracts holds the bound contract handles shared by Client and Reader.
type contracts struct {
	eth      *ethclient.Client
	ticket   *bind.BoundContract
	pass     *bind.BoundContract
	payments *bind.BoundContract
	addrs    struct {
		ticket   common.Address
		pass     common.Address
		payments common.Address
	}
}

func dialContracts(ctx context.Context, cfg Config) (*contracts, error) {
	eth, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %v", ErrLedgerUnavailable, cfg.RPCURL, err)
	}

	c := &contracts{eth: eth}
	c.addrs.ticket = cfg.TicketContract
	c.addrs.pass = cfg.PassContract
	c.addrs.payments = cfg.PaymentsContract
	c.ticket = bind.NewBoundContract(cfg.TicketContract, ticketABI, eth, eth, eth)
	c.pass = bind.NewBoundContract(cfg.PassContract, passABI, eth, eth, eth)
	c.payments = bind.NewBoundContract(cfg.PaymentsContract, paymentsABI, eth, eth, eth)
	return c, nil
}

// TxHandle references a submitted but not necessarily confirmed transaction.
type TxHandle struct {
	Hash common.Hash
	tx   *types.Transaction
}

// Confirmation is the result of waiting out the configured confirmation
// depth for a submitted transaction. The on-chain-assigned identifiers are
// decoded from the mined receipt's logs rather than inferred from a
// subsequent counter read, so they are race-free under concurrent
// submissions from the same operator wallet.
type Confirmation struct {
	TxHash      common.Hash
	BlockNumber uint64
	Events      MinedEvents
}

// Client is the signer-backed ledger client. Every write is an
// irreversible, fee-consuming network transaction.
type Client struct {
	*contracts
	auth           *bind.TransactOpts
	confirmDepth   uint64
	confirmTimeout time.Duration
}

// NewClient dials the chain endpoint and prepares a signing client.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.PrivateKey == "" {
		return nil, errors.New("ledger: signing client requires a private key")
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("ledger: parse private key: %w", err)
	}

	auth, err := bind.NewKeyedTransactorWithChainID(key, big.NewInt(cfg.ChainID))
	if err != nil {
		return nil, fmt.Errorf("ledger: build transactor: %w", err)
	}

	c, err := dialContracts(ctx, cfg)
	if err != nil {
		return nil, err
	}

	depth := cfg.ConfirmDepth
	if depth == 0 {
		depth = 1
	}
	timeout := cfg.ConfirmTimeout
	if timeout == 0 {
		timeout = 90 * time.Second
	}

	return &Client{
		contracts:      c,
		auth:           auth,
		confirmDepth:   depth,
		confirmTimeout: timeout,
	}, nil
}

// Close releases the underlying RPC connection.
func (c *Client) Close() {
	c.eth.Close()
}

// OperatorAddress returns the signer's address.
func (c *Client) OperatorAddress() common.Address {
	return c.auth.From
}

func (c *Client) txOpts(ctx context.Context) *bind.TransactOpts {
	opts := *c.auth
	opts.Context = ctx
	return &opts
}

// MintTicket submits a mintTicket transaction for the given owner.
func (c *Client) MintTicket(ctx context.Context, owner common.Address, routeID, price *big.Int, travelTime uint64, seat string) (*TxHandle, error) {
	tx, err := c.ticket.Transact(c.txOpts(ctx), "mintTicket", owner, routeID, price, travelTime, seat)
	if err != nil {
		return nil, classifySubmitErr(err)
	}
	return &TxHandle{Hash: tx.Hash(), tx: tx}, nil
}

// ValidateTicket submits a validateTicket transaction. The contract
// enforces at-most-once validation; a second call reverts.
func (c *Client) ValidateTicket(ctx context.Context, tokenID *big.Int) (*TxHandle, error) {
	tx, err := c.ticket.Transact(c.txOpts(ctx), "validateTicket", tokenID)
	if err != nil {
		err = classifySubmitErr(err)
		if errors.Is(err, ErrLedgerRejected) && strings.Contains(strings.ToLower(err.Error()), "already") {
			return nil, fmt.Errorf("%w: token %s", ErrAlreadyValidated, tokenID)
		}
		return nil, err
	}
	return &TxHandle{Hash: tx.Hash(), tx: tx}, nil
}

// IssuePass submits an issuePass transaction for the given owner.
func (c *Client) IssuePass(ctx context.Context, owner common.Address, passType uint8, durationSeconds uint64) (*TxHandle, error) {
	tx, err := c.pass.Transact(c.txOpts(ctx), "issuePass", owner, passType, durationSeconds)
	if err != nil {
		return nil, classifySubmitErr(err)
	}
	return &TxHandle{Hash: tx.Hash(), tx: tx}, nil
}

// PayForTicket submits a payForTicket transaction with the given
// bytes32 payment reference.
func (c *Client) PayForTicket(ctx context.Context, ticketID *big.Int, reference [32]byte, amount *big.Int) (*TxHandle, error) {
	tx, err := c.payments.Transact(c.txOpts(ctx), "payForTicket", ticketID, reference, amount)
	if err != nil {
		return nil, classifySubmitErr(err)
	}
	return &TxHandle{Hash: tx.Hash(), tx: tx}, nil
}

// PayForPass submits a payForPass transaction with the given
// bytes32 payment reference.
func (c *Client) PayForPass(ctx context.Context, passType uint8, reference [32]byte, amount *big.Int) (*TxHandle, error) {
	tx, err := c.payments.Transact(c.txOpts(ctx), "payForPass", passType, reference, amount)
	if err != nil {
		return nil, classifySubmitErr(err)
	}
	return &TxHandle{Hash: tx.Hash(), tx: tx}, nil
}

// Confirm blocks until the transaction reaches the configured confirmation
// depth or the bounded wait expires. This is the single suspension point
// in the settlement protocol.
func (c *Client) Confirm(ctx context.Context, handle *TxHandle) (*Confirmation, error) {
	ctx, cancel := context.WithTimeout(ctx, c.confirmTimeout)
	defer cancel()

	receipt, err := bind.WaitMined(ctx, c.eth, handle.tx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: tx %s", ErrLedgerTimeout, handle.Hash)
		}
		return nil, fmt.Errorf("%w: wait mined: %v", ErrLedgerUnavailable, err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, fmt.Errorf("%w: tx %s reverted", ErrLedgerRejected, handle.Hash)
	}

	if err := c.waitDepth(ctx, receipt.BlockNumber.Uint64()); err != nil {
		return nil, err
	}

	return &Confirmation{
		TxHash:      handle.Hash,
		BlockNumber: receipt.BlockNumber.Uint64(),
		Events:      c.decodeLogs(receipt.Logs),
	}, nil
}

// waitDepthAt polls head height until minedBlock has depth blocks on top
// of it (depth 1 means the mined block itself suffices).
func (c *contracts) waitDepthAt(ctx context.Context, minedBlock, depth uint64) error {
	if depth <= 1 {
		return nil
	}
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
	for {
		head, err := c.eth.BlockNumber(ctx)
		if err != nil {
			return fmt.Errorf("%w: block number: %v", ErrLedgerUnavailable, err)
		}
		if head >= minedBlock+depth-1 {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: waiting for depth %d", ErrLedgerTimeout, depth)
		case <-ticker.C:
		}
	}
}

func (c *Client) waitDepth(ctx context.Context, minedBlock uint64) error {
	return c.waitDepthAt(ctx, minedBlock, c.confirmDepth)
}

// decodeLogs extracts the settlement-relevant events from a receipt's logs.
func (c *contracts) decodeLogs(logs []*types.Log) MinedEvents {
	var ev MinedEvents
	for _, lg := range logs {
		if lg == nil || len(lg.Topics) == 0 {
			continue
		}
		switch {
		case lg.Address == c.addrs.ticket && lg.Topics[0] == ticketABI.Events["TicketMinted"].ID:
			var out TicketMintedEvent
			if err := c.ticket.UnpackLog(&out, "TicketMinted", *lg); err == nil {
				out.Raw = *lg
				ev.TicketMinted = &out
			}
		case lg.Address == c.addrs.ticket && lg.Topics[0] == ticketABI.Events["TicketValidated"].ID:
			var out TicketValidatedEvent
			if err := c.ticket.UnpackLog(&out, "TicketValidated", *lg); err == nil {
				out.Raw = *lg
				ev.TicketValidated = &out
			}
		case lg.Address == c.addrs.pass && lg.Topics[0] == passABI.Events["PassIssued"].ID:
			var out PassIssuedEvent
			if err := c.pass.UnpackLog(&out, "PassIssued", *lg); err == nil {
				out.Raw = *lg
				ev.PassIssued = &out
			}
		case lg.Address == c.addrs.payments && lg.Topics[0] == paymentsABI.Events["PaymentMade"].ID:
			var out PaymentMadeEvent
			if err := c.payments.UnpackLog(&out, "PaymentMade", *lg); err == nil {
				out.Raw = *lg
				ev.PaymentMade = &out
			}
		case lg.Address == c.addrs.payments && lg.Topics[0] == paymentsABI.Events["PassPaymentMade"].ID:
			var out PassPaymentMadeEvent
			if err := c.payments.UnpackLog(&out, "PassPaymentMade", *lg); err == nil {
				out.Raw = *lg
				ev.PassPaymentMade = &out
			}
		}
	}
	return ev
}

func classifySubmitErr(err error) error {
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "revert") || strings.Contains(msg, "invalid opcode") {
		return fmt.Errorf("%w: %v", ErrLedgerRejected, err)
	}
	return fmt.Errorf("%w: %v", ErrLedgerUnavailable, err)
}
