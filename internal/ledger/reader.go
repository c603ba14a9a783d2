package ledger

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Reader is the read-only ledger client. It carries no signer and is used
// exclusively for historical event queries, view calls, and re-deriving
// the outcome of already-mined transactions. It can never submit a
// state-changing call.
type Reader struct {
	*contracts
}

// NewReader dials the chain endpoint without a signer.
func NewReader(ctx context.Context, cfg Config) (*Reader, error) {
	c, err := dialContracts(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Reader{contracts: c}, nil
}

// Close releases the underlying RPC connection.
func (r *Reader) Close() {
	r.eth.Close()
}

// BlockNumber returns the current chain head height.
func (r *Reader) BlockNumber(ctx context.Context) (uint64, error) {
	head, err := r.eth.BlockNumber(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: block number: %v", ErrLedgerUnavailable, err)
	}
	return head, nil
}

func (r *Reader) filterLogs(ctx context.Context, addr common.Address, topic common.Hash, fromBlock, toBlock uint64) ([]types.Log, error) {
	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Addresses: []common.Address{addr},
		Topics:    [][]common.Hash{{topic}},
	}
	logs, err := r.eth.FilterLogs(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: filter logs: %v", ErrLedgerUnavailable, err)
	}
	return logs, nil
}

// FilterTicketMinted returns TicketMinted events in [fromBlock, toBlock],
// in block order as returned by the chain query.
func (r *Reader) FilterTicketMinted(ctx context.Context, fromBlock, toBlock uint64) ([]TicketMintedEvent, error) {
	logs, err := r.filterLogs(ctx, r.addrs.ticket, ticketABI.Events["TicketMinted"].ID, fromBlock, toBlock)
	if err != nil {
		return nil, err
	}
	events := make([]TicketMintedEvent, 0, len(logs))
	for _, lg := range logs {
		var out TicketMintedEvent
		if err := r.ticket.UnpackLog(&out, "TicketMinted", lg); err != nil {
			continue
		}
		out.Raw = lg
		events = append(events, out)
	}
	return events, nil
}

// FilterTicketValidated returns TicketValidated events in [fromBlock, toBlock].
func (r *Reader) FilterTicketValidated(ctx context.Context, fromBlock, toBlock uint64) ([]TicketValidatedEvent, error) {
	logs, err := r.filterLogs(ctx, r.addrs.ticket, ticketABI.Events["TicketValidated"].ID, fromBlock, toBlock)
	if err != nil {
		return nil, err
	}
	events := make([]TicketValidatedEvent, 0, len(logs))
	for _, lg := range logs {
		var out TicketValidatedEvent
		if err := r.ticket.UnpackLog(&out, "TicketValidated", lg); err != nil {
			continue
		}
		out.Raw = lg
		events = append(events, out)
	}
	return events, nil
}

// FilterPassIssued returns PassIssued events in [fromBlock, toBlock].
func (r *Reader) FilterPassIssued(ctx context.Context, fromBlock, toBlock uint64) ([]PassIssuedEvent, error) {
	logs, err := r.filterLogs(ctx, r.addrs.pass, passABI.Events["PassIssued"].ID, fromBlock, toBlock)
	if err != nil {
		return nil, err
	}
	events := make([]PassIssuedEvent, 0, len(logs))
	for _, lg := range logs {
		var out PassIssuedEvent
		if err := r.pass.UnpackLog(&out, "PassIssued", lg); err != nil {
			continue
		}
		out.Raw = lg
		events = append(events, out)
	}
	return events, nil
}

// FilterPaymentMade returns PaymentMade events in [fromBlock, toBlock].
func (r *Reader) FilterPaymentMade(ctx context.Context, fromBlock, toBlock uint64) ([]PaymentMadeEvent, error) {
	logs, err := r.filterLogs(ctx, r.addrs.payments, paymentsABI.Events["PaymentMade"].ID, fromBlock, toBlock)
	if err != nil {
		return nil, err
	}
	events := make([]PaymentMadeEvent, 0, len(logs))
	for _, lg := range logs {
		var out PaymentMadeEvent
		if err := r.payments.UnpackLog(&out, "PaymentMade", lg); err != nil {
			continue
		}
		out.Raw = lg
		events = append(events, out)
	}
	return events, nil
}

// FilterPassPaymentMade returns PassPaymentMade events in [fromBlock, toBlock].
func (r *Reader) FilterPassPaymentMade(ctx context.Context, fromBlock, toBlock uint64) ([]PassPaymentMadeEvent, error) {
	logs, err := r.filterLogs(ctx, r.addrs.payments, paymentsABI.Events["PassPaymentMade"].ID, fromBlock, toBlock)
	if err != nil {
		return nil, err
	}
	events := make([]PassPaymentMadeEvent, 0, len(logs))
	for _, lg := range logs {
		var out PassPaymentMadeEvent
		if err := r.payments.UnpackLog(&out, "PassPaymentMade", lg); err != nil {
			continue
		}
		out.Raw = lg
		events = append(events, out)
	}
	return events, nil
}

// IsPassValid calls the pass contract's view function.
func (r *Reader) IsPassValid(ctx context.Context, passID uint64) (bool, error) {
	var out []interface{}
	err := r.pass.Call(&bind.CallOpts{Context: ctx}, &out, "isPassValid", new(big.Int).SetUint64(passID))
	if err != nil {
		return false, fmt.Errorf("%w: isPassValid: %v", ErrLedgerUnavailable, err)
	}
	if len(out) != 1 {
		return false, fmt.Errorf("%w: isPassValid: unexpected result arity", ErrLedgerUnavailable)
	}
	valid, ok := out[0].(bool)
	if !ok {
		return false, fmt.Errorf("%w: isPassValid: unexpected result type", ErrLedgerUnavailable)
	}
	return valid, nil
}

// TransactionEvents re-derives the on-chain-assigned identifiers from an
// already-mined settlement transaction. Used by the persist-retry path so
// a retry never resubmits to the ledger.
func (r *Reader) TransactionEvents(ctx context.Context, txHash common.Hash) (*Confirmation, error) {
	receipt, err := r.eth.TransactionReceipt(ctx, txHash)
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return nil, fmt.Errorf("%w: %s", ErrTxNotFound, txHash)
		}
		return nil, fmt.Errorf("%w: receipt %s: %v", ErrLedgerUnavailable, txHash, err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, fmt.Errorf("%w: tx %s reverted", ErrLedgerRejected, txHash)
	}
	return &Confirmation{
		TxHash:      txHash,
		BlockNumber: receipt.BlockNumber.Uint64(),
		Events:      r.decodeLogs(receipt.Logs),
	}, nil
}
