package ledger

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// TicketMintedEvent mirrors the TicketMinted contract event.
type TicketMintedEvent struct {
	TokenId *big.Int
	To      common.Address
	RouteId *big.Int
	Price   *big.Int
	Raw     types.Log
}

// TicketValidatedEvent mirrors the TicketValidated contract event.
type TicketValidatedEvent struct {
	TokenId *big.Int
	Raw     types.Log
}

// PassIssuedEvent mirrors the PassIssued contract event.
type PassIssuedEvent struct {
	PassId    *big.Int
	Owner     common.Address
	PassType  uint8
	ExpiresAt uint64
	Raw       types.Log
}

// PaymentMadeEvent mirrors the PaymentMade contract event.
type PaymentMadeEvent struct {
	Payer     common.Address
	Amount    *big.Int
	MsgValue  *big.Int
	TicketId  *big.Int
	ReceiptId *big.Int
	Raw       types.Log
}

// PassPaymentMadeEvent mirrors the PassPaymentMade contract event.
type PassPaymentMadeEvent struct {
	Payer     common.Address
	Amount    *big.Int
	MsgValue  *big.Int
	PassType  uint8
	ReceiptId *big.Int
	Raw       types.Log
}

// MinedEvents holds the settlement-relevant events decoded from one mined
// transaction's logs. At most one of each kind appears per settlement.
type MinedEvents struct {
	TicketMinted    *TicketMintedEvent
	TicketValidated *TicketValidatedEvent
	PassIssued      *PassIssuedEvent
	PaymentMade     *PaymentMadeEvent
	PassPaymentMade *PassPaymentMadeEvent
}
