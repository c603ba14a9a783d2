package ledger

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Minimal ABIs for the RailPay contracts, matching the deployed
// RailPayTicket, RailPassSubscription and RailPayPayments interfaces.

const ticketABIJSON = `[
  {"type":"function","name":"mintTicket","stateMutability":"nonpayable","inputs":[
    {"name":"to","type":"address"},
    {"name":"routeId","type":"uint256"},
    {"name":"price","type":"uint256"},
    {"name":"travelTime","type":"uint64"},
    {"name":"seat","type":"string"}],"outputs":[]},
  {"type":"function","name":"validateTicket","stateMutability":"nonpayable","inputs":[
    {"name":"tokenId","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"ticketInfo","stateMutability":"view","inputs":[
    {"name":"tokenId","type":"uint256"}],"outputs":[
    {"name":"routeId","type":"uint256"},
    {"name":"price","type":"uint256"},
    {"name":"travelTime","type":"uint64"},
    {"name":"seat","type":"string"},
    {"name":"status","type":"uint8"}]},
  {"type":"event","name":"TicketMinted","inputs":[
    {"name":"tokenId","type":"uint256","indexed":true},
    {"name":"to","type":"address","indexed":true},
    {"name":"routeId","type":"uint256","indexed":false},
    {"name":"price","type":"uint256","indexed":false}],"anonymous":false},
  {"type":"event","name":"TicketValidated","inputs":[
    {"name":"tokenId","type":"uint256","indexed":true}],"anonymous":false}
]`

const passABIJSON = `[
  {"type":"function","name":"issuePass","stateMutability":"nonpayable","inputs":[
    {"name":"to","type":"address"},
    {"name":"passType","type":"uint8"},
    {"name":"durationSeconds","type":"uint64"}],"outputs":[]},
  {"type":"function","name":"isPassValid","stateMutability":"view","inputs":[
    {"name":"passId","type":"uint256"}],"outputs":[
    {"name":"","type":"bool"}]},
  {"type":"event","name":"PassIssued","inputs":[
    {"name":"passId","type":"uint256","indexed":true},
    {"name":"owner","type":"address","indexed":true},
    {"name":"passType","type":"uint8","indexed":false},
    {"name":"expiresAt","type":"uint64","indexed":false}],"anonymous":false}
]`

const paymentsABIJSON = `[
  {"type":"function","name":"payForTicket","stateMutability":"payable","inputs":[
    {"name":"ticketId","type":"uint256"},
    {"name":"reference","type":"bytes32"},
    {"name":"amount","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"payForPass","stateMutability":"payable","inputs":[
    {"name":"passType","type":"uint8"},
    {"name":"reference","type":"bytes32"},
    {"name":"amount","type":"uint256"}],"outputs":[]},
  {"type":"event","name":"PaymentMade","inputs":[
    {"name":"payer","type":"address","indexed":true},
    {"name":"amount","type":"uint256","indexed":false},
    {"name":"msgValue","type":"uint256","indexed":false},
    {"name":"ticketId","type":"uint256","indexed":true},
    {"name":"receiptId","type":"uint256","indexed":true}],"anonymous":false},
  {"type":"event","name":"PassPaymentMade","inputs":[
    {"name":"payer","type":"address","indexed":true},
    {"name":"amount","type":"uint256","indexed":false},
    {"name":"msgValue","type":"uint256","indexed":false},
    {"name":"passType","type":"uint8","indexed":false},
    {"name":"receiptId","type":"uint256","indexed":true}],"anonymous":false}
]`

var (
	ticketABI   = mustParseABI(ticketABIJSON)
	passABI     = mustParseABI(passABIJSON)
	paymentsABI = mustParseABI(paymentsABIJSON)
)

func mustParseABI(s string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic(err)
	}
	return parsed
}
