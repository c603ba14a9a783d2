package service

import (
	"context"
	"errors"
	"log"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"railpay/internal/domain"
	"railpay/internal/idmap"
	"railpay/internal/ledger"
	"railpay/internal/redis"
	"railpay/internal/repository"
)

// Ledger is the write-side ledger surface used by settlements. Implemented
// by ledger.Client; mocked in tests.
type Ledger interface {
	MintTicket(ctx context.Context, owner common.Address, routeID, price *big.Int, travelTime uint64, seat string) (*ledger.TxHandle, error)
	ValidateTicket(ctx context.Context, tokenID *big.Int) (*ledger.TxHandle, error)
	IssuePass(ctx context.Context, owner common.Address, passType uint8, durationSeconds uint64) (*ledger.TxHandle, error)
	PayForTicket(ctx context.Context, ticketID *big.Int, reference [32]byte, amount *big.Int) (*ledger.TxHandle, error)
	PayForPass(ctx context.Context, passType uint8, reference [32]byte, amount *big.Int) (*ledger.TxHandle, error)
	Confirm(ctx context.Context, handle *ledger.TxHandle) (*ledger.Confirmation, error)
}

// LedgerReader is the read-side ledger surface used for recovery and for
// the pass validity view. Implemented by ledger.Reader; mocked in tests.
type LedgerReader interface {
	TransactionEvents(ctx context.Context, txHash common.Hash) (*ledger.Confirmation, error)
	IsPassValid(ctx context.Context, passID uint64) (bool, error)
}

// SettlementService coordinates the write-through settlement protocol:
// preconditions, ledger submit, confirmation, then the off-chain mirror
// write. A ledger failure at any point before confirmation aborts with no
// off-chain record. A persist failure after confirmation is surfaced as
// PersistFailedError and recovered by re-persisting, never resubmitting.
type SettlementService struct {
	ledger      Ledger
	reader      LedgerReader
	ticketRepo  repository.TicketRepository
	passRepo    repository.PassRepository
	paymentRepo repository.PaymentRepository
	profileRepo repository.ProfileRepository
	routeRepo   repository.RouteRepository
	cacheStore  *redis.CacheStore
	mapper      *idmap.Mapper
	currency    string
}

// SettlementConfig carries the explicit construction parameters for a
// SettlementService.
type SettlementConfig struct {
	Currency string // ISO code recorded on payments, e.g. "ETH"
}

// NewSettlementService creates a new SettlementService.
func NewSettlementService(
	lg Ledger,
	reader LedgerReader,
	ticketRepo repository.TicketRepository,
	passRepo repository.PassRepository,
	paymentRepo repository.PaymentRepository,
	profileRepo repository.ProfileRepository,
	routeRepo repository.RouteRepository,
	cacheStore *redis.CacheStore,
	cfg SettlementConfig,
) *SettlementService {
	currency := cfg.Currency
	if currency == "" {
		currency = "ETH"
	}
	return &SettlementService{
		ledger:      lg,
		reader:      reader,
		ticketRepo:  ticketRepo,
		passRepo:    passRepo,
		paymentRepo: paymentRepo,
		profileRepo: profileRepo,
		routeRepo:   routeRepo,
		cacheStore:  cacheStore,
		mapper:      idmap.NewMapper(),
		currency:    currency,
	}
}

// SeedRouteMappings registers every known route id with the collision
// mapper, so a pre-existing distinct mapping is surfaced at startup
// rather than discovered mid-settlement. Called once after construction.
func (s *SettlementService) SeedRouteMappings(ctx context.Context) error {
	routes, err := s.routeRepo.List(ctx, false)
	if err != nil {
		return err
	}
	ids := make([]uuid.UUID, 0, len(routes))
	for _, route := range routes {
		routeUUID, err := uuid.Parse(route.ID)
		if err != nil {
			continue
		}
		ids = append(ids, routeUUID)
	}
	return s.mapper.MapAll(ids)
}

// settleProfile loads the buyer's profile and enforces the hard
// settlement preconditions.
func (s *SettlementService) settleProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	if userID == "" {
		return nil, ErrInvalidUserID
	}
	profile, err := s.profileRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if profile.Verification == domain.VerificationUnverified {
		return nil, ErrProfileNotVerified
	}
	if profile.WalletAddress == "" {
		return nil, ErrNoWalletAddress
	}
	return profile, nil
}

// BuyTicketRequest contains the parameters for a ticket purchase.
type BuyTicketRequest struct {
	UserID     string
	RouteID    string
	SeatNumber string
	TicketType domain.TicketType
	TravelAt   time.Time
}

// BuyTicket runs the full ticket settlement: preconditions, on-chain mint,
// confirmation, then the off-chain mirror row keyed by the token id the
// ledger assigned in the mined receipt.
func (s *SettlementService) BuyTicket(ctx context.Context, req BuyTicketRequest) (*domain.Ticket, error) {
	profile, err := s.settleProfile(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if req.RouteID == "" {
		return nil, ErrInvalidRouteID
	}

	route, err := s.routeRepo.GetByID(ctx, req.RouteID)
	if err != nil {
		return nil, err
	}
	if !route.Active {
		return nil, ErrRouteInactive
	}

	routeUUID, err := uuid.Parse(route.ID)
	if err != nil {
		return nil, ErrInvalidRouteID
	}
	if _, err := s.mapper.Map(routeUUID); err != nil {
		return nil, err
	}

	ticketType := req.TicketType
	if ticketType == "" {
		ticketType = domain.TicketTypeSingle
	}

	owner := common.HexToAddress(profile.WalletAddress)
	handle, err := s.ledger.MintTicket(ctx, owner, idmap.LedgerBigID(routeUUID), ledger.ToWei(route.BasePrice), uint64(req.TravelAt.Unix()), req.SeatNumber)
	if err != nil {
		return nil, err
	}

	conf, err := s.ledger.Confirm(ctx, handle)
	if err != nil {
		return nil, err
	}
	if conf.Events.TicketMinted == nil {
		return nil, &PersistFailedError{TxHash: handle.Hash.Hex(), Err: errors.New("mined receipt carries no mint event")}
	}
	tokenID := conf.Events.TicketMinted.TokenId.Uint64()

	now := time.Now().UTC()
	ticket := &domain.Ticket{
		ID:            uuid.New().String(),
		UserID:        profile.ID,
		RouteID:       route.ID,
		SeatNumber:    req.SeatNumber,
		TicketType:    ticketType,
		Status:        domain.TicketStatusValid,
		LedgerTxHash:  handle.Hash.Hex(),
		LedgerTokenID: &tokenID,
		TravelAt:      req.TravelAt,
		PurchasedAt:   now,
	}
	ticket.QRPayload = domain.QRPayloadFor(ticket.ID)

	if err := s.ticketRepo.Create(ctx, ticket); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			// A concurrent reconciliation already mirrored this mint.
			existing, lookupErr := s.ticketRepo.GetByLedgerTokenID(ctx, tokenID)
			if lookupErr == nil && existing != nil {
				return existing, nil
			}
		}
		return nil, &PersistFailedError{TxHash: handle.Hash.Hex(), Err: err}
	}

	s.cacheTicket(ctx, ticket)
	log.Printf("[SETTLEMENT] ticket minted: id=%s token=%d tx=%s", ticket.ID, tokenID, ticket.LedgerTxHash)
	return ticket, nil
}

// RecoverTicket re-persists a ticket whose mint confirmed on the ledger
// but whose mirror write failed. The transaction hash comes from the
// original PersistFailedError; the ledger is never resubmitted.
func (s *SettlementService) RecoverTicket(ctx context.Context, txHash string, req BuyTicketRequest) (*domain.Ticket, error) {
	if txHash == "" {
		return nil, ErrInvalidTicketID
	}

	existing, err := s.ticketRepo.GetByLedgerTxHash(ctx, txHash)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	conf, err := s.reader.TransactionEvents(ctx, common.HexToHash(txHash))
	if err != nil {
		return nil, err
	}
	if conf.Events.TicketMinted == nil {
		return nil, ErrInvalidTicketID
	}
	tokenID := conf.Events.TicketMinted.TokenId.Uint64()

	ticketType := req.TicketType
	if ticketType == "" {
		ticketType = domain.TicketTypeSingle
	}

	ticket := &domain.Ticket{
		ID:            uuid.New().String(),
		UserID:        req.UserID,
		RouteID:       req.RouteID,
		SeatNumber:    req.SeatNumber,
		TicketType:    ticketType,
		Status:        domain.TicketStatusValid,
		LedgerTxHash:  txHash,
		LedgerTokenID: &tokenID,
		TravelAt:      req.TravelAt,
		PurchasedAt:   time.Now().UTC(),
	}
	ticket.QRPayload = domain.QRPayloadFor(ticket.ID)

	if err := s.ticketRepo.Create(ctx, ticket); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			mirrored, lookupErr := s.ticketRepo.GetByLedgerTokenID(ctx, tokenID)
			if lookupErr == nil && mirrored != nil {
				return mirrored, nil
			}
		}
		return nil, &PersistFailedError{TxHash: txHash, Err: err}
	}

	s.cacheTicket(ctx, ticket)
	log.Printf("[SETTLEMENT] ticket recovered: id=%s token=%d tx=%s", ticket.ID, tokenID, txHash)
	return ticket, nil
}

// BuyPassRequest contains the parameters for a pass purchase.
type BuyPassRequest struct {
	UserID   string
	PassType domain.PassType
}

// BuyPass runs the full pass settlement. The validity window is fixed by
// the pass class; the expiry actually recorded is the one the ledger
// computed, read back from the mined PassIssued event.
func (s *SettlementService) BuyPass(ctx context.Context, req BuyPassRequest) (*domain.Pass, error) {
	profile, err := s.settleProfile(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	enum, ok := req.PassType.LedgerEnum()
	if !ok {
		return nil, ErrInvalidPassType
	}
	duration := req.PassType.Duration()

	owner := common.HexToAddress(profile.WalletAddress)
	handle, err := s.ledger.IssuePass(ctx, owner, enum, uint64(duration.Seconds()))
	if err != nil {
		return nil, err
	}

	conf, err := s.ledger.Confirm(ctx, handle)
	if err != nil {
		return nil, err
	}
	if conf.Events.PassIssued == nil {
		return nil, &PersistFailedError{TxHash: handle.Hash.Hex(), Err: errors.New("mined receipt carries no issue event")}
	}

	passID := conf.Events.PassIssued.PassId.Uint64()
	expiresAt := time.Unix(int64(conf.Events.PassIssued.ExpiresAt), 0).UTC()

	pass := &domain.Pass{
		ID:           uuid.New().String(),
		UserID:       profile.ID,
		PassType:     req.PassType,
		Status:       domain.PassStatusActive,
		StartsAt:     expiresAt.Add(-duration),
		ExpiresAt:    expiresAt,
		LedgerTxHash: handle.Hash.Hex(),
		LedgerPassID: &passID,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.passRepo.Create(ctx, pass); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			existing, lookupErr := s.passRepo.GetByLedgerPassID(ctx, passID)
			if lookupErr == nil && existing != nil {
				return existing, nil
			}
		}
		return nil, &PersistFailedError{TxHash: handle.Hash.Hex(), Err: err}
	}

	log.Printf("[SETTLEMENT] pass issued: id=%s ledger_pass=%d tx=%s", pass.ID, passID, pass.LedgerTxHash)
	return pass, nil
}

// RecoverPass re-persists a pass settlement from its mined transaction.
func (s *SettlementService) RecoverPass(ctx context.Context, txHash string, req BuyPassRequest) (*domain.Pass, error) {
	if txHash == "" {
		return nil, ErrInvalidPassType
	}

	conf, err := s.reader.TransactionEvents(ctx, common.HexToHash(txHash))
	if err != nil {
		return nil, err
	}
	if conf.Events.PassIssued == nil {
		return nil, ErrInvalidPassType
	}

	passID := conf.Events.PassIssued.PassId.Uint64()
	existing, err := s.passRepo.GetByLedgerPassID(ctx, passID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	passType, ok := domain.PassTypeFromLedgerEnum(conf.Events.PassIssued.PassType)
	if !ok {
		passType = req.PassType
	}
	duration := passType.Duration()
	expiresAt := time.Unix(int64(conf.Events.PassIssued.ExpiresAt), 0).UTC()

	pass := &domain.Pass{
		ID:           uuid.New().String(),
		UserID:       req.UserID,
		PassType:     passType,
		Status:       domain.PassStatusActive,
		StartsAt:     expiresAt.Add(-duration),
		ExpiresAt:    expiresAt,
		LedgerTxHash: txHash,
		LedgerPassID: &passID,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.passRepo.Create(ctx, pass); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			mirrored, lookupErr := s.passRepo.GetByLedgerPassID(ctx, passID)
			if lookupErr == nil && mirrored != nil {
				return mirrored, nil
			}
		}
		return nil, &PersistFailedError{TxHash: txHash, Err: err}
	}

	log.Printf("[SETTLEMENT] pass recovered: id=%s ledger_pass=%d tx=%s", pass.ID, passID, txHash)
	return pass, nil
}

// PayRequest contains the parameters for a payment settlement. Exactly one
// of TicketID and PassType must be set.
type PayRequest struct {
	UserID    string
	TicketID  string
	PassType  domain.PassType
	Reference string
	Amount    decimal.Decimal
}

// Pay runs the payment settlement. The client-supplied reference is the
// idempotency token: re-submitting an already-settled reference returns
// the recorded payment without touching the ledger.
func (s *SettlementService) Pay(ctx context.Context, req PayRequest) (*domain.Payment, error) {
	profile, err := s.settleProfile(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Reference) == "" {
		return nil, ErrInvalidReference
	}
	if !req.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if req.TicketID == "" && req.PassType == "" {
		return nil, ErrPaymentTargetMissing
	}
	if req.TicketID != "" && req.PassType != "" {
		return nil, ErrPaymentTargetAmbiguous
	}

	existing, err := s.paymentRepo.GetByReference(ctx, req.Reference)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	refHash := ledger.ReferenceHash(req.Reference)
	amountWei := ledger.ToWei(req.Amount)

	var (
		handle   *ledger.TxHandle
		ticketID string
		passID   string
	)
	if req.TicketID != "" {
		ticket, err := s.ticketRepo.GetByID(ctx, req.TicketID)
		if err != nil {
			return nil, err
		}
		if ticket.LedgerTokenID == nil {
			return nil, ErrInvalidTicketID
		}
		ticketID = ticket.ID
		handle, err = s.ledger.PayForTicket(ctx, new(big.Int).SetUint64(*ticket.LedgerTokenID), refHash, amountWei)
		if err != nil {
			return nil, err
		}
	} else {
		enum, ok := req.PassType.LedgerEnum()
		if !ok {
			return nil, ErrInvalidPassType
		}
		// The ledger does not echo a pass id back on pass payments, so the
		// payment lands on the payer's most recent pass of this class.
		// Resolved before the submit: a payment row must always reference
		// its target.
		passes, err := s.passRepo.ListByUser(ctx, profile.ID)
		if err != nil {
			return nil, err
		}
		for _, p := range passes {
			if p.PassType == req.PassType {
				passID = p.ID
				break
			}
		}
		if passID == "" {
			return nil, ErrPaymentTargetMissing
		}
		handle, err = s.ledger.PayForPass(ctx, enum, refHash, amountWei)
		if err != nil {
			return nil, err
		}
	}

	conf, err := s.ledger.Confirm(ctx, handle)
	if err != nil {
		return nil, err
	}

	var receiptID *uint64
	switch {
	case conf.Events.PaymentMade != nil:
		v := conf.Events.PaymentMade.ReceiptId.Uint64()
		receiptID = &v
	case conf.Events.PassPaymentMade != nil:
		v := conf.Events.PassPaymentMade.ReceiptId.Uint64()
		receiptID = &v
	default:
		return nil, &PersistFailedError{TxHash: handle.Hash.Hex(), Err: errors.New("mined receipt carries no payment event")}
	}

	payment := &domain.Payment{
		ID:              uuid.New().String(),
		UserID:          profile.ID,
		TicketID:        ticketID,
		PassID:          passID,
		Amount:          req.Amount,
		Currency:        s.currency,
		Method:          domain.PaymentMethodBlockchain,
		Status:          domain.PaymentStatusCompleted,
		Reference:       req.Reference,
		LedgerTxHash:    handle.Hash.Hex(),
		LedgerReceiptID: receiptID,
		CreatedAt:       time.Now().UTC(),
	}

	if err := s.paymentRepo.Create(ctx, payment); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			mirrored, lookupErr := s.paymentRepo.GetByLedgerReceiptID(ctx, *receiptID)
			if lookupErr == nil && mirrored != nil {
				return mirrored, nil
			}
		}
		return nil, &PersistFailedError{TxHash: handle.Hash.Hex(), Err: err}
	}

	log.Printf("[SETTLEMENT] payment settled: id=%s receipt=%d tx=%s", payment.ID, *receiptID, payment.LedgerTxHash)
	return payment, nil
}

// RecoverPayment re-persists a payment settlement from its mined
// transaction, keyed by the original reference for idempotency.
func (s *SettlementService) RecoverPayment(ctx context.Context, txHash string, req PayRequest) (*domain.Payment, error) {
	if strings.TrimSpace(req.Reference) == "" {
		return nil, ErrInvalidReference
	}

	existing, err := s.paymentRepo.GetByReference(ctx, req.Reference)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	conf, err := s.reader.TransactionEvents(ctx, common.HexToHash(txHash))
	if err != nil {
		return nil, err
	}

	var (
		receiptID uint64
		amount    decimal.Decimal
		ticketID  string
		passID    string
	)
	switch {
	case conf.Events.PaymentMade != nil:
		receiptID = conf.Events.PaymentMade.ReceiptId.Uint64()
		amount = ledger.FromWei(conf.Events.PaymentMade.Amount)
		ticketID = req.TicketID
		if ticketID == "" {
			ticket, err := s.ticketRepo.GetByLedgerTokenID(ctx, conf.Events.PaymentMade.TicketId.Uint64())
			if err != nil {
				return nil, err
			}
			if ticket != nil {
				ticketID = ticket.ID
			}
		}
		if ticketID == "" {
			return nil, ErrPaymentTargetMissing
		}
	case conf.Events.PassPaymentMade != nil:
		receiptID = conf.Events.PassPaymentMade.ReceiptId.Uint64()
		amount = ledger.FromWei(conf.Events.PassPaymentMade.Amount)
		passType, ok := domain.PassTypeFromLedgerEnum(conf.Events.PassPaymentMade.PassType)
		if !ok {
			passType = req.PassType
		}
		// Same linking rule as Pay: the event carries only the class, so
		// the payment lands on the payer's most recent pass of that class.
		passes, err := s.passRepo.ListByUser(ctx, req.UserID)
		if err != nil {
			return nil, err
		}
		for _, p := range passes {
			if p.PassType == passType {
				passID = p.ID
				break
			}
		}
		if passID == "" {
			return nil, ErrPaymentTargetMissing
		}
	default:
		return nil, ErrInvalidReference
	}

	payment := &domain.Payment{
		ID:              uuid.New().String(),
		UserID:          req.UserID,
		TicketID:        ticketID,
		PassID:          passID,
		Amount:          amount,
		Currency:        s.currency,
		Method:          domain.PaymentMethodBlockchain,
		Status:          domain.PaymentStatusCompleted,
		Reference:       req.Reference,
		LedgerTxHash:    txHash,
		LedgerReceiptID: &receiptID,
		CreatedAt:       time.Now().UTC(),
	}

	if err := s.paymentRepo.Create(ctx, payment); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			mirrored, lookupErr := s.paymentRepo.GetByLedgerReceiptID(ctx, receiptID)
			if lookupErr == nil && mirrored != nil {
				return mirrored, nil
			}
		}
		return nil, &PersistFailedError{TxHash: txHash, Err: err}
	}

	log.Printf("[SETTLEMENT] payment recovered: id=%s receipt=%d tx=%s", payment.ID, receiptID, txHash)
	return payment, nil
}

// GetTicket retrieves a ticket by ID.
func (s *SettlementService) GetTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	if ticketID == "" {
		return nil, ErrInvalidTicketID
	}
	return s.ticketRepo.GetByID(ctx, ticketID)
}

// ListUserTickets retrieves all tickets owned by a user.
func (s *SettlementService) ListUserTickets(ctx context.Context, userID string) ([]*domain.Ticket, error) {
	if userID == "" {
		return nil, ErrInvalidUserID
	}
	return s.ticketRepo.ListByUser(ctx, userID)
}

// GetPass retrieves a pass by ID with its status derived at read time.
func (s *SettlementService) GetPass(ctx context.Context, passID string) (*domain.Pass, error) {
	if passID == "" {
		return nil, ErrInvalidPassType
	}
	pass, err := s.passRepo.GetByID(ctx, passID)
	if err != nil {
		return nil, err
	}
	return s.passView(ctx, pass), nil
}

// ListUserPasses retrieves all passes owned by a user with their status
// derived at read time.
func (s *SettlementService) ListUserPasses(ctx context.Context, userID string) ([]*domain.Pass, error) {
	if userID == "" {
		return nil, ErrInvalidUserID
	}
	passes, err := s.passRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.Pass, 0, len(passes))
	for _, pass := range passes {
		out = append(out, s.passView(ctx, pass))
	}
	return out, nil
}

// passView returns a copy of the pass with its status derived from the
// clock. The stored row never flips to expired on its own. A ledger-backed
// pass is additionally checked against the chain's validity view, which
// can only narrow the answer; a chain read failure falls back to the
// clock-derived status.
func (s *SettlementService) passView(ctx context.Context, pass *domain.Pass) *domain.Pass {
	out := *pass
	if out.Status != domain.PassStatusActive {
		return &out
	}
	if !out.ActiveAt(time.Now().UTC()) {
		out.Status = domain.PassStatusExpired
		return &out
	}
	if out.LedgerPassID != nil && s.reader != nil {
		if valid, err := s.reader.IsPassValid(ctx, *out.LedgerPassID); err == nil && !valid {
			out.Status = domain.PassStatusExpired
		}
	}
	return &out
}

// GetPayment retrieves a payment by ID.
func (s *SettlementService) GetPayment(ctx context.Context, paymentID string) (*domain.Payment, error) {
	if paymentID == "" {
		return nil, ErrInvalidReference
	}
	return s.paymentRepo.GetByID(ctx, paymentID)
}

// ListUserPayments retrieves all payments made by a user.
func (s *SettlementService) ListUserPayments(ctx context.Context, userID string) ([]*domain.Payment, error) {
	if userID == "" {
		return nil, ErrInvalidUserID
	}
	return s.paymentRepo.ListByUser(ctx, userID)
}

func (s *SettlementService) cacheTicket(ctx context.Context, ticket *domain.Ticket) {
	if s.cacheStore == nil {
		return
	}
	_ = s.cacheStore.SetTicket(ctx, &redis.CachedTicket{
		ID:       ticket.ID,
		UserID:   ticket.UserID,
		RouteID:  ticket.RouteID,
		Status:   string(ticket.Status),
		TravelAt: ticket.TravelAt.Unix(),
	})
}
