package tests

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"railpay/internal/domain"
	"railpay/internal/ledger"
	"railpay/internal/repository"
)

// ──────────────────────────────────────────────
// MOCK TICKET REPOSITORY
// ──────────────────────────────────────────────

// MockTicketRepository is a mock implementation of TicketRepository.
type MockTicketRepository struct {
	mu      sync.RWMutex
	tickets map[string]*domain.Ticket

	// Counters for verification
	CreateCallCount int32

	// Error injection
	CreateError error
}

// NewMockTicketRepository creates a new mock ticket repository.
func NewMockTicketRepository() *MockTicketRepository {
	return &MockTicketRepository{tickets: make(map[string]*domain.Ticket)}
}

// AddTicket adds a ticket to the mock repository.
func (m *MockTicketRepository) AddTicket(ticket *domain.Ticket) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tickets[ticket.ID] = ticket
}

func (m *MockTicketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if ticket.LedgerTokenID != nil {
		for _, t := range m.tickets {
			if t.LedgerTokenID != nil && *t.LedgerTokenID == *ticket.LedgerTokenID {
				return repository.ErrDuplicateKey
			}
		}
	}
	copy := *ticket
	m.tickets[ticket.ID] = &copy
	return nil
}

func (m *MockTicketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ticket, ok := m.tickets[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *ticket
	return &copy, nil
}

func (m *MockTicketRepository) GetByLedgerTokenID(ctx context.Context, tokenID uint64) (*domain.Ticket, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, t := range m.tickets {
		if t.LedgerTokenID != nil && *t.LedgerTokenID == tokenID {
			copy := *t
			return &copy, nil
		}
	}
	return nil, nil
}

func (m *MockTicketRepository) GetByLedgerTxHash(ctx context.Context, txHash string) (*domain.Ticket, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, t := range m.tickets {
		if t.LedgerTxHash == txHash {
			copy := *t
			return &copy, nil
		}
	}
	return nil, nil
}

func (m *MockTicketRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Ticket, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Ticket
	for _, t := range m.tickets {
		if t.UserID == userID {
			copy := *t
			result = append(result, &copy)
		}
	}
	return result, nil
}

func (m *MockTicketRepository) ListByRoute(ctx context.Context, routeID string) ([]*domain.Ticket, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Ticket
	for _, t := range m.tickets {
		if t.RouteID == routeID {
			copy := *t
			result = append(result, &copy)
		}
	}
	return result, nil
}

func (m *MockTicketRepository) MarkValidated(ctx context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ticket, ok := m.tickets[id]
	if !ok || ticket.Status != domain.TicketStatusValid {
		return repository.ErrNotFound
	}
	ticket.Status = domain.TicketStatusUsed
	ticket.ValidatedAt = &at
	return nil
}

func (m *MockTicketRepository) MarkValidatedByTokenID(ctx context.Context, tokenID uint64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tickets {
		if t.LedgerTokenID != nil && *t.LedgerTokenID == tokenID && t.Status == domain.TicketStatusValid {
			t.Status = domain.TicketStatusUsed
			t.ValidatedAt = &at
			return nil
		}
	}
	return repository.ErrNotFound
}

// CountTickets returns the number of stored tickets.
func (m *MockTicketRepository) CountTickets() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.tickets)
}

// GetTicket returns a ticket for test assertions.
func (m *MockTicketRepository) GetTicket(id string) *domain.Ticket {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tickets[id]
}

// ──────────────────────────────────────────────
// MOCK PASS REPOSITORY
// ──────────────────────────────────────────────

// MockPassRepository is a mock implementation of PassRepository.
type MockPassRepository struct {
	mu     sync.RWMutex
	passes map[string]*domain.Pass

	CreateCallCount int32
	CreateError     error
}

// NewMockPassRepository creates a new mock pass repository.
func NewMockPassRepository() *MockPassRepository {
	return &MockPassRepository{passes: make(map[string]*domain.Pass)}
}

// AddPass adds a pass to the mock repository.
func (m *MockPassRepository) AddPass(pass *domain.Pass) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.passes[pass.ID] = pass
}

func (m *MockPassRepository) Create(ctx context.Context, pass *domain.Pass) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if pass.LedgerPassID != nil {
		for _, p := range m.passes {
			if p.LedgerPassID != nil && *p.LedgerPassID == *pass.LedgerPassID {
				return repository.ErrDuplicateKey
			}
		}
	}
	copy := *pass
	m.passes[pass.ID] = &copy
	return nil
}

func (m *MockPassRepository) GetByID(ctx context.Context, id string) (*domain.Pass, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	pass, ok := m.passes[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *pass
	return &copy, nil
}

func (m *MockPassRepository) GetByLedgerPassID(ctx context.Context, passID uint64) (*domain.Pass, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.passes {
		if p.LedgerPassID != nil && *p.LedgerPassID == passID {
			copy := *p
			return &copy, nil
		}
	}
	return nil, nil
}

func (m *MockPassRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Pass, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Pass
	for _, p := range m.passes {
		if p.UserID == userID {
			copy := *p
			result = append(result, &copy)
		}
	}
	return result, nil
}

// CountPasses returns the number of stored passes.
func (m *MockPassRepository) CountPasses() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.passes)
}

// ──────────────────────────────────────────────
// MOCK PAYMENT REPOSITORY
// ──────────────────────────────────────────────

// MockPaymentRepository is a mock implementation of PaymentRepository.
type MockPaymentRepository struct {
	mu       sync.RWMutex
	payments map[string]*domain.Payment

	CreateCallCount int32
	CreateError     error
}

// NewMockPaymentRepository creates a new mock payment repository.
func NewMockPaymentRepository() *MockPaymentRepository {
	return &MockPaymentRepository{payments: make(map[string]*domain.Payment)}
}

func (m *MockPaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.payments {
		if p.Reference == payment.Reference {
			return repository.ErrDuplicateKey
		}
		if p.LedgerReceiptID != nil && payment.LedgerReceiptID != nil && *p.LedgerReceiptID == *payment.LedgerReceiptID {
			return repository.ErrDuplicateKey
		}
	}
	copy := *payment
	m.payments[payment.ID] = &copy
	return nil
}

func (m *MockPaymentRepository) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	payment, ok := m.payments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *payment
	return &copy, nil
}

func (m *MockPaymentRepository) GetByReference(ctx context.Context, reference string) (*domain.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.payments {
		if p.Reference == reference {
			copy := *p
			return &copy, nil
		}
	}
	return nil, nil
}

func (m *MockPaymentRepository) GetByLedgerReceiptID(ctx context.Context, receiptID uint64) (*domain.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.payments {
		if p.LedgerReceiptID != nil && *p.LedgerReceiptID == receiptID {
			copy := *p
			return &copy, nil
		}
	}
	return nil, nil
}

func (m *MockPaymentRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Payment
	for _, p := range m.payments {
		if p.UserID == userID {
			copy := *p
			result = append(result, &copy)
		}
	}
	return result, nil
}

// CountPayments returns the number of stored payments.
func (m *MockPaymentRepository) CountPayments() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.payments)
}

// ──────────────────────────────────────────────
// MOCK PROFILE / STAFF / AUDIT / VERIFICATION
// ──────────────────────────────────────────────

// MockProfileRepository is a mock implementation of ProfileRepository.
type MockProfileRepository struct {
	mu       sync.RWMutex
	profiles map[string]*domain.Profile
}

// NewMockProfileRepository creates a new mock profile repository.
func NewMockProfileRepository() *MockProfileRepository {
	return &MockProfileRepository{profiles: make(map[string]*domain.Profile)}
}

// AddProfile adds a profile to the mock repository.
func (m *MockProfileRepository) AddProfile(profile *domain.Profile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[profile.ID] = profile
}

func (m *MockProfileRepository) GetByID(ctx context.Context, id string) (*domain.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	profile, ok := m.profiles[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *profile
	return &copy, nil
}

func (m *MockProfileRepository) GetByWalletAddress(ctx context.Context, address string) (*domain.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.profiles {
		if strings.EqualFold(p.WalletAddress, address) {
			copy := *p
			return &copy, nil
		}
	}
	return nil, nil
}

func (m *MockProfileRepository) UpdateVerification(ctx context.Context, id string, status domain.VerificationStatus, nin, fullName, dob, phone string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	profile, ok := m.profiles[id]
	if !ok {
		return repository.ErrNotFound
	}
	profile.Verification = status
	profile.NIN = nin
	profile.FullName = fullName
	profile.DOB = dob
	profile.Phone = phone
	profile.VerifiedAt = &at
	return nil
}

// GetProfile returns a profile for test assertions.
func (m *MockProfileRepository) GetProfile(id string) *domain.Profile {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.profiles[id]
}

// MockStaffRepository is a mock implementation of StaffRepository.
type MockStaffRepository struct {
	mu    sync.RWMutex
	staff map[string]*domain.Staff
}

// NewMockStaffRepository creates a new mock staff repository.
func NewMockStaffRepository() *MockStaffRepository {
	return &MockStaffRepository{staff: make(map[string]*domain.Staff)}
}

// AddStaff adds a staff record keyed by user ID.
func (m *MockStaffRepository) AddStaff(staff *domain.Staff) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.staff[staff.UserID] = staff
}

func (m *MockStaffRepository) GetByUserID(ctx context.Context, userID string) (*domain.Staff, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	staff, ok := m.staff[userID]
	if !ok {
		return nil, nil
	}
	copy := *staff
	return &copy, nil
}

// MockAuditRepository is a mock implementation of AuditRepository.
type MockAuditRepository struct {
	mu      sync.RWMutex
	entries []*domain.AuditEntry

	AppendError error
}

// NewMockAuditRepository creates a new mock audit repository.
func NewMockAuditRepository() *MockAuditRepository {
	return &MockAuditRepository{}
}

func (m *MockAuditRepository) Append(ctx context.Context, entry *domain.AuditEntry) error {
	if m.AppendError != nil {
		return m.AppendError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *entry
	m.entries = append(m.entries, &copy)
	return nil
}

func (m *MockAuditRepository) ListRecent(ctx context.Context, limit int) ([]*domain.AuditEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if limit > len(m.entries) {
		limit = len(m.entries)
	}
	result := make([]*domain.AuditEntry, 0, limit)
	for i := len(m.entries) - 1; i >= 0 && len(result) < limit; i-- {
		copy := *m.entries[i]
		result = append(result, &copy)
	}
	return result, nil
}

// CountEntries returns the number of audit entries.
func (m *MockAuditRepository) CountEntries() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// LastEntry returns the newest audit entry, or nil.
func (m *MockAuditRepository) LastEntry() *domain.AuditEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.entries) == 0 {
		return nil
	}
	return m.entries[len(m.entries)-1]
}

// MockVerificationRepository is a mock implementation of VerificationRepository.
type MockVerificationRepository struct {
	mu       sync.RWMutex
	attempts []*domain.NINVerification
}

// NewMockVerificationRepository creates a new mock verification repository.
func NewMockVerificationRepository() *MockVerificationRepository {
	return &MockVerificationRepository{}
}

func (m *MockVerificationRepository) Append(ctx context.Context, v *domain.NINVerification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *v
	m.attempts = append(m.attempts, &copy)
	return nil
}

// CountAttempts returns the number of logged attempts.
func (m *MockVerificationRepository) CountAttempts() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.attempts)
}

// LastAttempt returns the newest attempt, or nil.
func (m *MockVerificationRepository) LastAttempt() *domain.NINVerification {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.attempts) == 0 {
		return nil
	}
	return m.attempts[len(m.attempts)-1]
}

// ──────────────────────────────────────────────
// MOCK ROUTE REPOSITORY
// ──────────────────────────────────────────────

// MockRouteRepository is a mock implementation of RouteRepository.
type MockRouteRepository struct {
	mu     sync.RWMutex
	routes map[string]*domain.Route
}

// NewMockRouteRepository creates a new mock route repository.
func NewMockRouteRepository() *MockRouteRepository {
	return &MockRouteRepository{routes: make(map[string]*domain.Route)}
}

// AddRoute adds a route to the mock repository.
func (m *MockRouteRepository) AddRoute(route *domain.Route) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.routes[route.ID] = route
}

func (m *MockRouteRepository) GetByID(ctx context.Context, id string) (*domain.Route, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	route, ok := m.routes[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *route
	return &copy, nil
}

func (m *MockRouteRepository) List(ctx context.Context, activeOnly bool) ([]*domain.Route, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Route
	for _, r := range m.routes {
		if activeOnly && !r.Active {
			continue
		}
		copy := *r
		result = append(result, &copy)
	}
	return result, nil
}

func (m *MockRouteRepository) UpdateBasePrice(ctx context.Context, id string, price decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	route, ok := m.routes[id]
	if !ok {
		return repository.ErrNotFound
	}
	route.BasePrice = price
	return nil
}

func (m *MockRouteRepository) Update(ctx context.Context, route *domain.Route) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.routes[route.ID]; !ok {
		return repository.ErrNotFound
	}
	copy := *route
	m.routes[route.ID] = &copy
	return nil
}

// ──────────────────────────────────────────────
// MOCK LEDGER
// ──────────────────────────────────────────────

// MockLedger implements the write, read and scan ledger surfaces used by
// the services. Submitted transactions produce deterministic hashes and
// confirmations carrying the events a real mined receipt would.
type MockLedger struct {
	mu sync.Mutex

	nextTxSeq     uint64
	nextTokenID   uint64
	nextPassID    uint64
	nextReceiptID uint64

	confirmations map[common.Hash]*ledger.Confirmation
	validated     map[uint64]bool

	// Counters for verification
	MintCallCount     int32
	ValidateCallCount int32
	IssueCallCount    int32
	PayCallCount      int32

	// Error injection
	SubmitError  error
	ConfirmError error

	// Chain-side pass validity view. Unlisted pass ids read as valid.
	PassValidity      map[uint64]bool
	PassValidityError error

	// Chain head and historical events for scans
	Head                  uint64
	BlockNumberError      error
	TicketMintedEvents    []ledger.TicketMintedEvent
	TicketMintedError     error
	TicketValidatedEvents []ledger.TicketValidatedEvent
	TicketValidatedError  error
	PassIssuedEvents      []ledger.PassIssuedEvent
	PassIssuedError       error
	PaymentMadeEvents     []ledger.PaymentMadeEvent
	PaymentMadeError      error
	PassPaymentEvents     []ledger.PassPaymentMadeEvent
	PassPaymentError      error
}

// NewMockLedger creates a new mock ledger starting its counters at 1.
func NewMockLedger() *MockLedger {
	return &MockLedger{
		nextTokenID:   1,
		nextPassID:    1,
		nextReceiptID: 1,
		confirmations: make(map[common.Hash]*ledger.Confirmation),
		validated:     make(map[uint64]bool),
	}
}

func (m *MockLedger) newHash() common.Hash {
	m.nextTxSeq++
	return common.HexToHash(fmt.Sprintf("0x%064x", m.nextTxSeq))
}

func (m *MockLedger) MintTicket(ctx context.Context, owner common.Address, routeID, price *big.Int, travelTime uint64, seat string) (*ledger.TxHandle, error) {
	atomic.AddInt32(&m.MintCallCount, 1)
	if m.SubmitError != nil {
		return nil, m.SubmitError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	hash := m.newHash()
	tokenID := m.nextTokenID
	m.nextTokenID++
	m.confirmations[hash] = &ledger.Confirmation{
		TxHash:      hash,
		BlockNumber: m.nextTxSeq,
		Events: ledger.MinedEvents{
			TicketMinted: &ledger.TicketMintedEvent{
				TokenId: new(big.Int).SetUint64(tokenID),
				To:      owner,
				RouteId: routeID,
				Price:   price,
			},
		},
	}
	return &ledger.TxHandle{Hash: hash}, nil
}

func (m *MockLedger) ValidateTicket(ctx context.Context, tokenID *big.Int) (*ledger.TxHandle, error) {
	atomic.AddInt32(&m.ValidateCallCount, 1)
	if m.SubmitError != nil {
		return nil, m.SubmitError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	id := tokenID.Uint64()
	if m.validated[id] {
		return nil, fmt.Errorf("%w: token %d", ledger.ErrAlreadyValidated, id)
	}
	m.validated[id] = true

	hash := m.newHash()
	m.confirmations[hash] = &ledger.Confirmation{
		TxHash:      hash,
		BlockNumber: m.nextTxSeq,
		Events: ledger.MinedEvents{
			TicketValidated: &ledger.TicketValidatedEvent{TokenId: tokenID},
		},
	}
	return &ledger.TxHandle{Hash: hash}, nil
}

func (m *MockLedger) IssuePass(ctx context.Context, owner common.Address, passType uint8, durationSeconds uint64) (*ledger.TxHandle, error) {
	atomic.AddInt32(&m.IssueCallCount, 1)
	if m.SubmitError != nil {
		return nil, m.SubmitError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	hash := m.newHash()
	passID := m.nextPassID
	m.nextPassID++
	m.confirmations[hash] = &ledger.Confirmation{
		TxHash:      hash,
		BlockNumber: m.nextTxSeq,
		Events: ledger.MinedEvents{
			PassIssued: &ledger.PassIssuedEvent{
				PassId:    new(big.Int).SetUint64(passID),
				Owner:     owner,
				PassType:  passType,
				ExpiresAt: uint64(time.Now().Unix()) + durationSeconds,
			},
		},
	}
	return &ledger.TxHandle{Hash: hash}, nil
}

func (m *MockLedger) PayForTicket(ctx context.Context, ticketID *big.Int, reference [32]byte, amount *big.Int) (*ledger.TxHandle, error) {
	atomic.AddInt32(&m.PayCallCount, 1)
	if m.SubmitError != nil {
		return nil, m.SubmitError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	hash := m.newHash()
	receiptID := m.nextReceiptID
	m.nextReceiptID++
	m.confirmations[hash] = &ledger.Confirmation{
		TxHash:      hash,
		BlockNumber: m.nextTxSeq,
		Events: ledger.MinedEvents{
			PaymentMade: &ledger.PaymentMadeEvent{
				Amount:    amount,
				MsgValue:  amount,
				TicketId:  ticketID,
				ReceiptId: new(big.Int).SetUint64(receiptID),
			},
		},
	}
	return &ledger.TxHandle{Hash: hash}, nil
}

func (m *MockLedger) PayForPass(ctx context.Context, passType uint8, reference [32]byte, amount *big.Int) (*ledger.TxHandle, error) {
	atomic.AddInt32(&m.PayCallCount, 1)
	if m.SubmitError != nil {
		return nil, m.SubmitError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	hash := m.newHash()
	receiptID := m.nextReceiptID
	m.nextReceiptID++
	m.confirmations[hash] = &ledger.Confirmation{
		TxHash:      hash,
		BlockNumber: m.nextTxSeq,
		Events: ledger.MinedEvents{
			PassPaymentMade: &ledger.PassPaymentMadeEvent{
				Amount:    amount,
				MsgValue:  amount,
				PassType:  passType,
				ReceiptId: new(big.Int).SetUint64(receiptID),
			},
		},
	}
	return &ledger.TxHandle{Hash: hash}, nil
}

func (m *MockLedger) Confirm(ctx context.Context, handle *ledger.TxHandle) (*ledger.Confirmation, error) {
	if m.ConfirmError != nil {
		return nil, m.ConfirmError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	conf, ok := m.confirmations[handle.Hash]
	if !ok {
		return nil, ledger.ErrTxNotFound
	}
	return conf, nil
}

func (m *MockLedger) TransactionEvents(ctx context.Context, txHash common.Hash) (*ledger.Confirmation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	conf, ok := m.confirmations[txHash]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ledger.ErrTxNotFound, txHash)
	}
	return conf, nil
}

func (m *MockLedger) IsPassValid(ctx context.Context, passID uint64) (bool, error) {
	if m.PassValidityError != nil {
		return false, m.PassValidityError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	valid, ok := m.PassValidity[passID]
	if !ok {
		return true, nil
	}
	return valid, nil
}

func (m *MockLedger) BlockNumber(ctx context.Context) (uint64, error) {
	if m.BlockNumberError != nil {
		return 0, m.BlockNumberError
	}
	return m.Head, nil
}

func (m *MockLedger) FilterTicketMinted(ctx context.Context, fromBlock, toBlock uint64) ([]ledger.TicketMintedEvent, error) {
	if m.TicketMintedError != nil {
		return nil, m.TicketMintedError
	}
	return m.TicketMintedEvents, nil
}

func (m *MockLedger) FilterTicketValidated(ctx context.Context, fromBlock, toBlock uint64) ([]ledger.TicketValidatedEvent, error) {
	if m.TicketValidatedError != nil {
		return nil, m.TicketValidatedError
	}
	return m.TicketValidatedEvents, nil
}

func (m *MockLedger) FilterPassIssued(ctx context.Context, fromBlock, toBlock uint64) ([]ledger.PassIssuedEvent, error) {
	if m.PassIssuedError != nil {
		return nil, m.PassIssuedError
	}
	return m.PassIssuedEvents, nil
}

func (m *MockLedger) FilterPaymentMade(ctx context.Context, fromBlock, toBlock uint64) ([]ledger.PaymentMadeEvent, error) {
	if m.PaymentMadeError != nil {
		return nil, m.PaymentMadeError
	}
	return m.PaymentMadeEvents, nil
}

func (m *MockLedger) FilterPassPaymentMade(ctx context.Context, fromBlock, toBlock uint64) ([]ledger.PassPaymentMadeEvent, error) {
	if m.PassPaymentError != nil {
		return nil, m.PassPaymentError
	}
	return m.PassPaymentEvents, nil
}

// ──────────────────────────────────────────────
// MOCK CURSOR / LOCK STORES
// ──────────────────────────────────────────────

// MockCursorStore is an in-memory cursor store.
type MockCursorStore struct {
	mu      sync.Mutex
	cursors map[string]uint64
}

// NewMockCursorStore creates a new mock cursor store.
func NewMockCursorStore() *MockCursorStore {
	return &MockCursorStore{cursors: make(map[string]uint64)}
}

func (m *MockCursorStore) Get(ctx context.Context, kind string) (uint64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	block, ok := m.cursors[kind]
	return block, ok, nil
}

func (m *MockCursorStore) Set(ctx context.Context, kind string, block uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cursors[kind] = block
	return nil
}

// MockLockStore is an in-memory scan lock.
type MockLockStore struct {
	mu    sync.Mutex
	locks map[string]bool
}

// NewMockLockStore creates a new mock lock store.
func NewMockLockStore() *MockLockStore {
	return &MockLockStore{locks: make(map[string]bool)}
}

func (m *MockLockStore) AcquireScanLock(ctx context.Context, kind string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locks[kind] {
		return false, nil
	}
	m.locks[kind] = true
	return true, nil
}

func (m *MockLockStore) ReleaseScanLock(ctx context.Context, kind string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, kind)
	return nil
}

var (
	_ repository.TicketRepository       = (*MockTicketRepository)(nil)
	_ repository.PassRepository         = (*MockPassRepository)(nil)
	_ repository.PaymentRepository      = (*MockPaymentRepository)(nil)
	_ repository.ProfileRepository      = (*MockProfileRepository)(nil)
	_ repository.StaffRepository        = (*MockStaffRepository)(nil)
	_ repository.AuditRepository        = (*MockAuditRepository)(nil)
	_ repository.VerificationRepository = (*MockVerificationRepository)(nil)
	_ repository.RouteRepository        = (*MockRouteRepository)(nil)
)
