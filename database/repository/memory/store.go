package memoryRepo

import (
	"context"
	"sync"

	"installhub/models"
)

type walletKey struct {
	kind    models.WalletKind
	ownerID string
}

type state struct {
	bookings       map[string]models.Booking
	jobs           []models.JobAssignment
	wallets        map[walletKey]models.Wallet
	txns           []models.Transaction
	installers     map[string]models.Installer
	customers      map[string]models.Customer
	vouchers       map[string]models.FirstLeadVoucher // keyed by installer
	settings       map[string]models.PlatformSetting
	refundSettings map[int]models.PerformanceRefundSetting
	negotiations   []models.ScheduleNegotiation
	flags          []models.AntiManipulationRecord
}

func newState() state {
	return state{
		bookings:       map[string]models.Booking{},
		wallets:        map[walletKey]models.Wallet{},
		installers:     map[string]models.Installer{},
		customers:      map[string]models.Customer{},
		vouchers:       map[string]models.FirstLeadVoucher{},
		settings:       map[string]models.PlatformSetting{},
		refundSettings: map[int]models.PerformanceRefundSetting{},
	}
}

// clone copies every container. Records are values whose pointer fields are
// only ever replaced, never written through, so a shallow copy per record is enough.
func (st state) clone() state {
	c := newState()
	for k, v := range st.bookings {
		c.bookings[k] = v
	}
	for k, v := range st.wallets {
		c.wallets[k] = v
	}
	for k, v := range st.installers {
		c.installers[k] = v
	}
	for k, v := range st.customers {
		c.customers[k] = v
	}
	for k, v := range st.vouchers {
		c.vouchers[k] = v
	}
	for k, v := range st.settings {
		c.settings[k] = v
	}
	for k, v := range st.refundSettings {
		c.refundSettings[k] = v
	}
	c.jobs = append([]models.JobAssignment(nil), st.jobs...)
	c.txns = append([]models.Transaction(nil), st.txns...)
	c.negotiations = append([]models.ScheduleNegotiation(nil), st.negotiations...)
	c.flags = append([]models.AntiManipulationRecord(nil), st.flags...)
	return c
}

// Store is an in-process implementation of every repository plus
// database.TxRunner. A transaction holds the store-wide lock for its whole
// duration and restores a snapshot when fn fails.
type Store struct {
	mu sync.Mutex
	st state
}

func NewStore() *Store {
	return &Store{st: newState()}
}

type txKey struct{}

func (s *Store) inTx(ctx context.Context) bool {
	owner, _ := ctx.Value(txKey{}).(*Store)
	return owner == s
}

// lock acquires the store lock unless ctx already belongs to one of this
// store's transactions.
func (s *Store) lock(ctx context.Context) func() {
	if s.inTx(ctx) {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.inTx(ctx) {
		return fn(ctx)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.st.clone()
	if err := fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		s.st = snapshot
		return err
	}
	return nil
}

func (s *Store) Bookings() *BookingRepo         { return &BookingRepo{s: s} }
func (s *Store) Jobs() *JobRepo                 { return &JobRepo{s: s} }
func (s *Store) Ledger() *LedgerRepo            { return &LedgerRepo{s: s} }
func (s *Store) Profiles() *ProfileRepo         { return &ProfileRepo{s: s} }
func (s *Store) Vouchers() *VoucherRepo         { return &VoucherRepo{s: s} }
func (s *Store) Settings() *SettingsRepo        { return &SettingsRepo{s: s} }
func (s *Store) Negotiations() *NegotiationRepo { return &NegotiationRepo{s: s} }
func (s *Store) Flags() *FlagRepo               { return &FlagRepo{s: s} }
