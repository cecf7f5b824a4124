package app

import (
	"context"

	"installhub/database"
	bookingRepo "installhub/database/repository/booking"
	flagRepo "installhub/database/repository/flag"
	jobRepo "installhub/database/repository/job"
	ledgerRepo "installhub/database/repository/ledger"
	memoryRepo "installhub/database/repository/memory"
	negotiationRepo "installhub/database/repository/negotiation"
	profileRepo "installhub/database/repository/profile"
	settingsRepo "installhub/database/repository/settings"
	voucherRepo "installhub/database/repository/voucher"

	"go.mongodb.org/mongo-driver/mongo"
)

// Repositories is the full set of stores the engine runs on, together with
// the transaction runner they share.
type Repositories struct {
	Bookings     bookingRepo.BookingRepository
	Jobs         jobRepo.JobRepository
	Ledger       ledgerRepo.LedgerRepository
	Profiles     profileRepo.ProfileRepository
	Vouchers     voucherRepo.VoucherRepository
	Settings     settingsRepo.SettingsRepository
	Negotiations negotiationRepo.NegotiationRepository
	Flags        flagRepo.FlagRepository
	Tx           database.TxRunner

	indexers []indexer
}

type indexer interface {
	EnsureIndexes(ctx context.Context) error
}

func NewMongoRepositories(client *mongo.Client, db *mongo.Database) *Repositories {
	bookings := bookingRepo.NewMongoBookingRepo(db)
	jobs := jobRepo.NewMongoJobRepo(db)
	ledger := ledgerRepo.NewMongoLedgerRepo(db)
	profiles := profileRepo.NewMongoProfileRepo(db)
	vouchers := voucherRepo.NewMongoVoucherRepo(db)
	settings := settingsRepo.NewMongoSettingsRepo(db)
	negotiations := negotiationRepo.NewMongoNegotiationRepo(db)
	flags := flagRepo.NewMongoFlagRepo(db)

	return &Repositories{
		Bookings:     bookings,
		Jobs:         jobs,
		Ledger:       ledger,
		Profiles:     profiles,
		Vouchers:     vouchers,
		Settings:     settings,
		Negotiations: negotiations,
		Flags:        flags,
		Tx:           database.NewMongoTxRunner(client),
		indexers:     []indexer{bookings, jobs, ledger, profiles, vouchers, settings, negotiations, flags},
	}
}

func NewMemoryRepositories(store *memoryRepo.Store) *Repositories {
	return &Repositories{
		Bookings:     store.Bookings(),
		Jobs:         store.Jobs(),
		Ledger:       store.Ledger(),
		Profiles:     store.Profiles(),
		Vouchers:     store.Vouchers(),
		Settings:     store.Settings(),
		Negotiations: store.Negotiations(),
		Flags:        store.Flags(),
		Tx:           store,
	}
}

// EnsureIndexes creates every collection index. It is a no-op for the memory store.
func (r *Repositories) EnsureIndexes(ctx context.Context) error {
	for _, ix := range r.indexers {
		if err := ix.EnsureIndexes(ctx); err != nil {
			return err
		}
	}
	return nil
}
