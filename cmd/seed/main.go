// Command seed prepares a deployment: it creates indexes, installs the
// default refund policy and applies one-off operator changes.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"installhub/app"
	"installhub/config"
	"installhub/database"
	"installhub/utils"

	flag "github.com/spf13/pflag"
	"go.uber.org/zap"
)

func main() {
	var (
		ensureIndexes  = flag.Bool("ensure-indexes", true, "create collection indexes")
		seedRefunds    = flag.Bool("seed-refunds", true, "insert the default refund settings when absent")
		vouchers       = flag.StringSlice("voucher", nil, "issue a first-lead voucher to these installer ids")
		vipOn          = flag.StringSlice("vip", nil, "grant VIP to these installer ids")
		vipOff         = flag.StringSlice("unvip", nil, "revoke VIP from these installer ids")
		promotion      = flag.String("promotion", "", "set the free leads promotion: on or off")
		promotionUntil = flag.Duration("promotion-for", 0, "promotion length when turning it on; 0 means open-ended")
		tokens         = flag.StringSlice("token", nil, "mint a JWT for subject:role pairs (role is installer, customer or admin)")
		tokenTTL       = flag.Duration("token-ttl", 24*time.Hour, "lifetime of minted tokens")
		operator       = flag.String("operator", "seed", "name recorded on operator changes")
	)
	flag.Parse()

	config.LoadConfig()
	logger := utils.GetLogger()

	for _, pair := range *tokens {
		subject, role, ok := strings.Cut(pair, ":")
		if !ok {
			logger.Sugar().Fatalf("seed: token %q must be subject:role", pair)
		}
		tok, err := utils.GenerateToken(subject, role, *tokenTTL)
		if err != nil {
			logger.Sugar().Fatalf("seed: failed to mint token for %s: %v", subject, err)
		}
		fmt.Printf("%s\t%s\t%s\n", subject, role, tok)
	}

	needStore := *ensureIndexes || *seedRefunds || len(*vouchers) > 0 || len(*vipOn) > 0 || len(*vipOff) > 0 || *promotion != ""
	if !needStore {
		return
	}
	if config.UseMemoryStore() {
		logger.Sugar().Fatal("seed: STORE_DRIVER=memory has nothing to seed")
	}

	if err := database.InitDB(); err != nil {
		logger.Sugar().Fatalf("seed: failed to connect to MongoDB: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	defer func() {
		if err := database.CloseDB(context.Background()); err != nil {
			logger.Warn("seed: failed to disconnect", zap.Error(err))
		}
	}()

	repos := app.NewMongoRepositories(database.MongoClient, database.Database())
	svc := app.BuildServices(repos, app.Options{
		VoucherValidity: config.AppConfig.VoucherValidity,
		Logger:          logger,
	})

	if *ensureIndexes {
		if err := repos.EnsureIndexes(ctx); err != nil {
			fail(logger, "ensure indexes", err)
		}
		logger.Info("indexes ensured")
	}
	if *seedRefunds {
		n, err := svc.Refunds.SeedDefaults(ctx)
		if err != nil {
			fail(logger, "seed refund settings", err)
		}
		logger.Info("refund settings seeded", zap.Int("inserted", n))
	}
	for _, id := range *vouchers {
		v, created, err := svc.Policy.IssueVoucher(ctx, id)
		if err != nil {
			fail(logger, "issue voucher", err)
		}
		logger.Info("voucher", zap.String("installerId", id), zap.String("voucherId", v.ID), zap.Bool("created", created))
	}
	for _, id := range *vipOn {
		if err := svc.Policy.SetVIP(ctx, id, true); err != nil {
			fail(logger, "grant vip", err)
		}
	}
	for _, id := range *vipOff {
		if err := svc.Policy.SetVIP(ctx, id, false); err != nil {
			fail(logger, "revoke vip", err)
		}
	}
	switch *promotion {
	case "":
	case "on", "off":
		var until *time.Time
		if *promotion == "on" && *promotionUntil > 0 {
			t := time.Now().UTC().Add(*promotionUntil)
			until = &t
		}
		if _, err := svc.Policy.SetPromotion(ctx, *promotion == "on", until, *operator); err != nil {
			fail(logger, "set promotion", err)
		}
	default:
		logger.Sugar().Fatalf("seed: --promotion must be on or off, got %q", *promotion)
	}
}

func fail(logger *zap.Logger, step string, err error) {
	logger.Error("seed step failed", zap.String("step", step), zap.Error(err))
	_ = logger.Sync()
	os.Exit(1)
}
