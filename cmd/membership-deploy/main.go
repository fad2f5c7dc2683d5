// membership-deploy bootstraps a membership collection.
//
// It opens the configured store, creates the collection from the
// configuration (MEMBERSHIP_NAME, MEMBERSHIP_SYMBOL, MEMBERSHIP_BASEURI,
// MEMBERSHIP_MAX_SUPPLY and MEMBERSHIP_ADMIN override the file), and seeds
// one tier when MEMBERSHIP_PRICE (or its alias MEMBERSHIP_PRICE_WEI) and
// MEMBERSHIP_DURATION_SECS are set and the collection has no tiers yet. --set-base-uri changes the base URI of
// an existing collection.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/spf13/pflag"

	membership "github.com/xraph/membership"
	"github.com/xraph/membership/internal/appconfig"
	"github.com/xraph/membership/store/driver"
	"github.com/xraph/membership/types"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// summary is printed as JSON once the deployment is done.
type summary struct {
	Name        string  `json:"name"`
	Symbol      string  `json:"symbol"`
	Admin       string  `json:"admin"`
	MaxSupply   uint64  `json:"max_supply"`
	BaseURI     string  `json:"base_uri"`
	Tiers       uint64  `json:"tiers"`
	TotalMinted uint64  `json:"total_minted"`
	SeededTier  *uint64 `json:"seeded_tier,omitempty"`
}

func run(args []string, stdout io.Writer) error {
	var configPath, baseURI string

	flagSet := pflag.NewFlagSet("membership-deploy", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "path to the YAML config file (default: $MEMBERSHIP_CONFIG)")
	flagSet.StringVar(&baseURI, "set-base-uri", "", "set the descriptor base URI of the collection")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg, err := appconfig.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	seed, err := seedFromEnv()
	if err != nil {
		return err
	}

	logger := cfg.Logger(os.Stderr)
	ctx := context.Background()

	st, err := driver.Open(ctx, cfg.Store, logger)
	if err != nil {
		return err
	}
	eng, err := membership.New(cfg.Collection, st, membership.WithLogger(logger))
	if err != nil {
		_ = st.Close()
		return err
	}
	if err := eng.Start(ctx); err != nil {
		_ = eng.Stop()
		return err
	}

	out, err := deploy(ctx, eng, seed, baseURI, logger)
	return errors.Join(err, writeSummary(stdout, out), eng.Stop())
}

// seedTier is the tier created on first deployment.
type seedTier struct {
	price    uint64
	duration time.Duration
}

func seedFromEnv() (*seedTier, error) {
	price, duration := os.Getenv("MEMBERSHIP_PRICE"), os.Getenv("MEMBERSHIP_DURATION_SECS")
	if wei := os.Getenv("MEMBERSHIP_PRICE_WEI"); wei != "" {
		if price != "" && price != wei {
			return nil, errors.New("MEMBERSHIP_PRICE and MEMBERSHIP_PRICE_WEI disagree")
		}
		price = wei
	}
	if price == "" && duration == "" {
		return nil, nil
	}
	if price == "" || duration == "" {
		return nil, errors.New("MEMBERSHIP_PRICE and MEMBERSHIP_DURATION_SECS must be set together")
	}

	amount, err := types.ParseAmount(price)
	if err != nil {
		return nil, fmt.Errorf("MEMBERSHIP_PRICE: %w", err)
	}
	secs, err := strconv.ParseInt(duration, 10, 64)
	if err != nil || secs <= 0 {
		return nil, fmt.Errorf("MEMBERSHIP_DURATION_SECS: invalid value %q", duration)
	}
	return &seedTier{price: amount, duration: time.Duration(secs) * time.Second}, nil
}

func deploy(ctx context.Context, eng *membership.Engine, seed *seedTier, baseURI string, logger *slog.Logger) (*summary, error) {
	admin := eng.Admin()
	out := &summary{}

	if seed != nil {
		if eng.TierCount(ctx) == 0 {
			tierID, err := eng.CreateTier(ctx, admin, eng.Price(seed.price), seed.duration)
			if err != nil {
				return nil, fmt.Errorf("seed tier: %w", err)
			}
			out.SeededTier = &tierID
			logger.Info("seeded tier", "tier_id", tierID, "price", eng.Price(seed.price).String(), "duration", seed.duration)
		} else {
			logger.Info("collection already has tiers, skipping seed", "tiers", eng.TierCount(ctx))
		}
	}

	if baseURI != "" {
		if err := eng.SetBaseURI(ctx, admin, baseURI); err != nil {
			return nil, fmt.Errorf("set base uri: %w", err)
		}
		logger.Info("base uri updated", "base_uri", baseURI)
	}

	out.Name = eng.Name()
	out.Symbol = eng.Symbol()
	out.Admin = admin.String()
	out.MaxSupply = eng.MaxSupply()
	out.BaseURI = eng.BaseURI(ctx)
	out.Tiers = eng.TierCount(ctx)
	out.TotalMinted = eng.TotalMinted(ctx)
	return out, nil
}

func writeSummary(w io.Writer, s *summary) error {
	if s == nil {
		return nil
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}
