package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"server/internal/adapter/repo"
	"server/internal/infra"
	"server/internal/ledger"
)

// grantcredits is the operator escape hatch for adjusting a profile's credit
// balance. It goes through the ledger so every change leaves an audit row.
func main() {
	var (
		idFlag    string
		deltaFlag int
		setFlag   int
	)

	flag.StringVar(&idFlag, "id", "", "identity ID of the profile to adjust")
	flag.IntVar(&deltaFlag, "delta", 0, "credits to add (negative to remove)")
	flag.IntVar(&setFlag, "set", -1, "absolute balance to set (overrides -delta)")
	flag.Parse()

	identityID := strings.TrimSpace(idFlag)
	if identityID == "" {
		exitWithError(errors.New("-id is required"))
	}
	if deltaFlag == 0 && setFlag < 0 {
		exitWithError(errors.New("one of -delta or -set must be provided"))
	}

	_ = godotenv.Load()
	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		exitWithError(errors.New("DATABASE_URL is required"))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		exitWithError(fmt.Errorf("failed to connect database: %w", err))
	}
	defer pool.Close()

	logger := infra.NewLogger("cli").With().Str("cmd", "grantcredits").Logger()
	profiles := repo.NewProfileRepository(pool)

	profile, err := profiles.GetByIdentity(ctx, identityID)
	if err != nil {
		exitWithError(fmt.Errorf("failed to load profile: %w", err))
	}

	newBalance := profile.Credits + deltaFlag
	if setFlag >= 0 {
		newBalance = setFlag
	}
	if newBalance < 0 {
		exitWithError(fmt.Errorf("refusing to set balance below zero (current %d)", profile.Credits))
	}

	led := ledger.New(profiles, logger)
	if err := led.UpdateCredits(ctx, identityID, newBalance); err != nil {
		exitWithError(fmt.Errorf("failed to update credits: %w", err))
	}

	fmt.Printf("Profile %s (%s): credits %d -> %d\n", profile.ID, profile.Email, profile.Credits, newBalance)
}

func exitWithError(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
