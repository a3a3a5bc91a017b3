// Package main credits coins, gems or skill points to a user.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/cory-johannsen/waifu/internal/config"
	"github.com/cory-johannsen/waifu/internal/storage/postgres"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	telegramID := flag.Int64("telegram-id", 0, "target Telegram user id (required)")
	currency := flag.String("currency", "coins", "currency to credit: coins, gems, or skill_points")
	amount := flag.Int64("amount", 0, "amount to credit, > 0 (required)")
	flag.Parse()

	if *telegramID <= 0 || *amount <= 0 {
		flag.Usage()
		os.Exit(1)
	}

	cur, ok := postgres.ParseCurrency(*currency)
	if !ok {
		log.Fatalf("invalid currency %q: must be one of coins, gems, skill_points", *currency)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("connecting to database: %v", err)
	}
	defer pool.Close()

	repo := postgres.NewUserRepository(pool.DB())

	u, err := repo.GetByTelegramID(ctx, *telegramID)
	if err != nil {
		log.Fatalf("looking up user %d: %v", *telegramID, err)
	}

	balance, err := repo.Credit(ctx, u.ID, cur, *amount)
	if err != nil {
		log.Fatalf("crediting %s: %v", cur, err)
	}

	fmt.Fprintf(os.Stdout, "credited %d %s to %s (#%d): balance %d [%s]\n",
		*amount, cur, u.Username, u.ID, balance, time.Since(start))
}
