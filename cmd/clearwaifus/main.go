// Package main deletes every character, or prints the bcrypt hash of an
// admin token for the admin.token_hash setting.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/cory-johannsen/waifu/internal/config"
	"github.com/cory-johannsen/waifu/internal/storage/postgres"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	hash := flag.String("hash", "", "print the bcrypt hash of this admin token and exit")
	yes := flag.Bool("yes", false, "skip the confirmation prompt")
	flag.Parse()

	if *hash != "" {
		out, err := bcrypt.GenerateFromPassword([]byte(*hash), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("hashing token: %v", err)
		}
		fmt.Fprintln(os.Stdout, string(out))
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	if !*yes && !confirm(fmt.Sprintf("delete ALL characters in %s@%s? [y/N] ", cfg.Database.Name, cfg.Database.Host)) {
		fmt.Fprintln(os.Stdout, "aborted")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("connecting to database: %v", err)
	}
	defer pool.Close()

	n, err := postgres.NewCharacterRepository(pool.DB()).DeleteAll(ctx)
	if err != nil {
		log.Fatalf("clearing characters: %v", err)
	}
	fmt.Fprintf(os.Stdout, "deleted %d characters [%s]\n", n, time.Since(start))
}

func confirm(prompt string) bool {
	fmt.Fprint(os.Stdout, prompt)
	line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
