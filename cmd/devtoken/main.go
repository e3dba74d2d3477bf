// Command devtoken prints a signed bearer token for local testing of the
// ledger API. It reads JWT_SECRET and JWT_ISSUER like the server does.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"fxledger/internal/auth"
	"fxledger/internal/cli"
	"fxledger/internal/config"
)

func main() {
	owner := flag.String("owner", "", "owner id placed in the token subject (required)")
	name := flag.String("name", "", "optional display name")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	cli.LoadEnvFile()
	cfg := config.Load()

	if *owner == "" {
		fmt.Fprintln(os.Stderr, "devtoken: -owner is required")
		flag.Usage()
		os.Exit(2)
	}
	if len(cfg.JWTSecret) < 16 {
		fmt.Fprintln(os.Stderr, "devtoken: JWT_SECRET must be at least 16 characters")
		os.Exit(1)
	}

	token, err := auth.NewSigner(cfg.JWTSecret, cfg.JWTIssuer, *ttl).Sign(*owner, *name)
	if err != nil {
		fmt.Fprintf(os.Stderr, "devtoken: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
