// issue-token prints a bearer token signed with JWT_SECRET.
//
// Usage:
//
//	issue-token -user ops-1 -role admin -ttl 8h
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/fjod/storefront/internal/config"
	h "github.com/fjod/storefront/internal/http"
)

func main() {
	userID := flag.String("user", "", "user id placed in the token (required)")
	role := flag.String("role", "", "optional role, e.g. admin")
	ttl := flag.Duration("ttl", time.Hour, "token lifetime")
	flag.Parse()

	if *userID == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET is not set")
	}

	token, err := h.NewAuthenticator(cfg.JWTSecret).Sign(h.Identity{UserID: *userID, Role: *role}, *ttl)
	if err != nil {
		log.Fatalf("Failed to sign token: %v", err)
	}
	fmt.Println(token)
}
