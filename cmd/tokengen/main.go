// Package main provides a CLI tool for minting actor tokens for local use.
// Tokens are signed with the dev secret unless -secret is given.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	jwttoken "barangay/internal/jwt_token"
	id "barangay/pkg/domain"
	"barangay/pkg/secrets"
)

const (
	// Dev secret - matches config when ACTOR_TOKEN_SECRET is not set
	devTokenSecret = "dev-actor-token-secret"

	defaultIssuer   = "barangay"
	defaultTokenTTL = time.Hour
)

type tokenOutput struct {
	Token     string            `json:"token"`
	ExpiresIn string            `json:"expires_in"`
	Claims    map[string]any    `json:"claims"`
	Usage     map[string]string `json:"usage"`
}

func main() {
	actorCmd := flag.NewFlagSet("actor", flag.ExitOnError)
	actorID := actorCmd.String("id", "", "Actor ID (required). For residents, the resident UUID.")
	role := actorCmd.String("role", "official", "Role: resident, official or admin")
	ttl := actorCmd.Duration("ttl", defaultTokenTTL, "Token time-to-live")
	secret := actorCmd.String("secret", devTokenSecret, "Signing secret")
	jsonOut := actorCmd.Bool("json", false, "Output as JSON")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "actor":
		_ = actorCmd.Parse(os.Args[2:])
		generateActorToken(*actorID, *role, *secret, *ttl, *jsonOut)
	case "secret":
		generateSecret()
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`tokengen - Mint actor tokens for the barangay verification API

Usage:
  tokengen actor -id <actor-id> [-role official] [-ttl 1h] [-json]
  tokengen secret

Examples:
  # Barangay official
  tokengen actor -id official-a

  # Resident acting on their own record
  tokengen actor -id 6f1c2b9e-3d4a-4f5b-8c7d-0e1f2a3b4c5d -role resident

  # Random value for ACTOR_TOKEN_SECRET or CREDENTIAL_CHECKSUM_KEY
  tokengen secret`)
}

func generateActorToken(actorID, role, secret string, ttl time.Duration, jsonOutput bool) {
	actor, err := id.ParseActorID(actorID)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error: -id is required")
		os.Exit(1)
	}

	svc := jwttoken.NewActorTokenService(secret, defaultIssuer, ttl)
	token, err := svc.Issue(context.Background(), actor, role)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating token: %v\n", err)
		os.Exit(1)
	}

	if jsonOutput {
		printJSON(tokenOutput{
			Token:     token,
			ExpiresIn: ttl.String(),
			Claims:    map[string]any{"sub": actor.String(), "role": role},
			Usage:     map[string]string{"header": "Authorization: Bearer <token>"},
		})
		return
	}

	fmt.Println("Actor Token")
	fmt.Println("===========")
	fmt.Printf("Actor:      %s\n", actor)
	fmt.Printf("Role:       %s\n", role)
	fmt.Printf("Expires In: %s\n", ttl)
	fmt.Println()
	fmt.Println(token)
}

func generateSecret() {
	secret, err := secrets.Generate()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating secret: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(secret)
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding JSON: %v\n", err)
		os.Exit(1)
	}
}
