package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/taxbridge/backend/internal/infrastructure/auth"
	"github.com/taxbridge/backend/internal/infrastructure/config"
)

// admintoken signs a bearer token for the channel settings API with the
// configured JWT secret.
func main() {
	var (
		subject     string
		permissions string
		ttl         time.Duration
	)

	flag.StringVar(&subject, "subject", "", "Subject of the token, e.g. an operator email (required)")
	flag.StringVar(&permissions, "permissions", auth.PermissionTaxAdmin, "Comma separated permissions")
	flag.DurationVar(&ttl, "ttl", 0, "Token lifetime (default: jwt.access_token_expiration)")
	flag.Parse()

	if subject == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if ttl > 0 {
		cfg.JWT.AccessTokenExpiration = ttl
	}

	var perms []string
	for _, p := range strings.Split(permissions, ",") {
		if p = strings.TrimSpace(p); p != "" {
			perms = append(perms, p)
		}
	}

	token, err := auth.NewJWTService(cfg.JWT).GenerateToken(subject, perms...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to sign token: %v\n", err)
		os.Exit(1)
	}

	fmt.Fprintf(os.Stderr, "expires at %s\n", token.ExpiresAt.Format(time.RFC3339))
	fmt.Println(token.AccessToken)
}
