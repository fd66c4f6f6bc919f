// Command token signs a bearer token for a principal using JWT_SECRET.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/umeboshi2/kotti-jsonapi/infrastructure/config"
	"github.com/umeboshi2/kotti-jsonapi/pkg/auth"
)

func main() {
	principal := flag.String("principal", "admin", "principal name to sign for")
	email := flag.String("email", "", "email claim")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	gen, err := auth.NewJWTGenerator(cfg.JWTSecret, cfg.JWTIssuer, *ttl)
	if err != nil {
		log.Fatalf("Failed to create generator: %v", err)
	}
	token, err := gen.GenerateToken(*principal, *email)
	if err != nil {
		log.Fatalf("Failed to sign token: %v", err)
	}
	fmt.Fprintln(os.Stdout, token)
}
