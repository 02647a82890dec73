// Command hashpass prints a bcrypt hash suitable for AUTH_ADMIN_PASSWORD_HASH.
// The password is read from the first line of stdin.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/spec-kit/portfolio-contact/internal/auth"
	"github.com/spec-kit/portfolio-contact/internal/config"
)

func main() {
	_ = godotenv.Load()
	var authCfg config.AuthConfig
	if err := envconfig.Process("", &authCfg); err != nil {
		log.Fatalf("process env: %v", err)
	}

	cost := flag.Int("cost", authCfg.BcryptCost, "bcrypt cost (defaults to AUTH_BCRYPT_COST)")
	flag.Parse()

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		log.Fatalf("read password: %v", err)
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		log.Fatal("password must not be empty")
	}

	hash, err := auth.HashPassword(password, *cost)
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}
	fmt.Println(hash)
}
