// Command sessiontool signs and inspects session tokens with the configured secret.
//
//	sessiontool sign -user u1 -name Ada -email ada@example.com [-ttl 10m]
//	sessiontool verify <token>
//
// The secret is read the same way the server reads it (SESSION_SECRET or -config).
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/MrEthical07/sessiongate/internal/config"
	"github.com/MrEthical07/sessiongate/jwt"
	"github.com/google/uuid"
)

const usage = `usage:
  sessiontool sign -user ID [-name NAME] [-email EMAIL] [-ttl DURATION] [-config FILE]
  sessiontool verify [-config FILE] TOKEN`

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, usage)
		return 2
	}

	var err error
	switch args[0] {
	case "sign":
		err = sign(args[1:], stdout)
	case "verify":
		err = verify(args[1:], stdout)
	default:
		fmt.Fprintln(stderr, usage)
		return 2
	}

	if errors.Is(err, flag.ErrHelp) {
		return 2
	}
	if err != nil {
		fmt.Fprintf(stderr, "sessiontool: %v\n", err)
		return 1
	}
	return 0
}

func manager(configPath string, ttl time.Duration) (*jwt.Manager, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if ttl == 0 {
		ttl = cfg.SessionTTL
	}
	return jwt.NewManager(jwt.Config{Secret: cfg.SessionSecret, TTL: ttl})
}

func sign(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("sign", flag.ContinueOnError)
	var (
		configPath = fs.String("config", "", "optional YAML config file")
		userID     = fs.String("user", "", "user id (required)")
		name       = fs.String("name", "", "username claim")
		email      = fs.String("email", "", "email claim")
		ttl        = fs.Duration("ttl", 0, "token lifetime; default is the configured session TTL")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *userID == "" {
		return errors.New("-user is required")
	}

	m, err := manager(*configPath, *ttl)
	if err != nil {
		return err
	}

	token, _, err := m.Sign(jwt.Claims{
		UserID:    *userID,
		Username:  *name,
		Email:     *email,
		SessionID: uuid.NewString(),
	})
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(stdout, token)
	return err
}

type claimsOutput struct {
	UserID    string         `json:"userId"`
	Username  string         `json:"username,omitempty"`
	Email     string         `json:"email,omitempty"`
	SessionID string         `json:"sid,omitempty"`
	IssuedAt  time.Time      `json:"iat"`
	ExpiresAt time.Time      `json:"exp"`
	Extra     map[string]any `json:"extra,omitempty"`
}

func verify(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("verify", flag.ContinueOnError)
	configPath := fs.String("config", "", "optional YAML config file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("verify takes exactly one token")
	}

	m, err := manager(*configPath, 0)
	if err != nil {
		return err
	}

	c, err := m.Verify(strings.TrimSpace(fs.Arg(0)))
	if err != nil {
		return err
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(claimsOutput{
		UserID:    c.UserID,
		Username:  c.Username,
		Email:     c.Email,
		SessionID: c.SessionID,
		IssuedAt:  c.IssuedAt.UTC(),
		ExpiresAt: c.ExpiresAt.UTC(),
		Extra:     c.Extra,
	})
}
