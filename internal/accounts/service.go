package accounts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned for every authentication failure. The
// shape is constant whether the email or the password was wrong, so a caller
// cannot probe which accounts exist.
var ErrInvalidCredentials = errors.New("invalid email or password")

// Agent is an authenticated operator of the gateway.
type Agent struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Seed describes an agent to create at startup.
type Seed struct {
	Email    string
	Password string
}

type record struct {
	agent        Agent
	passwordHash []byte
}

// Service authenticates agents against an in-process principal set seeded
// from config. Passwords are stored as bcrypt hashes only.
type Service struct {
	logger *slog.Logger
	agents map[string]record
}

// NewService creates a service with the given seed agents.
func NewService(log *slog.Logger, seeds []Seed) (*Service, error) {
	if log == nil {
		log = slog.Default()
	}
	s := &Service{
		logger: log.With(slog.String("service", "accounts")),
		agents: map[string]record{},
	}
	for _, seed := range seeds {
		email := normalizeEmail(seed.Email)
		if email == "" {
			return nil, fmt.Errorf("seed agent email is required")
		}
		if strings.TrimSpace(seed.Password) == "" {
			return nil, fmt.Errorf("seed agent password is required for %s", email)
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(seed.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash password for %s: %w", email, err)
		}
		s.agents[email] = record{
			agent:        Agent{ID: uuid.NewString(), Email: email},
			passwordHash: hash,
		}
	}
	return s, nil
}

// Authenticate verifies an email/password pair and returns the matching
// agent. Every failure mode returns ErrInvalidCredentials.
func (s *Service) Authenticate(_ context.Context, email, password string) (Agent, error) {
	rec, ok := s.agents[normalizeEmail(email)]
	if !ok {
		// Burn a comparison so unknown emails cost the same as bad passwords.
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return Agent{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(rec.passwordHash, []byte(password)); err != nil {
		return Agent{}, ErrInvalidCredentials
	}
	return rec.agent, nil
}

// dummyHash is a bcrypt hash of an unguessable placeholder, used to equalize
// timing for unknown emails.
var dummyHash = func() []byte {
	hash, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), bcrypt.DefaultCost)
	if err != nil {
		panic(err)
	}
	return hash
}()

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
