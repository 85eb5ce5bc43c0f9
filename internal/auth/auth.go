package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"stock_pro/internal/kv"
)

// maxPasswordBytes is the longest input bcrypt accepts.
const maxPasswordBytes = 72

// SlotAccounts is the backing store slot holding registered accounts.
const SlotAccounts = "starlink_users"

var (
	// ErrNotFound is returned when no account exists for the email.
	ErrNotFound = errors.New("account not found")
	// ErrWrongCredential is returned when the password does not match.
	ErrWrongCredential = errors.New("wrong credential")
	// ErrAlreadyRegistered is returned when registering an existing email.
	ErrAlreadyRegistered = errors.New("account already registered")
	// ErrProviderDisabled is returned when provider sign-in is turned off.
	ErrProviderDisabled = errors.New("provider sign-in disabled")
	// ErrInvalidCredentials is returned for malformed email or password input.
	ErrInvalidCredentials = errors.New("invalid email or password format")
)

// Failure reasons reported to clients.
const (
	ReasonNotFound          = "not-found"
	ReasonWrongCredential   = "wrong-credential"
	ReasonAlreadyRegistered = "already-registered"
	ReasonGeneric           = "generic"
)

// Reason classifies an authentication error.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return ReasonNotFound
	case errors.Is(err, ErrWrongCredential):
		return ReasonWrongCredential
	case errors.Is(err, ErrAlreadyRegistered):
		return ReasonAlreadyRegistered
	default:
		return ReasonGeneric
	}
}

// Credentials identify a local account.
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Identity is who signed in and through which provider.
type Identity struct {
	Email    string `json:"email"`
	Provider string `json:"provider"`
}

// Authenticator gates access to the application.
type Authenticator interface {
	SignIn(ctx context.Context, creds Credentials) (Identity, error)
	SignInWithProvider(ctx context.Context) (Identity, error)
	Register(ctx context.Context, creds Credentials) (Identity, error)
}

type account struct {
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
}

// LocalOptions configure a LocalAuthenticator.
type LocalOptions struct {
	// ProviderEnabled turns on the simulated identity-provider sign-in.
	ProviderEnabled bool
	// ProviderAccount is the email the simulated provider signs in as.
	ProviderAccount string
	// Cost is the bcrypt cost; zero means bcrypt.DefaultCost.
	Cost int
	// MinPasswordLength applies to registration only; zero means 6.
	MinPasswordLength int
}

// LocalAuthenticator keeps bcrypt-hashed accounts in a backing store slot.
type LocalAuthenticator struct {
	mu       sync.Mutex
	backend  kv.Storage
	logger   *zap.Logger
	validate *validator.Validate
	opts     LocalOptions
}

// NewLocalAuthenticator creates an authenticator over backend.
func NewLocalAuthenticator(backend kv.Storage, logger *zap.Logger, opts LocalOptions) *LocalAuthenticator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Cost == 0 {
		opts.Cost = bcrypt.DefaultCost
	}
	if opts.MinPasswordLength == 0 {
		opts.MinPasswordLength = 6
	}
	return &LocalAuthenticator{
		backend:  backend,
		logger:   logger,
		validate: validator.New(),
		opts:     opts,
	}
}

// SignIn checks the password of an existing account.
func (a *LocalAuthenticator) SignIn(ctx context.Context, creds Credentials) (Identity, error) {
	creds.Email = normalizeEmail(creds.Email)
	if err := a.validate.Struct(creds); err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	accounts, err := a.load(ctx)
	if err != nil {
		return Identity{}, err
	}
	acc, ok := accounts[creds.Email]
	if !ok {
		a.logger.Info("sign-in failed", zap.String("email", creds.Email), zap.String("reason", ReasonNotFound))
		return Identity{}, ErrNotFound
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(creds.Password)); err != nil {
		a.logger.Info("sign-in failed", zap.String("email", creds.Email), zap.String("reason", ReasonWrongCredential))
		return Identity{}, ErrWrongCredential
	}

	a.logger.Info("signed in", zap.String("email", creds.Email))
	return Identity{Email: creds.Email, Provider: "local"}, nil
}

// SignInWithProvider simulates a federated sign-in.
func (a *LocalAuthenticator) SignInWithProvider(_ context.Context) (Identity, error) {
	if !a.opts.ProviderEnabled {
		return Identity{}, ErrProviderDisabled
	}
	a.logger.Info("signed in with provider", zap.String("email", a.opts.ProviderAccount))
	return Identity{Email: normalizeEmail(a.opts.ProviderAccount), Provider: "provider"}, nil
}

// Register creates a new local account.
func (a *LocalAuthenticator) Register(ctx context.Context, creds Credentials) (Identity, error) {
	creds.Email = normalizeEmail(creds.Email)
	if err := a.validate.Struct(creds); err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}
	if len(creds.Password) < a.opts.MinPasswordLength {
		return Identity{}, fmt.Errorf("%w: password shorter than %d characters", ErrInvalidCredentials, a.opts.MinPasswordLength)
	}
	if len(creds.Password) > maxPasswordBytes {
		return Identity{}, fmt.Errorf("%w: password longer than %d bytes", ErrInvalidCredentials, maxPasswordBytes)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	accounts, err := a.load(ctx)
	if err != nil {
		return Identity{}, err
	}
	if _, ok := accounts[creds.Email]; ok {
		return Identity{}, ErrAlreadyRegistered
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(creds.Password), a.opts.Cost)
	if err != nil {
		return Identity{}, fmt.Errorf("hash password: %w", err)
	}
	accounts[creds.Email] = account{Email: creds.Email, PasswordHash: string(hash), CreatedAt: time.Now().UTC()}
	if err := a.save(ctx, accounts); err != nil {
		return Identity{}, err
	}

	a.logger.Info("account registered", zap.String("email", creds.Email))
	return Identity{Email: creds.Email, Provider: "local"}, nil
}

// Seed registers creds unless the account already exists.
func (a *LocalAuthenticator) Seed(ctx context.Context, creds Credentials) error {
	_, err := a.Register(ctx, creds)
	if err != nil && !errors.Is(err, ErrAlreadyRegistered) {
		return err
	}
	return nil
}

func (a *LocalAuthenticator) load(ctx context.Context) (map[string]account, error) {
	out := map[string]account{}
	payload, err := a.backend.Get(ctx, SlotAccounts)
	if errors.Is(err, kv.ErrNotFound) {
		return out, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load accounts: %w", err)
	}

	var list []account
	if err := json.Unmarshal(payload, &list); err != nil {
		a.logger.Warn("discarding corrupt accounts slot", zap.Error(err))
		return out, nil
	}
	for _, acc := range list {
		out[acc.Email] = acc
	}
	return out, nil
}

func (a *LocalAuthenticator) save(ctx context.Context, accounts map[string]account) error {
	list := make([]account, 0, len(accounts))
	for _, acc := range accounts {
		list = append(list, acc)
	}
	payload, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("encode accounts: %w", err)
	}
	if err := a.backend.Set(ctx, SlotAccounts, payload); err != nil {
		return fmt.Errorf("persist accounts: %w", err)
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
