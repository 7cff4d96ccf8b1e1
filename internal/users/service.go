package users

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/medvault/medvault/internal/audit"
	"github.com/medvault/medvault/internal/auth"
	"github.com/medvault/medvault/internal/crypto"
)

// Service handles account administration.
type Service struct {
	repo   RepositoryPort
	crypto *crypto.Service
	audit  *audit.Service
	logger *slog.Logger
	now    func() time.Time
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, cryptoSvc *crypto.Service, auditSvc *audit.Service, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, crypto: cryptoSvc, audit: auditSvc, logger: logger, now: time.Now}
}

// List returns all accounts.
func (s *Service) List(ctx context.Context) ([]auth.Account, error) {
	return s.repo.List(ctx)
}

// Create provisions an active account with a hashed password and audits the
// action against the acting administrator.
func (s *Service) Create(ctx context.Context, actorID string, req NewAccount) (*auth.Account, error) {
	if !req.Role.Valid() {
		return nil, ErrInvalidRole
	}
	hash, err := s.crypto.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	// Stored in the same form the login lookup uses, otherwise a mixed-case
	// account could never authenticate. Passwords are hashed verbatim.
	account := &auth.Account{
		ID:            uuid.NewString(),
		Username:      auth.NormalizeIdentifier(req.Username),
		Email:         auth.NormalizeIdentifier(req.Email),
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		PasswordHash:  hash,
		Role:          req.Role,
		Institution:   req.Institution,
		LicenseNumber: req.LicenseNumber,
		IsActive:      true,
		CreatedAt:     s.now().UTC(),
	}
	if err := s.repo.Insert(ctx, account); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, audit.Record{
		ActorID:     actorID,
		Action:      audit.ActionUserCreated,
		EntityType:  "User",
		EntityID:    account.ID,
		Description: "Account provisioned with role " + string(account.Role),
	})
	s.logger.Info("account created",
		slog.String("account_id", account.ID), slog.String("role", string(account.Role)))
	return account, nil
}
