package auth

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/text/secure/precis"

	"github.com/medvault/medvault/internal/audit"
	"github.com/medvault/medvault/internal/crypto"
	"github.com/medvault/medvault/internal/token"
)

// Metrics receives security counters from the service. Implementations must
// be nil-safe to disable.
type Metrics interface {
	LoginAttempt(result string)
	TokensRevoked(n int)
}

// Service orchestrates login, logout, password change, token validation, and
// permission checks.
type Service struct {
	repo     Repository
	crypto   *crypto.Service
	tokens   *token.Service
	registry token.Registry
	audit    *audit.Service
	logger   *slog.Logger
	metrics  Metrics
	now      func() time.Time
}

// NewService constructs a Service. metrics may be nil.
func NewService(repo Repository, cryptoSvc *crypto.Service, tokens *token.Service, registry token.Registry, auditSvc *audit.Service, logger *slog.Logger, metrics Metrics) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:     repo,
		crypto:   cryptoSvc,
		tokens:   tokens,
		registry: registry,
		audit:    auditSvc,
		logger:   logger,
		metrics:  metrics,
		now:      time.Now,
	}
}

// Authenticate verifies credentials and returns a registered bearer token, or
// "" on any failure. Failures carry no detail that could aid enumeration;
// the reasons go to the operator log and the audit trail only.
func (s *Service) Authenticate(ctx context.Context, usernameOrEmail, password, clientIP, userAgent string) string {
	lookup := NormalizeIdentifier(usernameOrEmail)

	accounts, err := s.repo.FindByUsernameOrEmail(ctx, lookup)
	if err != nil {
		s.logger.Error("account lookup failed", slog.Any("error", err))
		s.failLogin(ctx, "", lookup, "account lookup failed", clientIP, userAgent)
		return ""
	}
	if len(accounts) != 1 || !accounts[0].IsActive {
		s.logger.Warn("authentication failed", slog.String("identifier", lookup))
		s.failLogin(ctx, "", lookup, "unknown or inactive account", clientIP, userAgent)
		return ""
	}
	account := accounts[0]

	if !s.crypto.VerifyPassword(password, account.PasswordHash) {
		s.logger.Warn("password verification failed", slog.String("account_id", account.ID))
		s.failLogin(ctx, account.ID, lookup, "password mismatch", clientIP, userAgent)
		return ""
	}

	permissions := account.Role.Permissions()
	tok, err := s.tokens.Issue(account.ID, []string{string(account.Role)}, permissions)
	if err != nil {
		s.logger.Error("token issue failed", slog.String("account_id", account.ID), slog.Any("error", err))
		return ""
	}

	// Password verification and store calls stay outside the registry
	// critical section; registration is the short final step.
	if err := s.registry.Put(ctx, tok, account.ID); err != nil {
		s.logger.Error("token registration failed", slog.String("account_id", account.ID), slog.Any("error", err))
		return ""
	}

	account.LastLoginAt = s.now().UTC()
	if err := s.repo.Update(ctx, &account); err != nil {
		s.logger.Error("last-login update failed", slog.String("account_id", account.ID), slog.Any("error", err))
		if rmErr := s.registry.Remove(ctx, tok); rmErr != nil {
			s.logger.Error("registry rollback failed", slog.Any("error", rmErr))
		}
		return ""
	}

	s.audit.Record(ctx, audit.Record{
		ActorID:     account.ID,
		Action:      audit.ActionLogin,
		EntityType:  "User",
		EntityID:    account.ID,
		Description: "Successful authentication",
		IPAddress:   clientIP,
		UserAgent:   userAgent,
	})
	if s.metrics != nil {
		s.metrics.LoginAttempt("success")
	}
	s.logger.Info("account authenticated", slog.String("account_id", account.ID))
	return tok
}

// Validate reports whether the token is registered, cryptographically valid,
// and unexpired. A registered token that fails verification is evicted so the
// registry never holds invalid entries.
func (s *Service) Validate(ctx context.Context, tok string) bool {
	subject, err := s.registry.Subject(ctx, tok)
	if err != nil {
		s.logger.Error("registry lookup failed", slog.Any("error", err))
		return false
	}
	if subject == "" {
		return false
	}
	if _, err := s.tokens.Verify(tok); err != nil {
		if rmErr := s.registry.Remove(ctx, tok); rmErr != nil {
			s.logger.Warn("registry eviction failed", slog.Any("error", rmErr))
		}
		return false
	}
	return true
}

// ResolveIdentity decodes the token subject and re-fetches the live account.
// Claims are a snapshot; deactivation since issue time shows up here.
func (s *Service) ResolveIdentity(ctx context.Context, tok string) *Account {
	subject, ok := s.tokens.Subject(tok)
	if !ok {
		return nil
	}
	account, err := s.repo.GetByID(ctx, subject)
	if err != nil {
		if err != ErrNotFound {
			s.logger.Error("identity fetch failed", slog.String("account_id", subject), slog.Any("error", err))
		}
		return nil
	}
	return account
}

// Logout audits best-effort and unconditionally removes the token from the
// registry.
func (s *Service) Logout(ctx context.Context, tok string) bool {
	if account := s.ResolveIdentity(ctx, tok); account != nil {
		s.audit.Record(ctx, audit.Record{
			ActorID:     account.ID,
			Action:      audit.ActionLogout,
			EntityType:  "User",
			EntityID:    account.ID,
			Description: "User logged out",
		})
	}
	if err := s.registry.Remove(ctx, tok); err != nil {
		s.logger.Error("logout registry removal failed", slog.Any("error", err))
		return false
	}
	s.logger.Info("session revoked")
	return true
}

// ChangePassword verifies the current password before storing a new hash.
// All of the identity's registered tokens are revoked: rotating a password
// forces re-authentication everywhere.
func (s *Service) ChangePassword(ctx context.Context, accountID, currentPassword, newPassword string) bool {
	account, err := s.repo.GetByID(ctx, accountID)
	if err != nil {
		if err != ErrNotFound {
			s.logger.Error("account fetch failed", slog.String("account_id", accountID), slog.Any("error", err))
		}
		return false
	}
	if !s.crypto.VerifyPassword(currentPassword, account.PasswordHash) {
		s.logger.Warn("password change rejected", slog.String("account_id", accountID))
		return false
	}

	hash, err := s.crypto.HashPassword(newPassword)
	if err != nil {
		s.logger.Error("password hashing failed", slog.String("account_id", accountID), slog.Any("error", err))
		return false
	}
	account.PasswordHash = hash
	account.UpdatedAt = s.now().UTC()
	if err := s.repo.Update(ctx, account); err != nil {
		s.logger.Error("password update failed", slog.String("account_id", accountID), slog.Any("error", err))
		return false
	}

	revoked, err := s.registry.RemoveSubject(ctx, accountID)
	if err != nil {
		s.logger.Warn("token revocation after password change failed", slog.String("account_id", accountID), slog.Any("error", err))
	} else if s.metrics != nil {
		s.metrics.TokensRevoked(revoked)
	}

	s.audit.Record(ctx, audit.Record{
		ActorID:     accountID,
		Action:      audit.ActionPasswordChange,
		EntityType:  "User",
		EntityID:    accountID,
		Description: "Password changed successfully",
	})
	s.logger.Info("password changed", slog.String("account_id", accountID))
	return true
}

// Authorize checks whether the account may perform action on resource. The
// required permission is the literal "{Action}{Resource}" concatenation; a
// wildcard in the resolved set grants everything.
func (s *Service) Authorize(ctx context.Context, accountID, resource, action string) bool {
	account, err := s.repo.GetByID(ctx, accountID)
	if err != nil {
		if err != ErrNotFound {
			s.logger.Error("authorize fetch failed", slog.String("account_id", accountID), slog.Any("error", err))
		}
		return false
	}
	if !account.IsActive {
		return false
	}
	required := action + resource
	return HasPermission(account.Role.Permissions(), required)
}

func (s *Service) failLogin(ctx context.Context, accountID, identifier, reason, clientIP, userAgent string) {
	if s.metrics != nil {
		s.metrics.LoginAttempt("failure")
	}
	s.audit.Record(ctx, audit.Record{
		ActorID:     accountID,
		Action:      audit.ActionLoginFailed,
		EntityType:  "User",
		EntityID:    accountID,
		Description: "Failed login for " + identifier + ": " + reason,
		IPAddress:   clientIP,
		UserAgent:   userAgent,
	})
}

// NormalizeIdentifier applies the PRECIS UsernameCaseMapped profile so
// identifiers are stable across visually equivalent inputs. Provisioning and
// login must run identifiers through the same form or mixed-case accounts
// become unreachable. Inputs the profile rejects fall back to a trimmed
// lowercase form.
func NormalizeIdentifier(s string) string {
	normalized, err := precis.UsernameCaseMapped.String(strings.TrimSpace(s))
	if err != nil {
		return strings.ToLower(strings.TrimSpace(s))
	}
	return normalized
}
