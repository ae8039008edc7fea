package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/phrazzld/tasktracker-api/internal/audit"
	"github.com/phrazzld/tasktracker-api/internal/domain"
	"github.com/phrazzld/tasktracker-api/internal/service/auth"
	"github.com/phrazzld/tasktracker-api/internal/store"
)

// UserService provides registration, login and password management.
type UserService interface {
	// Register creates a user. Returns store.ErrUsernameExists if taken.
	Register(ctx context.Context, username, password string) (*domain.User, error)

	// Authenticate checks a username/password pair and records the login.
	// Returns ErrInvalidCredentials on any mismatch.
	Authenticate(ctx context.Context, username, password string) (*domain.User, error)

	// GetUser retrieves a user by ID.
	GetUser(ctx context.Context, userID int64) (*domain.User, error)

	// ChangePassword replaces the password after verifying the current one.
	// Returns ErrInvalidCredentials if currentPassword is wrong.
	ChangePassword(ctx context.Context, userID int64, currentPassword, newPassword string) error
}

type userServiceImpl struct {
	users    store.UserStore
	db       *sql.DB
	verifier auth.PasswordVerifier
	audit    audit.Sink
	logger   *slog.Logger
}

// NewUserService creates a new UserService
func NewUserService(
	users store.UserStore,
	db *sql.DB,
	verifier auth.PasswordVerifier,
	sink audit.Sink,
	logger *slog.Logger,
) (UserService, error) {
	if users == nil {
		return nil, errors.New("users store cannot be nil")
	}
	if db == nil {
		return nil, errors.New("db cannot be nil")
	}
	if verifier == nil {
		return nil, errors.New("password verifier cannot be nil")
	}
	if sink == nil {
		return nil, errors.New("audit sink cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &userServiceImpl{
		users:    users,
		db:       db,
		verifier: verifier,
		audit:    sink,
		logger:   logger.With(slog.String("component", "user_service")),
	}, nil
}

// Register creates a new user with the specified username and password.
func (s *userServiceImpl) Register(ctx context.Context, username, password string) (*domain.User, error) {
	user, err := domain.NewUser(username, password)
	if err != nil {
		return nil, err
	}

	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		return s.users.WithTx(tx).Create(ctx, user)
	})
	if err != nil {
		if errors.Is(err, store.ErrUsernameExists) {
			s.logger.Debug("attempted to register existing username", slog.String("username", user.Username))
		} else {
			s.logger.Error("failed to save user", slog.String("error", err.Error()))
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("user registered", slog.Int64("user_id", user.ID))
	s.audit.Append(ctx, domain.AuditActionUserRegistered, &user.ID, domain.AuditResourceUser,
		strconv.FormatInt(user.ID, 10), map[string]any{"username": user.Username})

	return user, nil
}

// Authenticate verifies credentials. Unknown users and wrong passwords are
// indistinguishable to the caller.
func (s *userServiceImpl) Authenticate(ctx context.Context, username, password string) (*domain.User, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if store.IsNotFoundError(err) {
			s.logger.Debug("login for unknown username")
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to retrieve user: %w", err)
	}

	if err := s.verifier.Compare(user.HashedPassword, password); err != nil {
		s.logger.Debug("login with wrong password", slog.Int64("user_id", user.ID))
		return nil, ErrInvalidCredentials
	}

	s.audit.Append(ctx, domain.AuditActionUserLogin, &user.ID, domain.AuditResourceUser,
		strconv.FormatInt(user.ID, 10), nil)

	return user, nil
}

// GetUser retrieves a user by their ID
func (s *userServiceImpl) GetUser(ctx context.Context, userID int64) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve user: %w", err)
	}
	return user, nil
}

// ChangePassword updates a user's password inside a transaction.
func (s *userServiceImpl) ChangePassword(ctx context.Context, userID int64, currentPassword, newPassword string) error {
	if err := domain.ValidatePassword(newPassword); err != nil {
		return err
	}

	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		txStore := s.users.WithTx(tx)

		user, err := txStore.GetByID(ctx, userID)
		if err != nil {
			return err
		}
		if err := s.verifier.Compare(user.HashedPassword, currentPassword); err != nil {
			return ErrInvalidCredentials
		}
		return txStore.UpdatePassword(ctx, userID, newPassword)
	})
	if err != nil {
		return fmt.Errorf("failed to change password: %w", err)
	}

	s.logger.Info("password changed", slog.Int64("user_id", userID))
	s.audit.Append(ctx, domain.AuditActionPasswordChanged, &userID, domain.AuditResourceUser,
		strconv.FormatInt(userID, 10), nil)

	return nil
}
