// Package services contains server-side business logic. This file implements
// UserService: registration, password login issuing per-user Branca session
// tokens, the password reset flow and session verification.
package services

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/skeleton/internal/common"
	"github.com/dmitrijs2005/skeleton/internal/cryptox"
	"github.com/dmitrijs2005/skeleton/internal/dbx"
	"github.com/dmitrijs2005/skeleton/internal/logging"
	"github.com/dmitrijs2005/skeleton/internal/server/config"
	"github.com/dmitrijs2005/skeleton/internal/server/metrics"
	"github.com/dmitrijs2005/skeleton/internal/server/models"
	"github.com/dmitrijs2005/skeleton/internal/server/repositories/repomanager"
	"github.com/samber/oops"
)

// SessionToken is what a successful login hands to the transport layer.
// Both parts travel together in the session cookie.
type SessionToken struct {
	UserID int64  `json:"id"`
	Token  string `json:"token"`
}

// UserService provides the credential and session operations.
//
// Passwords are hashed together with the email (email ++ password), so a
// change of email requires a new password. Session tokens are never stored:
// each one is a Branca token under the owner's token key carrying its issue
// time, valid for the configured ttl.
type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	hasher      cryptox.PasswordHasher
	codec       *cryptox.Branca
	ttl         uint32
	now         func() time.Time
	log         logging.Logger
	dummyHash   string

	// runTx runs fn in one transaction.
	runTx func(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) error
}

// Option customises a UserService.
type Option func(*UserService)

func WithHasher(h cryptox.PasswordHasher) Option { return func(s *UserService) { s.hasher = h } }
func WithCodec(c *cryptox.Branca) Option { return func(s *UserService) { s.codec = c } }
func WithLogger(l logging.Logger) Option { return func(s *UserService) { s.log = l } }
func WithClock(now func() time.Time) Option { return func(s *UserService) { s.now = now } }

// NewUserService constructs a UserService using repositories and server config.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, opts ...Option) *UserService {
	s := &UserService{
		db:          db,
		repomanager: m,
		hasher:      cryptox.NewArgon2idHasher(cryptox.DefaultArgon2Params),
		codec:       cryptox.NewBranca(),
		ttl:         cfg.TokenTTLSeconds(),
		now:         time.Now,
		log:         logging.Nop{},
	}
	s.runTx = func(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) error {
		return dbx.WithTx(ctx, db, nil, fn)
	}
	for _, opt := range opts {
		opt(s)
	}

	// unknown emails are verified against this hash so a failed login
	// costs the same whether or not the account exists
	s.dummyHash, _ = s.hasher.Hash("dummy password for unknown accounts")

	return s
}

// Register creates an account and returns its id. A taken email yields
// common.ErrorConflict; the unique constraint of the store decides races.
func (s *UserService) Register(ctx context.Context, isAdmin bool, username, password, email string) (id int64, err error) {
	defer func() { record("register", err) }()

	repo := s.repomanager.Users(s.db)

	exists, err := repo.ExistsByEmail(ctx, email)
	if err != nil {
		return 0, oops.Code("AUTH_REGISTER_FAILED").With("operation", "check email").Wrap(err)
	}
	if exists {
		return 0, oops.Code("AUTH_EMAIL_TAKEN").With("email", email).Wrap(common.ErrorConflict)
	}

	tokenKey, err := common.MakeRandAlphanumeric(common.TokenKeyLength)
	if err != nil {
		return 0, oops.Code("AUTH_REGISTER_FAILED").With("operation", "token key").Wrap(fmt.Errorf("%w: %v", common.ErrorCrypto, err))
	}

	hash, err := s.hasher.Hash(email + password)
	if err != nil {
		return 0, oops.Code("AUTH_REGISTER_FAILED").With("operation", "hash password").Wrap(err)
	}

	id, err = repo.Insert(ctx, &models.NewUser{
		IsAdmin:      isAdmin,
		Username:     username,
		Email:        email,
		TokenKey:     tokenKey,
		PasswordHash: hash,
	})
	if err != nil {
		if errors.Is(err, common.ErrorConflict) {
			return 0, oops.Code("AUTH_EMAIL_TAKEN").With("email", email).Wrap(err)
		}
		return 0, oops.Code("AUTH_REGISTER_FAILED").With("operation", "insert user").Wrap(err)
	}

	s.log.Info(ctx, "user registered", "user_id", id, "admin", isAdmin)
	return id, nil
}

// VerifyPassword returns the account for email when password matches.
// An unknown email and a wrong password both yield common.ErrorUnauthorized.
func (s *UserService) VerifyPassword(ctx context.Context, email, password string) (*models.User, error) {
	repo := s.repomanager.Users(s.db)

	user, err := repo.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, common.ErrorNotFound) {
		return nil, oops.Code("AUTH_LOGIN_FAILED").With("operation", "find user").Wrap(err)
	}

	hash := s.dummyHash
	if user != nil {
		hash = user.PasswordHash
	}

	ok, verr := s.hasher.Verify(email+password, hash)
	if user == nil {
		return nil, oops.Code("AUTH_INVALID_CREDENTIALS").Wrap(common.ErrorUnauthorized)
	}
	if verr != nil {
		return nil, oops.Code("AUTH_LOGIN_FAILED").With("user_id", user.ID).With("operation", "verify password").Wrap(verr)
	}
	if !ok {
		return nil, oops.Code("AUTH_INVALID_CREDENTIALS").Wrap(common.ErrorUnauthorized)
	}

	if s.hasher.NeedsUpgrade(user.PasswordHash) {
		s.upgradeHash(ctx, user, email+password)
	}

	return user, nil
}

// upgradeHash rehashes with the current parameters. Failures are logged
// only; the login itself already succeeded.
func (s *UserService) upgradeHash(ctx context.Context, user *models.User, secret string) {
	hash, err := s.hasher.Hash(secret)
	if err == nil {
		err = s.repomanager.Users(s.db).UpdateFields(ctx, user.ID, models.UserFields{PasswordHash: &hash})
	}
	if err != nil {
		logging.LogError(ctx, s.log, "password hash upgrade failed", err)
		return
	}
	user.PasswordHash = hash
	s.log.Info(ctx, "password hash upgraded", "user_id", user.ID)
}

// Authenticate checks the credentials and issues a session token whose
// payload is the issue time under the user's token key.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (token *SessionToken, err error) {
	defer func() { record("authenticate", err) }()

	user, err := s.VerifyPassword(ctx, email, password)
	if err != nil {
		return nil, err
	}

	payload := s.now().UTC().Format(time.RFC3339Nano)
	issued, err := s.codec.Issue([]byte(user.TokenKey), []byte(payload))
	if err != nil {
		return nil, oops.Code("AUTH_TOKEN_ISSUE_FAILED").With("user_id", user.ID).Wrap(err)
	}

	s.log.Debug(ctx, "session issued", "user_id", user.ID)
	return &SessionToken{UserID: user.ID, Token: issued}, nil
}

// ChangePassword replaces the password hash of the account. Sessions issued
// before the change stay valid until they expire.
func (s *UserService) ChangePassword(ctx context.Context, email, newPassword string) (err error) {
	defer func() { record("change_password", err) }()

	return s.setPassword(ctx, email, newPassword, false)
}

// CompleteReset sets the new password and clears the outstanding reset code.
func (s *UserService) CompleteReset(ctx context.Context, email, newPassword string) (err error) {
	defer func() { record("complete_reset", err) }()

	return s.setPassword(ctx, email, newPassword, true)
}

func (s *UserService) setPassword(ctx context.Context, email, newPassword string, clearReset bool) error {
	hash, err := s.hasher.Hash(email + newPassword)
	if err != nil {
		return oops.Code("AUTH_PASSWORD_CHANGE_FAILED").With("operation", "hash password").Wrap(err)
	}

	fields := models.UserFields{PasswordHash: &hash}
	if clearReset {
		empty := ""
		fields.ResetToken = &empty
	}

	var userID int64
	err = s.runTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)

		user, err := repo.FindByEmail(ctx, email)
		if err != nil {
			return oops.Code("AUTH_PASSWORD_CHANGE_FAILED").With("operation", "find user").Wrap(err)
		}
		userID = user.ID

		if err := repo.UpdateFields(ctx, user.ID, fields); err != nil {
			return oops.Code("AUTH_PASSWORD_CHANGE_FAILED").With("user_id", user.ID).With("operation", "update user").Wrap(err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Info(ctx, "password changed", "user_id", userID, "reset", clearReset)
	return nil
}

// RequestPasswordReset generates a reset code, stores it encrypted under the
// user's token key (replacing any earlier code) and returns the plaintext
// code for delivery.
func (s *UserService) RequestPasswordReset(ctx context.Context, email string) (code string, err error) {
	defer func() { record("request_reset", err) }()

	repo := s.repomanager.Users(s.db)

	user, err := repo.FindByEmail(ctx, email)
	if err != nil {
		return "", oops.Code("AUTH_RESET_REQUEST_FAILED").With("operation", "find user").Wrap(err)
	}

	code, err = common.MakeRandAlphanumeric(common.ResetCodeLength)
	if err != nil {
		return "", oops.Code("AUTH_RESET_REQUEST_FAILED").With("operation", "generate code").Wrap(fmt.Errorf("%w: %v", common.ErrorCrypto, err))
	}

	sealed, err := s.codec.Issue([]byte(user.TokenKey), []byte(code))
	if err != nil {
		return "", oops.Code("AUTH_RESET_REQUEST_FAILED").With("user_id", user.ID).Wrap(err)
	}

	if err := repo.UpdateFields(ctx, user.ID, models.UserFields{ResetToken: &sealed}); err != nil {
		return "", oops.Code("AUTH_RESET_REQUEST_FAILED").With("user_id", user.ID).With("operation", "store code").Wrap(err)
	}

	s.log.Info(ctx, "password reset requested", "user_id", user.ID)
	return code, nil
}

// VerifyResetCode checks code against the outstanding reset code of the
// account. Every rejection wraps common.ErrInvalidToken; an outdated code
// additionally wraps common.ErrTokenExpired.
func (s *UserService) VerifyResetCode(ctx context.Context, email, code string) (err error) {
	defer func() { record("verify_reset", err) }()

	user, err := s.repomanager.Users(s.db).FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return oops.Code("AUTH_RESET_INVALID").Wrap(common.ErrInvalidToken)
		}
		return oops.Code("AUTH_RESET_VERIFY_FAILED").With("operation", "find user").Wrap(err)
	}

	return s.checkResetCode(user, code)
}

func (s *UserService) checkResetCode(user *models.User, code string) error {
	if user.ResetToken == "" {
		return oops.Code("AUTH_RESET_INVALID").With("user_id", user.ID).Wrap(common.ErrInvalidToken)
	}

	stored, err := s.codec.Decode([]byte(user.TokenKey), user.ResetToken, s.ttl)
	switch {
	case errors.Is(err, common.ErrTokenExpired):
		return oops.Code("AUTH_RESET_EXPIRED").With("user_id", user.ID).Wrap(fmt.Errorf("%w: %w", common.ErrInvalidToken, err))
	case errors.Is(err, common.ErrInvalidToken):
		return oops.Code("AUTH_RESET_INVALID").With("user_id", user.ID).Wrap(err)
	case err != nil:
		return oops.Code("AUTH_RESET_VERIFY_FAILED").With("user_id", user.ID).Wrap(err)
	}

	if subtle.ConstantTimeCompare(stored, []byte(code)) != 1 {
		return oops.Code("AUTH_RESET_INVALID").With("user_id", user.ID).Wrap(common.ErrInvalidToken)
	}

	return nil
}

// ResetPassword verifies the reset code and, if it matches, sets newPassword
// and consumes the code. The check and the write run in one transaction and
// the write only applies while the stored code is unchanged, so a code
// completes at most one reset.
func (s *UserService) ResetPassword(ctx context.Context, email, code, newPassword string) (err error) {
	defer func() { record("reset_password", err) }()

	hash, err := s.hasher.Hash(email + newPassword)
	if err != nil {
		return oops.Code("AUTH_PASSWORD_CHANGE_FAILED").With("operation", "hash password").Wrap(err)
	}

	var userID int64
	err = s.runTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)

		user, err := repo.FindByEmail(ctx, email)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return oops.Code("AUTH_RESET_INVALID").Wrap(common.ErrInvalidToken)
			}
			return oops.Code("AUTH_RESET_VERIFY_FAILED").With("operation", "find user").Wrap(err)
		}
		userID = user.ID

		if err := s.checkResetCode(user, code); err != nil {
			return err
		}

		err = repo.ConsumeResetToken(ctx, user.ID, user.ResetToken, hash)
		if errors.Is(err, common.ErrorNotFound) {
			return oops.Code("AUTH_RESET_INVALID").With("user_id", user.ID).Wrap(common.ErrInvalidToken)
		}
		if err != nil {
			return oops.Code("AUTH_PASSWORD_CHANGE_FAILED").With("user_id", user.ID).With("operation", "update user").Wrap(err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Info(ctx, "password changed", "user_id", userID, "reset", true)
	return nil
}

// VerifySession checks a bearer pair for the required level and returns the
// session's user. An unknown user or an undecodable token yields
// common.ErrorUnauthorized; a non-admin at LevelAdmin yields
// common.ErrorForbidden before the token is looked at.
func (s *UserService) VerifySession(ctx context.Context, userID int64, token string, level Level) (*models.User, error) {
	user, err := s.repomanager.Users(s.db).FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, oops.Code("AUTH_SESSION_INVALID").With("user_id", userID).Wrap(common.ErrorUnauthorized)
		}
		return nil, oops.Code("AUTH_SESSION_CHECK_FAILED").With("user_id", userID).Wrap(err)
	}

	if level == LevelAdmin && !user.IsAdmin {
		return nil, oops.Code("AUTH_FORBIDDEN").With("user_id", userID).With("level", level.String()).Wrap(common.ErrorForbidden)
	}

	if _, err := s.codec.Decode([]byte(user.TokenKey), token, s.ttl); err != nil {
		return nil, oops.Code("AUTH_SESSION_INVALID").With("user_id", userID).Wrap(fmt.Errorf("%w: %w", common.ErrorUnauthorized, err))
	}

	return user, nil
}

// GetUser returns the account with the given id.
func (s *UserService) GetUser(ctx context.Context, id int64) (*models.User, error) {
	user, err := s.repomanager.Users(s.db).FindByID(ctx, id)
	if err != nil {
		return nil, oops.Code("AUTH_USER_LOOKUP_FAILED").With("user_id", id).Wrap(err)
	}
	return user, nil
}

// GetUserByEmail returns the account registered with email.
func (s *UserService) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	user, err := s.repomanager.Users(s.db).FindByEmail(ctx, email)
	if err != nil {
		return nil, oops.Code("AUTH_USER_LOOKUP_FAILED").With("email", email).Wrap(err)
	}
	return user, nil
}

// UpdateProfile overwrites username and email and rehashes the password
// under the (possibly new) email.
func (s *UserService) UpdateProfile(ctx context.Context, id int64, username, password, email string) error {
	hash, err := s.hasher.Hash(email + password)
	if err != nil {
		return oops.Code("AUTH_PROFILE_UPDATE_FAILED").With("user_id", id).With("operation", "hash password").Wrap(err)
	}

	err = s.runTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)

		if _, err := repo.FindByID(ctx, id); err != nil {
			return oops.Code("AUTH_PROFILE_UPDATE_FAILED").With("user_id", id).Wrap(err)
		}

		err := repo.UpdateFields(ctx, id, models.UserFields{Username: &username, Email: &email, PasswordHash: &hash})
		if err != nil {
			if errors.Is(err, common.ErrorConflict) {
				return oops.Code("AUTH_EMAIL_TAKEN").With("email", email).Wrap(err)
			}
			return oops.Code("AUTH_PROFILE_UPDATE_FAILED").With("user_id", id).Wrap(err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Info(ctx, "profile updated", "user_id", id)
	return nil
}

// DeleteUser removes the account with the given id.
func (s *UserService) DeleteUser(ctx context.Context, id int64) error {
	if err := s.repomanager.Users(s.db).Delete(ctx, id); err != nil {
		return oops.Code("AUTH_USER_DELETE_FAILED").With("user_id", id).Wrap(err)
	}
	s.log.Info(ctx, "user deleted", "user_id", id)
	return nil
}

// DeleteUserByEmail removes the account registered with email.
func (s *UserService) DeleteUserByEmail(ctx context.Context, email string) error {
	var userID int64
	err := s.runTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)

		user, err := repo.FindByEmail(ctx, email)
		if err != nil {
			return oops.Code("AUTH_USER_DELETE_FAILED").With("email", email).Wrap(err)
		}
		userID = user.ID

		if err := repo.Delete(ctx, user.ID); err != nil {
			return oops.Code("AUTH_USER_DELETE_FAILED").With("user_id", user.ID).Wrap(err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Info(ctx, "user deleted", "user_id", userID)
	return nil
}

func record(operation string, err error) {
	metrics.RecordAuthOperation(operation, Outcome(err))
}

// Outcome classifies err into a metrics outcome label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.Is(err, common.ErrorForbidden):
		return metrics.OutcomeForbidden
	case errors.Is(err, common.ErrTokenExpired):
		return metrics.OutcomeExpired
	case errors.Is(err, common.ErrorUnauthorized):
		return metrics.OutcomeUnauthorized
	case errors.Is(err, common.ErrInvalidToken):
		return metrics.OutcomeInvalid
	case errors.Is(err, common.ErrorConflict):
		return metrics.OutcomeConflict
	default:
		return metrics.OutcomeError
	}
}
