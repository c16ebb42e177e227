package services

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/dmitrijs2005/skeleton/internal/common"
	"github.com/dmitrijs2005/skeleton/internal/cryptox"
	"github.com/dmitrijs2005/skeleton/internal/dbx"
	"github.com/dmitrijs2005/skeleton/internal/server/config"
	"github.com/dmitrijs2005/skeleton/internal/server/models"
	"github.com/dmitrijs2005/skeleton/internal/server/repositories/repomanager"
	usersrepo "github.com/dmitrijs2005/skeleton/internal/server/repositories/users"
)

// --- in-memory credential store ---

type fakeUsersRepo struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]*models.User

	// injected failures
	findErr   error
	existsErr error
	insertErr error
	updateErr error
	// existsLies makes ExistsByEmail report false, simulating a racing insert
	existsLies bool
	// beforeConsume runs at the start of ConsumeResetToken
	beforeConsume func()
}

func newFakeUsersRepo() *fakeUsersRepo {
	return &fakeUsersRepo{byID: map[int64]*models.User{}}
}

func (f *fakeUsersRepo) FindByID(_ context.Context, id int64) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	u, ok := f.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsersRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	for _, u := range f.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsersRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	if f.existsErr != nil {
		return false, f.existsErr
	}
	if f.existsLies {
		return false, nil
	}
	_, err := f.FindByEmail(ctx, email)
	return err == nil, nil
}

func (f *fakeUsersRepo) Insert(_ context.Context, nu *models.NewUser) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return 0, f.insertErr
	}
	for _, u := range f.byID {
		if u.Email == nu.Email {
			return 0, common.ErrorConflict
		}
	}
	f.nextID++
	now := time.Now()
	f.byID[f.nextID] = &models.User{
		ID:           f.nextID,
		IsAdmin:      nu.IsAdmin,
		Username:     nu.Username,
		Email:        nu.Email,
		TokenKey:     nu.TokenKey,
		PasswordHash: nu.PasswordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	return f.nextID, nil
}

func (f *fakeUsersRepo) UpdateFields(_ context.Context, id int64, fields models.UserFields) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	u, ok := f.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	if fields.Email != nil {
		for otherID, other := range f.byID {
			if otherID != id && other.Email == *fields.Email {
				return common.ErrorConflict
			}
		}
		u.Email = *fields.Email
	}
	if fields.Username != nil {
		u.Username = *fields.Username
	}
	if fields.PasswordHash != nil {
		u.PasswordHash = *fields.PasswordHash
	}
	if fields.ResetToken != nil {
		u.ResetToken = *fields.ResetToken
	}
	u.UpdatedAt = time.Now()
	return nil
}

func (f *fakeUsersRepo) ConsumeResetToken(_ context.Context, id int64, resetToken, passwordHash string) error {
	if f.beforeConsume != nil {
		f.beforeConsume()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	u, ok := f.byID[id]
	if !ok || u.ResetToken == "" || u.ResetToken != resetToken {
		return common.ErrorNotFound
	}
	u.PasswordHash = passwordHash
	u.ResetToken = ""
	u.UpdatedAt = time.Now()
	return nil
}

func (f *fakeUsersRepo) Delete(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[id]; !ok {
		return common.ErrorNotFound
	}
	delete(f.byID, id)
	return nil
}

// stored returns the raw row, bypassing the copy semantics.
func (f *fakeUsersRepo) stored(id int64) models.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.byID[id]
}

type fakeRepoManager struct {
	u *fakeUsersRepo
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(dbx.DBTX) usersrepo.Repository          { return m.u }

var _ repomanager.RepositoryManager = (*fakeRepoManager)(nil)

// --- hashing and time ---

var fastParams = cryptox.Argon2Params{Time: 1, Memory: 8 * 1024, Threads: 1, SaltLen: 16, KeyLen: 32}

// countingHasher records which hashes Verify was asked to check.
type countingHasher struct {
	cryptox.PasswordHasher
	mu       sync.Mutex
	verified []string
}

func (c *countingHasher) Verify(secret, hash string) (bool, error) {
	c.mu.Lock()
	c.verified = append(c.verified, hash)
	c.mu.Unlock()
	return c.PasswordHasher.Verify(secret, hash)
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fixture struct {
	svc    *UserService
	repo   *fakeUsersRepo
	clock  *testClock
	hasher *countingHasher

	txCount int
	txErr   error
}

func newFixture() *fixture {
	repo := newFakeUsersRepo()
	clock := &testClock{now: time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)}
	hasher := &countingHasher{PasswordHasher: cryptox.NewArgon2idHasher(fastParams)}

	cfg := &config.Config{}
	cfg.LoadDefaults()

	svc := NewUserService(nil, &fakeRepoManager{u: repo}, cfg,
		WithHasher(hasher),
		WithCodec(cryptox.NewBranca(cryptox.WithClock(clock.Now))),
		WithClock(clock.Now),
	)
	f := &fixture{svc: svc, repo: repo, clock: clock, hasher: hasher}
	svc.runTx = func(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) error {
		f.txCount++
		if f.txErr != nil {
			return f.txErr
		}
		return fn(ctx, nil)
	}
	return f
}
