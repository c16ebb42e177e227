package httpapi

import (
	"context"
	"net/http"
	"sync"

	"github.com/dmitrijs2005/skeleton/internal/common"
	"github.com/dmitrijs2005/skeleton/internal/server/mail"
	"github.com/dmitrijs2005/skeleton/internal/server/models"
	"github.com/dmitrijs2005/skeleton/internal/server/services"
)

// fakeUsers is a scripted UserService. Sessions are valid when the token
// equals "valid-<id>".
type fakeUsers struct {
	users map[int64]*models.User

	authenticateErr error
	registerErr     error
	resetErr        error
	changeErr       error
	updateErr       error
	resetCode       string

	registered    []string
	changed       []string
	authenticated int
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{users: map[int64]*models.User{
		1: {ID: 1, Username: "alice", Email: "alice@example.com", TokenKey: "secret-key", PasswordHash: "secret-hash"},
		2: {ID: 2, IsAdmin: true, Username: "root", Email: "root@example.com"},
	}, resetCode: "aB3dE9"}
}

func (f *fakeUsers) byEmail(email string) *models.User {
	for _, u := range f.users {
		if u.Email == email {
			return u
		}
	}
	return nil
}

func (f *fakeUsers) VerifySession(_ context.Context, id int64, token string, level services.Level) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, common.ErrorUnauthorized
	}
	if level == services.LevelAdmin && !u.IsAdmin {
		return nil, common.ErrorForbidden
	}
	if token != validToken(id) {
		return nil, common.ErrInvalidToken
	}
	return u, nil
}

func (f *fakeUsers) Register(_ context.Context, _ bool, _, _, email string) (int64, error) {
	if f.registerErr != nil {
		return 0, f.registerErr
	}
	f.registered = append(f.registered, email)
	return 10, nil
}

func (f *fakeUsers) Authenticate(_ context.Context, email, password string) (*services.SessionToken, error) {
	f.authenticated++
	if f.authenticateErr != nil {
		return nil, f.authenticateErr
	}
	u := f.byEmail(email)
	if u == nil || password != "secret1" {
		return nil, common.ErrorUnauthorized
	}
	return &services.SessionToken{UserID: u.ID, Token: validToken(u.ID)}, nil
}

func (f *fakeUsers) VerifyPassword(_ context.Context, email, password string) (*models.User, error) {
	u := f.byEmail(email)
	if u == nil || password != "secret1" {
		return nil, common.ErrorUnauthorized
	}
	return u, nil
}

func (f *fakeUsers) ChangePassword(_ context.Context, email, _ string) error {
	if f.changeErr != nil {
		return f.changeErr
	}
	f.changed = append(f.changed, email)
	return nil
}

func (f *fakeUsers) RequestPasswordReset(_ context.Context, email string) (string, error) {
	if f.byEmail(email) == nil {
		return "", common.ErrorNotFound
	}
	return f.resetCode, nil
}

func (f *fakeUsers) ResetPassword(_ context.Context, _, code, _ string) error {
	if f.resetErr != nil {
		return f.resetErr
	}
	if code != f.resetCode {
		return common.ErrInvalidToken
	}
	return nil
}

func (f *fakeUsers) GetUser(_ context.Context, id int64) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return u, nil
}

func (f *fakeUsers) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	if u := f.byEmail(email); u != nil {
		return u, nil
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsers) UpdateProfile(_ context.Context, id int64, username, _, email string) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.users[id].Username = username
	f.users[id].Email = email
	return nil
}

func (f *fakeUsers) DeleteUser(_ context.Context, id int64) error {
	if _, ok := f.users[id]; !ok {
		return common.ErrorNotFound
	}
	delete(f.users, id)
	return nil
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []mail.Message
}

func (m *fakeMailer) Enqueue(_ context.Context, msg mail.Message) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return true
}

func (m *fakeMailer) messages() []mail.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mail.Message(nil), m.sent...)
}

type fakeAssets struct {
	served []string
}

func (a *fakeAssets) ServeAsset(w http.ResponseWriter, _ *http.Request, name string) {
	a.served = append(a.served, name)
	_, _ = w.Write([]byte("asset:" + name))
}
