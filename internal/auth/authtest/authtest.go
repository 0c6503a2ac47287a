// Package authtest provides in-memory implementations of the auth
// collaborators for tests.  They follow the error contract of the MySQL
// repositories.
package authtest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/ecommerce-backend/internal/model"
	"github.com/iliyamo/ecommerce-backend/internal/repository"
	"github.com/iliyamo/ecommerce-backend/internal/utils"
	"github.com/iliyamo/ecommerce-backend/internal/validation"
)

type code struct {
	hash string
	exp  time.Time
	used bool
}

type codeKey struct {
	accountID string
	purpose   model.TokenPurpose
}

// Store is an in-memory credential store.
type Store struct {
	mu       sync.Mutex
	accounts map[string]*model.Account
	codes    map[codeKey]*code

	// DeleteErr, when set, is returned by Delete.
	DeleteErr error
	// CodeTTL is the lifetime of issued codes; one hour when zero.
	CodeTTL time.Duration
}

func NewStore() *Store {
	return &Store{accounts: map[string]*model.Account{}, codes: map[codeKey]*code{}}
}

// Seed stores an account with the given password and returns a copy.
func (s *Store) Seed(a model.Account, password string) *model.Account {
	hash, _ := utils.HashPassword(password, bcrypt.MinCost)
	a.PasswordHash = hash
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.Email = repository.NormalizeEmail(a.Email)
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := a
	s.accounts[a.ID] = &stored
	cp := stored
	return &cp
}

// Get returns a copy of the stored account or nil.
func (s *Store) Get(id string) *model.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.accounts[id]; ok {
		cp := *a
		return &cp
	}
	return nil
}

func (s *Store) FindByEmail(_ context.Context, email string) (*model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	email = repository.NormalizeEmail(email)
	for _, a := range s.accounts {
		if a.Email == email {
			cp := *a
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *Store) FindByID(_ context.Context, id string) (*model.Account, error) {
	if a := s.Get(id); a != nil {
		return a, nil
	}
	return nil, repository.ErrNotFound
}

func (s *Store) Create(_ context.Context, a *model.Account, password string) error {
	if p := validation.PasswordProblems(password); len(p) > 0 {
		return &repository.StoreError{Err: repository.ErrInvalidPassword, Fields: map[string][]string{"password": p}}
	}
	hash, err := utils.HashPassword(password, bcrypt.MinCost)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	email := repository.NormalizeEmail(a.Email)
	for _, other := range s.accounts {
		if other.Email == email {
			return repository.ErrEmailExists
		}
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	a.Email = email
	a.PasswordHash = hash
	a.EmailConfirmed = false
	a.CreatedAt, a.UpdatedAt = now, now
	stored := *a
	s.accounts[a.ID] = &stored
	return nil
}

func (s *Store) Update(_ context.Context, a *model.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.accounts[a.ID]
	if !ok {
		return repository.ErrNotFound
	}
	stored.Name, stored.Phone = a.Name, a.Phone
	stored.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *Store) Delete(_ context.Context, a *model.Account) error {
	if s.DeleteErr != nil {
		return s.DeleteErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[a.ID]; !ok {
		return repository.ErrNotFound
	}
	delete(s.accounts, a.ID)
	for k := range s.codes {
		if k.accountID == a.ID {
			delete(s.codes, k)
		}
	}
	return nil
}

func (s *Store) List(_ context.Context, offset, limit int) ([]*model.Account, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := make([]*model.Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		cp := *a
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.Before(all[j].CreatedAt)
		}
		return all[i].ID < all[j].ID
	})
	total := len(all)
	if offset >= total {
		return nil, total, nil
	}
	end := min(offset+limit, total)
	return all[offset:end], total, nil
}

func (s *Store) CheckPassword(a *model.Account, password string) bool {
	return utils.VerifyPassword(a.PasswordHash, password)
}

func (s *Store) IsConfirmed(a *model.Account) bool { return a.EmailConfirmed }

func (s *Store) ChangePassword(_ context.Context, a *model.Account, newPassword string) error {
	hash, err := newHash(newPassword)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.accounts[a.ID]
	if !ok {
		return repository.ErrNotFound
	}
	stored.PasswordHash = hash
	a.PasswordHash = hash
	return nil
}

func (s *Store) IssueConfirmationCode(_ context.Context, a *model.Account) (string, error) {
	return s.issue(a.ID, model.PurposeEmailConfirmation)
}

func (s *Store) Confirm(_ context.Context, a *model.Account, raw string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.consume(a.ID, model.PurposeEmailConfirmation, raw); err != nil {
		return err
	}
	stored, ok := s.accounts[a.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if stored.EmailConfirmed {
		return &repository.StoreError{Err: repository.ErrConflict, Details: []string{"Email is already confirmed."}}
	}
	stored.EmailConfirmed = true
	a.EmailConfirmed = true
	return nil
}

func (s *Store) IssueResetCode(_ context.Context, a *model.Account) (string, error) {
	return s.issue(a.ID, model.PurposePasswordReset)
}

func (s *Store) ResetPassword(_ context.Context, a *model.Account, raw, newPassword string) error {
	hash, err := newHash(newPassword)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.consume(a.ID, model.PurposePasswordReset, raw); err != nil {
		return err
	}
	stored, ok := s.accounts[a.ID]
	if !ok {
		return repository.ErrNotFound
	}
	stored.PasswordHash = hash
	a.PasswordHash = hash
	return nil
}

func (s *Store) issue(accountID string, purpose model.TokenPurpose) (string, error) {
	ttl := s.CodeTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	c, err := utils.NewOneTimeCode(ttl)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[codeKey{accountID, purpose}] = &code{hash: utils.HashCode(c.Raw), exp: c.Exp}
	return c.Raw, nil
}

// consume must be called with s.mu held.
func (s *Store) consume(accountID string, purpose model.TokenPurpose, raw string) error {
	c, ok := s.codes[codeKey{accountID, purpose}]
	if !ok || c.used || c.hash != utils.HashCode(raw) || !time.Now().UTC().Before(c.exp) {
		return &repository.StoreError{Err: repository.ErrInvalidCode, Details: []string{"Invalid token."}}
	}
	c.used = true
	return nil
}

func newHash(password string) (string, error) {
	if p := validation.PasswordProblems(password); len(p) > 0 {
		return "", &repository.StoreError{Err: repository.ErrInvalidPassword, Fields: map[string][]string{"newPassword": p}}
	}
	return utils.HashPassword(password, bcrypt.MinCost)
}

// RoleStore is an in-memory role authority.
type RoleStore struct {
	mu      sync.Mutex
	roles   map[string]bool
	members map[string]map[string]bool

	// AssignErr, when set, is returned by Assign.
	AssignErr error
}

func NewRoleStore() *RoleStore {
	return &RoleStore{roles: map[string]bool{}, members: map[string]map[string]bool{}}
}

func (r *RoleStore) Exists(_ context.Context, name string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.roles[name], nil
}

func (r *RoleStore) Create(_ context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.roles[name] = true
	return nil
}

func (r *RoleStore) Assign(_ context.Context, accountID, name string) error {
	if r.AssignErr != nil {
		return r.AssignErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.roles[name] {
		return &repository.StoreError{Err: repository.ErrConflict, Details: []string{"Role " + name + " does not exist."}}
	}
	if r.members[accountID] == nil {
		r.members[accountID] = map[string]bool{}
	}
	r.members[accountID][name] = true
	return nil
}

func (r *RoleStore) Revoke(_ context.Context, accountID, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.members[accountID], name)
	return nil
}

func (r *RoleStore) RolesFor(_ context.Context, accountID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for name := range r.members[accountID] {
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

// Sent is a message captured by Outbox.
type Sent struct {
	To      string
	Subject string
	Body    string
}

// Outbox records every notification instead of delivering it.
type Outbox struct {
	mu   sync.Mutex
	sent []Sent

	// Err, when set, is returned by Send and nothing is recorded.
	Err error
}

func (o *Outbox) Send(_ context.Context, to, subject, body string) error {
	if o.Err != nil {
		return o.Err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent = append(o.sent, Sent{To: to, Subject: subject, Body: body})
	return nil
}

// Sent returns a copy of the recorded messages.
func (o *Outbox) Sent() []Sent {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]Sent(nil), o.sent...)
}

// Last returns the most recent message.  ok is false when none was sent.
func (o *Outbox) Last() (Sent, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.sent) == 0 {
		return Sent{}, false
	}
	return o.sent[len(o.sent)-1], true
}
