package memory

import (
	"context"
	"sort"

	"github.com/geocoder89/bookstore/internal/domain/account"
)

type AccountsRepo struct {
	s *Store
}

// emailTakenLocked reports whether another account already uses email.
// Postgres compares emails byte-wise; so does this.
func (s *Store) emailTakenLocked(email string, exceptID int64) bool {
	for id, a := range s.accounts {
		if id != exceptID && a.Email == email {
			return true
		}
	}
	return false
}

func (r *AccountsRepo) Create(_ context.Context, in account.NewAccount) (account.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.s.emailTakenLocked(in.Email, 0) {
		return account.Account{}, account.ErrEmailTaken
	}

	r.s.nextAccount++
	a := account.Account{
		ID:           r.s.nextAccount,
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: in.PasswordHash,
		Role:         in.Role,
	}
	r.s.accounts[a.ID] = a

	return a, nil
}

func (r *AccountsRepo) GetByEmail(_ context.Context, email string) (account.Account, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, a := range r.s.accounts {
		if a.Email == email {
			return a, nil
		}
	}
	return account.Account{}, account.ErrNotFound
}

func (r *AccountsRepo) GetByID(_ context.Context, id int64) (account.Account, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	a, ok := r.s.accounts[id]
	if !ok {
		return account.Account{}, account.ErrNotFound
	}
	return a, nil
}

func (r *AccountsRepo) List(_ context.Context) ([]account.Account, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]account.Account, 0, len(r.s.accounts))
	for _, a := range r.s.accounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return out, nil
}

func (r *AccountsRepo) Update(_ context.Context, id int64, ch account.Changes) (account.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	a, ok := r.s.accounts[id]
	if !ok {
		return account.Account{}, account.ErrNotFound
	}

	if ch.Email != nil && r.s.emailTakenLocked(*ch.Email, id) {
		return account.Account{}, account.ErrEmailTaken
	}

	if ch.Name != nil {
		a.Name = *ch.Name
	}
	if ch.Email != nil {
		a.Email = *ch.Email
	}
	if ch.PasswordHash != nil {
		a.PasswordHash = *ch.PasswordHash
	}

	r.s.accounts[id] = a
	return a, nil
}

// Delete removes the account and, like the foreign key cascade, its reviews.
func (r *AccountsRepo) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.accounts[id]; !ok {
		return account.ErrNotFound
	}

	delete(r.s.accounts, id)

	for rid, rv := range r.s.reviews {
		if rv.UserID == id {
			delete(r.s.reviews, rid)
		}
	}

	return nil
}
