package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/geocoder89/bookstore/internal/domain/account"
	"github.com/geocoder89/bookstore/internal/domain/role"
	"github.com/jackc/pgx/v5"
)

type AccountsRepo struct {
	db  DBTX
	obs Observer
}

func NewAccountsRepo(db DBTX, obs Observer) *AccountsRepo {
	return &AccountsRepo{db: db, obs: observerOrNoop(obs)}
}

const accountColumns = `id, name, email, password, role_id`

func scanAccount(row pgx.Row) (account.Account, error) {
	var a account.Account
	var roleID int

	if err := row.Scan(&a.ID, &a.Name, &a.Email, &a.PasswordHash, &roleID); err != nil {
		return account.Account{}, err
	}

	r, err := role.FromID(roleID)
	if err != nil {
		return account.Account{}, fmt.Errorf("account %d: %w", a.ID, err)
	}
	a.Role = r

	return a, nil
}

func mapAccountErr(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return account.ErrNotFound
	}
	if code, _ := pgCode(err); code == codeUniqueViolation {
		return account.ErrEmailTaken
	}
	return err
}

func (r *AccountsRepo) Create(ctx context.Context, in account.NewAccount) (account.Account, error) {
	var a account.Account

	err := r.obs.ObserveDB("accounts.create", func() error {
		var err error
		a, err = scanAccount(r.db.QueryRow(ctx,
			`INSERT INTO users (name, email, password, role_id)
			VALUES ($1, $2, $3, $4)
			RETURNING `+accountColumns,
			in.Name, in.Email, in.PasswordHash, in.Role.ID(),
		))
		return err
	})

	if err != nil {
		return account.Account{}, mapAccountErr(err)
	}
	return a, nil
}

func (r *AccountsRepo) GetByEmail(ctx context.Context, email string) (account.Account, error) {
	var a account.Account

	err := r.obs.ObserveDB("accounts.get_by_email", func() error {
		var err error
		a, err = scanAccount(r.db.QueryRow(ctx,
			`SELECT `+accountColumns+` FROM users WHERE email = $1`, email))
		return err
	})

	if err != nil {
		return account.Account{}, mapAccountErr(err)
	}
	return a, nil
}

func (r *AccountsRepo) GetByID(ctx context.Context, id int64) (account.Account, error) {
	var a account.Account

	err := r.obs.ObserveDB("accounts.get_by_id", func() error {
		var err error
		a, err = scanAccount(r.db.QueryRow(ctx,
			`SELECT `+accountColumns+` FROM users WHERE id = $1`, id))
		return err
	})

	if err != nil {
		return account.Account{}, mapAccountErr(err)
	}
	return a, nil
}

func (r *AccountsRepo) List(ctx context.Context) ([]account.Account, error) {
	out := make([]account.Account, 0)

	err := r.obs.ObserveDB("accounts.list", func() error {
		rows, err := r.db.Query(ctx, `SELECT `+accountColumns+` FROM users ORDER BY id ASC`)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			a, err := scanAccount(rows)
			if err != nil {
				return err
			}
			out = append(out, a)
		}
		return rows.Err()
	})

	if err != nil {
		return nil, err
	}
	return out, nil
}

// Update applies the non-nil fields of ch and returns the stored row.
func (r *AccountsRepo) Update(ctx context.Context, id int64, ch account.Changes) (account.Account, error) {
	var a account.Account

	err := r.obs.ObserveDB("accounts.update", func() error {
		var err error
		a, err = scanAccount(r.db.QueryRow(ctx,
			`UPDATE users
				SET name = COALESCE($2, name),
					email = COALESCE($3, email),
					password = COALESCE($4, password),
					updated_at = NOW()
			WHERE id = $1
			RETURNING `+accountColumns,
			id, ch.Name, ch.Email, ch.PasswordHash,
		))
		return err
	})

	if err != nil {
		return account.Account{}, mapAccountErr(err)
	}
	return a, nil
}

func (r *AccountsRepo) Delete(ctx context.Context, id int64) error {
	var affected int64

	err := r.obs.ObserveDB("accounts.delete", func() error {
		tag, err := r.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
		affected = tag.RowsAffected()
		return err
	})

	if err != nil {
		return err
	}
	if affected == 0 {
		return account.ErrNotFound
	}
	return nil
}
