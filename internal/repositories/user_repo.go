package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	intconfig "vagabond/internal/config"
	intdb "vagabond/internal/db"
	"vagabond/internal/domain"
	"vagabond/internal/domain/models"
)

type UserRepo struct {
	DB *sql.DB
}

func (r UserRepo) db() (*sql.DB, error) {
	if r.DB != nil {
		return r.DB, nil
	}
	if intconfig.DB != nil {
		return intconfig.DB, nil
	}
	return nil, fmt.Errorf("database not connected")
}

func (r UserRepo) Create(ctx context.Context, u models.User) error {
	db, err := r.db()
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO users (id, first_name, last_name, email, phone, password_hash, role, created_at)
		VALUES (?,?,?,?,?,?,?,?)`,
		u.ID, u.FirstName, u.LastName, strings.ToLower(u.Email), u.Phone, u.PasswordHash, u.Role, u.CreatedAt,
	)
	if err != nil {
		if intdb.IsDuplicateKey(err) {
			return domain.ConflictError{Resource: "user", Msg: "email already registered", Err: err}
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r UserRepo) GetByEmail(ctx context.Context, email string) (models.User, error) {
	return r.getOne(ctx, `email=?`, strings.ToLower(strings.TrimSpace(email)))
}

func (r UserRepo) GetByID(ctx context.Context, id string) (models.User, error) {
	return r.getOne(ctx, `id=?`, id)
}

func (r UserRepo) getOne(ctx context.Context, cond string, arg any) (models.User, error) {
	db, err := r.db()
	if err != nil {
		return models.User{}, err
	}
	var u models.User
	err = db.QueryRowContext(ctx, `
		SELECT id, first_name, last_name, email, phone, password_hash, role, created_at
		FROM users WHERE `+cond+` LIMIT 1`, arg).Scan(
		&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.Phone, &u.PasswordHash, &u.Role, &u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, domain.NotFoundError{Resource: "user", Err: err}
		}
		return models.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}
