package sqlxrepos

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/cblms/core"
	"github.com/trezcool/cblms/core/user"
)

const userColumns = `id, email, name, password_hash, role, photo_url, created_at, updated_at, deleted_at`

// emailConstraint is the partial unique index on lower(email) among active users.
const emailConstraint = "users_email_active_key"

type userRow struct {
	ID           string      `db:"id"`
	Email        string      `db:"email"`
	Name         string      `db:"name"`
	PasswordHash []byte      `db:"password_hash"`
	Role         string      `db:"role"`
	PhotoURL     null.String `db:"photo_url"`
	CreatedAt    time.Time   `db:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at"`
	DeletedAt    null.Time   `db:"deleted_at"`
}

func (r userRow) user() user.User {
	return user.User{
		ID:           r.ID,
		Email:        r.Email,
		Name:         r.Name,
		Role:         user.Role(r.Role),
		PhotoURL:     r.PhotoURL.String,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
		DeletedAt:    r.DeletedAt.Ptr(),
	}
}

func usersFromRows(rows []userRow) []user.User {
	users := make([]user.User, 0, len(rows))
	for _, r := range rows {
		users = append(users, r.user())
	}
	return users
}

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) user.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) CheckEmailUniqueness(ctx context.Context, email string, excludedIDs ...string) error {
	q := `SELECT count(*) FROM users WHERE lower(email) = lower($1) AND deleted_at IS NULL`
	args := []interface{}{email}
	if len(excludedIDs) > 0 {
		q += ` AND NOT (id = ANY($2))`
		args = append(args, pq.Array(excludedIDs))
	}

	var count int
	if err := repo.db.GetContext(ctx, &count, q, args...); err != nil {
		return errors.Wrap(err, "checking email uniqueness")
	}
	if count > 0 {
		return user.ErrEmailExists
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	var row userRow
	err := repo.db.GetContext(ctx, &row, `
		INSERT INTO users (id, email, name, password_hash, role, photo_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+userColumns,
		newID(), usr.Email, usr.Name, usr.PasswordHash, string(usr.Role), nullString(usr.PhotoURL),
		usr.CreatedAt, usr.UpdatedAt,
	)
	if err != nil {
		return user.User{}, emailConflict(errors.Wrap(err, "inserting user"))
	}
	return row.user(), nil
}

// emailConflict reports a violation of the active email index as user.ErrEmailExists.
func emailConflict(err error) error {
	if pqErr, ok := errors.Cause(err).(*pq.Error); ok && pqErr.Constraint == emailConstraint {
		return user.ErrEmailExists
	}
	return err
}

var userOrderings = []string{"name", "email", "role", "created_at"}

func (repo *userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	where := []string{"deleted_at IS NULL"}
	var args []interface{}
	if filter != nil && !filter.IsEmpty() {
		if filter.Search != "" {
			args = append(args, "%"+filter.Search+"%")
			where = append(where, fmt.Sprintf("(name ILIKE $%d OR email ILIKE $%d)", len(args), len(args)))
		}
		if len(filter.Roles) > 0 {
			roles := make([]string, 0, len(filter.Roles))
			for _, r := range filter.Roles {
				roles = append(roles, string(r))
			}
			args = append(args, pq.Array(roles))
			where = append(where, fmt.Sprintf("role = ANY($%d)", len(args)))
		}
	}

	orderBy := make([]string, 0, len(ordering)+1)
	for _, ord := range core.FilterOrderings(ordering, userOrderings...) {
		orderBy = append(orderBy, ord.String())
	}
	orderBy = append(orderBy, "created_at DESC")

	q := `SELECT ` + userColumns + ` FROM users WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY ` + strings.Join(orderBy, ", ")

	var rows []userRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "selecting users")
	}
	return usersFromRows(rows), nil
}

func (repo *userRepository) QueryUsersByID(ctx context.Context, ids []string) ([]user.User, error) {
	if len(ids) == 0 {
		return []user.User{}, nil
	}
	var rows []userRow
	err := repo.db.SelectContext(ctx, &rows,
		`SELECT `+userColumns+` FROM users WHERE id = ANY($1) AND deleted_at IS NULL`, pq.Array(ids))
	if err != nil {
		return nil, errors.Wrap(err, "selecting users by id")
	}
	return usersFromRows(rows), nil
}

func (repo *userRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	var (
		q   string
		arg string
	)
	switch {
	case filter.ID != "":
		q, arg = `SELECT `+userColumns+` FROM users WHERE id = $1 AND deleted_at IS NULL`, filter.ID
	case filter.Email != "":
		q, arg = `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1) AND deleted_at IS NULL`, filter.Email
	default:
		return user.User{}, user.ErrNotFound
	}

	var row userRow
	if err := repo.db.GetContext(ctx, &row, q, arg); err != nil {
		return user.User{}, notFound(errors.Wrap(err, "selecting user"), user.ErrNotFound)
	}
	return row.user(), nil
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	var row userRow
	err := repo.db.GetContext(ctx, &row, `
		UPDATE users
		SET email = $2, name = $3, password_hash = $4, role = $5, photo_url = $6, updated_at = $7
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING `+userColumns,
		usr.ID, usr.Email, usr.Name, usr.PasswordHash, string(usr.Role), nullString(usr.PhotoURL), usr.UpdatedAt,
	)
	if err != nil {
		err = notFound(errors.Wrap(err, "updating user"), user.ErrNotFound)
		return user.User{}, emailConflict(err)
	}
	return row.user(), nil
}

func (repo *userRepository) SoftDeleteUser(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx,
		`UPDATE users SET deleted_at = $2 WHERE id = $1 AND deleted_at IS NULL`, id, core.NowFunc())
	if err != nil {
		return errors.Wrap(err, "soft deleting user")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return user.ErrNotFound
	}
	return nil
}
