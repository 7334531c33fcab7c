package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/JasonKing5/ifs/internal/ids"
)

var _ UserStore = (*PGStore)(nil)

const pgUniqueViolation = "23505"

// PGStore implements UserStore on PostgreSQL through database/sql and the
// pgx stdlib driver.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

const userColumns = `id, email, name, created_at, updated_at`

func (s *PGStore) FindByEmail(ctx context.Context, email string) (User, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+userColumns+` from users where email=$1`, normalizeEmail(email))
	return scanUser(row)
}

func (s *PGStore) FindByEmailWithPasswordHash(ctx context.Context, email string) (User, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, email, name, created_at, updated_at, password_hash from users where email=$1`, normalizeEmail(email))
	var u User
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.CreatedAt, &u.UpdatedAt, &u.PasswordHash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	return u, nil
}

func (s *PGStore) FindByID(ctx context.Context, id string) (User, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+userColumns+` from users where id=$1`, id)
	return scanUser(row)
}

func (s *PGStore) Create(ctx context.Context, u User) (User, error) {
	if u.ID == "" {
		u.ID = ids.New()
	}
	u.Email = normalizeEmail(u.Email)
	row := s.db.QueryRowContext(ctx,
		`insert into users(id, email, name, password_hash) values($1,$2,$3,$4) returning created_at, updated_at`,
		u.ID, u.Email, u.Name, u.PasswordHash,
	)
	if err := row.Scan(&u.CreatedAt, &u.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			return User{}, fmt.Errorf("%w: email already exists", ErrConflict)
		}
		return User{}, err
	}
	u.PasswordHash = ""
	return u, nil
}

func (s *PGStore) UpdatePasswordHash(ctx context.Context, userID, passwordHash string) error {
	res, err := s.db.ExecContext(ctx,
		`update users set password_hash=$2, updated_at=now() where id=$1`, userID, passwordHash)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) AssignRoles(ctx context.Context, userID string, roleNames []string) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, name := range roleNames {
		var roleID string
		if err = tx.QueryRowContext(ctx, `select id from roles where name=$1`, name).Scan(&roleID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				err = fmt.Errorf("%w: role %s", ErrNotFound, name)
			}
			return err
		}
		if _, err = tx.ExecContext(ctx,
			`insert into user_roles(user_id, role_id) values($1,$2) on conflict do nothing`,
			userID, roleID,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *PGStore) Roles(ctx context.Context, userID string) ([]Role, error) {
	rows, err := s.db.QueryContext(ctx, `
select r.id, r.name, p.id, p.name
from user_roles ur
join roles r on r.id = ur.role_id
left join role_permissions rp on rp.role_id = r.id
left join permissions p on p.id = rp.permission_id
where ur.user_id = $1
order by r.name, p.name`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var (
		out   []Role
		index = make(map[string]int)
	)
	for rows.Next() {
		var (
			roleID, roleName string
			permID, permName sql.NullString
		)
		if err := rows.Scan(&roleID, &roleName, &permID, &permName); err != nil {
			return nil, err
		}
		i, ok := index[roleID]
		if !ok {
			out = append(out, Role{ID: roleID, Name: roleName})
			i = len(out) - 1
			index[roleID] = i
		}
		if permID.Valid {
			out[i].Permissions = append(out[i].Permissions, Permission{ID: permID.String, Name: permName.String})
		}
	}
	return out, rows.Err()
}

func scanUser(row *sql.Row) (User, error) {
	var u User
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	return u, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
