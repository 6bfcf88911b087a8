package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/kampus/core"
	"github.com/trezcool/kampus/core/user"
)

type userRow struct {
	ID        string         `db:"id"`
	Name      string         `db:"name"`
	Email     string         `db:"email"`
	AvatarURL null.String    `db:"avatar_url"`
	Roles     pq.StringArray `db:"roles"`
	CreatedAt time.Time      `db:"created_at"`
	UpdatedAt time.Time      `db:"updated_at"`
	LastSeen  null.Time      `db:"last_seen"`
}

func (r userRow) user() user.User {
	return user.User{
		ID:        r.ID,
		Name:      r.Name,
		Email:     r.Email,
		AvatarURL: r.AvatarURL.String,
		Roles:     fromTextArray(r.Roles),
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
		LastSeen:  r.LastSeen.Time.UTC(),
	}
}

const userColumns = "id, name, email, avatar_url, roles, created_at, updated_at, last_seen"

type userRepository struct {
	repository
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(exec core.DBExecutor) *userRepository {
	return &userRepository{repository{exec: exec}}
}

// trapNoRowsErr maps psql "no rows" err to user.ErrNotFound
func (repo userRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return user.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]user.User, error) {
	var w where
	if filter != nil {
		if filter.Search != "" {
			pattern := likePattern(filter.Search)
			w.add("(name ILIKE ? OR email ILIKE ?)", pattern, pattern)
		}
		if len(filter.IDs) > 0 {
			w.add("id IN (?)", filter.IDs)
		}
		if len(filter.Roles) > 0 {
			patterns := make([]string, len(filter.Roles))
			for i, role := range filter.Roles {
				patterns[i] = role + "%"
			}
			w.add("EXISTS (SELECT 1 FROM unnest(roles) AS r WHERE r LIKE ANY(?))", pq.Array(patterns))
		}
	}

	var rows []userRow
	q := "SELECT " + userColumns + " FROM users" + w.String() + orderBy(ordering, "id ASC")
	if err := query(ctx, repo.getExec(exec), &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	users := make([]user.User, 0, len(rows))
	for _, r := range rows {
		users = append(users, r.user())
	}
	return users, nil
}

func (repo userRepository) GetUser(ctx context.Context, id string, exec ...core.DBExecutor) (user.User, error) {
	var rows []userRow
	if err := query(ctx, repo.getExec(exec), &rows, "SELECT "+userColumns+" FROM users WHERE id = ?", id); err != nil {
		return user.User{}, repo.trapNoRowsErr(err, "getting user")
	}
	if len(rows) == 0 {
		return user.User{}, repo.trapNoRowsErr(sql.ErrNoRows, "getting user")
	}
	return rows[0].user(), nil
}

func (repo userRepository) UpsertUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	var rows []userRow
	err := query(ctx, repo.getExec(exec), &rows, `
		INSERT INTO users (id, name, email, avatar_url, roles, created_at, updated_at, last_seen)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			email = EXCLUDED.email,
			avatar_url = EXCLUDED.avatar_url,
			roles = EXCLUDED.roles,
			updated_at = EXCLUDED.updated_at,
			last_seen = EXCLUDED.last_seen
		RETURNING `+userColumns,
		usr.ID,
		usr.Name,
		usr.Email,
		null.NewString(usr.AvatarURL, usr.AvatarURL != ""),
		textArray(usr.Roles),
		usr.CreatedAt.UTC(),
		usr.UpdatedAt.UTC(),
		null.NewTime(usr.LastSeen.UTC(), !usr.LastSeen.IsZero()),
	)
	if err != nil {
		return user.User{}, errors.Wrap(err, "upserting user")
	}
	if len(rows) == 0 {
		return user.User{}, errors.New("upserting user: no row returned")
	}
	return rows[0].user(), nil
}
