package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/trezcool/kampus/core"
	"github.com/trezcool/kampus/core/user"
)

type userRepository struct {
	db *userTable
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) *userRepository {
	return &userRepository{db: db.user}
}

func (repo *userRepository) QueryUsers(_ context.Context, filter *user.QueryFilter, ordering []core.DBOrdering, _ ...core.DBExecutor) ([]user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	users := make([]user.User, 0, len(repo.db.table))
	for _, u := range repo.db.table {
		if filter == nil || filter.Match(*u) {
			usr := *u
			usr.Roles = copyStrings(u.Roles)
			users = append(users, usr)
		}
	}
	sortUsers(users, ordering)
	return users, nil
}

func sortUsers(users []user.User, ordering []core.DBOrdering) {
	sort.SliceStable(users, func(i, j int) bool {
		for _, ord := range ordering {
			var cmp int
			switch ord.Field {
			case "name":
				cmp = strings.Compare(users[i].Name, users[j].Name)
			case "email":
				cmp = strings.Compare(users[i].Email, users[j].Email)
			case "created_at":
				cmp = users[i].CreatedAt.Compare(users[j].CreatedAt)
			}
			if cmp != 0 {
				return (cmp < 0) == ord.Ascending
			}
		}
		return users[i].ID < users[j].ID
	})
}

func (repo *userRepository) GetUser(_ context.Context, id string, _ ...core.DBExecutor) (user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if u, ok := repo.db.table[id]; ok {
		usr := *u
		usr.Roles = copyStrings(u.Roles)
		return usr, nil
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) UpsertUser(_ context.Context, usr user.User, _ ...core.DBExecutor) (user.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	usr.Roles = copyStrings(usr.Roles)
	if orig, ok := repo.db.table[usr.ID]; ok {
		usr.CreatedAt = orig.CreatedAt
	}
	stored := usr
	stored.Roles = copyStrings(usr.Roles)
	repo.db.table[usr.ID] = &stored
	return usr, nil
}
