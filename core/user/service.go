package user

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/kampus/core"
)

var (
	NowFunc = time.Now // mockable

	// errors
	ErrNotFound = core.NewNotFoundError("user")
)

type (
	Repository interface {
		// QueryUsers applies AND operation on available QueryFilter fields.
		QueryUsers(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]User, error)
		GetUser(ctx context.Context, id string, exec ...core.DBExecutor) (User, error)
		// UpsertUser creates the user or updates its profile fields, keeping CreatedAt.
		UpsertUser(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error)
	}

	Service struct {
		repo     Repository
		validate *validator.Validate
	}
)

func NewService(repo Repository, validate *validator.Validate) *Service {
	return &Service{repo: repo, validate: validate}
}

// EnsureFromIdentity upserts the profile vouched for by the identity provider.
func (svc *Service) EnsureFromIdentity(ctx context.Context, id Identity) (User, error) {
	if err := id.Validate(svc.validate); err != nil {
		return User{}, err
	}
	now := NowFunc().UTC()
	usr := User{
		ID:        id.Subject,
		Name:      id.Name,
		Email:     id.Email,
		AvatarURL: id.AvatarURL,
		Roles:     id.Roles,
		CreatedAt: now,
		UpdatedAt: now,
		LastSeen:  now,
	}
	usr, err := svc.repo.UpsertUser(ctx, usr)
	if err != nil {
		return User{}, errors.Wrap(err, "upserting user")
	}
	return usr, nil
}

func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUser(ctx, id)
}

// GetByIDs returns the users found among ids, keyed by ID.
func (svc *Service) GetByIDs(ctx context.Context, ids ...string) (map[string]User, error) {
	found := make(map[string]User, len(ids))
	if len(ids) == 0 {
		return found, nil
	}
	users, err := svc.repo.QueryUsers(ctx, &QueryFilter{IDs: ids}, nil)
	if err != nil {
		return nil, errors.Wrap(err, "querying users by ID")
	}
	for _, usr := range users {
		found[usr.ID] = usr
	}
	return found, nil
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error) {
	if filter != nil {
		filter.Clean()
	}
	return svc.repo.QueryUsers(ctx, filter, core.AllowedOrderings(ordering, OrderingFields))
}

// OrderingFields maps the orderable API fields to their columns.
var OrderingFields = map[string]string{
	"name":       "name",
	"email":      "email",
	"created_at": "created_at",
}
