package expense

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/kampus/core"
	"github.com/trezcool/kampus/core/user"
)

var (
	ErrGroupNotFound   = core.NewNotFoundError("group")
	ErrExpenseNotFound = core.NewNotFoundError("expense")
	ErrSplitNotFound   = core.NewNotFoundError("split")
	ErrAlreadyMember   = core.NewConflictError("already_member", "you are already a member of this group")
	ErrAlreadySettled  = core.NewConflictError("already_settled", "this share is already settled")
	ErrNotPayer        = core.NewForbiddenError("only the payer or the member can settle a share")
)

type (
	Repository interface {
		CreateGroup(ctx context.Context, g Group, exec ...core.DBExecutor) (Group, error)
		GetGroup(ctx context.Context, id string, exec ...core.DBExecutor) (Group, error)
		AddMember(ctx context.Context, groupID string, m Member, exec ...core.DBExecutor) error
		CreateExpense(ctx context.Context, e Expense, exec ...core.DBExecutor) (Expense, error)
		GetExpense(ctx context.Context, id string, exec ...core.DBExecutor) (Expense, error)
		// QueryExpenses lists the expenses of a group, oldest first.
		QueryExpenses(ctx context.Context, groupID string, exec ...core.DBExecutor) ([]Expense, error)
		SettleSplit(ctx context.Context, expenseID, memberID string, exec ...core.DBExecutor) error
	}

	UserFinder interface {
		GetByID(ctx context.Context, id string) (user.User, error)
	}

	Service struct {
		db       core.DB
		repo     Repository
		users    UserFinder
		inviter  *Inviter
		validate *validator.Validate
	}

	// GroupBalances is the net position of every member and how to settle it.
	GroupBalances struct {
		Balances    map[string]int64 `json:"balances"`
		Settlements []Settlement     `json:"settlements"`
	}
)

func NewService(db core.DB, repo Repository, users UserFinder, validate *validator.Validate, conf *core.Config) *Service {
	return &Service{
		db:       db,
		repo:     repo,
		users:    users,
		inviter:  NewInviter(conf.SecretKey, conf.InviteTimeout),
		validate: validate,
	}
}

func (svc *Service) member(ctx context.Context, userID string) (Member, error) {
	usr, err := svc.users.GetByID(ctx, userID)
	if err != nil {
		return Member{}, err
	}
	return Member{UserID: usr.ID, Name: usr.Name, JoinedAt: NowFunc().UTC()}, nil
}

// CreateGroup creates a group owned by, and with, the given user.
func (svc *Service) CreateGroup(ctx context.Context, ownerID string, ng NewGroup) (Group, error) {
	if err := ng.Validate(svc.validate); err != nil {
		return Group{}, err
	}
	owner, err := svc.member(ctx, ownerID)
	if err != nil {
		return Group{}, err
	}
	return svc.repo.CreateGroup(ctx, Group{
		ID:        uuid.New().String(),
		Name:      ng.Name,
		OwnerID:   ownerID,
		Members:   []Member{owner},
		CreatedAt: owner.JoinedAt,
	})
}

// GetGroup returns the group if userID is one of its members.
func (svc *Service) GetGroup(ctx context.Context, userID, groupID string) (Group, error) {
	g, err := svc.repo.GetGroup(ctx, groupID)
	if err != nil {
		return Group{}, err
	}
	if !g.HasMember(userID) {
		return Group{}, ErrGroupNotFound
	}
	return g, nil
}

// AddExpense records an expense paid by a member. The payer defaults to userID.
func (svc *Service) AddExpense(ctx context.Context, userID, groupID string, ne NewExpense) (Expense, error) {
	g, err := svc.GetGroup(ctx, userID, groupID)
	if err != nil {
		return Expense{}, err
	}
	if ne.PayerID == "" {
		ne.PayerID = userID
	}
	if err = ne.Validate(svc.validate, g); err != nil {
		return Expense{}, err
	}
	return svc.repo.CreateExpense(ctx, Expense{
		ID:          uuid.New().String(),
		GroupID:     g.ID,
		Description: ne.Description,
		Amount:      ne.Amount,
		PayerID:     ne.PayerID,
		Splits:      ne.splits(g),
		CreatedAt:   NowFunc().UTC(),
	})
}

func (svc *Service) Expenses(ctx context.Context, userID, groupID string) ([]Expense, error) {
	if _, err := svc.GetGroup(ctx, userID, groupID); err != nil {
		return nil, err
	}
	return svc.repo.QueryExpenses(ctx, groupID)
}

// Settle marks memberID's share of an expense as paid back. Only the payer or that member may do so.
func (svc *Service) Settle(ctx context.Context, userID, groupID, expenseID, memberID string) (Expense, error) {
	if _, err := svc.GetGroup(ctx, userID, groupID); err != nil {
		return Expense{}, err
	}

	var settled Expense
	err := core.RunInTx(ctx, svc.db, func(exec core.DBExecutor) error {
		e, err := svc.repo.GetExpense(ctx, expenseID, exec)
		if err != nil {
			return err
		}
		if e.GroupID != groupID {
			return ErrExpenseNotFound
		}
		if userID != e.PayerID && userID != memberID {
			return ErrNotPayer
		}

		idx := -1
		for i, s := range e.Splits {
			if s.MemberID == memberID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return ErrSplitNotFound
		}
		if e.Splits[idx].Settled {
			return ErrAlreadySettled
		}
		if err = svc.repo.SettleSplit(ctx, expenseID, memberID, exec); err != nil {
			return errors.Wrap(err, "settling split")
		}
		e.Splits[idx].Settled = true
		settled = e
		return nil
	})
	return settled, err
}

// Balances returns the current balances of the group and the settlements that clear them.
func (svc *Service) Balances(ctx context.Context, userID, groupID string) (GroupBalances, error) {
	g, err := svc.GetGroup(ctx, userID, groupID)
	if err != nil {
		return GroupBalances{}, err
	}
	expenses, err := svc.repo.QueryExpenses(ctx, groupID)
	if err != nil {
		return GroupBalances{}, errors.Wrap(err, "querying expenses")
	}
	balances := Balances(g.Members, expenses)
	settlements := SimplifyDebts(balances)
	if settlements == nil {
		settlements = []Settlement{}
	}
	return GroupBalances{Balances: balances, Settlements: settlements}, nil
}

// InviteToken returns a token that lets other users join the group.
func (svc *Service) InviteToken(ctx context.Context, userID, groupID string) (string, error) {
	g, err := svc.GetGroup(ctx, userID, groupID)
	if err != nil {
		return "", err
	}
	return svc.inviter.MakeToken(g.ID), nil
}

// Join adds userID to the group the invite token was made for.
func (svc *Service) Join(ctx context.Context, userID, token string) (Group, error) {
	groupID, err := svc.inviter.VerifyToken(token)
	if err != nil {
		return Group{}, core.NewValidationError(err, core.FieldError{Field: "token", Error: err.Error()})
	}
	m, err := svc.member(ctx, userID)
	if err != nil {
		return Group{}, err
	}

	var joined Group
	err = core.RunInTx(ctx, svc.db, func(exec core.DBExecutor) error {
		g, err := svc.repo.GetGroup(ctx, groupID, exec)
		if err != nil {
			return err
		}
		if g.HasMember(userID) {
			return ErrAlreadyMember
		}
		if err = svc.repo.AddMember(ctx, g.ID, m, exec); err != nil {
			return errors.Wrap(err, "adding member")
		}
		g.Members = append(g.Members, m)
		joined = g
		return nil
	})
	return joined, err
}
