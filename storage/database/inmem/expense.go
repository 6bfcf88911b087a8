package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/kampus/core"
	"github.com/trezcool/kampus/core/expense"
)

type expenseRepository struct {
	db *expenseTables
}

var _ expense.Repository = (*expenseRepository)(nil) // interface compliance check

func NewExpenseRepository(db *DB) *expenseRepository {
	return &expenseRepository{db: db.expense}
}

func copyGroup(g expense.Group) expense.Group {
	g.Members = append([]expense.Member{}, g.Members...)
	return g
}

func copyExpense(e expense.Expense) expense.Expense {
	e.Splits = append([]expense.Split{}, e.Splits...)
	return e
}

func (repo *expenseRepository) CreateGroup(_ context.Context, g expense.Group, _ ...core.DBExecutor) (expense.Group, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	stored := copyGroup(g)
	repo.db.groups[g.ID] = &stored
	return copyGroup(g), nil
}

func (repo *expenseRepository) GetGroup(_ context.Context, id string, _ ...core.DBExecutor) (expense.Group, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if g, ok := repo.db.groups[id]; ok {
		return copyGroup(*g), nil
	}
	return expense.Group{}, expense.ErrGroupNotFound
}

func (repo *expenseRepository) AddMember(_ context.Context, groupID string, m expense.Member, _ ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	g, ok := repo.db.groups[groupID]
	if !ok {
		return expense.ErrGroupNotFound
	}
	if g.HasMember(m.UserID) {
		return expense.ErrAlreadyMember
	}
	g.Members = append(g.Members, m)
	return nil
}

func (repo *expenseRepository) CreateExpense(_ context.Context, e expense.Expense, _ ...core.DBExecutor) (expense.Expense, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.groups[e.GroupID]; !ok {
		return expense.Expense{}, expense.ErrGroupNotFound
	}
	stored := copyExpense(e)
	repo.db.expenses[e.ID] = &stored
	return copyExpense(e), nil
}

func (repo *expenseRepository) GetExpense(_ context.Context, id string, _ ...core.DBExecutor) (expense.Expense, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if e, ok := repo.db.expenses[id]; ok {
		return copyExpense(*e), nil
	}
	return expense.Expense{}, expense.ErrExpenseNotFound
}

func (repo *expenseRepository) QueryExpenses(_ context.Context, groupID string, _ ...core.DBExecutor) ([]expense.Expense, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	expenses := make([]expense.Expense, 0)
	for _, e := range repo.db.expenses {
		if e.GroupID == groupID {
			expenses = append(expenses, copyExpense(*e))
		}
	}
	sort.Slice(expenses, func(i, j int) bool {
		if !expenses[i].CreatedAt.Equal(expenses[j].CreatedAt) {
			return expenses[i].CreatedAt.Before(expenses[j].CreatedAt)
		}
		return expenses[i].ID < expenses[j].ID
	})
	return expenses, nil
}

func (repo *expenseRepository) SettleSplit(_ context.Context, expenseID, memberID string, _ ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	e, ok := repo.db.expenses[expenseID]
	if !ok {
		return expense.ErrExpenseNotFound
	}
	for i := range e.Splits {
		if e.Splits[i].MemberID == memberID {
			e.Splits[i].Settled = true
			return nil
		}
	}
	return expense.ErrSplitNotFound
}
