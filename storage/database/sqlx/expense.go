package sqlxrepos

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/kampus/core"
	"github.com/trezcool/kampus/core/expense"
)

type (
	groupRow struct {
		ID        string    `db:"id"`
		Name      string    `db:"name"`
		OwnerID   string    `db:"owner_id"`
		CreatedAt time.Time `db:"created_at"`
	}

	memberRow struct {
		GroupID  string    `db:"group_id"`
		UserID   string    `db:"user_id"`
		Name     string    `db:"name"`
		JoinedAt time.Time `db:"joined_at"`
	}

	expenseRow struct {
		ID          string    `db:"id"`
		GroupID     string    `db:"group_id"`
		Description string    `db:"description"`
		Amount      int64     `db:"amount"`
		PayerID     string    `db:"payer_id"`
		CreatedAt   time.Time `db:"created_at"`
	}

	splitRow struct {
		ExpenseID string `db:"expense_id"`
		MemberID  string `db:"member_id"`
		Position  int    `db:"position"`
		Amount    int64  `db:"amount"`
		Settled   bool   `db:"settled"`
	}
)

type expenseRepository struct {
	repository
}

var _ expense.Repository = (*expenseRepository)(nil) // interface compliance check

func NewExpenseRepository(exec core.DBExecutor) *expenseRepository {
	return &expenseRepository{repository{exec: exec}}
}

func (repo expenseRepository) CreateGroup(ctx context.Context, g expense.Group, exec ...core.DBExecutor) (expense.Group, error) {
	db := repo.getExec(exec)
	_, err := db.ExecContext(ctx,
		"INSERT INTO expense_groups (id, name, owner_id, created_at) VALUES ($1, $2, $3, $4)",
		g.ID, g.Name, g.OwnerID, g.CreatedAt.UTC(),
	)
	if err != nil {
		return expense.Group{}, errors.Wrap(err, "inserting group")
	}
	for _, m := range g.Members {
		if err = repo.AddMember(ctx, g.ID, m, db); err != nil {
			return expense.Group{}, err
		}
	}
	return repo.GetGroup(ctx, g.ID, db)
}

func (repo expenseRepository) GetGroup(ctx context.Context, id string, exec ...core.DBExecutor) (expense.Group, error) {
	db := repo.getExec(exec)
	var groups []groupRow
	if err := query(ctx, db, &groups, "SELECT id, name, owner_id, created_at FROM expense_groups WHERE id = ?", id); err != nil {
		return expense.Group{}, errors.Wrap(err, "getting group")
	}
	if len(groups) == 0 {
		return expense.Group{}, expense.ErrGroupNotFound
	}

	var members []memberRow
	err := query(ctx, db, &members,
		"SELECT group_id, user_id, name, joined_at FROM expense_members WHERE group_id = ? ORDER BY joined_at ASC, user_id ASC", id)
	if err != nil {
		return expense.Group{}, errors.Wrap(err, "querying members")
	}

	g := groups[0]
	group := expense.Group{
		ID:        g.ID,
		Name:      g.Name,
		OwnerID:   g.OwnerID,
		Members:   make([]expense.Member, 0, len(members)),
		CreatedAt: g.CreatedAt.UTC(),
	}
	for _, m := range members {
		group.Members = append(group.Members, expense.Member{UserID: m.UserID, Name: m.Name, JoinedAt: m.JoinedAt.UTC()})
	}
	return group, nil
}

func (repo expenseRepository) AddMember(ctx context.Context, groupID string, m expense.Member, exec ...core.DBExecutor) error {
	_, err := repo.getExec(exec).ExecContext(ctx,
		"INSERT INTO expense_members (group_id, user_id, name, joined_at) VALUES ($1, $2, $3, $4)",
		groupID, m.UserID, m.Name, m.JoinedAt.UTC(),
	)
	if isUniqueViolation(err) {
		return expense.ErrAlreadyMember
	}
	return errors.Wrap(err, "inserting member")
}

func (repo expenseRepository) CreateExpense(ctx context.Context, e expense.Expense, exec ...core.DBExecutor) (expense.Expense, error) {
	db := repo.getExec(exec)
	_, err := db.ExecContext(ctx, `
		INSERT INTO expenses (id, group_id, description, amount, payer_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		e.ID, e.GroupID, e.Description, e.Amount, e.PayerID, e.CreatedAt.UTC(),
	)
	if err != nil {
		return expense.Expense{}, errors.Wrap(err, "inserting expense")
	}
	for i, s := range e.Splits {
		_, err = db.ExecContext(ctx, `
			INSERT INTO expense_splits (expense_id, member_id, position, amount, settled)
			VALUES ($1, $2, $3, $4, $5)`,
			e.ID, s.MemberID, i, s.Amount, s.Settled,
		)
		if err != nil {
			return expense.Expense{}, errors.Wrap(err, "inserting split")
		}
	}
	return repo.GetExpense(ctx, e.ID, db)
}

func (repo expenseRepository) withSplits(ctx context.Context, db core.DBExecutor, rows []expenseRow) ([]expense.Expense, error) {
	expenses := make([]expense.Expense, 0, len(rows))
	if len(rows) == 0 {
		return expenses, nil
	}
	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}

	var splits []splitRow
	err := query(ctx, db, &splits,
		"SELECT expense_id, member_id, position, amount, settled FROM expense_splits WHERE expense_id IN (?) ORDER BY position ASC", ids)
	if err != nil {
		return nil, errors.Wrap(err, "querying splits")
	}
	byExpense := make(map[string][]expense.Split, len(rows))
	for _, s := range splits {
		byExpense[s.ExpenseID] = append(byExpense[s.ExpenseID], expense.Split{MemberID: s.MemberID, Amount: s.Amount, Settled: s.Settled})
	}

	for _, r := range rows {
		e := expense.Expense{
			ID:          r.ID,
			GroupID:     r.GroupID,
			Description: r.Description,
			Amount:      r.Amount,
			PayerID:     r.PayerID,
			Splits:      byExpense[r.ID],
			CreatedAt:   r.CreatedAt.UTC(),
		}
		if e.Splits == nil {
			e.Splits = []expense.Split{}
		}
		expenses = append(expenses, e)
	}
	return expenses, nil
}

func (repo expenseRepository) GetExpense(ctx context.Context, id string, exec ...core.DBExecutor) (expense.Expense, error) {
	db := repo.getExec(exec)
	var rows []expenseRow
	err := query(ctx, db, &rows,
		"SELECT id, group_id, description, amount, payer_id, created_at FROM expenses WHERE id = ?", id)
	if err != nil {
		return expense.Expense{}, errors.Wrap(err, "getting expense")
	}
	if len(rows) == 0 {
		return expense.Expense{}, expense.ErrExpenseNotFound
	}
	expenses, err := repo.withSplits(ctx, db, rows)
	if err != nil {
		return expense.Expense{}, err
	}
	return expenses[0], nil
}

func (repo expenseRepository) QueryExpenses(ctx context.Context, groupID string, exec ...core.DBExecutor) ([]expense.Expense, error) {
	db := repo.getExec(exec)
	var rows []expenseRow
	err := query(ctx, db, &rows,
		"SELECT id, group_id, description, amount, payer_id, created_at FROM expenses WHERE group_id = ? ORDER BY created_at ASC, id ASC", groupID)
	if err != nil {
		return nil, errors.Wrap(err, "querying expenses")
	}
	return repo.withSplits(ctx, db, rows)
}

func (repo expenseRepository) SettleSplit(ctx context.Context, expenseID, memberID string, exec ...core.DBExecutor) error {
	res, err := repo.getExec(exec).ExecContext(ctx,
		"UPDATE expense_splits SET settled = TRUE WHERE expense_id = $1 AND member_id = $2", expenseID, memberID)
	if err != nil {
		return errors.Wrap(err, "settling split")
	}
	if n, err := res.RowsAffected(); err != nil {
		return errors.Wrap(err, "settling split")
	} else if n == 0 {
		return expense.ErrSplitNotFound
	}
	return nil
}
