package expense

import (
	"sort"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/kampus/core"
)

// amounts are in the smallest currency unit (paise)
type (
	Member struct {
		UserID   string    `json:"user_id"`
		Name     string    `json:"name"`
		JoinedAt time.Time `json:"joined_at"` // UTC
	}

	Group struct {
		ID        string    `json:"id"`
		Name      string    `json:"name"`
		OwnerID   string    `json:"owner_id"`
		Members   []Member  `json:"members"`
		CreatedAt time.Time `json:"created_at"` // UTC
	}

	Split struct {
		MemberID string `json:"member_id"`
		Amount   int64  `json:"amount"`
		Settled  bool   `json:"settled"`
	}

	Expense struct {
		ID          string    `json:"id"`
		GroupID     string    `json:"group_id"`
		Description string    `json:"description"`
		Amount      int64     `json:"amount"`
		PayerID     string    `json:"payer_id"`
		Splits      []Split   `json:"splits"`
		CreatedAt   time.Time `json:"created_at"` // UTC
	}

	// Settlement is a payment that clears debt between two members.
	Settlement struct {
		From   string `json:"from"`
		To     string `json:"to"`
		Amount int64  `json:"amount"`
	}
)

func (g Group) HasMember(userID string) bool {
	for _, m := range g.Members {
		if m.UserID == userID {
			return true
		}
	}
	return false
}

func (g Group) memberIDs() []string {
	ids := make([]string, len(g.Members))
	for i, m := range g.Members {
		ids[i] = m.UserID
	}
	return ids
}

// EqualSplits divides amount between members; remainder units go to the first members in order.
func EqualSplits(amount int64, memberIDs []string) []Split {
	n := int64(len(memberIDs))
	if n == 0 {
		return nil
	}
	share, rem := amount/n, amount%n
	splits := make([]Split, n)
	for i, id := range memberIDs {
		splits[i] = Split{MemberID: id, Amount: share}
		if int64(i) < rem {
			splits[i].Amount++
		}
	}
	return splits
}

// Balances returns every member's net position: paid minus owed over unsettled splits.
// Positive balances are owed money.
func Balances(members []Member, expenses []Expense) map[string]int64 {
	balances := make(map[string]int64, len(members))
	for _, m := range members {
		balances[m.UserID] = 0
	}
	for _, e := range expenses {
		for _, s := range e.Splits {
			if s.Settled || s.MemberID == e.PayerID {
				continue
			}
			balances[s.MemberID] -= s.Amount
			balances[e.PayerID] += s.Amount
		}
	}
	return balances
}

// SimplifyDebts greedily pairs the largest debtor with the largest creditor
// until every balance is cleared.
func SimplifyDebts(balances map[string]int64) []Settlement {
	type position struct {
		id     string
		amount int64
	}
	var debtors, creditors []position
	for id, amount := range balances {
		switch {
		case amount < 0:
			debtors = append(debtors, position{id, -amount})
		case amount > 0:
			creditors = append(creditors, position{id, amount})
		}
	}
	byAmount := func(ps []position) func(i, j int) bool {
		return func(i, j int) bool {
			if ps[i].amount != ps[j].amount {
				return ps[i].amount > ps[j].amount
			}
			return ps[i].id < ps[j].id
		}
	}

	var settlements []Settlement
	for len(debtors) > 0 && len(creditors) > 0 {
		sort.Slice(debtors, byAmount(debtors))
		sort.Slice(creditors, byAmount(creditors))

		d, c := &debtors[0], &creditors[0]
		amount := d.amount
		if c.amount < amount {
			amount = c.amount
		}
		settlements = append(settlements, Settlement{From: d.id, To: c.id, Amount: amount})
		d.amount -= amount
		c.amount -= amount
		if d.amount == 0 {
			debtors = debtors[1:]
		}
		if c.amount == 0 {
			creditors = creditors[1:]
		}
	}
	return settlements
}

type (
	NewGroup struct {
		Name string `json:"name" validate:"required,notblank,max=64"`
	}

	NewSplit struct {
		MemberID string `json:"member_id" validate:"required"`
		Amount   int64  `json:"amount" validate:"min=0"`
	}

	// NewExpense is split equally between every member unless Splits are given.
	NewExpense struct {
		Description string     `json:"description" validate:"required,notblank,max=200"`
		Amount      int64      `json:"amount" validate:"required,min=1"`
		PayerID     string     `json:"payer_id"`
		Splits      []NewSplit `json:"splits" validate:"omitempty,dive"`
	}
)

func (ng *NewGroup) Validate(validate *validator.Validate) error {
	ng.Name = core.CleanName(ng.Name)
	return validate.Struct(ng)
}

// Validate checks ne against the group it is added to.
func (ne *NewExpense) Validate(validate *validator.Validate, group Group) error {
	ne.Description = core.CleanString(ne.Description)
	if err := validate.Struct(ne); err != nil {
		return err
	}

	var fields []core.FieldError
	if !group.HasMember(ne.PayerID) {
		fields = append(fields, core.FieldError{Field: "payer_id", Error: "payer must be a group member"})
	}
	if len(ne.Splits) > 0 {
		var sum int64
		var strangers, dups bool
		seen := make(map[string]struct{}, len(ne.Splits))
		for _, s := range ne.Splits {
			sum += s.Amount
			if !group.HasMember(s.MemberID) {
				strangers = true
			}
			if _, ok := seen[s.MemberID]; ok {
				dups = true
			}
			seen[s.MemberID] = struct{}{}
		}
		switch {
		case strangers:
			fields = append(fields, core.FieldError{Field: "splits", Error: "split members must be group members"})
		case dups:
			fields = append(fields, core.FieldError{Field: "splits", Error: "a member can only appear once"})
		case sum != ne.Amount:
			fields = append(fields, core.FieldError{Field: "splits", Error: "splits must add up to the amount"})
		}
	}
	if len(fields) > 0 {
		return core.NewValidationError(nil, fields...)
	}
	return nil
}

// splits returns the shares of ne, with the payer's own share settled.
func (ne NewExpense) splits(group Group) []Split {
	var splits []Split
	if len(ne.Splits) > 0 {
		splits = make([]Split, len(ne.Splits))
		for i, s := range ne.Splits {
			splits[i] = Split{MemberID: s.MemberID, Amount: s.Amount}
		}
	} else {
		splits = EqualSplits(ne.Amount, group.memberIDs())
	}
	for i := range splits {
		if splits[i].MemberID == ne.PayerID {
			splits[i].Settled = true
		}
	}
	return splits
}
