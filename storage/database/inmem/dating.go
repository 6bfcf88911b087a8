package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/kampus/core"
	"github.com/trezcool/kampus/core/dating"
)

type datingRepository struct {
	db *datingTables
}

var _ dating.Repository = (*datingRepository)(nil) // interface compliance check

func NewDatingRepository(db *DB) *datingRepository {
	return &datingRepository{db: db.dating}
}

func copyProfile(p dating.Profile) dating.Profile {
	p.Images = copyStrings(p.Images)
	p.Interests = copyStrings(p.Interests)
	return p
}

func (repo *datingRepository) CreateProfile(_ context.Context, p dating.Profile, _ ...core.DBExecutor) (dating.Profile, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	stored := copyProfile(p)
	repo.db.profiles[p.ID] = &stored
	return copyProfile(p), nil
}

func (repo *datingRepository) GetProfile(_ context.Context, id string, _ ...core.DBExecutor) (dating.Profile, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if p, ok := repo.db.profiles[id]; ok {
		return copyProfile(*p), nil
	}
	return dating.Profile{}, dating.ErrProfileNotFound
}

func (repo *datingRepository) QueryProfiles(_ context.Context, excludedOwner string, _ ...core.DBExecutor) ([]dating.Profile, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	profiles := make([]dating.Profile, 0, len(repo.db.profiles))
	for _, p := range repo.db.profiles {
		if excludedOwner == "" || p.OwnerID != excludedOwner {
			profiles = append(profiles, copyProfile(*p))
		}
	}
	sort.Slice(profiles, func(i, j int) bool {
		if !profiles[i].CreatedAt.Equal(profiles[j].CreatedAt) {
			return profiles[i].CreatedAt.Before(profiles[j].CreatedAt)
		}
		return profiles[i].ID < profiles[j].ID
	})
	return profiles, nil
}

func (repo *datingRepository) CreateSwipe(_ context.Context, s dating.Swipe, _ ...core.DBExecutor) (dating.Swipe, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.swipes = append(repo.db.swipes, s)
	return s, nil
}

func (repo *datingRepository) CreateMatch(_ context.Context, m dating.Match, _ ...core.DBExecutor) (dating.Match, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, orig := range repo.db.matches {
		if orig.UserID == m.UserID && orig.ProfileID == m.ProfileID {
			return dating.Match{}, dating.ErrAlreadyMatched
		}
	}
	stored := m
	repo.db.matches[m.ID] = &stored
	return m, nil
}

func (repo *datingRepository) GetMatch(_ context.Context, id string, _ ...core.DBExecutor) (dating.Match, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if m, ok := repo.db.matches[id]; ok {
		return *m, nil
	}
	return dating.Match{}, dating.ErrMatchNotFound
}

func (repo *datingRepository) QueryMatches(_ context.Context, userID string, _ ...core.DBExecutor) ([]dating.Match, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	matches := make([]dating.Match, 0)
	for _, m := range repo.db.matches {
		if m.HasParticipant(userID) {
			matches = append(matches, *m)
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		if !matches[i].CreatedAt.Equal(matches[j].CreatedAt) {
			return matches[i].CreatedAt.After(matches[j].CreatedAt)
		}
		return matches[i].ID < matches[j].ID
	})
	return matches, nil
}

func (repo *datingRepository) CreateMessage(_ context.Context, msg dating.Message, _ ...core.DBExecutor) (dating.Message, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.matches[msg.MatchID]; !ok {
		return dating.Message{}, dating.ErrMatchNotFound
	}
	repo.db.messages[msg.MatchID] = append(repo.db.messages[msg.MatchID], msg)
	return msg, nil
}

func (repo *datingRepository) QueryMessages(_ context.Context, matchID string, _ ...core.DBExecutor) ([]dating.Message, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	return append([]dating.Message{}, repo.db.messages[matchID]...), nil
}
