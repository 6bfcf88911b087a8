package prefs

import (
	"context"
	"encoding/json"
	"fmt"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/kampus/core"
)

// Themes
const (
	ThemeSystem = "system"
	ThemeLight  = "light"
	ThemeDark   = "dark"
)

// Notification topics
const (
	NotifyAttendance = "attendance"
	NotifyMatches    = "matches"
	NotifyMessages   = "messages"
	NotifyExpenses   = "expenses"
	NotifyResults    = "results"
)

var (
	AllThemes        = []string{ThemeSystem, ThemeLight, ThemeDark}
	AllNotifications = []string{NotifyAttendance, NotifyMatches, NotifyMessages, NotifyExpenses, NotifyResults}
)

// Preferences are stored as a single-level JSON object.
type Preferences struct {
	AnalyticsOptIn bool     `json:"analytics_opt_in"`
	Theme          string   `json:"theme" validate:"required,theme"`
	Notifications  []string `json:"notifications" validate:"omitempty,dive,notification"`
}

func Defaults() Preferences {
	return Preferences{
		Theme:         ThemeSystem,
		Notifications: append([]string(nil), AllNotifications...),
	}
}

func (p *Preferences) Validate(validate *validator.Validate) error {
	p.Theme = core.CleanLower(p.Theme)
	seen := make(map[string]struct{}, len(p.Notifications))
	notifications := make([]string, 0, len(p.Notifications))
	for _, n := range p.Notifications {
		n = core.CleanLower(n)
		if _, dup := seen[n]; !dup {
			seen[n] = struct{}{}
			notifications = append(notifications, n)
		}
	}
	p.Notifications = notifications
	return validate.Struct(p)
}

func (p Preferences) Encode() ([]byte, error) {
	if p.Notifications == nil {
		p.Notifications = []string{}
	}
	return json.Marshal(p)
}

// Decode parses data over the defaults, so missing keys keep their default value.
func Decode(data []byte) (Preferences, error) {
	p := Defaults()
	if err := json.Unmarshal(data, &p); err != nil {
		return Defaults(), err
	}
	return p, nil
}

func InitValidators(validate *validator.Validate, translator ut.Translator) {
	core.RegisterOneOf(validate, translator, "theme", "must be one of system, light or dark", AllThemes...)
	core.RegisterOneOf(validate, translator, "notification", "unknown notification topic", AllNotifications...)
}

// Store persists preferences by user ID.
type Store interface {
	Get(ctx context.Context, userID string) (p Preferences, found bool, err error)
	Set(ctx context.Context, userID string, p Preferences) error
}

type Service struct {
	store    Store
	logger   core.Logger
	validate *validator.Validate
}

func NewService(store Store, logger core.Logger, validate *validator.Validate) *Service {
	return &Service{store: store, logger: logger, validate: validate}
}

// Get returns the user's preferences, or the defaults when none are stored or the store fails.
func (svc *Service) Get(ctx context.Context, userID string) Preferences {
	p, found, err := svc.store.Get(ctx, userID)
	if err != nil {
		svc.logger.Warn(fmt.Sprintf("reading preferences: %v", err), core.LogFields{"user_id": userID})
		return Defaults()
	}
	if !found {
		return Defaults()
	}
	return p
}

// Set validates and stores the user's preferences.
// A store failure is logged; the validated preferences are returned regardless.
func (svc *Service) Set(ctx context.Context, userID string, p Preferences) (Preferences, error) {
	if err := p.Validate(svc.validate); err != nil {
		return Preferences{}, err
	}
	if err := svc.store.Set(ctx, userID, p); err != nil {
		svc.logger.Warn(fmt.Sprintf("writing preferences: %v", err), core.LogFields{"user_id": userID})
	}
	return p, nil
}
