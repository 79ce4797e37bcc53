// Package registry tracks which model each Telegram user talks to.
package registry

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/ctlst/telegramollamabot/internal/relay"
)

// ErrNoModelAvailable reports that the runtime has no model installed and
// the default could not be pulled.
var ErrNoModelAvailable = errors.New("registry: no model available")

// ModelUnavailableError reports that a requested model is not installed and
// could not be made available.
type ModelUnavailableError struct {
	Name string
	Err  error
}

func (e *ModelUnavailableError) Error() string {
	return fmt.Sprintf("registry: model %q unavailable: %v", e.Name, e.Err)
}

func (e *ModelUnavailableError) Unwrap() error { return e.Err }

// ModelAPI is the slice of the relay client the registry needs.
type ModelAPI interface {
	Models(ctx context.Context) ([]relay.Model, error)
	Pull(ctx context.Context, name string) error
	ClearHistory(ctx context.Context, sessionID string) error
}

// Registry remembers per-user model choices. Selections live in memory and
// reset on restart.
type Registry struct {
	api          ModelAPI
	defaultModel string

	mu       sync.RWMutex
	selected map[int64]string
}

// New constructs a Registry with the given fallback default model.
func New(api ModelAPI, defaultModel string) *Registry {
	return &Registry{
		api:          api,
		defaultModel: defaultModel,
		selected:     make(map[int64]string),
	}
}

// Current returns the user's explicit selection, or "" if they never chose.
func (r *Registry) Current(userID int64) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.selected[userID]
}

// ResolveModel returns the model to answer this user with. A prior explicit
// selection wins; otherwise the configured default is ensured (pulled only
// when absent); otherwise the first installed model is used. The outcome is
// recorded as the user's selection, so the ensure step runs once per user,
// not once per message.
func (r *Registry) ResolveModel(ctx context.Context, userID int64) (string, error) {
	if current := r.Current(userID); current != "" {
		return current, nil
	}

	listed, err := r.api.Models(ctx)
	if err != nil {
		return "", err
	}
	for _, m := range listed {
		if m.Name == r.defaultModel {
			r.remember(userID, r.defaultModel)
			return r.defaultModel, nil
		}
	}
	if err := r.api.Pull(ctx, r.defaultModel); err == nil {
		r.remember(userID, r.defaultModel)
		return r.defaultModel, nil
	}
	if len(listed) > 0 {
		r.remember(userID, listed[0].Name)
		return listed[0].Name, nil
	}
	return "", ErrNoModelAvailable
}

// SetModel records an explicit selection after confirming the model is
// installed, pulling it first when it is not.
func (r *Registry) SetModel(ctx context.Context, userID int64, name string) error {
	listed, err := r.api.Models(ctx)
	if err != nil {
		return err
	}
	installed := false
	for _, m := range listed {
		if m.Name == name {
			installed = true
			break
		}
	}
	if !installed {
		if err := r.api.Pull(ctx, name); err != nil {
			return &ModelUnavailableError{Name: name, Err: err}
		}
	}

	r.remember(userID, name)
	return nil
}

func (r *Registry) remember(userID int64, name string) {
	r.mu.Lock()
	r.selected[userID] = name
	r.mu.Unlock()
}

// ClearHistory drops the relay-side conversation for this user.
func (r *Registry) ClearHistory(ctx context.Context, userID int64) error {
	return r.api.ClearHistory(ctx, strconv.FormatInt(userID, 10))
}
