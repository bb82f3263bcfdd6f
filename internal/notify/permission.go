package notify

import (
	"context"
	"sync"
)

// Permission is the user's answer to "may nudge show notifications?"
type Permission string

const (
	Default Permission = "default" // never asked
	Granted Permission = "granted"
	Denied  Permission = "denied"
)

const permissionKey = "notify_permission"

// PermissionSource reports the current permission
type PermissionSource interface {
	Permission() Permission
}

// SettingsStore is the key-value settings surface the permission is kept in
type SettingsStore interface {
	GetSetting(key string) (string, error)
	SetSetting(key, value string) error
}

// Permissions caches the persisted permission state
type Permissions struct {
	mu       sync.RWMutex
	settings SettingsStore
	current  Permission
}

// LoadPermissions reads the saved answer. Read errors count as never asked.
func LoadPermissions(settings SettingsStore) *Permissions {
	p := &Permissions{settings: settings, current: Default}
	if perm, ok := p.read(); ok {
		p.current = perm
	}
	return p
}

func (p *Permissions) read() (Permission, bool) {
	value, err := p.settings.GetSetting(permissionKey)
	if err != nil {
		return Default, false
	}
	switch Permission(value) {
	case Granted, Denied:
		return Permission(value), true
	}
	return Default, true
}

// Reload picks up an answer saved by another process. A failed read keeps
// the current state.
func (p *Permissions) Reload(ctx context.Context) {
	perm, ok := p.read()
	if !ok {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = perm
}

func (p *Permissions) Permission() Permission {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current
}

// NeedsPrompt reports whether the user should be asked
func (p *Permissions) NeedsPrompt() bool {
	return p.Permission() == Default
}

// Set records the user's answer
func (p *Permissions) Set(perm Permission) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.settings.SetSetting(permissionKey, string(perm)); err != nil {
		return err
	}
	p.current = perm
	return nil
}
