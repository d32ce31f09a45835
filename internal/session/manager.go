// Package session owns the authenticated state of the console: tokens, the
// user profile with its roles and permissions, and their persisted copy.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"studentinfo/sis-console/internal/apiclient"
)

var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrNoRefreshToken   = errors.New("no refresh token")
	ErrMissingToken     = errors.New("login response carries no access token")
	ErrMalformedProfile = errors.New("malformed stored profile")
)

const (
	msgLoginSuccess     = "Login successful"
	msgLoginFailed      = "Login failed, please try again later"
	msgLoggedOut        = "Logged out"
	msgSessionExpired   = "Session expired, please log in again"
	msgRegistered       = "Registration successful, please log in"
	msgRegisterFailed   = "Registration failed, please try again later"
	msgPasswordChanged  = "Password changed"
	msgPasswordFailed   = "Password change failed, please try again later"
	msgProfileUpdated   = "Profile updated"
	msgProfileFailed    = "Profile update failed, please try again later"
	auditTargetSession  = "session"
	auditActionLogin    = "session.login"
	auditActionLogout   = "session.logout"
	auditActionExpire   = "session.expire"
	auditActionRefresh  = "session.refresh"
	auditActionRestore  = "session.restore"
	auditActionPassword = "session.change_password"
)

type Deps struct {
	Storage   Storage
	Auth      AuthAPI
	Navigator Navigator
	Notifier  Notifier
	Audit     AuditLogger
	Logger    *slog.Logger
}

// Manager is the single session of one console. It satisfies
// apiclient.Credentials so the client can attach and refresh tokens.
type Manager struct {
	storage Storage
	auth    AuthAPI
	nav     Navigator
	notify  Notifier
	audit   AuditLogger
	log     *slog.Logger
	nowFunc func() time.Time

	mu        sync.RWMutex
	token     string
	refresh   string
	profile   *UserProfile
	roles     []string
	perms     []string
	accessExp time.Time

	refreshes   singleflight.Group
	restoreOnce sync.Once
	restored    chan struct{}
	restoreErr  error
}

var _ apiclient.Credentials = (*Manager)(nil)

func NewManager(deps Deps) (*Manager, error) {
	if deps.Storage == nil {
		return nil, fmt.Errorf("session storage is required")
	}
	if deps.Auth == nil {
		return nil, fmt.Errorf("auth api is required")
	}
	log := deps.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Manager{
		storage:  deps.Storage,
		auth:     deps.Auth,
		nav:      deps.Navigator,
		notify:   deps.Notifier,
		audit:    deps.Audit,
		log:      log,
		nowFunc:  time.Now,
		restored: make(chan struct{}),
	}, nil
}

func (m *Manager) AccessToken() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token
}

func (m *Manager) RefreshToken() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.refresh
}

func (m *Manager) IsAuthenticated() bool {
	return m.AccessToken() != ""
}

func (m *Manager) Roles() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.roles)
}

func (m *Manager) Permissions() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.perms)
}

func (m *Manager) Profile() (UserProfile, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.profile == nil {
		return UserProfile{}, false
	}
	return cloneProfile(*m.profile), true
}

func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap := Snapshot{
		Authenticated:   m.token != "",
		Roles:           nonNil(m.roles),
		Permissions:     nonNil(m.perms),
		HasRefreshToken: m.refresh != "",
		LandingRoute:    LandingRoute(m.roles),
	}
	if m.profile != nil {
		p := cloneProfile(*m.profile)
		snap.User = &p
	}
	if !m.accessExp.IsZero() {
		exp := m.accessExp
		snap.AccessExpiresAt = &exp
	}
	return snap
}

// Login authenticates against the API. On success the session is persisted
// and the operator is sent to redirect, or to the landing route of their roles
// when redirect is not a safe local path. On failure the state is untouched.
func (m *Manager) Login(ctx context.Context, creds LoginCredentials, redirect string) error {
	username := strings.TrimSpace(creds.Username)
	res, err := m.auth.Login(ctx, creds)
	if err == nil && res.AccessToken == "" {
		err = ErrMissingToken
	}
	if err != nil {
		m.notifyError(apiclient.MessageOf(err, msgLoginFailed))
		m.auditLog(username, auditActionLogin, "failed", err.Error())
		m.log.Warn("login failed", "username", username, "error", err)
		return err
	}

	profile := normalizeProfile(res.User)
	encoded, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}

	m.mu.Lock()
	if err := m.storage.Set(map[string]string{
		KeyToken:        res.AccessToken,
		KeyRefreshToken: res.RefreshToken,
		KeyUser:         string(encoded),
	}); err != nil {
		m.mu.Unlock()
		m.notifyError(msgLoginFailed)
		return fmt.Errorf("persist session: %w", err)
	}
	m.token = res.AccessToken
	m.refresh = res.RefreshToken
	m.setProfileLocked(&profile)
	m.accessExp = accessExpiry(res.AccessToken, res.ExpiresIn, m.nowFunc())
	roles := slices.Clone(m.roles)
	m.mu.Unlock()

	m.notifySuccess(msgLoginSuccess)
	m.auditLog(profile.Username, auditActionLogin, "success", strings.Join(roles, ","))
	m.log.Info("login succeeded", "username", profile.Username, "roles", roles)

	target := LandingRoute(roles)
	if safe, ok := SafeRedirect(redirect); ok {
		target = safe
	}
	m.navigate(target)
	return nil
}

// Logout tells the server (best effort), then clears memory and storage and
// sends the operator to the login page.
func (m *Manager) Logout(ctx context.Context) error {
	actor := m.actor()
	if m.IsAuthenticated() {
		if err := m.auth.Logout(ctx); err != nil {
			m.log.Debug("server logout failed", "error", err)
		}
	}
	err := m.clear()

	m.notifySuccess(msgLoggedOut)
	m.auditLog(actor, auditActionLogout, "success", "")
	m.navigate(LoginRoute)
	return err
}

// Expire drops a session the server no longer accepts. It does not call the
// server and is a no-op when the session is already empty.
func (m *Manager) Expire(ctx context.Context) {
	m.mu.RLock()
	empty := m.token == "" && m.refresh == "" && m.profile == nil
	m.mu.RUnlock()
	if empty {
		return
	}

	actor := m.actor()
	if err := m.clear(); err != nil {
		m.log.Error("clear expired session", "error", err)
	}
	m.notifyError(msgSessionExpired)
	m.auditLog(actor, auditActionExpire, "success", "")
	m.navigate(LoginRoute)
}

func (m *Manager) clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	m.refresh = ""
	m.accessExp = time.Time{}
	m.setProfileLocked(nil)
	if err := m.storage.Remove(allKeys...); err != nil {
		return fmt.Errorf("clear session storage: %w", err)
	}
	return nil
}

// Refresh implements apiclient.Credentials.
func (m *Manager) Refresh(ctx context.Context) error {
	return m.RefreshAccessToken(ctx)
}

// RefreshAccessToken exchanges the refresh token for a new access token.
// Concurrent callers share one attempt. Failure tells the server to log out
// and expires the session locally.
func (m *Manager) RefreshAccessToken(ctx context.Context) error {
	_, err, _ := m.refreshes.Do("refresh", func() (any, error) {
		return nil, m.refreshOnce(ctx)
	})
	return err
}

func (m *Manager) refreshOnce(ctx context.Context) error {
	actor := m.actor()
	rt := m.RefreshToken()
	var (
		pair TokenPair
		err  error
	)
	if rt == "" {
		err = ErrNoRefreshToken
	} else {
		pair, err = m.auth.Refresh(ctx, rt)
		if err == nil && pair.AccessToken == "" {
			err = ErrMissingToken
		}
	}
	if err == nil {
		err = m.applyTokens(pair)
	}
	if err != nil {
		m.log.Warn("token refresh failed", "error", err)
		m.auditLog(actor, auditActionRefresh, "failed", err.Error())
		if m.AccessToken() != "" {
			if logoutErr := m.auth.Logout(ctx); logoutErr != nil {
				m.log.Debug("server logout after failed refresh", "error", logoutErr)
			}
		}
		m.Expire(ctx)
		return err
	}
	m.auditLog(actor, auditActionRefresh, "success", "")
	return nil
}

func (m *Manager) applyTokens(pair TokenPair) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	values := map[string]string{KeyToken: pair.AccessToken}
	if pair.RefreshToken != "" {
		values[KeyRefreshToken] = pair.RefreshToken
	}
	if err := m.storage.Set(values); err != nil {
		return fmt.Errorf("persist refreshed token: %w", err)
	}
	m.token = pair.AccessToken
	if pair.RefreshToken != "" {
		m.refresh = pair.RefreshToken
	}
	m.accessExp = accessExpiry(pair.AccessToken, pair.ExpiresIn, m.nowFunc())
	return nil
}

// Restore loads a persisted session. A profile that cannot be decoded wipes
// every key and leaves the session unauthenticated. It makes no network calls.
func (m *Manager) Restore() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.token != "" && m.profile != nil {
		return nil
	}

	token, _, err := m.storage.Get(KeyToken)
	if err != nil {
		return fmt.Errorf("restore token: %w", err)
	}
	refresh, _, err := m.storage.Get(KeyRefreshToken)
	if err != nil {
		return fmt.Errorf("restore refresh token: %w", err)
	}
	raw, ok, err := m.storage.Get(KeyUser)
	if err != nil {
		return fmt.Errorf("restore profile: %w", err)
	}
	if !ok || raw == "" {
		if raw, _, err = m.storage.Get(KeyLegacyUser); err != nil {
			return fmt.Errorf("restore legacy profile: %w", err)
		}
	}

	var profile *UserProfile
	if raw != "" {
		p, err := decodeProfile(raw)
		if err != nil {
			m.log.Warn("discarding stored session", "error", err)
			m.auditLog("", auditActionRestore, "failed", err.Error())
			m.token = ""
			m.refresh = ""
			m.accessExp = time.Time{}
			m.setProfileLocked(nil)
			if err := m.storage.Remove(allKeys...); err != nil {
				return fmt.Errorf("clear malformed session: %w", err)
			}
			return nil
		}
		profile = &p
	}

	m.token = token
	m.refresh = refresh
	m.setProfileLocked(profile)
	if token != "" {
		m.accessExp = accessExpiry(token, 0, m.nowFunc())
	}
	m.log.Info("session restored", "authenticated", token != "", "roles", m.roles)
	return nil
}

// EnsureRestored runs Restore once per manager and waits for it.
func (m *Manager) EnsureRestored(ctx context.Context) error {
	m.restoreOnce.Do(func() {
		go func() {
			m.restoreErr = m.Restore()
			close(m.restored)
		}()
	})
	select {
	case <-m.restored:
		return m.restoreErr
	case <-ctx.Done():
		return ctx.Err()
	}
}

// FetchProfile reloads the profile from the server. Failure logs out.
func (m *Manager) FetchProfile(ctx context.Context) (UserProfile, error) {
	p, err := m.auth.Me(ctx)
	if err != nil {
		m.log.Warn("fetch profile failed", "error", err)
		if logoutErr := m.Logout(ctx); logoutErr != nil {
			m.log.Error("logout after failed profile fetch", "error", logoutErr)
		}
		return UserProfile{}, err
	}
	p = normalizeProfile(p)
	if err := m.replaceProfile(p); err != nil {
		return UserProfile{}, err
	}
	return cloneProfile(p), nil
}

// UpdateProfile sends the patch and replaces the snapshot with the server's
// copy of the profile.
func (m *Manager) UpdateProfile(ctx context.Context, patch ProfileUpdate) (UserProfile, error) {
	p, err := m.auth.UpdateProfile(ctx, patch)
	if err != nil {
		m.notifyError(apiclient.MessageOf(err, msgProfileFailed))
		return UserProfile{}, err
	}
	p = normalizeProfile(p)
	if err := m.replaceProfile(p); err != nil {
		return UserProfile{}, err
	}
	m.notifySuccess(msgProfileUpdated)
	return cloneProfile(p), nil
}

func (m *Manager) ChangePassword(ctx context.Context, oldPassword, newPassword string) error {
	actor := m.actor()
	err := m.auth.ChangePassword(ctx, PasswordChange{OldPassword: oldPassword, NewPassword: newPassword, ConfirmPassword: newPassword})
	if err != nil {
		m.notifyError(apiclient.MessageOf(err, msgPasswordFailed))
		m.auditLog(actor, auditActionPassword, "failed", err.Error())
		return err
	}
	m.notifySuccess(msgPasswordChanged)
	m.auditLog(actor, auditActionPassword, "success", "")
	return nil
}

func (m *Manager) Register(ctx context.Context, form RegisterForm) error {
	if err := m.auth.Register(ctx, form); err != nil {
		m.notifyError(apiclient.MessageOf(err, msgRegisterFailed))
		return err
	}
	m.notifySuccess(msgRegistered)
	return nil
}

// RefreshPermissions replaces the permission list with the server's.
func (m *Manager) RefreshPermissions(ctx context.Context) error {
	perms, err := m.auth.Permissions(ctx)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.perms = nonNil(slices.Clone(perms))
	if m.profile == nil {
		return nil
	}
	m.profile.Permissions = slices.Clone(m.perms)
	return m.persistProfileLocked(*m.profile)
}

func (m *Manager) replaceProfile(p UserProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.persistProfileLocked(p); err != nil {
		return err
	}
	m.setProfileLocked(&p)
	return nil
}

func (m *Manager) persistProfileLocked(p UserProfile) error {
	encoded, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	if err := m.storage.Set(map[string]string{KeyUser: string(encoded)}); err != nil {
		return fmt.Errorf("persist profile: %w", err)
	}
	return nil
}

func (m *Manager) setProfileLocked(p *UserProfile) {
	if p == nil {
		m.profile = nil
		m.roles = nil
		m.perms = nil
		return
	}
	cp := cloneProfile(*p)
	m.profile = &cp
	m.roles = slices.Clone(cp.Roles)
	m.perms = slices.Clone(cp.Permissions)
}

func (m *Manager) actor() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.profile == nil {
		return ""
	}
	return m.profile.Username
}

func (m *Manager) navigate(location string) {
	if m.nav != nil {
		m.nav.Navigate(location)
	}
}

func (m *Manager) notifySuccess(msg string) {
	if m.notify != nil {
		m.notify.Success(msg)
	}
}

func (m *Manager) notifyError(msg string) {
	if m.notify != nil {
		m.notify.Error(msg)
	}
}

func (m *Manager) auditLog(actor, action, outcome, detail string) {
	if m.audit == nil {
		return
	}
	if err := m.audit.Log(actor, action, auditTargetSession, outcome, detail); err != nil {
		m.log.Warn("audit write failed", "action", action, "error", err)
	}
}

func decodeProfile(raw string) (UserProfile, error) {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "{") {
		return UserProfile{}, ErrMalformedProfile
	}
	var p UserProfile
	if err := json.Unmarshal([]byte(trimmed), &p); err != nil {
		return UserProfile{}, fmt.Errorf("%w: %v", ErrMalformedProfile, err)
	}
	return normalizeProfile(p), nil
}

// normalizeProfile upgrades the legacy single role and guarantees non-nil
// role and permission lists.
func normalizeProfile(p UserProfile) UserProfile {
	if len(p.Roles) == 0 && strings.TrimSpace(p.Role) != "" {
		p.Roles = []string{strings.TrimSpace(p.Role)}
	}
	p.Roles = nonNil(p.Roles)
	p.Permissions = nonNil(p.Permissions)
	return p
}

func cloneProfile(p UserProfile) UserProfile {
	p.Roles = slices.Clone(p.Roles)
	p.Permissions = slices.Clone(p.Permissions)
	return p
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return slices.Clone(s)
}
