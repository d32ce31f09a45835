package resources

import (
	"context"
	"errors"
	"net/http"

	"studentinfo/sis-console/internal/apiclient"
	"studentinfo/sis-console/internal/session"
)

type Auth struct {
	b *base
}

var _ session.AuthAPI = (*Auth)(nil)

type Captcha struct {
	ID        string `json:"captcha_id"`
	Image     string `json:"captcha_image"`
	ExpiresAt string `json:"expires_at"`
}

type Availability struct {
	Available bool   `json:"available"`
	Message   string `json:"message,omitempty"`
}

type LoginRecord struct {
	ID        int64  `json:"id"`
	IP        string `json:"ip_address"`
	UserAgent string `json:"user_agent"`
	Success   bool   `json:"success"`
	CreatedAt string `json:"created_at"`
}

type ActiveSession struct {
	ID        string `json:"id"`
	IP        string `json:"ip_address"`
	UserAgent string `json:"user_agent"`
	Current   bool   `json:"current"`
	CreatedAt string `json:"created_at"`
}

// Login never sends credentials and reports failures to the session, which
// notifies the operator itself.
func (a *Auth) Login(ctx context.Context, creds session.LoginCredentials) (session.LoginResult, error) {
	resp, err := a.b.do(ctx, http.MethodPost, "/auth/login", nil, creds, apiclient.RequestOptions{SkipAuth: true, SkipErrorHandler: true})
	if err != nil {
		return session.LoginResult{}, err
	}
	return decode[session.LoginResult](resp)
}

func (a *Auth) Logout(ctx context.Context) error {
	_, err := a.b.c.Send(ctx, http.MethodPost, "/auth/logout", apiclient.RequestOptions{SkipRefresh: true, SkipErrorHandler: true, NoLoading: true})
	return err
}

func (a *Auth) Refresh(ctx context.Context, refreshToken string) (session.TokenPair, error) {
	body := map[string]string{"refresh_token": refreshToken}
	resp, err := a.b.c.Send(ctx, http.MethodPost, "/auth/refresh", apiclient.RequestOptions{Body: body, SkipAuth: true, SkipRefresh: true, SkipErrorHandler: true})
	if err != nil {
		return session.TokenPair{}, err
	}
	return decode[session.TokenPair](resp)
}

func (a *Auth) Me(ctx context.Context) (session.UserProfile, error) {
	return fetch[session.UserProfile](ctx, a.b, "/auth/me", nil)
}

func (a *Auth) UpdateProfile(ctx context.Context, patch session.ProfileUpdate) (session.UserProfile, error) {
	resp, err := a.b.do(ctx, http.MethodPut, "/auth/profile", nil, patch, apiclient.RequestOptions{SkipErrorHandler: true})
	if err != nil {
		return session.UserProfile{}, err
	}
	return decode[session.UserProfile](resp)
}

func (a *Auth) ChangePassword(ctx context.Context, change session.PasswordChange) error {
	_, err := a.b.do(ctx, http.MethodPost, "/auth/change-password", nil, change, apiclient.RequestOptions{SkipErrorHandler: true})
	return err
}

func (a *Auth) Register(ctx context.Context, form session.RegisterForm) error {
	_, err := a.b.do(ctx, http.MethodPost, "/auth/register", nil, form, apiclient.RequestOptions{SkipAuth: true, SkipErrorHandler: true})
	return err
}

func (a *Auth) Permissions(ctx context.Context) ([]string, error) {
	out, err := fetch[struct {
		Permissions []string `json:"permissions"`
	}](ctx, a.b, "/auth/permissions", nil)
	if err != nil {
		return nil, err
	}
	return out.Permissions, nil
}

func (a *Auth) Captcha(ctx context.Context) (Captcha, error) {
	resp, err := a.b.c.Send(ctx, http.MethodGet, "/auth/captcha", apiclient.RequestOptions{SkipAuth: true})
	if err != nil {
		return Captcha{}, err
	}
	return decode[Captcha](resp)
}

func (a *Auth) CheckUsername(ctx context.Context, username string) (Availability, error) {
	return a.availability(ctx, "/auth/check-username", "username", username)
}

func (a *Auth) CheckEmail(ctx context.Context, email string) (Availability, error) {
	return a.availability(ctx, "/auth/check-email", "email", email)
}

func (a *Auth) availability(ctx context.Context, p, key, value string) (Availability, error) {
	resp, err := a.b.c.Send(ctx, http.MethodGet, p, apiclient.RequestOptions{Params: map[string][]string{key: {value}}, SkipAuth: true, NoLoading: true})
	if err != nil {
		return Availability{}, err
	}
	out, err := decode[Availability](resp)
	if errors.Is(err, apiclient.ErrNoData) {
		return Availability{Available: true, Message: resp.Envelope.Message}, nil
	}
	return out, err
}

func (a *Auth) ForgotPassword(ctx context.Context, email string) error {
	_, err := a.b.c.Send(ctx, http.MethodPost, "/auth/forgot-password", apiclient.RequestOptions{Body: map[string]string{"email": email}, SkipAuth: true})
	return err
}

func (a *Auth) LoginHistory(ctx context.Context, params ListParams) (Page[LoginRecord], error) {
	return fetch[Page[LoginRecord]](ctx, a.b, "/auth/login-history", params)
}

func (a *Auth) ActiveSessions(ctx context.Context) ([]ActiveSession, error) {
	return fetch[[]ActiveSession](ctx, a.b, "/auth/active-sessions", nil)
}

func (a *Auth) RevokeSession(ctx context.Context, sessionID string) error {
	return exec(ctx, a.b, http.MethodPost, path("/auth/revoke-session/%s", sessionID), nil)
}

func (a *Auth) RevokeAllSessions(ctx context.Context) error {
	return exec(ctx, a.b, http.MethodPost, "/auth/revoke-all-sessions", nil)
}
