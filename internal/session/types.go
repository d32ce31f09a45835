package session

import (
	"context"
	"time"
)

const (
	RoleAdmin   = "admin"
	RoleTeacher = "teacher"
	RoleStudent = "student"
)

// UserProfile is the authenticated user as returned by the auth endpoints.
type UserProfile struct {
	ID          int64    `json:"id"`
	Username    string   `json:"username"`
	Email       string   `json:"email,omitempty"`
	Phone       string   `json:"phone,omitempty"`
	RealName    string   `json:"real_name,omitempty"`
	Avatar      string   `json:"avatar,omitempty"`
	Status      string   `json:"status,omitempty"`
	Roles       []string `json:"roles"`
	Permissions []string `json:"permissions"`
	CreatedAt   string   `json:"created_at,omitempty"`
	UpdatedAt   string   `json:"updated_at,omitempty"`
	LastLoginAt string   `json:"last_login_at,omitempty"`

	// Role is the single-role field written by older clients.
	Role string `json:"role,omitempty"`
}

type LoginCredentials struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
	Remember bool   `json:"remember,omitempty"`
	Captcha  string `json:"captcha,omitempty"`
}

type LoginResult struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	TokenType    string      `json:"token_type"`
	ExpiresIn    int64       `json:"expires_in"`
	User         UserProfile `json:"user_info"`
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

type RegisterForm struct {
	Username        string `json:"username" validate:"required,min=3,max=50"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=Password"`
	Phone           string `json:"phone,omitempty"`
	RealName        string `json:"real_name,omitempty"`
	StudentID       string `json:"student_id,omitempty"`
	Captcha         string `json:"captcha,omitempty"`
	CaptchaID       string `json:"captcha_id,omitempty"`
}

type ProfileUpdate struct {
	Email    string `json:"email,omitempty" validate:"omitempty,email"`
	Phone    string `json:"phone,omitempty"`
	RealName string `json:"real_name,omitempty"`
	Avatar   string `json:"avatar,omitempty"`
}

type PasswordChange struct {
	OldPassword     string `json:"old_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirm_password,omitempty"`
}

// AuthAPI is the slice of the remote auth endpoints the session drives.
type AuthAPI interface {
	Login(ctx context.Context, creds LoginCredentials) (LoginResult, error)
	Logout(ctx context.Context) error
	Refresh(ctx context.Context, refreshToken string) (TokenPair, error)
	Me(ctx context.Context) (UserProfile, error)
	UpdateProfile(ctx context.Context, patch ProfileUpdate) (UserProfile, error)
	ChangePassword(ctx context.Context, change PasswordChange) error
	Register(ctx context.Context, form RegisterForm) error
	Permissions(ctx context.Context) ([]string, error)
}

type Navigator interface {
	Navigate(location string)
}

type Notifier interface {
	Success(message string)
	Info(message string)
	Error(message string)
}

type AuditLogger interface {
	Log(actor, action, target, outcome, detail string) error
}

// Snapshot is a read-only copy of the session state.
type Snapshot struct {
	Authenticated   bool         `json:"authenticated"`
	User            *UserProfile `json:"user,omitempty"`
	Roles           []string     `json:"roles"`
	Permissions     []string     `json:"permissions"`
	HasRefreshToken bool         `json:"has_refresh_token"`
	AccessExpiresAt *time.Time   `json:"access_expires_at,omitempty"`
	LandingRoute    string       `json:"landing_route"`
}
