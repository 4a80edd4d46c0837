package api

import (
	"context"
	"encoding/json"

	"github.com/MrEthical07/goDesk/transport"
)

const (
	// DefaultLoginPath is the Auth Service login endpoint.
	DefaultLoginPath = "/api/auth/login"
	// DefaultRegisterPath is the Auth Service registration endpoint.
	DefaultRegisterPath = "/api/auth/register"
)

// Credentials is the login request body.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is the login success body. User is kept verbatim so it can be
// persisted exactly as the server sent it.
type LoginResponse struct {
	AccessToken string          `json:"access_token"`
	TokenType   string          `json:"token_type,omitempty"`
	User        json.RawMessage `json:"user"`
}

// Auth calls the remote Auth Service.
type Auth struct {
	c            *transport.Client
	loginPath    string
	registerPath string
}

// NewAuth creates an Auth module. Empty paths use the defaults.
func NewAuth(c *transport.Client, loginPath, registerPath string) *Auth {
	if loginPath == "" {
		loginPath = DefaultLoginPath
	}
	if registerPath == "" {
		registerPath = DefaultRegisterPath
	}
	return &Auth{c: c, loginPath: loginPath, registerPath: registerPath}
}

// Login posts credentials and returns the decoded success body.
func (a *Auth) Login(ctx context.Context, creds Credentials) (LoginResponse, error) {
	var out LoginResponse
	if err := a.c.Post(ctx, a.loginPath, creds, &out); err != nil {
		return LoginResponse{}, err
	}
	return out, nil
}

// Register posts a user-creation payload. The success body is ignored.
func (a *Auth) Register(ctx context.Context, payload any) error {
	return a.c.Post(ctx, a.registerPath, payload, nil)
}
