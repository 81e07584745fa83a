package eventapi

import (
	"context"
	"fmt"

	"github.com/oakmund/eventbook/internal/domain"
)

// LoginResult is a normalized login response; the raw payload's token
// and user envelope variants are resolved in normalize.go.
type LoginResult struct {
	Token string
	User  domain.User
}

func (c *Client) Login(ctx context.Context, email, password string) (LoginResult, error) {
	if email == "" || password == "" {
		return LoginResult{}, fmt.Errorf("email and password are required")
	}
	var raw wireLogin
	resp, err := c.rc.R().
		SetContext(ctx).
		SetBody(map[string]string{"email": email, "password": password}).
		SetResult(&raw).
		Post("/auth/login")
	if err := c.check(resp, err, "login"); err != nil {
		return LoginResult{}, err
	}
	token := raw.token()
	if token == "" {
		return LoginResult{}, fmt.Errorf("login: response carried no access token")
	}
	c.SetToken(token)
	return LoginResult{Token: token, User: raw.user(resp.Body())}, nil
}

type RegisterRequest struct {
	FullName    string `json:"full_name"`
	PhoneNumber string `json:"phone_number"`
	Email       string `json:"email"`
	Gender      string `json:"gender"`
	Password    string `json:"password"`
}

// Register creates a user account and returns the new user id.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	resp, err := c.rc.R().SetContext(ctx).SetBody(req).SetResult(&out).Post("/users")
	if err := c.check(resp, err, "register"); err != nil {
		return "", err
	}
	return out.ID, nil
}
