// Package auth wires Google OAuth sign-in and the JWT session tokens the
// API hands out after a successful callback.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/lmoretti/birchside/internal/workflow"
)

const userinfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"

// GoogleVerifier exchanges an OAuth authorization code for a verified
// principal.
type GoogleVerifier struct {
	conf *oauth2.Config
}

func NewGoogle(clientID, clientSecret, redirectURL string) *GoogleVerifier {
	return &GoogleVerifier{
		conf: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"openid", "profile", "email"},
			Endpoint:     google.Endpoint,
		},
	}
}

// AuthCodeURL returns the consent-screen redirect for the given state.
func (g *GoogleVerifier) AuthCodeURL(state string) string {
	return g.conf.AuthCodeURL(state)
}

// Exchange trades the callback code for the signed-in user's profile.
// Any provider-side failure surfaces as an AuthenticationError so callers
// treat the visitor as anonymous.
func (g *GoogleVerifier) Exchange(ctx context.Context, code string) (workflow.Principal, error) {
	token, err := g.conf.Exchange(ctx, code)
	if err != nil {
		return workflow.Principal{}, &workflow.AuthenticationError{Msg: "code exchange failed"}
	}

	resp, err := g.conf.Client(ctx, token).Get(userinfoURL)
	if err != nil {
		return workflow.Principal{}, &workflow.AuthenticationError{Msg: "userinfo fetch failed"}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return workflow.Principal{}, &workflow.AuthenticationError{Msg: fmt.Sprintf("userinfo returned %d", resp.StatusCode)}
	}

	var info struct {
		Sub     string `json:"sub"`
		Name    string `json:"name"`
		Email   string `json:"email"`
		Picture string `json:"picture"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return workflow.Principal{}, &workflow.AuthenticationError{Msg: "userinfo decode failed"}
	}
	if info.Sub == "" {
		return workflow.Principal{}, &workflow.AuthenticationError{Msg: "userinfo missing subject"}
	}

	return workflow.Principal{
		Subject:   info.Sub,
		Name:      info.Name,
		Email:     info.Email,
		AvatarURL: info.Picture,
	}, nil
}
