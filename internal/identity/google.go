package identity

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/api/idtoken"
)

// GoogleFlow verifies Google ID tokens obtained by the client's sign-in
// popup.
type GoogleFlow struct {
	clientID string
	validate func(ctx context.Context, token, audience string) (*idtoken.Payload, error)
}

// NewGoogleFlow returns a flow accepting ID tokens issued to clientID.
func NewGoogleFlow(clientID string) *GoogleFlow {
	return &GoogleFlow{clientID: clientID, validate: idtoken.Validate}
}

// Authenticate validates credential, a Google ID token. An empty credential
// means the popup was dismissed.
func (g *GoogleFlow) Authenticate(ctx context.Context, credential string) (SocialProfile, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return SocialProfile{}, authErr(KindPopupClosed, nil)
	}

	payload, err := g.validate(ctx, credential, g.clientID)
	if err != nil {
		if ctx.Err() != nil {
			return SocialProfile{}, authErr(KindUnknown, err)
		}
		return SocialProfile{}, authErr(KindInvalidCredentials, err)
	}

	email, _ := payload.Claims["email"].(string)
	if email == "" {
		return SocialProfile{}, authErr(KindInvalidCredentials, errors.New("google token has no email claim"))
	}
	if verified, ok := payload.Claims["email_verified"].(bool); ok && !verified {
		return SocialProfile{}, authErr(KindInvalidCredentials, errors.New("google email is not verified"))
	}

	name, _ := payload.Claims["name"].(string)
	if name == "" {
		given, _ := payload.Claims["given_name"].(string)
		family, _ := payload.Claims["family_name"].(string)
		name = strings.TrimSpace(given + " " + family)
	}
	return SocialProfile{Email: email, DisplayName: name}, nil
}
