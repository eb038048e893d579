package utils

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// GoogleUser is the subset of the userinfo response the app relies on.
type GoogleUser struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
	Picture       string `json:"picture"`
}

var googleClient = &http.Client{Timeout: 10 * time.Second}

// GetUserDataFromGoogle exchanges an access token for the user's profile at
// userInfoURL. The raw body is returned alongside for provider_data.
func GetUserDataFromGoogle(ctx context.Context, userInfoURL, accessToken string) (*GoogleUser, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, userInfoURL, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	response, err := googleClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("failed getting user info: %w", err)
	}
	defer response.Body.Close()

	contents, err := io.ReadAll(io.LimitReader(response.Body, 1<<20))
	if err != nil {
		return nil, nil, fmt.Errorf("failed read response: %w", err)
	}
	if response.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("userinfo returned status %d", response.StatusCode)
	}

	var user GoogleUser
	if err := json.Unmarshal(contents, &user); err != nil {
		return nil, nil, fmt.Errorf("failed decoding user info: %w", err)
	}
	return &user, contents, nil
}
