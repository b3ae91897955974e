package gcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

// YouTubeCredentials identifies the OAuth client and the stored user token
// that authorise uploads. The token file holds a JSON-encoded oauth2.Token
// produced by a one-off consent flow outside this service.
type YouTubeCredentials struct {
	ClientID     string
	ClientSecret string
	TokenFile    string
}

// NewYouTubeService builds an authenticated YouTube Data API client.
func NewYouTubeService(ctx context.Context, creds YouTubeCredentials) (*youtube.Service, error) {
	if creds.ClientID == "" || creds.ClientSecret == "" {
		return nil, fmt.Errorf("NewYouTubeService: client ID and client secret must be set")
	}
	token, err := loadToken(creds.TokenFile)
	if err != nil {
		return nil, err
	}

	conf := &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{youtube.YoutubeUploadScope, youtube.YoutubeScope},
		RedirectURL:  "http://localhost",
	}

	svc, err := youtube.NewService(ctx, option.WithTokenSource(conf.TokenSource(ctx, token)))
	if err != nil {
		return nil, fmt.Errorf("failed to create YouTube service: %w", err)
	}
	return svc, nil
}

func loadToken(path string) (*oauth2.Token, error) {
	if path == "" {
		return nil, fmt.Errorf("YouTube token file path must be set")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read YouTube token file %s: %w", path, err)
	}
	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("failed to parse YouTube token file %s: %w", path, err)
	}
	if token.RefreshToken == "" && token.AccessToken == "" {
		return nil, fmt.Errorf("YouTube token file %s holds no access or refresh token", path)
	}
	return &token, nil
}
