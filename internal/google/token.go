package google

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/oauth2"
)

// tokenRecord mirrors the persisted token file. The Python google-auth
// library stores the bearer token under "token" while oauth2 expects
// "access_token"; both fields are read and both are written so either
// producer can pick the file up again.
type tokenRecord struct {
	AccessToken  string `json:"access_token,omitempty"`
	Token        string `json:"token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type,omitempty"`
	ExpiryMs     int64  `json:"expiry_ms,omitempty"`
	Expiry       string `json:"expiry,omitempty"` // RFC 3339, google-auth style
}

// LoadToken reads and normalizes the persisted token file.
func LoadToken(path string) (*oauth2.Token, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("token file not found at %s: %w (run the bootstrap authorization flow to produce it)", path, err)
	}
	var rec tokenRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("token file %s is not valid JSON: %w", path, err)
	}

	access := rec.AccessToken
	if access == "" {
		access = rec.Token
	}
	if access == "" && rec.RefreshToken == "" {
		return nil, fmt.Errorf("token file %s carries neither an access token nor a refresh token", path)
	}

	tok := &oauth2.Token{
		AccessToken:  access,
		RefreshToken: rec.RefreshToken,
		TokenType:    rec.TokenType,
	}
	if tok.TokenType == "" {
		tok.TokenType = "Bearer"
	}
	switch {
	case rec.ExpiryMs != 0:
		tok.Expiry = time.UnixMilli(rec.ExpiryMs)
	case rec.Expiry != "":
		exp, err := time.Parse(time.RFC3339, rec.Expiry)
		if err != nil {
			return nil, fmt.Errorf("token file %s has an unparseable expiry %q: %w", path, rec.Expiry, err)
		}
		tok.Expiry = exp
	}
	return tok, nil
}

// SaveToken persists tok atomically: the record is written to a
// temporary file in the same directory and renamed over the target, so
// a concurrent reader never observes a partial write.
func SaveToken(path string, tok *oauth2.Token) error {
	rec := tokenRecord{
		AccessToken:  tok.AccessToken,
		Token:        tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
	}
	if !tok.Expiry.IsZero() {
		rec.ExpiryMs = tok.Expiry.UnixMilli()
		rec.Expiry = tok.Expiry.UTC().Format(time.RFC3339)
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal token: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp token file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod temp token file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp token file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp token file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace token file: %w", err)
	}
	return nil
}
