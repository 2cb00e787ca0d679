package google

import (
	"fmt"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmail "google.golang.org/api/gmail/v1"
)

// Scopes requested for the Gmail service: read/modify plus compose,
// which covers sending and draft creation.
var Scopes = []string{
	gmail.GmailModifyScope,
	gmail.GmailComposeScope,
}

// LoadCredentials reads the OAuth client credentials file and parses it
// into an oauth2 config. The file must carry an "installed" or "web"
// application profile; anything else is a fatal configuration error.
func LoadCredentials(path string) (*oauth2.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("credentials file not found at %s: %w (download an OAuth client ID from the provider console and save it there)", path, err)
	}
	conf, err := google.ConfigFromJSON(data, Scopes...)
	if err != nil {
		return nil, fmt.Errorf("credentials file %s is missing an installed or web profile: %w", path, err)
	}
	return conf, nil
}
