package session

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// CredentialResolver supplies the connection credential for one StartSession
// call. Returning an empty string or an error aborts the session without a
// connection attempt. The result is cached for the session's reconnects and is
// not re-resolved.
type CredentialResolver func(ctx context.Context) (string, error)

const accessTokenPrefix = "tok_"

// credentialParam picks the query parameter for a credential. Short-lived
// bearer tokens are issued with a "tok_" prefix; anything else is treated as a
// long-lived API key.
func credentialParam(credential string) string {
	if strings.HasPrefix(credential, accessTokenPrefix) {
		return "access_token"
	}
	return "api_key"
}

// sessionURL builds the websocket URL for one agent session.
func sessionURL(endpoint, agentID, version, credential string) (string, error) {
	if agentID == "" {
		return "", fmt.Errorf("agent id is empty")
	}
	u, err := url.Parse(strings.TrimRight(endpoint, "/") + "/" + url.PathEscape(agentID))
	if err != nil {
		return "", fmt.Errorf("parse endpoint: %w", err)
	}
	q := u.Query()
	q.Set("voiceline_version", version)
	q.Set(credentialParam(credential), credential)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
