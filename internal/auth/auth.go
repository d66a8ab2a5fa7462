// Package auth handles oracle token storage and retrieval for wdlplay.
//
// Tokens are scoped to a server URL and sourced in the following priority
// order:
//  1. Environment variable: WDLPLAY_TOKEN (applies to every server)
//  2. OS Keyring (macOS Keychain, Windows Credential Manager, Linux Secret Service)
//  3. Credentials file fallback: <user config dir>/wdlplay/credentials.yaml
//
// A playground server that needs no token works without any of them.
package auth

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/zalando/go-keyring"
	"gopkg.in/yaml.v3"

	"github.com/musher-dev/wdlplay/internal/paths"
)

const (
	// keyringService is the service name used in OS keyring storage.
	keyringService = "wdlplay"
	// EnvVarName is the environment variable for the oracle token.
	EnvVarName = "WDLPLAY_TOKEN"
)

// ErrNoCredentials is returned when there is nothing to delete.
var ErrNoCredentials = errors.New("no stored credentials found")

// CredentialSource indicates where credentials were found.
type CredentialSource string

// Credential source constants identify where credentials were loaded from.
const (
	SourceEnv     CredentialSource = "environment variable"
	SourceKeyring CredentialSource = "keyring"
	SourceFile    CredentialSource = "credentials file"
	SourceNone    CredentialSource = ""
)

// account normalizes serverURL into the keyring account name.
func account(serverURL string) string {
	u, err := url.Parse(strings.TrimSpace(serverURL))
	if err != nil || u.Host == "" {
		return strings.TrimRight(strings.TrimSpace(serverURL), "/")
	}

	return strings.ToLower(u.Scheme) + "://" + strings.ToLower(u.Host)
}

// GetToken returns the token for serverURL and its source.
// Returns SourceNone and "" if no token is found.
func GetToken(serverURL string) (source CredentialSource, token string) {
	if tok := strings.TrimSpace(os.Getenv(EnvVarName)); tok != "" {
		return SourceEnv, tok
	}

	if tok, err := keyring.Get(keyringService, account(serverURL)); err == nil && tok != "" {
		return SourceKeyring, tok
	}

	if tok := readCredentialsFile()[account(serverURL)]; tok != "" {
		return SourceFile, tok
	}

	return SourceNone, ""
}

// StoreToken stores the token for serverURL in the OS keyring, falling back
// to the credentials file when no keyring is available.
func StoreToken(serverURL, token string) (CredentialSource, error) {
	if err := keyring.Set(keyringService, account(serverURL), token); err == nil {
		return SourceKeyring, nil
	}

	creds := readCredentialsFile()
	creds[account(serverURL)] = token

	if err := writeCredentialsFile(creds); err != nil {
		return SourceNone, err
	}

	return SourceFile, nil
}

// DeleteToken removes the stored token for serverURL from every store.
func DeleteToken(serverURL string) error {
	keyringErr := keyring.Delete(keyringService, account(serverURL))

	deleted := keyringErr == nil

	creds := readCredentialsFile()
	if _, ok := creds[account(serverURL)]; ok {
		delete(creds, account(serverURL))

		if err := writeCredentialsFile(creds); err != nil {
			return err
		}

		deleted = true
	}

	if !deleted {
		return ErrNoCredentials
	}

	return nil
}

// credentialsFilePath returns the path to the credentials file.
func credentialsFilePath() string {
	path, err := paths.CredentialsFile()
	if err != nil {
		return ""
	}

	return filepath.Clean(path)
}

// readCredentialsFile returns the server to token map; never nil.
func readCredentialsFile() map[string]string {
	creds := map[string]string{}

	path := credentialsFilePath()
	if path == "" {
		return creds
	}

	data, err := os.ReadFile(path) //nolint:gosec // G304: path from controlled config directory
	if err != nil {
		return creds
	}

	if err := yaml.Unmarshal(data, &creds); err != nil {
		return map[string]string{}
	}

	return creds
}

func writeCredentialsFile(creds map[string]string) error {
	path := credentialsFilePath()
	if path == "" {
		return fmt.Errorf("could not determine config directory")
	}

	if len(creds) == 0 {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove credentials file: %w", err)
		}

		return nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := yaml.Marshal(creds)
	if err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write credentials file: %w", err)
	}

	return nil
}
