package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/illarion/strongbox"
	"github.com/illarion/strongbox/internal/config"
	"github.com/illarion/strongbox/internal/crypto"
	"golang.org/x/term"
)

// PasswordSource tells where a vault password came from
type PasswordSource int

const (
	SourceEnv PasswordSource = iota
	SourceKeyring
	SourcePrompt
)

// passwordNamespace holds cached vault passwords, keyed by vault ID
const passwordNamespace = "strongbox.vault"

// Prompter reads a password interactively
type Prompter interface {
	ReadPassword(prompt string) ([]byte, error)
}

// Terminal reads passwords from the controlling terminal without echo
type Terminal struct{}

// ReadPassword prints prompt to stderr and reads a line from stdin
func (Terminal) ReadPassword(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)

	// Read password without echo
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)

	if err != nil {
		return nil, fmt.Errorf("failed to read password: %w", err)
	}
	return password, nil
}

// ReadPasswordConfirm reads a password twice and ensures they match
func ReadPasswordConfirm(p Prompter) ([]byte, error) {
	password1, err := p.ReadPassword("Enter password: ")
	if err != nil {
		return nil, err
	}
	defer crypto.ClearBytes(password1)

	password2, err := p.ReadPassword("Confirm password: ")
	if err != nil {
		return nil, err
	}
	defer crypto.ClearBytes(password2)

	if !crypto.ConstantTimeCompare(password1, password2) {
		return nil, errors.New("passwords do not match")
	}
	if len(password1) == 0 {
		return nil, errors.New("password cannot be empty")
	}

	// Return a copy of the password
	result := make([]byte, len(password1))
	copy(result, password1)
	return result, nil
}

// PasswordFromEnv reads the vault password from STRONGBOX_PASSWORD
func PasswordFromEnv() []byte {
	password := os.Getenv(config.EnvPassword)
	if password == "" {
		return nil
	}
	return []byte(password)
}

// passwordForInit checks the environment first, then prompts with confirmation
func (a *App) passwordForInit() ([]byte, error) {
	if password := PasswordFromEnv(); password != nil {
		return password, nil
	}
	return ReadPasswordConfirm(a.prompter)
}

// passwordWithRetry returns a password accepted by verify. verify runs once
// per candidate, so it may also unlock. A cached keyring password that no
// longer verifies is ignored and the user is prompted.
// The caller is responsible for calling crypto.ClearBytes on the result.
func (a *App) passwordWithRetry(prompt, vaultID string, verify func([]byte) error) ([]byte, PasswordSource, error) {
	if password := PasswordFromEnv(); password != nil {
		if err := verify(password); err != nil {
			crypto.ClearBytes(password)
			return nil, SourceEnv, err
		}
		return password, SourceEnv, nil
	}

	if vaultID != "" {
		if password, ok := a.cachedPassword(vaultID); ok {
			if err := verify(password); err == nil {
				return password, SourceKeyring, nil
			}
			crypto.ClearBytes(password)
			fmt.Fprintln(a.errOut, "warning: password in keyring is stale")
		}
	}

	password, err := a.prompter.ReadPassword(prompt)
	if err != nil {
		return nil, SourcePrompt, err
	}
	if err := verify(password); err != nil {
		crypto.ClearBytes(password)
		return nil, SourcePrompt, err
	}
	return password, SourcePrompt, nil
}

func (a *App) passwordCache() *strongbox.Strongbox {
	return strongbox.New(strongbox.NewKeyringStore(a.cfg.Account),
		strongbox.WithNamespace(passwordNamespace),
		strongbox.WithLogger(a.logger))
}

func (a *App) cachedPassword(vaultID string) ([]byte, bool) {
	password, ok := strongbox.UnarchiveAs[string](a.passwordCache(), vaultID)
	if !ok || password == "" {
		return nil, false
	}
	return []byte(password), true
}

func (a *App) savePassword(vaultID string, password []byte) error {
	res := a.passwordCache().Archive(string(password), vaultID, strongbox.TierWhenUnlockedThisDeviceOnly)
	if !res.OK() {
		return fmt.Errorf("failed to save to keyring: %w", res.Err)
	}
	return nil
}

// deletePassword reports whether a cached password was removed
func (a *App) deletePassword(vaultID string) (bool, error) {
	res := a.passwordCache().Remove(vaultID)
	if !res.OK() {
		return false, fmt.Errorf("failed to delete from keyring: %w", res.Err)
	}
	return res.Status == strongbox.StatusSuccess, nil
}
