package cli

import (
	"context"
	"fmt"

	"github.com/illarion/strongbox/internal/crypto"
)

// KeyringSave verifies the vault password and caches it in the OS keyring
func (a *App) KeyringSave(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	vault, err := a.openVault()
	if err != nil {
		return err
	}
	defer vault.Close()

	password := PasswordFromEnv()
	if password == nil {
		if password, err = a.prompter.ReadPassword("Enter password: "); err != nil {
			return err
		}
	}
	defer crypto.ClearBytes(password)

	if err := vault.VerifyPassword(password); err != nil {
		return err
	}

	vaultID, err := vault.VaultID()
	if err != nil {
		return err
	}
	if err := a.savePassword(vaultID, password); err != nil {
		return err
	}

	fmt.Fprintln(a.out, "Password saved to keyring")
	return nil
}

// KeyringDelete removes the cached vault password
func (a *App) KeyringDelete(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	vault, err := a.openVault()
	if err != nil {
		return err
	}
	defer vault.Close()

	vaultID, err := vault.VaultID()
	if err != nil {
		fmt.Fprintln(a.out, "No password stored in keyring")
		return nil
	}

	removed, err := a.deletePassword(vaultID)
	if err != nil {
		return err
	}
	if !removed {
		fmt.Fprintln(a.out, "No password stored in keyring")
		return nil
	}

	fmt.Fprintln(a.out, "Password removed from keyring")
	return nil
}

// KeyringStatus reports whether the vault password is cached
func (a *App) KeyringStatus(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	vault, err := a.openVault()
	if err != nil {
		return err
	}
	defer vault.Close()

	vaultID, err := vault.VaultID()
	if err != nil {
		fmt.Fprintln(a.out, "Password: not stored")
		return nil
	}

	if password, ok := a.cachedPassword(vaultID); ok {
		crypto.ClearBytes(password)
		fmt.Fprintln(a.out, "Password: stored in keyring")
	} else {
		fmt.Fprintln(a.out, "Password: not stored")
	}
	return nil
}
