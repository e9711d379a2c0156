package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/illarion/strongbox"
	"github.com/illarion/strongbox/internal/config"
	"github.com/illarion/strongbox/internal/crypto"
)

// Init creates and initializes the vault file
func (a *App) Init(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if a.cfg.Backend != config.BackendFile {
		return ErrFileBackendOnly
	}

	vault, err := strongbox.OpenFileVault(a.cfg.Vault, a.vaultOpt...)
	if err != nil {
		return err
	}
	defer vault.Close()

	if ok, err := vault.IsInitialized(); err != nil {
		return err
	} else if ok {
		return strongbox.ErrVaultAlreadyInitialized
	}

	// Read password (env var or prompt with confirmation)
	password, err := a.passwordForInit()
	if err != nil {
		return err
	}
	defer crypto.ClearBytes(password)

	if err := vault.Initialize(password); err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Initialized %s\n", a.cfg.Vault)
	a.writeConfig()
	return nil
}

// writeConfig saves the settings used for init so later commands find the
// vault from any directory. An existing config file is left untouched.
func (a *App) writeConfig() {
	if a.cfgPath == "" {
		return
	}
	if _, err := os.Stat(a.cfgPath); !errors.Is(err, os.ErrNotExist) {
		return
	}

	cfg := *a.cfg
	cfg.Namespace = nil
	if abs, err := filepath.Abs(cfg.Vault); err == nil {
		cfg.Vault = abs
	}
	if err := cfg.SaveToFile(a.cfgPath); err != nil {
		fmt.Fprintf(a.errOut, "warning: failed to write config: %s\n", err)
		return
	}
	fmt.Fprintf(a.out, "Wrote %s\n", a.cfgPath)
}

// Passwd changes the vault password and re-seals every record
func (a *App) Passwd(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	vault, err := a.openVault()
	if err != nil {
		return err
	}
	defer vault.Close()

	vaultID, _ := vault.VaultID()

	currentPassword, _, err := a.passwordWithRetry("Enter current password: ", vaultID, vault.VerifyPassword)
	if err != nil {
		return err
	}
	defer crypto.ClearBytes(currentPassword)

	newPassword, err := ReadPasswordConfirm(a.prompter)
	if err != nil {
		return err
	}
	defer crypto.ClearBytes(newPassword)

	if err := vault.ChangePassword(currentPassword, newPassword); err != nil {
		return err
	}

	// Only replace a cached password, never add one
	if vaultID != "" {
		if cached, ok := a.cachedPassword(vaultID); ok {
			crypto.ClearBytes(cached)
			if err := a.savePassword(vaultID, newPassword); err == nil {
				fmt.Fprintln(a.out, "Keyring updated with new password")
			}
		}
	}

	// Compact database after rewriting all data
	if err := vault.Compact(); err != nil {
		fmt.Fprintf(a.errOut, "warning: compaction failed: %s\n", err)
	}

	fmt.Fprintln(a.out, "password changed successfully")
	return nil
}

// Compact compacts the vault file to reclaim unused space
func (a *App) Compact(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	vault, err := a.openVault()
	if err != nil {
		return err
	}
	defer vault.Close()

	info, err := os.Stat(a.cfg.Vault)
	if err != nil {
		return err
	}
	sizeBefore := info.Size()

	if err := vault.Compact(); err != nil {
		return err
	}

	info, err = os.Stat(a.cfg.Vault)
	if err != nil {
		return err
	}
	sizeAfter := info.Size()

	fmt.Fprintf(a.out, "Compacted: %s -> %s\n", formatSize(sizeBefore), formatSize(sizeAfter))
	return nil
}

// Status describes the backend. For the file vault it lists the stored
// records without requiring a password.
func (a *App) Status(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	ns := "(process identity)"
	if a.cfg.Namespace != nil {
		ns = fmt.Sprintf("%q", *a.cfg.Namespace)
	}

	if a.cfg.Backend != config.BackendFile {
		available := "unavailable"
		if strongbox.KeyringAvailable() {
			available = "available"
		}
		fmt.Fprintf(a.out, "Backend: keyring (%s)\n", available)
		fmt.Fprintf(a.out, "Account: %s\n", a.cfg.Account)
		fmt.Fprintf(a.out, "Namespace: %s\n", ns)
		return nil
	}

	vault, err := a.openVault()
	if errors.Is(err, ErrNoVault) {
		fmt.Fprintf(a.out, "No vault found at %s\n", a.cfg.Vault)
		fmt.Fprintln(a.out, "Run 'strongbox init' to create one")
		return nil
	}
	if err != nil {
		return err
	}
	defer vault.Close()

	index, err := vault.Index()
	if err != nil {
		return err
	}
	vaultID, err := vault.VaultID()
	if err != nil {
		return err
	}
	created, err := vault.Created()
	if err != nil {
		return err
	}
	modified, err := vault.Modified()
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Backend: file (%s)\n", a.cfg.Vault)
	fmt.Fprintf(a.out, "Vault ID: %s\n", vaultID)
	fmt.Fprintf(a.out, "Namespace: %s\n", ns)
	fmt.Fprintf(a.out, "Created: %s\n", created.Format(time.RFC3339))
	fmt.Fprintf(a.out, "Modified: %s\n", modified.Format(time.RFC3339))

	records := index
	if a.cfg.Namespace != nil {
		records = index.WithPrefix(*a.cfg.Namespace + ".")
	}
	fmt.Fprintf(a.out, "\nRecords: %d (%s)\n", len(records), formatSize(records.TotalSize()))
	if len(records) == 0 {
		fmt.Fprintln(a.out, "  (none)")
	}
	if other := len(index) - len(records); other > 0 {
		fmt.Fprintf(a.out, "  %d more in other namespaces\n", other)
	}
	for _, entry := range records.Sorted() {
		fmt.Fprintf(a.out, "  %s [%s] %s\n", entry.Key, entry.Tier, formatSize(int64(entry.Size)))
	}

	if _, ok := a.cachedPassword(vaultID); ok {
		fmt.Fprintln(a.out, "\nPassword: stored in keyring")
	} else {
		fmt.Fprintln(a.out, "\nPassword: not stored")
	}
	return nil
}
