package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/illarion/strongbox"
	"github.com/illarion/strongbox/internal/config"
	"github.com/illarion/strongbox/internal/crypto"
)

var (
	// ErrFileBackendOnly is returned by vault commands run against the
	// keyring backend.
	ErrFileBackendOnly = errors.New("command requires the file backend")
	// ErrNoVault is returned when the vault file does not exist.
	ErrNoVault = errors.New("vault file not found")
)

// App runs strongbox commands against the configured backend
type App struct {
	cfg      *config.Config
	out      io.Writer
	errOut   io.Writer
	logger   *slog.Logger
	prompter Prompter
	vaultOpt []strongbox.FileVaultOption
	cfgPath  string
}

// Option customizes an App
type Option func(*App)

// WithOutput sets the writers for command output and warnings
func WithOutput(out, errOut io.Writer) Option {
	return func(a *App) {
		a.out = out
		a.errOut = errOut
	}
}

// WithPrompter sets how passwords are read interactively
func WithPrompter(p Prompter) Option {
	return func(a *App) {
		a.prompter = p
	}
}

// WithLogger sets the logger handed to every Strongbox the App opens
func WithLogger(l *slog.Logger) Option {
	return func(a *App) {
		a.logger = l
	}
}

// WithVaultOptions sets the options used to open the file vault
func WithVaultOptions(opts ...strongbox.FileVaultOption) Option {
	return func(a *App) {
		a.vaultOpt = opts
	}
}

// WithConfigPath sets the config file that init writes when none exists yet
func WithConfigPath(path string) Option {
	return func(a *App) {
		a.cfgPath = path
	}
}

// New creates an App for cfg
func New(cfg *config.Config, opts ...Option) *App {
	a := &App{
		cfg:      cfg,
		out:      os.Stdout,
		errOut:   os.Stderr,
		logger:   slog.New(slog.DiscardHandler),
		prompter: Terminal{},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *App) box(st strongbox.ProtectedStore) *strongbox.Strongbox {
	opts := []strongbox.Option{strongbox.WithLogger(a.logger)}
	if a.cfg.Namespace != nil {
		opts = append(opts, strongbox.WithNamespace(*a.cfg.Namespace))
	}
	return strongbox.New(st, opts...)
}

// open returns a Strongbox over the configured backend, unlocking the file
// vault if needed. The returned func releases the backend.
func (a *App) open() (*strongbox.Strongbox, func(), error) {
	if a.cfg.Backend != config.BackendFile {
		return a.box(strongbox.NewKeyringStore(a.cfg.Account)), func() {}, nil
	}

	vault, err := a.unlockVault("Enter password: ")
	if err != nil {
		return nil, nil, err
	}
	return a.box(vault), func() { vault.Close() }, nil
}

// openVault opens an initialized vault without unlocking it
func (a *App) openVault() (*strongbox.FileVault, error) {
	if a.cfg.Backend != config.BackendFile {
		return nil, ErrFileBackendOnly
	}
	if _, err := os.Stat(a.cfg.Vault); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNoVault, a.cfg.Vault)
		}
		return nil, err
	}

	vault, err := strongbox.OpenFileVault(a.cfg.Vault, a.vaultOpt...)
	if err != nil {
		return nil, err
	}
	ok, err := vault.IsInitialized()
	if err != nil {
		vault.Close()
		return nil, err
	}
	if !ok {
		vault.Close()
		return nil, strongbox.ErrVaultNotInitialized
	}
	return vault, nil
}

func (a *App) unlockVault(prompt string) (*strongbox.FileVault, error) {
	vault, err := a.openVault()
	if err != nil {
		return nil, err
	}

	vaultID, _ := vault.VaultID()
	password, _, err := a.passwordWithRetry(prompt, vaultID, vault.Unlock)
	if err != nil {
		vault.Close()
		return nil, err
	}
	crypto.ClearBytes(password)
	return vault, nil
}
