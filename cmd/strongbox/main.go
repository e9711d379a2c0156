package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/illarion/strongbox/internal/cli"
	"github.com/illarion/strongbox/internal/config"
)

// common holds the flags every command accepts
type common struct {
	configPath string
	namespace  string
	backend    string
	vault      string
	verbose    bool
}

func (c *common) register(fs *flag.FlagSet) {
	fs.StringVar(&c.configPath, "config", "", "Config file (default $XDG_CONFIG_HOME/strongbox/config.yaml)")
	fs.StringVar(&c.namespace, "ns", "", "Key namespace")
	fs.StringVar(&c.backend, "backend", "", "Backend: keyring or file")
	fs.StringVar(&c.vault, "vault", "", "Vault file for the file backend")
	fs.BoolVar(&c.verbose, "v", false, "Log store calls to stderr")
}

// app loads the configuration, applies flag overrides and builds the App
func (c *common) app(fs *flag.FlagSet) *cli.App {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		cli.HandleError(err)
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "ns":
			ns := c.namespace
			cfg.Namespace = &ns
		case "backend":
			cfg.Backend = c.backend
		case "vault":
			cfg.Vault = c.vault
		}
	})
	if err := cfg.Validate(); err != nil {
		cli.HandleError(err)
	}

	level, _ := cfg.Level()
	if c.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	path := c.configPath
	if path == "" {
		path = config.DefaultPath()
	}
	return cli.New(cfg, cli.WithLogger(logger), cli.WithConfigPath(path))
}

func parse(name string, args []string, setup func(*flag.FlagSet)) (*flag.FlagSet, *common) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	c := &common{}
	c.register(fs)
	if setup != nil {
		setup(fs)
	}
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
	return fs, c
}

func check(err error) {
	if err != nil {
		cli.HandleError(err)
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "put":
		runPut(ctx, os.Args[2:])
	case "get":
		runGet(ctx, os.Args[2:])
	case "rm":
		runRm(ctx, os.Args[2:])
	case "diff":
		runDiff(ctx, os.Args[2:])
	case "status":
		runSimple(ctx, "status", os.Args[2:], (*cli.App).Status)
	case "init":
		runSimple(ctx, "init", os.Args[2:], (*cli.App).Init)
	case "passwd":
		runSimple(ctx, "passwd", os.Args[2:], (*cli.App).Passwd)
	case "compact":
		runSimple(ctx, "compact", os.Args[2:], (*cli.App).Compact)
	case "keyring":
		runKeyring(ctx, os.Args[2:])
	case "completion":
		runCompletion(ctx, os.Args[2:])
	case "help", "-h", "--help":
		if len(os.Args) <= 2 {
			printUsage()
			return
		}
		printCommandHelp(os.Args[2])
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func runPut(ctx context.Context, args []string) {
	var tier string
	var asJSON bool
	fs, c := parse("put", args, func(fs *flag.FlagSet) {
		fs.StringVar(&tier, "tier", "", "Protection tier (default from config)")
		fs.BoolVar(&asJSON, "json", false, "Store the value as a JSON document")
	})
	if fs.NArg() != 2 {
		fmt.Fprintln(os.Stderr, "Usage: strongbox put [-tier <tier>] [-json] <key> <value>")
		os.Exit(1)
	}

	check(c.app(fs).Put(ctx, fs.Arg(0), fs.Arg(1), tier, asJSON))
}

func runGet(ctx context.Context, args []string) {
	var asJSON bool
	fs, c := parse("get", args, func(fs *flag.FlagSet) {
		fs.BoolVar(&asJSON, "json", false, "Read the value as a JSON document")
	})
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: strongbox get [-json] <key>")
		os.Exit(1)
	}

	check(c.app(fs).Get(ctx, fs.Arg(0), asJSON))
}

func runRm(ctx context.Context, args []string) {
	fs, c := parse("rm", args, nil)
	if fs.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Usage: strongbox rm <key> [key...]")
		os.Exit(1)
	}

	check(c.app(fs).Remove(ctx, fs.Args()))
}

func runDiff(ctx context.Context, args []string) {
	fs, c := parse("diff", args, nil)
	if fs.NArg() != 2 {
		fmt.Fprintln(os.Stderr, "Usage: strongbox diff <key> <file>")
		os.Exit(1)
	}

	check(c.app(fs).Diff(ctx, fs.Arg(0), fs.Arg(1)))
}

func runSimple(ctx context.Context, name string, args []string, run func(*cli.App, context.Context) error) {
	fs, c := parse(name, args, nil)
	check(run(c.app(fs), ctx))
}

func runKeyring(ctx context.Context, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: strongbox keyring <save|delete|status>")
		os.Exit(1)
	}

	fs, c := parse("keyring "+args[0], args[1:], nil)
	app := c.app(fs)
	switch args[0] {
	case "save":
		check(app.KeyringSave(ctx))
	case "delete":
		check(app.KeyringDelete(ctx))
	case "status":
		check(app.KeyringStatus(ctx))
	default:
		fmt.Fprintf(os.Stderr, "Unknown keyring command: %s\n", args[0])
		fmt.Fprintln(os.Stderr, "Usage: strongbox keyring <save|delete|status>")
		os.Exit(1)
	}
}

func runCompletion(_ context.Context, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: strongbox completion <bash|zsh|fish>")
		os.Exit(1)
	}
	check(cli.New(config.Default()).Completion(args[0]))
}

func printUsage() {
	fmt.Println("strongbox - Namespaced secure storage for small values")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  strongbox <command> [flags] [arguments]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  put         Store a value under a key")
	fmt.Println("  get         Print the value stored under a key")
	fmt.Println("  rm          Remove keys")
	fmt.Println("  diff        Compare a stored value with a local file")
	fmt.Println("  status      Show backend and vault status")
	fmt.Println("  init        Create an encrypted vault file (file backend)")
	fmt.Println("  passwd      Change vault password")
	fmt.Println("  compact     Compact vault to reclaim disk space")
	fmt.Println("  keyring     Manage the vault password in the OS keyring")
	fmt.Println("  completion  Generate shell completions")
	fmt.Println("  help        Show help for a command")
	fmt.Println()
	fmt.Println("Common flags:")
	fmt.Println("  -config <path>    Config file")
	fmt.Println("  -ns <namespace>   Key namespace (default: process identity)")
	fmt.Println("  -backend <name>   keyring or file")
	fmt.Println("  -vault <path>     Vault file for the file backend")
	fmt.Println("  -v                Log store calls to stderr")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  strongbox put -ns App Token abc123     # Store App.Token")
	fmt.Println("  strongbox get -ns App Token            # Print it")
	fmt.Println("  strongbox init -backend file           # Create .strongbox vault")
	fmt.Println()
	fmt.Println("Use 'strongbox help <command>' for more information about a command.")
}

func printCommandHelp(command string) {
	switch command {
	case "put":
		fmt.Println("strongbox put [-tier <tier>] [-json] <key> <value>")
		fmt.Println()
		fmt.Println("Stores value under <namespace>.<key>, replacing any previous value.")
		fmt.Println()
		fmt.Println("Flags:")
		fmt.Println("  -tier   Protection tier: when-unlocked, after-first-unlock, always,")
		fmt.Println("          when-passcode-set-this-device-only, when-unlocked-this-device-only,")
		fmt.Println("          after-first-unlock-this-device-only, always-this-device-only")
		fmt.Println("  -json   Store the value as a JSON document")
		fmt.Println()
		fmt.Println("Examples:")
		fmt.Println("  strongbox put Token abc123")
		fmt.Println("  strongbox put -json Settings '{\"theme\":\"dark\"}'")
	case "get":
		fmt.Println("strongbox get [-json] <key>")
		fmt.Println()
		fmt.Println("Prints the value stored under <namespace>.<key>.")
		fmt.Println("Exits with an error if nothing is stored.")
	case "rm":
		fmt.Println("strongbox rm <key> [key...]")
		fmt.Println()
		fmt.Println("Removes keys. Removing a key that is not stored succeeds.")
	case "diff":
		fmt.Println("strongbox diff <key> <file>")
		fmt.Println()
		fmt.Println("Shows a patch from the stored value to the contents of file.")
	case "status":
		fmt.Println("strongbox status")
		fmt.Println()
		fmt.Println("Shows the backend. For the file backend, lists records with their")
		fmt.Println("tier and size.")
		fmt.Println()
		fmt.Println("Does not require a password.")
	case "init":
		fmt.Println("strongbox init")
		fmt.Println()
		fmt.Println("Creates the vault file for the file backend.")
		fmt.Println("Prompts for a password, or reads STRONGBOX_PASSWORD.")
		fmt.Println("The password is not stored anywhere unless saved with 'strongbox keyring save'.")
	case "passwd":
		fmt.Println("strongbox passwd")
		fmt.Println()
		fmt.Println("Changes the vault password and re-encrypts all records.")
		fmt.Println("A password cached in the keyring is updated.")
	case "compact":
		fmt.Println("strongbox compact")
		fmt.Println()
		fmt.Println("Compacts the vault file to reclaim unused disk space.")
		fmt.Println()
		fmt.Println("Does not require a password.")
	case "keyring":
		fmt.Println("strongbox keyring <save|delete|status>")
		fmt.Println()
		fmt.Println("Manages the vault password cached in the OS keyring.")
		fmt.Println()
		fmt.Println("  save     Verify and cache the vault password")
		fmt.Println("  delete   Remove the cached password")
		fmt.Println("  status   Show whether a password is cached")
	case "completion":
		fmt.Println("strongbox completion <bash|zsh|fish>")
		fmt.Println()
		fmt.Println("Outputs shell completion script for the specified shell.")
		fmt.Println()
		fmt.Println("Setup:")
		fmt.Println("  # Bash - add to ~/.bashrc")
		fmt.Println("  eval \"$(strongbox completion bash)\"")
		fmt.Println()
		fmt.Println("  # Zsh - add to ~/.zshrc")
		fmt.Println("  eval \"$(strongbox completion zsh)\"")
		fmt.Println()
		fmt.Println("  # Fish - add to ~/.config/fish/config.fish")
		fmt.Println("  strongbox completion fish | source")
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
	}
}
