package cli

import (
	"fmt"
)

// Completion prints the completion script for shell
func (a *App) Completion(shell string) error {
	switch shell {
	case "bash":
		fmt.Fprint(a.out, bashCompletion)
	case "zsh":
		fmt.Fprint(a.out, zshCompletion)
	case "fish":
		fmt.Fprint(a.out, fishCompletion)
	default:
		return fmt.Errorf("unknown shell: %s (supported: bash, zsh, fish)", shell)
	}
	return nil
}

const bashCompletion = `_strongbox() {
    local cur prev words cword
    _init_completion || return

    local commands="put get rm diff status init passwd compact keyring help completion"

    if [[ $cword -eq 1 ]]; then
        COMPREPLY=($(compgen -W "$commands" -- "$cur"))
        return
    fi

    local cmd="${words[1]}"
    case "$cmd" in
        put)
            COMPREPLY=($(compgen -W "-tier -json -ns -backend -vault -config -v" -- "$cur"))
            ;;
        get)
            COMPREPLY=($(compgen -W "-json -ns -backend -vault -config -v" -- "$cur"))
            ;;
        diff)
            _filedir
            ;;
        keyring)
            COMPREPLY=($(compgen -W "save delete status" -- "$cur"))
            ;;
        help)
            COMPREPLY=($(compgen -W "$commands" -- "$cur"))
            ;;
        completion)
            COMPREPLY=($(compgen -W "bash zsh fish" -- "$cur"))
            ;;
    esac
}

complete -F _strongbox strongbox
`

const zshCompletion = `#compdef strongbox

_strongbox() {
    local -a commands
    commands=(
        'put:Store a value under a key'
        'get:Print the value stored under a key'
        'rm:Remove keys'
        'diff:Compare a stored value with a local file'
        'status:Show backend and vault status'
        'init:Create an encrypted vault file'
        'passwd:Change vault password'
        'compact:Compact vault to reclaim disk space'
        'keyring:Manage vault password in OS keyring'
        'help:Show help for a command'
        'completion:Generate shell completions'
    )

    _arguments -C \
        '1: :->command' \
        '*: :->args'

    case "$state" in
        command)
            _describe -t commands 'strongbox commands' commands
            ;;
        args)
            case "${words[2]}" in
                put)
                    _arguments \
                        '-tier[Protection tier]:tier:(when-unlocked after-first-unlock always when-passcode-set-this-device-only when-unlocked-this-device-only after-first-unlock-this-device-only always-this-device-only)' \
                        '-json[Store the value as a JSON document]'
                    ;;
                get)
                    _arguments '-json[Read the value as a JSON document]'
                    ;;
                diff)
                    _arguments '2:file:_files'
                    ;;
                keyring)
                    _values 'subcommand' save delete status
                    ;;
                help)
                    _describe -t commands 'strongbox commands' commands
                    ;;
                completion)
                    _values 'shell' bash zsh fish
                    ;;
            esac
            ;;
    esac
}

_strongbox "$@"
`

const fishCompletion = `# strongbox fish completions

set -l commands put get rm diff status init passwd compact keyring help completion

complete -c strongbox -f

# Commands
complete -c strongbox -n "not __fish_seen_subcommand_from $commands" -a put -d 'Store a value'
complete -c strongbox -n "not __fish_seen_subcommand_from $commands" -a get -d 'Print a stored value'
complete -c strongbox -n "not __fish_seen_subcommand_from $commands" -a rm -d 'Remove keys'
complete -c strongbox -n "not __fish_seen_subcommand_from $commands" -a diff -d 'Compare with a local file'
complete -c strongbox -n "not __fish_seen_subcommand_from $commands" -a status -d 'Show status'
complete -c strongbox -n "not __fish_seen_subcommand_from $commands" -a init -d 'Create a vault file'
complete -c strongbox -n "not __fish_seen_subcommand_from $commands" -a passwd -d 'Change vault password'
complete -c strongbox -n "not __fish_seen_subcommand_from $commands" -a compact -d 'Compact vault'
complete -c strongbox -n "not __fish_seen_subcommand_from $commands" -a keyring -d 'Manage password in OS keyring'
complete -c strongbox -n "not __fish_seen_subcommand_from $commands" -a help -d 'Show help'
complete -c strongbox -n "not __fish_seen_subcommand_from $commands" -a completion -d 'Generate completions'

# put flags
complete -c strongbox -n "__fish_seen_subcommand_from put" -o tier -d 'Protection tier' -xa "when-unlocked after-first-unlock always when-passcode-set-this-device-only when-unlocked-this-device-only after-first-unlock-this-device-only always-this-device-only"
complete -c strongbox -n "__fish_seen_subcommand_from put get" -o json -d 'JSON document'

# diff files
complete -c strongbox -n "__fish_seen_subcommand_from diff" -F

# keyring subcommands
complete -c strongbox -n "__fish_seen_subcommand_from keyring" -a "save delete status"

# help completions
complete -c strongbox -n "__fish_seen_subcommand_from help" -a "$commands"

# completion completions
complete -c strongbox -n "__fish_seen_subcommand_from completion" -a "bash zsh fish"
`
