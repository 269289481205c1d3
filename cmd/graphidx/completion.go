// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/kotadb/graphidx/internal/errors"
)

// bashCompletionTemplate is the bash completion script for graphidx.
const bashCompletionTemplate = `#!/bin/bash

# Bash completion script for graphidx
# Installation:
#   source <(graphidx completion bash)
#   Or add to ~/.bashrc:
#   echo 'source <(graphidx completion bash)' >> ~/.bashrc

_graphidx_completion() {
    local cur prev commands
    commands="init index watch status query export import merge reset install-hook completion"

    cur="${COMP_WORDS[COMP_CWORD]}"
    prev="${COMP_WORDS[COMP_CWORD-1]}"

    if [[ ${cur} == -* ]] ; then
        COMPREPLY=( $(compgen -W "--json --quiet --no-color --verbose --version" -- ${cur}) )
        return 0
    fi

    if [ $COMP_CWORD -eq 1 ]; then
        COMPREPLY=( $(compgen -W "${commands}" -- ${cur}) )
        return 0
    fi

    local cmd="${COMP_WORDS[1]}"
    case "${cmd}" in
        init)
            if [[ ${cur} == -* ]] ; then
                COMPREPLY=( $(compgen -W "--repo --engine --force" -- ${cur}) )
            fi
            ;;
        index)
            if [[ ${cur} == -* ]] ; then
                COMPREPLY=( $(compgen -W "--repo --ref --commit --metrics-addr" -- ${cur}) )
            fi
            ;;
        watch)
            if [[ ${cur} == -* ]] ; then
                COMPREPLY=( $(compgen -W "--repo --debounce" -- ${cur}) )
            fi
            ;;
        status)
            if [[ ${cur} == -* ]] ; then
                COMPREPLY=( $(compgen -W "--repo --caller" -- ${cur}) )
            fi
            ;;
        query)
            if [[ ${cur} == -* ]] ; then
                COMPREPLY=( $(compgen -W "--repo --timeout --limit" -- ${cur}) )
            fi
            ;;
        export)
            if [[ ${cur} == -* ]] ; then
                COMPREPLY=( $(compgen -W "--repo --dir" -- ${cur}) )
            fi
            ;;
        import)
            if [[ ${cur} == -* ]] ; then
                COMPREPLY=( $(compgen -W "--repo --manifest-dir" -- ${cur}) )
            fi
            ;;
        reset)
            if [[ ${cur} == -* ]] ; then
                COMPREPLY=( $(compgen -W "--repo --yes" -- ${cur}) )
            fi
            ;;
        install-hook)
            if [[ ${cur} == -* ]] ; then
                COMPREPLY=( $(compgen -W "--repo --force --remove" -- ${cur}) )
            fi
            ;;
        completion)
            if [ $COMP_CWORD -eq 2 ]; then
                COMPREPLY=( $(compgen -W "bash zsh fish" -- ${cur}) )
            fi
            ;;
    esac
}

complete -F _graphidx_completion graphidx
`

// zshCompletionTemplate is the zsh completion script for graphidx.
const zshCompletionTemplate = `#compdef graphidx

# Zsh completion script for graphidx
# Installation:
#   1. Ensure compinit is loaded (add to ~/.zshrc if not present):
#      autoload -U compinit; compinit
#   2. Save this script to a directory in your fpath:
#      graphidx completion zsh > "${fpath[1]}/_graphidx"
#   3. Reload completions:
#      rm -f ~/.zcompdump; compinit

_graphidx() {
    local -a commands
    commands=(
        'init:Register a repository and create its graph store'
        'index:Run a full index job over a working tree'
        'watch:Watch a working tree and index changes incrementally'
        'status:Show an index job'"'"'s state and stats'
        'query:Execute a Datalog query against the local graph store'
        'export:Export the graph store to JSONL'
        'import:Import JSONL exports, applying the deletion manifest'
        'merge:Three-way merge two JSONL exports against a base'
        'reset:Delete a repository'"'"'s local graph store (destructive!)'
        'install-hook:Install a git post-commit hook'
        'completion:Generate shell completion script'
    )

    _arguments -C \
        '(- *)--version[Show version and exit]' \
        '--json[Output machine-readable JSON]' \
        '(-q --quiet)'{-q,--quiet}'[Suppress progress output]' \
        '--no-color[Disable colored output]' \
        '1: :->command' \
        '*:: :->args'

    case $state in
        command)
            _describe 'command' commands
            ;;
        args)
            case $words[1] in
                index)
                    _arguments \
                        '--repo[Repository full name]:name:' \
                        '--ref[Git ref]:ref:' \
                        '--commit[Commit SHA]:sha:' \
                        '--metrics-addr[Prometheus metrics address]:address:'
                    ;;
                watch)
                    _arguments \
                        '--repo[Repository full name]:name:' \
                        '--debounce[Debounce interval]:duration:'
                    ;;
                status)
                    _arguments \
                        '--repo[Repository full name]:name:' \
                        '--caller[Caller identity]:caller:'
                    ;;
                query)
                    _arguments \
                        '--repo[Repository full name]:name:' \
                        '--limit[Result limit]:limit:' \
                        '1:datalog query:'
                    ;;
                reset)
                    _arguments \
                        '--repo[Repository full name]:name:' \
                        '--yes[Skip confirmation prompt]'
                    ;;
                install-hook)
                    _arguments \
                        '--repo[Repository full name]:name:' \
                        '--force[Overwrite existing hook]' \
                        '--remove[Remove the hook]'
                    ;;
                completion)
                    _arguments \
                        '1:shell:(bash zsh fish)'
                    ;;
            esac
            ;;
    esac
}

_graphidx
`

// fishCompletionTemplate is the fish completion script for graphidx.
const fishCompletionTemplate = `# Fish completion script for graphidx
# Installation:
#   1. Load completions for current session:
#      graphidx completion fish | source
#   2. Install permanently:
#      graphidx completion fish > ~/.config/fish/completions/graphidx.fish

complete -c graphidx -f -n "__fish_use_subcommand" -a "init" -d "Register a repository and create its graph store"
complete -c graphidx -f -n "__fish_use_subcommand" -a "index" -d "Run a full index job over a working tree"
complete -c graphidx -f -n "__fish_use_subcommand" -a "watch" -d "Watch a working tree and index changes incrementally"
complete -c graphidx -f -n "__fish_use_subcommand" -a "status" -d "Show an index job's state and stats"
complete -c graphidx -f -n "__fish_use_subcommand" -a "query" -d "Execute a Datalog query against the local graph store"
complete -c graphidx -f -n "__fish_use_subcommand" -a "export" -d "Export the graph store to JSONL"
complete -c graphidx -f -n "__fish_use_subcommand" -a "import" -d "Import JSONL exports"
complete -c graphidx -f -n "__fish_use_subcommand" -a "merge" -d "Three-way merge two JSONL exports"
complete -c graphidx -f -n "__fish_use_subcommand" -a "reset" -d "Delete a repository's local graph store (destructive!)"
complete -c graphidx -f -n "__fish_use_subcommand" -a "install-hook" -d "Install git post-commit hook"
complete -c graphidx -f -n "__fish_use_subcommand" -a "completion" -d "Generate shell completion script"

complete -c graphidx -l version -d "Show version and exit"
complete -c graphidx -l json -d "Output machine-readable JSON"
complete -c graphidx -s q -l quiet -d "Suppress progress output"
complete -c graphidx -l no-color -d "Disable colored output"

complete -c graphidx -n "__fish_seen_subcommand_from index" -l repo -d "Repository full name" -r
complete -c graphidx -n "__fish_seen_subcommand_from index" -l ref -d "Git ref" -r
complete -c graphidx -n "__fish_seen_subcommand_from index" -l commit -d "Commit SHA" -r
complete -c graphidx -n "__fish_seen_subcommand_from index" -l metrics-addr -d "Prometheus metrics address" -r

complete -c graphidx -n "__fish_seen_subcommand_from watch" -l repo -d "Repository full name" -r
complete -c graphidx -n "__fish_seen_subcommand_from watch" -l debounce -d "Debounce interval" -r

complete -c graphidx -n "__fish_seen_subcommand_from status" -l repo -d "Repository full name" -r
complete -c graphidx -n "__fish_seen_subcommand_from status" -l caller -d "Caller identity" -r

complete -c graphidx -n "__fish_seen_subcommand_from reset" -l repo -d "Repository full name" -r
complete -c graphidx -n "__fish_seen_subcommand_from reset" -l yes -d "Skip confirmation prompt"

complete -c graphidx -n "__fish_seen_subcommand_from install-hook" -l repo -d "Repository full name" -r
complete -c graphidx -n "__fish_seen_subcommand_from install-hook" -l force -d "Overwrite existing hook"
complete -c graphidx -n "__fish_seen_subcommand_from install-hook" -l remove -d "Remove the hook"

complete -c graphidx -n "__fish_seen_subcommand_from completion" -f -a "bash" -d "Generate bash completion script"
complete -c graphidx -n "__fish_seen_subcommand_from completion" -f -a "zsh" -d "Generate zsh completion script"
complete -c graphidx -n "__fish_seen_subcommand_from completion" -f -a "fish" -d "Generate fish completion script"
`

// runCompletion executes 'graphidx completion <shell>', printing a
// shell completion script for bash, zsh, or fish to stdout.
func runCompletion(args []string) {
	fs := flag.NewFlagSet("completion", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprint(os.Stderr, `Usage: graphidx completion <shell>

Generates a shell completion script for bash, zsh, or fish.

Examples:
  source <(graphidx completion bash)
  graphidx completion zsh > "${fpath[1]}/_graphidx"
  graphidx completion fish > ~/.config/fish/completions/graphidx.fish
`)
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() != 1 {
		errors.FatalError(errors.NewInputError(
			"invalid arguments",
			"the completion command requires exactly one argument: the shell name",
			"run 'graphidx completion bash', 'graphidx completion zsh', or 'graphidx completion fish'",
		), false)
	}

	switch fs.Arg(0) {
	case "bash":
		fmt.Print(bashCompletionTemplate)
	case "zsh":
		fmt.Print(zshCompletionTemplate)
	case "fish":
		fmt.Print(fishCompletionTemplate)
	default:
		errors.FatalError(errors.NewInputError(
			"unsupported shell",
			fmt.Sprintf("shell %q is not supported; valid options: bash, zsh, fish", fs.Arg(0)),
			"run 'graphidx completion bash', 'graphidx completion zsh', or 'graphidx completion fish'",
		), false)
	}
}
