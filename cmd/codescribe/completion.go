// Copyright 2026 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/kraklabs/codescribe/internal/errors"
)

// bashCompletionTemplate is the bash completion script for codescribe.
const bashCompletionTemplate = `#!/bin/bash

# Bash completion script for codescribe
# Installation:
#   source <(codescribe completion bash)
#   Or add to ~/.bashrc:
#   echo 'source <(codescribe completion bash)' >> ~/.bashrc

_codescribe_completion() {
    local cur prev commands
    commands="init analyze status tree cancel completion"

    # Current word being completed
    cur="${COMP_WORDS[COMP_CWORD]}"
    prev="${COMP_WORDS[COMP_CWORD-1]}"

    # Global flags
    if [[ ${cur} == -* ]] ; then
        COMPREPLY=( $(compgen -W "--version --config" -- ${cur}) )
        return 0
    fi

    # First argument: complete commands
    if [ $COMP_CWORD -eq 1 ]; then
        COMPREPLY=( $(compgen -W "${commands}" -- ${cur}) )
        return 0
    fi

    # Command-specific flag completion
    local cmd="${COMP_WORDS[1]}"
    case "${cmd}" in
        analyze)
            if [[ ${cur} == -* ]] ; then
                COMPREPLY=( $(compgen -W "--full --workers --debug --metrics-addr -q" -- ${cur}) )
            fi
            ;;
        status)
            if [[ ${cur} == -* ]] ; then
                COMPREPLY=( $(compgen -W "--json --jobs" -- ${cur}) )
            fi
            ;;
        tree)
            if [[ ${cur} == -* ]] ; then
                COMPREPLY=( $(compgen -W "--json --no-summaries" -- ${cur}) )
            fi
            ;;
        init)
            if [[ ${cur} == -* ]] ; then
                COMPREPLY=( $(compgen -W "--force -y --owner --name --url --branch --provider --provider-url --api-key --model" -- ${cur}) )
            fi
            ;;
        completion)
            # Complete shell names for completion command
            if [ $COMP_CWORD -eq 2 ]; then
                COMPREPLY=( $(compgen -W "bash zsh fish" -- ${cur}) )
            fi
            ;;
    esac
}

complete -F _codescribe_completion codescribe
`

// zshCompletionTemplate is the zsh completion script for codescribe.
const zshCompletionTemplate = `#compdef codescribe

# Zsh completion script for codescribe
# Installation:
#   1. Ensure compinit is loaded (add to ~/.zshrc if not present):
#      autoload -U compinit; compinit
#   2. Save this script to a directory in your fpath:
#      codescribe completion zsh > "${fpath[1]}/_codescribe"
#   3. Reload completions:
#      rm -f ~/.zcompdump; compinit

_codescribe() {
    local -a commands
    commands=(
        'init:Create .codescribe/project.yaml configuration'
        'analyze:Analyze the repository (incremental by default)'
        'status:Show repository and job status'
        'tree:Print the summarized directory tree'
        'cancel:Cancel a pending or running job'
        'completion:Generate shell completion script'
    )

    _arguments -C \
        '(- *)--version[Show version and exit]' \
        '--config[Path to .codescribe/project.yaml]:config file:_files -g "*.yaml"' \
        '1: :->command' \
        '*:: :->args'

    case $state in
        command)
            _describe 'command' commands
            ;;
        args)
            case $words[1] in
                analyze)
                    _arguments \
                        '--full[Re-analyze everything, ignoring stored fingerprints]' \
                        '--workers[Number of parallel file workers]:workers:' \
                        '--debug[Enable debug logging]' \
                        '--metrics-addr[Prometheus metrics address]:address:' \
                        '-q[Suppress progress output]'
                    ;;
                status)
                    _arguments \
                        '--json[Output as JSON]' \
                        '--jobs[Number of recent jobs to show]:count:'
                    ;;
                tree)
                    _arguments \
                        '--json[Output as JSON]' \
                        '--no-summaries[Print paths only]'
                    ;;
                cancel)
                    _arguments \
                        '1:job id:'
                    ;;
                completion)
                    _arguments \
                        '1:shell:(bash zsh fish)'
                    ;;
            esac
            ;;
    esac
}

_codescribe
`

// fishCompletionTemplate is the fish completion script for codescribe.
const fishCompletionTemplate = `# Fish completion script for codescribe
# Installation:
#   1. Load completions for current session:
#      codescribe completion fish | source
#   2. Install permanently:
#      codescribe completion fish > ~/.config/fish/completions/codescribe.fish

# Commands
complete -c codescribe -f -n "__fish_use_subcommand" -a "init" -d "Create .codescribe/project.yaml configuration"
complete -c codescribe -f -n "__fish_use_subcommand" -a "analyze" -d "Analyze the repository (incremental by default)"
complete -c codescribe -f -n "__fish_use_subcommand" -a "status" -d "Show repository and job status"
complete -c codescribe -f -n "__fish_use_subcommand" -a "tree" -d "Print the summarized directory tree"
complete -c codescribe -f -n "__fish_use_subcommand" -a "cancel" -d "Cancel a pending or running job"
complete -c codescribe -f -n "__fish_use_subcommand" -a "completion" -d "Generate shell completion script"

# Global flags
complete -c codescribe -l version -d "Show version and exit"
complete -c codescribe -l config -d "Path to .codescribe/project.yaml" -r

# analyze command flags
complete -c codescribe -n "__fish_seen_subcommand_from analyze" -l full -d "Re-analyze everything, ignoring stored fingerprints"
complete -c codescribe -n "__fish_seen_subcommand_from analyze" -l workers -d "Number of parallel file workers" -r
complete -c codescribe -n "__fish_seen_subcommand_from analyze" -l debug -d "Enable debug logging"
complete -c codescribe -n "__fish_seen_subcommand_from analyze" -l metrics-addr -d "Prometheus metrics address" -r

# status command flags
complete -c codescribe -n "__fish_seen_subcommand_from status" -l json -d "Output as JSON"
complete -c codescribe -n "__fish_seen_subcommand_from status" -l jobs -d "Number of recent jobs to show" -r

# tree command flags
complete -c codescribe -n "__fish_seen_subcommand_from tree" -l json -d "Output as JSON"
complete -c codescribe -n "__fish_seen_subcommand_from tree" -l no-summaries -d "Print paths only"

# completion command arguments
complete -c codescribe -n "__fish_seen_subcommand_from completion" -f -a "bash" -d "Generate bash completion script"
complete -c codescribe -n "__fish_seen_subcommand_from completion" -f -a "zsh" -d "Generate zsh completion script"
complete -c codescribe -n "__fish_seen_subcommand_from completion" -f -a "fish" -d "Generate fish completion script"
`

// runCompletion executes the 'completion' CLI command, generating
// shell-specific completion scripts for bash, zsh, or fish shells.
//
// Usage:
//
//	codescribe completion [bash|zsh|fish]
//
// Examples:
//
//	codescribe completion bash                     Output bash completion script
//	source <(codescribe completion bash)           Load bash completions in current shell
//	codescribe completion fish | source            Load fish completions in current shell
func runCompletion(args []string) {
	fs := flag.NewFlagSet("completion", flag.ExitOnError)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: codescribe completion <shell>

Description:
  Generate shell completion scripts for bash, zsh, or fish.

Arguments:
  shell    Shell type: bash, zsh, or fish (required)

Examples:
  # Load bash completions in current shell
  source <(codescribe completion bash)

  # Install bash completions permanently (Linux)
  codescribe completion bash > /etc/bash_completion.d/codescribe

  # Install zsh completions
  codescribe completion zsh > "${fpath[1]}/_codescribe"

  # Install fish completions
  codescribe completion fish > ~/.config/fish/completions/codescribe.fish

Notes:
  After installing completions, restart your shell or source your rc file.

`)
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if fs.NArg() != 1 {
		errors.FatalError(errors.NewInputError(
			"Invalid arguments",
			"The completion command requires exactly one argument: the shell name",
			"Run 'codescribe completion bash', 'codescribe completion zsh', or 'codescribe completion fish'",
		), false)
	}

	shell := fs.Arg(0)

	switch shell {
	case "bash":
		fmt.Print(bashCompletionTemplate)
	case "zsh":
		fmt.Print(zshCompletionTemplate)
	case "fish":
		fmt.Print(fishCompletionTemplate)
	default:
		errors.FatalError(errors.NewInputError(
			"Unsupported shell",
			fmt.Sprintf("Shell '%s' is not supported. Valid options: bash, zsh, fish", shell),
			"Run 'codescribe completion bash', 'codescribe completion zsh', or 'codescribe completion fish'",
		), false)
	}
}
