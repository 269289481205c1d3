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
	"path/filepath"
	"strings"

	flag "github.com/spf13/pflag"

	cliErrors "github.com/kotadb/graphidx/internal/errors"
)

const hookMarker = "# graphidx auto-index hook"

// postCommitHookTemplate is installed into .git/hooks/post-commit. It
// backgrounds a 'graphidx index' run tagged with the new commit so a
// slow index never blocks the commit itself. The index command's
// RepoLock is not waited on: a run that starts while another holds it
// exits with an error and indexes nothing.
const postCommitHookTemplate = `#!/bin/sh
%s - starts a background index run for this commit
# Installed by: graphidx install-hook
# Remove with: graphidx install-hook --remove

COMMIT=$(git rev-parse HEAD)
graphidx index . --repo %q --commit "$COMMIT" >/dev/null 2>&1 &
`

// runInstallHook executes 'graphidx install-hook [--force|--remove]':
// it installs or removes a git post-commit hook that starts a
// background 'graphidx index' run after each commit.
func runInstallHook(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("install-hook", flag.ExitOnError)
	fullName := fs.String("repo", "", "Repository full name")
	force := fs.Bool("force", false, "Overwrite an existing hook")
	remove := fs.Bool("remove", false, "Remove the hook instead of installing")

	fs.Usage = func() {
		fmt.Fprint(os.Stderr, `Usage: graphidx install-hook --repo <full_name> [options]

Installs a git post-commit hook that backgrounds a full index run
after each commit.

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if !*remove && *fullName == "" {
		fs.Usage()
		os.Exit(1)
	}

	gitDir, err := findGitDir()
	if err != nil {
		cliErrors.FatalError(cliErrors.NewInputError("not a git repository", err.Error(), "run this inside a git working tree"), globals.JSON)
	}
	hookPath := filepath.Join(gitDir, "hooks", "post-commit")

	if *remove {
		if err := removeHook(hookPath); err != nil {
			cliErrors.FatalError(cliErrors.NewInputError("cannot remove hook", err.Error(), "remove the hook manually if it was not installed by graphidx"), globals.JSON)
		}
		if !globals.Quiet {
			fmt.Println("Git hook removed.")
		}
		return
	}

	if err := installHook(hookPath, *fullName, *force); err != nil {
		cliErrors.FatalError(cliErrors.NewInputError("cannot install hook", err.Error(), "pass --force to overwrite an existing hook"), globals.JSON)
	}
	if !globals.Quiet {
		fmt.Printf("Git hook installed: %s\n", hookPath)
	}
}

// findGitDir walks up from the working directory looking for a .git
// directory or worktree pointer file.
func findGitDir() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}

	dir := cwd
	for {
		gitPath := filepath.Join(dir, ".git")
		if info, err := os.Stat(gitPath); err == nil {
			if info.IsDir() {
				return gitPath, nil
			}
			content, err := os.ReadFile(gitPath) //nolint:gosec // G304: path is a fixed ".git" under a walked ancestor
			if err != nil {
				return "", fmt.Errorf("cannot read .git file: %w", err)
			}
			var gitdir string
			if _, err := fmt.Sscanf(string(content), "gitdir: %s", &gitdir); err == nil {
				if filepath.IsAbs(gitdir) {
					return gitdir, nil
				}
				return filepath.Join(dir, gitdir), nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", fmt.Errorf("not a git repository (or any of the parent directories)")
}

func installHook(hookPath, fullName string, force bool) error {
	hookDir := filepath.Dir(hookPath)
	if err := os.MkdirAll(hookDir, 0o750); err != nil {
		return fmt.Errorf("cannot create hooks directory: %w", err)
	}

	if _, err := os.Stat(hookPath); err == nil {
		if !force {
			content, err := os.ReadFile(hookPath) //nolint:gosec // G304: fixed "post-commit" name under a discovered .git dir
			if err == nil && containsHookMarker(string(content)) {
				return fmt.Errorf("graphidx hook already installed; use --force to reinstall")
			}
			return fmt.Errorf("hook already exists at %s; use --force to overwrite", hookPath)
		}
	}

	content := fmt.Sprintf(postCommitHookTemplate, hookMarker, fullName)
	return os.WriteFile(hookPath, []byte(content), 0o750) //nolint:gosec // G306: hooks must be executable
}

func removeHook(hookPath string) error {
	content, err := os.ReadFile(hookPath) //nolint:gosec // G304: fixed "post-commit" name under a discovered .git dir
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("no hook found at %s", hookPath)
		}
		return fmt.Errorf("cannot read hook: %w", err)
	}
	if !containsHookMarker(string(content)) {
		return fmt.Errorf("hook at %s was not installed by graphidx; remove it manually", hookPath)
	}
	return os.Remove(hookPath)
}

func containsHookMarker(content string) bool {
	return strings.Contains(content, hookMarker)
}
