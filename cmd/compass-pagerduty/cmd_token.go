// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/AleutianAI/compass-pagerduty/pkg/validation"
	"github.com/AleutianAI/compass-pagerduty/services/secrets"
)

func runTokenSet(cmd *cobra.Command, args []string) error {
	value := tokenValue
	if value == "" {
		line, err := readToken(cmd, os.Stdin)
		if err != nil {
			return fmt.Errorf("read token: %w", err)
		}
		value = line
	}

	token, err := validation.SanitizeToken(value)
	if err != nil {
		return err
	}

	a, err := newApp(cfg, "cli")
	if err != nil {
		return err
	}
	defer a.close()

	key := secretKey(tokenGateway)
	if err := a.store.Set(cmd.Context(), key, token); err != nil {
		return fmt.Errorf("store %s: %w", describeKey(key), err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Stored %s.\n", describeKey(key))
	return nil
}

func runTokenStatus(cmd *cobra.Command, args []string) error {
	a, err := newApp(cfg, "cli")
	if err != nil {
		return err
	}
	defer a.close()

	key := secretKey(tokenGateway)
	token, err := a.store.Get(cmd.Context(), key)
	switch {
	case errors.Is(err, secrets.ErrSecretNotFound):
		fmt.Fprintf(cmd.OutOrStdout(), "%s: not set\n", describeKey(key))
		return nil
	case err != nil:
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: set (%d characters)\n", describeKey(key), len(token))
	return nil
}

func runTokenClear(cmd *cobra.Command, args []string) error {
	a, err := newApp(cfg, "cli")
	if err != nil {
		return err
	}
	defer a.close()

	key := secretKey(tokenGateway)
	if err := a.store.Delete(cmd.Context(), key); err != nil {
		return fmt.Errorf("delete %s: %w", describeKey(key), err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Cleared %s.\n", describeKey(key))
	return nil
}

// readToken reads the secret without echo when stdin is a terminal, and a
// single line otherwise.
func readToken(cmd *cobra.Command, stdin *os.File) (string, error) {
	if cmd.InOrStdin() == io.Reader(stdin) && isTerminal(stdin) {
		fmt.Fprint(cmd.ErrOrStderr(), "Paste the token and press Enter: ")
		secret, err := term.ReadPassword(int(stdin.Fd()))
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", err
		}
		return string(secret), nil
	}
	return readLine(cmd.InOrStdin())
}

func readLine(r io.Reader) (string, error) {
	scanner := bufio.NewScanner(r)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", err
		}
		return "", io.ErrUnexpectedEOF
	}
	return scanner.Text(), nil
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
