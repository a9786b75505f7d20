// Copyright 2026 The EDSST Authors
// SPDX-License-Identifier: Apache-2.0

// Package clipboard copies text to the desktop clipboard through an
// external program such as wl-copy or xclip.
package clipboard

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Copier places text on the clipboard.
type Copier interface {
	Copy(ctx context.Context, text string) error
}

// ErrDisabled is returned by a Copier built from an empty command.
var ErrDisabled = errors.New("clipboard command not configured")

// Command runs an external program with the text as its final argument.
type Command struct {
	// Args is the program and its leading arguments, e.g.
	// ["wl-copy", "--"].
	Args []string
}

// New returns a Copier for args. An empty args yields a Copier that
// always fails with ErrDisabled.
func New(args []string) Copier {
	if len(args) == 0 {
		return disabled{}
	}
	return Command{Args: args}
}

// Copy runs the command and reports its stderr on failure.
func (c Command) Copy(ctx context.Context, text string) error {
	arguments := append(append([]string(nil), c.Args[1:]...), text)
	command := exec.CommandContext(ctx, c.Args[0], arguments...)
	var stderr bytes.Buffer
	command.Stderr = &stderr
	if err := command.Run(); err != nil {
		if message := strings.TrimSpace(stderr.String()); message != "" {
			return fmt.Errorf("running %s: %w: %s", c.Args[0], err, message)
		}
		return fmt.Errorf("running %s: %w", c.Args[0], err)
	}
	return nil
}

type disabled struct{}

func (disabled) Copy(context.Context, string) error { return ErrDisabled }
