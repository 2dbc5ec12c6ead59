// Copyright (c) 2025 Impyla
// Licensed under the MIT License. See LICENSE file in the project root for details.

package session

import (
	"impyla/cli/internal/config"
	"impyla/cli/internal/ui"
)

// Notices reports configuration state changes to the user.
type Notices struct {
	Prompter ui.Prompter
}

var _ config.Notifier = Notices{}

func (n Notices) ConfigLoaded(path string) {
	n.Prompter.Info("Configuration loaded from " + path)
}

func (n Notices) ConfigInvalid(path string, err error) {
	n.Prompter.Error("Invalid " + path + ": " + message(err))
}

func (n Notices) ConfigRemoved(path string) {
	n.Prompter.Warn("Configuration removed: " + path)
}
