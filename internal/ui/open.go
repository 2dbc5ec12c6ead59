// Copyright (c) 2025 Impyla
// Licensed under the MIT License. See LICENSE file in the project root for details.

package ui

import (
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// OpenFile opens path in $VISUAL or $EDITOR, or with the desktop's default
// application when neither is set. Editors run in the foreground.
func OpenFile(path string) error {
	for _, env := range []string{"VISUAL", "EDITOR"} {
		if editor := strings.Fields(os.Getenv(env)); len(editor) > 0 {
			cmd := exec.Command(editor[0], append(editor[1:], path)...)
			cmd.Stdin, cmd.Stdout, cmd.Stderr = os.Stdin, os.Stdout, os.Stderr
			return cmd.Run()
		}
	}
	return Browse(path)
}

// Browse hands target (a file or URL) to the desktop opener without waiting.
func Browse(target string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", target)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", target)
	default:
		cmd = exec.Command("xdg-open", target)
	}
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() { _ = cmd.Wait() }()
	return nil
}
