package auth

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// PromptPassword asks for a password on the terminal without echoing it
func PromptPassword(out io.Writer, handle string) (string, error) {
	fmt.Fprintf(out, "App password for %s: ", handle)

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(out)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return strings.TrimSpace(string(b)), nil
	}

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// IsInteractive reports whether stdin is a terminal
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// Lookup returns a password lookup that tries the stored credentials first
// and then, when interactive is set, prompts on out. It matches the lookup
// signature config.Load expects.
func Lookup(m *Manager, interactive bool, out io.Writer) func(endpoint, username string) (string, error) {
	return lookupWith(m, interactive, func(handle string) (string, error) {
		return PromptPassword(out, handle)
	})
}

func lookupWith(m *Manager, interactive bool, prompt func(handle string) (string, error)) func(endpoint, username string) (string, error) {
	return func(endpoint, username string) (string, error) {
		if m != nil {
			password, err := m.PasswordFor(endpoint, username)
			if err == nil {
				return password, nil
			}
			if !interactive {
				return "", err
			}
		} else if !interactive {
			return "", ErrCredentialsNotFound
		}

		password, err := prompt(username)
		if err != nil {
			return "", err
		}
		if password == "" {
			return "", ErrInvalidCredentials
		}
		return password, nil
	}
}
