package auth

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"
)

// PromptPassword asks for the password of user on host. On a terminal it
// shows a masked input; otherwise it reads one line from stdin so the
// password can be piped in.
func PromptPassword(user, host string) (string, error) {
	if !IsInteractive() {
		return readPassword(os.Stdin)
	}

	var password string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title(fmt.Sprintf("Password for %s on %s", user, host)).
				EchoMode(huh.EchoModePassword).
				Validate(func(s string) error {
					if s == "" {
						return fmt.Errorf("password must not be empty")
					}
					return nil
				}).
				Value(&password),
		),
	)
	if err := form.Run(); err != nil {
		return "", err
	}
	return password, nil
}

func readPassword(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", fmt.Errorf("no password on standard input")
	}
	return password, nil
}

// IsInteractive reports whether stdin is a terminal a prompt can use.
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}
