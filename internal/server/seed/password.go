package seed

import (
	"fmt"
	"io"

	"github.com/dmitrijs2005/authgate/internal/common"
	"golang.org/x/term"
)

// DefaultAdminPassword is used when nothing else is provided.
const DefaultAdminPassword = "admin123"

const passwordEnv = "SEED_ADMIN_PASSWORD"

// readPassword and isTerminal are test seams for x/term.
var (
	readPassword = term.ReadPassword
	isTerminal   = term.IsTerminal
)

// AdminPassword resolves the admin password from SEED_ADMIN_PASSWORD, then an
// interactive prompt when fd is a terminal, then DefaultAdminPassword.
func AdminPassword(lookup func(string) (string, bool), fd int, w io.Writer) (string, error) {
	if v, ok := lookup(passwordEnv); ok && v != "" {
		return v, nil
	}
	if !isTerminal(fd) {
		return DefaultAdminPassword, nil
	}

	if _, err := fmt.Fprint(w, "Admin password (empty for default): "); err != nil {
		return "", err
	}
	pw, err := readPassword(fd)
	fmt.Fprintln(w)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	defer common.WipeByteArray(pw)

	if len(pw) == 0 {
		return DefaultAdminPassword, nil
	}
	return string(pw), nil
}
