package session

import (
	"fmt"
	"regexp"
)

// Session names become directory names under ~/.pmschat, so the charset
// stays filesystem-safe and lowercase.
var namePattern = regexp.MustCompile(`^[a-z0-9_-]{1,64}$`)

// ValidateName checks that name is usable as a session directory name.
func ValidateName(name string) error {
	if !namePattern.MatchString(name) {
		return fmt.Errorf("invalid session name %q: must match ^[a-z0-9_-]{1,64}$", name)
	}
	return nil
}
