package channel

import (
	"fmt"
	"regexp"
)

var keyRegexp = regexp.MustCompile(`^[a-z0-9_-]{1,64}$`)

// ValidateKey checks that a channel key conforms to league channel naming.
func ValidateKey(key string) error {
	if !keyRegexp.MatchString(key) {
		return fmt.Errorf("invalid channel key %q: must match ^[a-z0-9_-]{1,64}$", key)
	}
	return nil
}
