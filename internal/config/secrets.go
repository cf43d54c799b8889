package config

import (
	"fmt"
	"os"
	"strings"
)

// fileSuffix marks an env var holding the path of a file with the secret.
const fileSuffix = "_FILE"

// ResolveSecret returns the secret named envName. <envName>_FILE, when set,
// names a file whose trimmed content is the secret and wins over envName.
// An unset secret resolves to "".
func ResolveSecret(envName string) (string, error) {
	path, ok := os.LookupEnv(envName + fileSuffix)
	if !ok || path == "" {
		return os.Getenv(envName), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read secret %s%s=%s: %w", envName, fileSuffix, path, err)
	}
	return strings.TrimSpace(string(b)), nil
}

// ResolveSecrets resolves several secrets in order and stops at the first
// unreadable file.
func ResolveSecrets(names ...string) ([]string, error) {
	out := make([]string, len(names))
	for i, name := range names {
		v, err := ResolveSecret(name)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
