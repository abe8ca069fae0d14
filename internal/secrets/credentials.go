package secrets

import (
	"errors"
	"os"
	"strings"

	"github.com/zalando/go-keyring"
)

const (
	// “Service” groups the engine's secrets in the OS keychain.
	KeyringService = "jobscout"

	envPrefix = "JOBSCOUT_CRED_"
)

// Get resolves the credential for a backend key. Keychain first, then an
// environment variable fallback for headless runs (JOBSCOUT_CRED_<BACKEND>).
// A missing credential is not an error: the source is simply unavailable.
func Get(backendKey string) (string, bool) {
	backendKey = strings.TrimSpace(backendKey)
	if backendKey == "" {
		return "", false
	}

	if cred, err := keyring.Get(KeyringService, backendKey); err == nil && strings.TrimSpace(cred) != "" {
		return cred, true
	}

	if cred := strings.TrimSpace(os.Getenv(envName(backendKey))); cred != "" {
		return cred, true
	}

	return "", false
}

func Set(backendKey, credential string) error {
	if strings.TrimSpace(backendKey) == "" {
		return errors.New("backend key is empty")
	}
	if strings.TrimSpace(credential) == "" {
		return errors.New("credential is empty")
	}
	return keyring.Set(KeyringService, backendKey, credential)
}

func Delete(backendKey string) error {
	if strings.TrimSpace(backendKey) == "" {
		return errors.New("backend key is empty")
	}
	return keyring.Delete(KeyringService, backendKey)
}

func envName(backendKey string) string {
	up := strings.ToUpper(backendKey)
	var b strings.Builder
	b.WriteString(envPrefix)
	for _, r := range up {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

// SplitPair splits an "id:key" credential for backends that need two parts,
// e.g. the Adzuna app_id/app_key pair stored as one keychain entry.
func SplitPair(cred string) (id, key string, ok bool) {
	i := strings.IndexByte(cred, ':')
	if i <= 0 || i == len(cred)-1 {
		return "", "", false
	}
	return cred[:i], cred[i+1:], true
}
