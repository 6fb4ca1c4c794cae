package secrets

import (
	"errors"
	"fmt"
	"strings"

	"autonomous-agent/internal/config"

	"github.com/zalando/go-keyring"
)

const (
	// “Service” groups the agent's secrets in the OS keychain.
	KeyringService = "autonomous-agent"
)

// Kind names the credential a keyring entry holds.
type Kind string

const (
	KindIMAP    Kind = "imap"
	KindBluesky Kind = "bluesky"
	KindDB      Kind = "db"
)

var ErrNotFound = errors.New("secret not found in keyring")

func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindIMAP, KindBluesky, KindDB:
		return k, nil
	default:
		return "", fmt.Errorf("unknown secret kind %q (imap, bluesky, db)", s)
	}
}

// Account derives the keyring account for a credential from the configured identity.
func Account(cfg config.Config, kind Kind) string {
	switch kind {
	case KindIMAP:
		return fmt.Sprintf("agent:imap:%s@%s", cfg.Email.Username, cfg.Email.IMAPHost)
	case KindBluesky:
		return fmt.Sprintf("agent:bluesky:%s@%s", cfg.Bluesky.Identifier, cfg.Bluesky.Service)
	case KindDB:
		host := cfg.Store.Host
		if cfg.Store.Driver == "sqlite" {
			host = cfg.Store.Path
		}
		return fmt.Sprintf("agent:db:%s@%s", cfg.Store.User, host)
	}
	return ""
}

func Get(account string) (string, error) {
	if strings.TrimSpace(account) == "" {
		return "", errors.New("keyring account name is empty")
	}
	pw, err := keyring.Get(KeyringService, account)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", err
	}
	if strings.TrimSpace(pw) == "" {
		return "", ErrNotFound
	}
	return pw, nil
}

func Set(account string, password string) error {
	if strings.TrimSpace(account) == "" {
		return errors.New("keyring account name is empty")
	}
	if strings.TrimSpace(password) == "" {
		return errors.New("password is empty")
	}
	return keyring.Set(KeyringService, account, password)
}

func Delete(account string) error {
	if strings.TrimSpace(account) == "" {
		return errors.New("keyring account name is empty")
	}
	return keyring.Delete(KeyringService, account)
}

// Fill looks up passwords that the file and environment left empty. Lookups
// that fail leave the field empty, which later disables the integration (or
// fails validation for the store). Returns the kinds that were filled.
func Fill(cfg *config.Config) []Kind {
	var filled []Kind
	try := func(kind Kind, dst *string, identity string) {
		if *dst != "" || identity == "" {
			return
		}
		if pw, err := Get(Account(*cfg, kind)); err == nil {
			*dst = pw
			filled = append(filled, kind)
		}
	}
	try(KindIMAP, &cfg.Email.Password, cfg.Email.Username)
	try(KindBluesky, &cfg.Bluesky.Password, cfg.Bluesky.Identifier)
	if cfg.Store.Driver != "sqlite" {
		try(KindDB, &cfg.Store.Password, cfg.Store.User)
	}
	return filled
}
