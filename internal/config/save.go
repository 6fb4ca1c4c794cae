package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Example is the starting point written by `agent config init`.
func Example() Config {
	cfg := Default()
	cfg.Store.Host = "localhost"
	cfg.Store.User = "agent"
	cfg.Email.IMAPHost = "imap.example.com"
	cfg.Email.SMTPHost = "smtp.example.com"
	cfg.Email.Address = "agent@example.com"
	cfg.Bluesky.Identifier = "agent.bsky.social"
	cfg.HTTP.Addr = "127.0.0.1:38471"
	return cfg
}

// SaveAtomic validates cfg and writes it through a temp file, keeping the
// previous version as path.bak. Passwords are never written; they belong in
// the environment or the keyring.
func SaveAtomic(path string, cfg Config) error {
	out, res := NormalizeAndValidate(cfg)
	if err := res.Err(); err != nil {
		return err
	}
	out.Store.Password = ""
	out.Email.Password = ""
	out.Bluesky.Password = ""

	b, err := yaml.Marshal(&out)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp := path + ".tmp"
	bak := path + ".bak"

	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}

	_ = os.Remove(bak)
	_ = os.Rename(path, bak)

	return os.Rename(tmp, path)
}
