package encryption

import (
	"fmt"

	"shelfkeep/internal/config"
	"shelfkeep/internal/library"
)

// NewEncryptorFromConfig builds an encryptor from the encryption section of
// the configuration. Type "none" disables backup encryption and returns nil.
func NewEncryptorFromConfig(cfg config.EncryptionConfig) (library.Encryptor, error) {
	switch cfg.Type {
	case "age", "":
		return NewAgeEncryptor(cfg), nil
	case "test":
		return NewTestEncryptor(), nil
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown encryption type: %s", cfg.Type)
	}
}
