package config

import (
	"errors"
	"fmt"
)

func MustNonEmpty(value, envName string) error {
	if value == "" {
		return fmt.Errorf("missing required env %s", envName)
	}
	return nil
}

func MustNonEmptyBytes(value []byte, envName string) error {
	if len(value) == 0 {
		return fmt.Errorf("missing required env %s", envName)
	}
	return nil
}

// Validate reports every missing value the server cannot start without.
func (c Config) Validate() error {
	return errors.Join(
		MustNonEmpty(c.DatabaseURL, "DATABASE_URL"),
		MustNonEmptyBytes(c.JWTAccessSecret, "JWT_SECRET"),
		MustNonEmptyBytes(c.JWTRefreshSecret, "JWT_REFRESH_SECRET"),
		MustNonEmpty(c.Paystack.SecretKey, "PAYSTACK_SECRET_KEY"),
	)
}
