// Package config holds the environment-driven configuration helpers the
// tracker commands share.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// ParseEnv fills target's tagged fields from the process environment.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("load env config: %w", err)
	}
	return nil
}
