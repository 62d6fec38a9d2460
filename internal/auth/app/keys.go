package app

import (
	"fmt"
	"log/slog"

	"github.com/aussiebroadwan/usermgmt/pkg/cryptox"
	"github.com/aussiebroadwan/usermgmt/pkg/jwtx"
)

// initSessionCodec builds the HS256 session codec.
//
// Key sources, in order:
//   - AUTH_SIGNING_KEY: shared by every instance behind a load balancer.
//   - AUTH_SIGNING_KEY_FILE: generated on first start and reused, so
//     sessions survive restarts of a single instance.
func initSessionCodec(cfg Config, logger *slog.Logger) (*jwtx.SessionCodec, error) {
	key := []byte(cfg.SigningKey)
	if len(key) == 0 {
		var err error
		key, err = cryptox.LoadOrCreateSigningKey(cfg.SigningKeyFile)
		if err != nil {
			return nil, err
		}
		logger.Info("signing key loaded", "path", cfg.SigningKeyFile)
	} else {
		logger.Info("signing key loaded from environment")
	}

	codec, err := jwtx.NewSessionCodec(jwtx.CodecConfig{
		Key:      key,
		Issuer:   cfg.Issuer,
		Audience: cfg.Audience,
		TTL:      cfg.SessionTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("session codec: %w", err)
	}
	return codec, nil
}
