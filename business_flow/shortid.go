package businessflow

import (
	"context"
	"crypto/rand"
	"math/big"

	"github.com/treebio/treebio/models"
	"github.com/treebio/treebio/repository"
)

const (
	// shortIDAlphabet is the fixed alphabet public short ids are drawn from
	shortIDAlphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

	// shortIDLength is the token length of a public short id
	shortIDLength = 8

	// maxShortIDAttempts bounds the retry-until-unique loop. The unique
	// index on linktrees.short_id is the real backstop; this loop only
	// keeps the common path from hitting it.
	maxShortIDAttempts = 10
)

// randomShortID draws one token from the alphabet using crypto/rand
func randomShortID() (string, error) {
	max := big.NewInt(int64(len(shortIDAlphabet)))
	buf := make([]byte, shortIDLength)
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = shortIDAlphabet[n.Int64()]
	}
	return string(buf), nil
}

// generateUniqueShortID draws tokens until one is absent from durable
// storage, bounded to maxShortIDAttempts. Exhaustion returns
// ErrShortIDExhausted; the whole create is safe to retry.
func generateUniqueShortID(ctx context.Context, repo repository.LinktreeRepository) (string, error) {
	for attempt := 0; attempt < maxShortIDAttempts; attempt++ {
		candidate, err := randomShortID()
		if err != nil {
			return "", NewBusinessError("SHORT_ID_RANDOM_FAILED", "Failed to draw random short id", err)
		}
		exists, err := repo.Exists(ctx, models.LinktreeFilter{ShortID: &candidate})
		if err != nil {
			return "", NewBusinessError("SHORT_ID_LOOKUP_FAILED", "Failed to verify short id uniqueness", err)
		}
		if !exists {
			return candidate, nil
		}
	}
	return "", ErrShortIDExhausted
}
