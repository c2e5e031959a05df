package appraisal

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"

	"github.com/rs/zerolog/log"

	"github.com/mkarjala/curio/internal/llm"
)

// RecordCache persists appraisal results keyed by image content hash.
type RecordCache interface {
	GetAppraisalCache(imageHash string) (*Record, error)
	SetAppraisalCache(imageHash string, record *Record) error
}

// CachedAppraiser wraps an Appraiser with content-hash caching, so that
// re-submitting an identical photo does not re-bill the model.
type CachedAppraiser struct {
	inner Appraiser
	cache RecordCache
}

// NewCachedAppraiser creates a cached appraiser.
func NewCachedAppraiser(inner Appraiser, cache RecordCache) *CachedAppraiser {
	return &CachedAppraiser{inner: inner, cache: cache}
}

// hashImage creates a SHA256 hash over the image payload and its MIME type.
// A length prefix separates the two to prevent boundary collisions.
func hashImage(img llm.ImageBlob) string {
	h := sha256.New()
	binary.Write(h, binary.LittleEndian, int64(len(img.Data)))
	h.Write(img.Data)
	h.Write([]byte(img.MIMEType))
	return hex.EncodeToString(h.Sum(nil))
}

// Appraise implements the Appraiser interface with caching.
func (c *CachedAppraiser) Appraise(ctx context.Context, img llm.ImageBlob) (*Record, error) {
	hash := hashImage(img)

	if c.cache != nil {
		cached, err := c.cache.GetAppraisalCache(hash)
		if err != nil {
			log.Warn().Err(err).Msg("failed to check appraisal cache")
		} else if cached != nil {
			log.Debug().Str("hash", hash[:16]).Msg("appraisal cache hit")
			return cached, nil
		}
	}

	record, err := c.inner.Appraise(ctx, img)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		if err := c.cache.SetAppraisalCache(hash, record); err != nil {
			log.Warn().Err(err).Msg("failed to cache appraisal result")
		} else {
			log.Debug().Str("hash", hash[:16]).Msg("cached appraisal result")
		}
	}

	return record, nil
}
