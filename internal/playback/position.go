package playback

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/desertthunder/audx/internal/shared"
)

// PositionPrefix prefixes every offset key in the local state table.
const PositionPrefix = "audio_position_"

// KV is the durable key/value store offsets are kept in.
type KV interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Delete(key string) error
}

// Positions loads and saves resume offsets by audio id.
type Positions interface {
	Load(audioID int) (float64, bool, error)
	Save(audioID int, seconds float64) error
}

// PositionStore keeps one offset per audiobook as decimal text. The most recent write wins.
type PositionStore struct {
	kv KV
}

// NewPositionStore creates a [PositionStore] over kv.
func NewPositionStore(kv KV) *PositionStore {
	return &PositionStore{kv: kv}
}

// PositionKey returns the local state key for audioID.
func PositionKey(audioID int) string {
	return PositionPrefix + strconv.Itoa(audioID)
}

// AudioIDFromKey reverses [PositionKey].
func AudioIDFromKey(key string) (int, bool) {
	rest, ok := strings.CutPrefix(key, PositionPrefix)
	if !ok {
		return 0, false
	}
	id, err := strconv.Atoi(rest)
	return id, err == nil
}

// Load returns the stored offset for audioID. ok is false when nothing is stored.
//
// A stored value that is not a finite, non-negative number yields [shared.ErrMalformedState].
func (p *PositionStore) Load(audioID int) (float64, bool, error) {
	raw, ok, err := p.kv.Get(PositionKey(audioID))
	if err != nil || !ok {
		return 0, false, err
	}

	v, err := ParseOffset(raw)
	if err != nil {
		return 0, false, err
	}
	return v, true, nil
}

// Save records seconds for audioID.
func (p *PositionStore) Save(audioID int, seconds float64) error {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
		return fmt.Errorf("%w: offset %v", shared.ErrInvalidInput, seconds)
	}
	return p.kv.Set(PositionKey(audioID), strconv.FormatFloat(seconds, 'f', -1, 64))
}

// Clear forgets the offset for audioID.
func (p *PositionStore) Clear(audioID int) error {
	return p.kv.Delete(PositionKey(audioID))
}

// ParseOffset parses a stored offset.
func ParseOffset(raw string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, fmt.Errorf("%w: offset %q", shared.ErrMalformedState, raw)
	}
	return v, nil
}
