// Package username derives unique, sanitized usernames for new accounts.
package username

import (
	"fmt"
	"math/rand"
	"regexp"
	"strings"
	"time"
)

const maxAttempts = 10

var adjectives = [...]string{
	"brave", "calm", "clever", "eager", "gentle",
	"happy", "lucky", "mighty", "quiet", "swift",
}

var nouns = [...]string{
	"falcon", "otter", "panda", "tiger", "raven",
	"dolphin", "badger", "maple", "comet", "harbor",
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// Generator produces username candidates and reconciles them against an
// existence check. Randomness and the clock are injected so tests can be
// deterministic.
type Generator struct {
	rng        *rand.Rand
	now        func() time.Time
	onFallback func()
}

// NewGenerator returns a Generator backed by rng. A nil rng gets a
// time-seeded source; now defaults to time.Now when nil.
func NewGenerator(rng *rand.Rand, now func() time.Time) *Generator {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if now == nil {
		now = time.Now
	}
	return &Generator{rng: rng, now: now}
}

// OnFallback registers fn to be called each time UniqueFrom exhausts
// its attempts and resorts to the timestamp form. A nil fn clears the
// hook.
func (g *Generator) OnFallback(fn func()) {
	g.onFallback = fn
}

// FromDisplayName derives a candidate base from a display name: the
// first one or two whitespace tokens, lowercased, with every run of
// non-alphanumeric characters collapsed to a single underscore. Bases
// shorter than two characters fall back to "user". Bases are never
// truncated, so a long display name yields a username past the
// 20-character limit the request schema puts on caller-chosen
// usernames; that limit applies only at the API edge.
func (g *Generator) FromDisplayName(name string) string {
	tokens := strings.Fields(name)
	if len(tokens) > 2 {
		tokens = tokens[:2]
	}
	base := strings.ToLower(strings.Join(tokens, "_"))
	base = nonAlnum.ReplaceAllString(base, "_")
	base = strings.Trim(base, "_")
	if len(base) < 2 {
		return "user"
	}
	return base
}

// Random returns an adjective_noun base drawn uniformly from two fixed
// ten-word lists.
func (g *Generator) Random() string {
	return adjectives[g.rng.Intn(len(adjectives))] + "_" + nouns[g.rng.Intn(len(nouns))]
}

// UniqueFrom appends a random four-digit suffix to base and checks the
// result with exists, drawing a fresh suffix on collision. After ten
// colliding attempts it falls back to "user_<unix-timestamp>". The
// fallback is not re-checked for uniqueness; the residual collision is
// accepted and left to the storage layer's unique index.
func (g *Generator) UniqueFrom(base string, exists func(string) bool) string {
	for i := 0; i < maxAttempts; i++ {
		candidate := fmt.Sprintf("%s_%04d", base, g.rng.Intn(10000))
		if !exists(candidate) {
			return candidate
		}
	}
	if g.onFallback != nil {
		g.onFallback()
	}
	return fmt.Sprintf("user_%d", g.now().Unix())
}
