package back

import (
	"math/rand"
	"time"
)

type (
	// IDs maps original names to generated identifiers.
	// Generated identifiers are unique across the whole output.
	IDs struct {
		rnd *rand.Rand

		ids  map[string]string
		used map[string]string // generated -> original
	}
)

const letters = "abcdefghijklmnopqrstuvwxyz"

// NewIDs creates a generator. Zero seed means time based.
func NewIDs(seed int64) *IDs {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	return &IDs{
		rnd:  rand.New(rand.NewSource(seed)),
		ids:  make(map[string]string),
		used: make(map[string]string),
	}
}

// ID returns the identifier generated for name, generating it on first use.
func (g *IDs) ID(name string) string {
	if id, ok := g.ids[name]; ok {
		return id
	}

	id := g.generate(name)

	g.ids[name] = id
	g.used[id] = name

	return id
}

// Original returns the name id was generated for.
func (g *IDs) Original(id string) (string, bool) {
	name, ok := g.used[id]
	return name, ok
}

func (g *IDs) Len() int { return len(g.ids) }

func (g *IDs) generate(name string) string {
	b := make([]byte, 0, len(name)+4)

	for i := 0; i < len(name); i++ {
		if c := name[i]; idChar(c) {
			b = append(b, c)
		}
	}

	if len(b) != 0 && b[0] >= '0' && b[0] <= '9' {
		b = append([]byte{'$'}, b...) // identifiers can't start with a digit
	}

	b = append(b, '$')

	for {
		b = append(b, letters[g.rnd.Intn(len(letters))])

		if _, ok := g.used[string(b)]; !ok {
			return string(b)
		}
	}
}

func idChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '$'
}
