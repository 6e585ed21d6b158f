// Package gain provides a static gain stage which can be shared by
// several streams.
package gain

import (
	"sync"

	"github.com/chewxy/math32"
)

// Gain multiplies every sample with a factor given in dB.
type Gain struct {
	sync.RWMutex
	db     float32
	factor float32
}

// New returns a Gain stage with the given gain in dB.
func New(db float32) *Gain {
	g := &Gain{}
	g.SetDB(db)
	return g
}

// SetDB changes the gain.
func (g *Gain) SetDB(db float32) {
	g.Lock()
	defer g.Unlock()
	g.db = db
	g.factor = DBToFactor(db)
}

// DB returns the current gain in dB.
func (g *Gain) DB() float32 {
	g.RLock()
	defer g.RUnlock()
	return g.db
}

func (g *Gain) Process(dst, src []float32) {
	g.RLock()
	f := g.factor
	g.RUnlock()

	for i, v := range src {
		dst[i] = v * f
	}
}

// DBToFactor converts a gain in dB into a linear amplitude factor.
func DBToFactor(db float32) float32 {
	return math32.Pow(10, db/20)
}
