package components

import "github.com/pthm-cable/trek/config"

// Body holds physical properties of an entity.
type Body struct {
	Radius float64
	Speed  float64
}

// BodyFromConfig returns a body with the configured agent defaults.
// Zero overrides keep the defaults.
func BodyFromConfig(radius, speed float64) Body {
	cfg := config.Cfg().Agent
	b := Body{Radius: cfg.Radius, Speed: cfg.Speed}
	if radius > 0 {
		b.Radius = radius
	}
	if speed > 0 {
		b.Speed = speed
	}
	return b
}
