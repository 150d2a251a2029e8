package material

import "github.com/polaris-rt/pathtracer/types"

// Indices of refraction for common media.
var KnownIORs = map[string]float32{
	"Vacuum":  1.0,
	"Air":     1.0003,
	"Ice":     1.31,
	"Water":   1.333,
	"Acrylic": 1.49,
	"Glass":   1.5,
	"Crystal": 2.0,
	"Diamond": 2.42,
}

var (
	DefaultAlbedo            = types.Vec3{0.5, 0.5, 0.5}
	DefaultRoughness float32 = 0.1
	DefaultIOR               = KnownIORs["Glass"]
	DefaultPower     float32 = 1.0
)
