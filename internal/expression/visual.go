package expression

import (
	"github.com/normanking/cortexmascot/internal/color"
)

// Point is a 2D position in screen pixels
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Transform is the body transform applied on top of the layout position
type Transform struct {
	Rotate     float64 `json:"rotate"`  // degrees
	RotateY    float64 `json:"rotateY"` // degrees, 3D turn
	ScaleX     float64 `json:"scaleX"`
	ScaleY     float64 `json:"scaleY"`
	TranslateY float64 `json:"translateY"`
}

// NeutralTransform is the resting transform
func NeutralTransform() Transform {
	return Transform{ScaleX: 1, ScaleY: 1}
}

// IsNeutral reports whether t is the resting transform
func (t Transform) IsNeutral() bool {
	return t == NeutralTransform()
}

// Visual is the avatar's single shared visual target. The engine owns the
// only mutable instance; everything else sees copies.
type Visual struct {
	State        State     `json:"state"`
	Mouth        string    `json:"mouth"`
	EyeClass     string    `json:"eyeClass"`
	CheekClass   string    `json:"cheekClass"`
	BodyClass    string    `json:"bodyClass"`
	BrowClass    string    `json:"browClass"`
	BodyModifier string    `json:"bodyModifier,omitempty"`
	ArmWave      bool      `json:"armWave"`
	Blinking     bool      `json:"blinking"`
	Gaze         Point     `json:"gaze"`
	Behavior     string    `json:"behavior,omitempty"`
	Transform    Transform `json:"transform"`
	Position     Point     `json:"position"`
	Floating     bool      `json:"floating"`
	Dragging     bool      `json:"dragging"`
	Talking      bool      `json:"talking"`
	Colors       color.Set `json:"colors"`
}

// NewVisual returns an idle visual at pos
func NewVisual(pos Point, colors color.Set) Visual {
	v := Visual{
		Position:  pos,
		Transform: NeutralTransform(),
		Floating:  true,
		Colors:    colors,
	}
	Render(MustLookup(StateIdle), &v, false)
	return v
}

// Render applies def to v. When keepMouth is set the mouth geometry is left
// to its current owner (the talking animation); every class still applies.
func Render(def Definition, v *Visual, keepMouth bool) {
	v.State = def.State
	if !keepMouth {
		v.Mouth = def.Mouth
	}
	v.EyeClass = def.EyeClass
	v.CheekClass = def.CheekClass
	v.BodyClass = def.BodyClass
	v.BrowClass = def.BrowClass
	v.BodyModifier = def.BodyModifier
	v.ArmWave = def.ArmWave
}
