// Package capability resolves which features a bridge device offers from
// its model identifier and, for unknown models, from the fields it
// reports.
package capability

import (
	"github.com/dokzlo13/huelink/internal/color"
)

// Kind selects the adapter variant that manages a device.
type Kind int

const (
	KindLight Kind = iota + 1
	KindController
	KindTap
	KindCube
	KindCubeRotation
	KindMotion
	KindTemperature
	KindHumidity
	KindLightLevel
)

func (k Kind) String() string {
	switch k {
	case KindLight:
		return "light"
	case KindController:
		return "controller"
	case KindTap:
		return "tap"
	case KindCube:
		return "cube"
	case KindCubeRotation:
		return "cube-rotation"
	case KindMotion:
		return "motion"
	case KindTemperature:
		return "temperature"
	case KindHumidity:
		return "humidity"
	case KindLightLevel:
		return "light-level"
	default:
		return "unknown"
	}
}

// Class summarizes what a light can do.
type Class int

const (
	ClassPowerOnly Class = iota
	ClassDimmable
	ClassTemperature
	ClassColor
	ClassExtendedColor
)

func (c Class) String() string {
	switch c {
	case ClassPowerOnly:
		return "power-only"
	case ClassDimmable:
		return "dimmable"
	case ClassTemperature:
		return "color-temperature"
	case ClassColor:
		return "color"
	case ClassExtendedColor:
		return "extended-color"
	default:
		return "unknown"
	}
}

// Button maps a controller button number to its action name.
type Button struct {
	ID   int
	Name string
	Long bool
}

// Profile is the immutable capability set of a device.
type Profile struct {
	Kind          Kind
	Family        string
	Dimmable      bool
	Color         color.Modes
	SaturationMax uint8
	Buttons       []Button
}

// Class returns the light class of the profile.
func (p Profile) Class() Class {
	full := p.Color.XY || p.Color.HueSat
	switch {
	case full && p.Color.Temperature:
		return ClassExtendedColor
	case full:
		return ClassColor
	case p.Color.Temperature:
		return ClassTemperature
	case p.Dimmable:
		return ClassDimmable
	default:
		return ClassPowerOnly
	}
}

// Button returns the mapping for a button number.
func (p Profile) Button(id int) (Button, bool) {
	for _, b := range p.Buttons {
		if b.ID == id {
			return b, true
		}
	}
	return Button{}, false
}

// Actions lists every action name the device can emit.
func (p Profile) Actions() []string {
	switch p.Kind {
	case KindController:
		var out []string
		for _, b := range p.Buttons {
			out = append(out, b.Name+"-click")
			if b.Long {
				out = append(out, b.Name+"-long-press", b.Name+"-long-release")
			}
		}
		return out
	case KindTap:
		return []string{"one-click", "two-click", "three-click", "four-click"}
	case KindCube:
		out := []string{"wake", "shake", "slide", "double-tap", "flip"}
		for _, side := range CubeSides {
			out = append(out, side+"-slide", side+"-double-tap", side+"-flip")
		}
		return out
	case KindCubeRotation:
		return []string{"rotation", "rotation-left", "rotation-right"}
	default:
		return nil
	}
}

// CubeSides names the faces of a cube controller, indexed by face number - 1.
var CubeSides = []string{"side-one", "side-two", "side-three", "side-four", "side-five", "side-six"}
