package capability

import (
	"strings"

	"github.com/dokzlo13/huelink/internal/color"
)

// Fields records which state attributes a light reported.
type Fields uint8

const (
	FieldBri Fields = 1 << iota
	FieldHue
	FieldSat
	FieldXY
	FieldCT
)

// Has reports whether every field in f is present.
func (f Fields) Has(o Fields) bool { return f&o == o }

var (
	philipsRange = color.MiredRange{Min: 153, Max: 500}
	tempRange    = color.MiredRange{Min: 153, Max: 454}
	tradfriRange = color.MiredRange{Min: 250, Max: 454}
)

func philipsGamut(name string, g *color.Gamut) Profile {
	return Profile{
		Kind:     KindLight,
		Family:   name,
		Dimmable: true,
		Color: color.Modes{
			Temperature: true,
			XY:          true,
			HueSat:      true,
			Gamut:       g,
			Mired:       philipsRange,
		},
		SaturationMax: 254,
	}
}

var families = map[string]Profile{
	"philips-gamut-a": philipsGamut("philips-gamut-a", &color.GamutA),
	"philips-gamut-b": philipsGamut("philips-gamut-b", &color.GamutB),
	"philips-gamut-c": philipsGamut("philips-gamut-c", &color.GamutC),
	"philips-temperature": {
		Kind:          KindLight,
		Family:        "philips-temperature",
		Dimmable:      true,
		Color:         color.Modes{Temperature: true, Mired: tempRange},
		SaturationMax: 254,
	},
	"generic-dimmable": {
		Kind:     KindLight,
		Family:   "generic-dimmable",
		Dimmable: true,
	},
	"tradfri-temperature": {
		Kind:          KindLight,
		Family:        "tradfri-temperature",
		Dimmable:      true,
		Color:         color.Modes{Temperature: true, Mired: tradfriRange},
		SaturationMax: 255,
	},
	"tradfri-color": {
		Kind:     KindLight,
		Family:   "tradfri-color",
		Dimmable: true,
		Color: color.Modes{
			Temperature: true,
			XY:          true,
			HueSat:      true,
			Mired:       tradfriRange,
		},
		SaturationMax: 255,
	},
	"generic-switchable": {
		Kind:   KindLight,
		Family: "generic-switchable",
	},
}

var models = map[string]string{}

func register(family string, ids ...string) {
	for _, id := range ids {
		models[id] = family
	}
}

func init() {
	register("philips-gamut-a",
		"LLC005", "LLC006", "LLC007", "LLC010", "LLC011", "LLC012", "LLC013", "LLC014", "LST001")
	register("philips-gamut-b",
		"LCT001", "LCT002", "LCT003", "LCT007", "LLM001")
	register("philips-gamut-c",
		"LCT010", "LCT011", "LCT012", "LCT014", "LCT015", "LCT016", "LLC020", "LST002")
	register("philips-temperature",
		"LDT001", "LFF001", "LLM010", "LLM011", "LLM012",
		"LTC001", "LTC002", "LTC003", "LTC004",
		"LTD001", "LTD002", "LTD003", "LTF001", "LTF002",
		"LTP001", "LTP002", "LTP003", "LTP004", "LTP005", "LTT001",
		"LTW001", "LTW004", "LTW010", "LTW011", "LTW012", "LTW013", "LTW014")
	register("generic-dimmable",
		"LWT001", "LDD001", "LDF001", "LDF002",
		"LWB001", "LWB004", "LWB006", "LWB007", "LWB010", "LWB014", "MWM001")
	register("tradfri-temperature",
		"FLOALT panel WS 30x30", "FLOALT panel WS 30x90", "FLOALT panel WS 70x60",
		"TRADFRI bulb E14 WS opal 400lm", "TRADFRI bulb GU10 WS 400lm", "TRADFRI bulb GU10 W 400lm",
		"TRADFRI bulb E27 opal 1000lm", "TRADFRI bulb E27 WS opal 980lm", "TRADFRI bulb E27 W opal 1000lm")
	register("tradfri-color", "TRADFRI bulb E27 CWS opal 600lm")
	register("generic-switchable", "Plug 01", "Plug - LIGHTIFY")
}

// Resolve returns the profile of a light. Known models use the static
// table; everything else is derived from the reported fields.
func Resolve(modelID string, fields Fields) Profile {
	if family, ok := models[modelID]; ok {
		return families[family]
	}

	p := Profile{
		Kind:          KindLight,
		Family:        "auto",
		Dimmable:      fields.Has(FieldBri),
		SaturationMax: 255,
	}
	p.Color.HueSat = fields.Has(FieldHue)
	p.Color.XY = fields.Has(FieldXY)
	p.Color.Temperature = fields.Has(FieldCT)
	if p.Color.Temperature {
		p.Color.Mired = philipsRange
	}
	return p
}

var (
	hueDimmer = []Button{
		{ID: 1, Name: "on", Long: true},
		{ID: 2, Name: "dimUp", Long: true},
		{ID: 3, Name: "dimDown", Long: true},
		{ID: 4, Name: "off", Long: true},
	}
	lumiSwitch = []Button{
		{ID: 1, Name: "main", Long: true},
	}
	tradfriDimmer = []Button{
		{ID: 1, Name: "on", Long: true},
		{ID: 2, Name: "dimUp", Long: true},
		{ID: 3, Name: "dimDown", Long: true},
		{ID: 4, Name: "off", Long: true},
	}
	tradfriRemote = []Button{
		{ID: 1, Name: "onOff"},
		{ID: 2, Name: "dimUp"},
		{ID: 3, Name: "dimDown"},
		{ID: 4, Name: "previous"},
		{ID: 5, Name: "next"},
	}
)

// cubeRotationEndpoint is the unique id suffix of the rotation half of a cube.
const cubeRotationEndpoint = "-03-000c"

// ResolveSensor classifies a sensor. Sensors that no adapter understands
// report false.
func ResolveSensor(sensorType, modelID, uniqueID string) (Profile, bool) {
	switch sensorType {
	case "ZLLSwitch", "ZHASwitch", "ZGPSwitch":
		switch {
		case modelID == "RWL020" || modelID == "RWL021":
			return controller("hue-dimmer", hueDimmer), true
		case modelID == "lumi.sensor_switch" || modelID == "lumi.sensor_switch.aq2":
			return controller("lumi-switch", lumiSwitch), true
		case modelID == "TRADFRI wireless dimmer":
			return controller("tradfri-dimmer", tradfriDimmer), true
		case modelID == "TRADFRI remote control":
			return controller("tradfri-remote", tradfriRemote), true
		case modelID == "ZGPSWITCH":
			return Profile{Kind: KindTap, Family: "hue-tap"}, true
		case strings.HasPrefix(modelID, "lumi.sensor_cube"):
			if strings.HasSuffix(strings.ToLower(uniqueID), cubeRotationEndpoint) {
				return Profile{Kind: KindCubeRotation, Family: "lumi-cube"}, true
			}
			return Profile{Kind: KindCube, Family: "lumi-cube"}, true
		}
	case "ZLLPresence", "ZHAPresence":
		return Profile{Kind: KindMotion, Family: "motion"}, true
	case "ZLLTemperature", "ZHATemperature":
		return Profile{Kind: KindTemperature, Family: "temperature"}, true
	case "ZLLHumidity", "ZHAHumidity":
		return Profile{Kind: KindHumidity, Family: "humidity"}, true
	case "ZLLLightLevel", "ZHALightLevel":
		return Profile{Kind: KindLightLevel, Family: "light-level"}, true
	}
	return Profile{}, false
}

func controller(family string, buttons []Button) Profile {
	return Profile{Kind: KindController, Family: family, Buttons: buttons}
}
