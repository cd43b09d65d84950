package processor

import "strings"

// Preset is a named display window tuned for an anatomical region or
// acquisition type.
type Preset struct {
	Name   string
	Width  float64
	Center float64
}

// Window presets for common anatomical regions. CT values are in
// Hounsfield units; MR values are in raw stored units.
var presets = map[string]Preset{
	"lung":         {Name: "Lung", Width: 1500, Center: -600},
	"bone":         {Name: "Bone", Width: 2000, Center: 300},
	"soft_tissue":  {Name: "Soft Tissue", Width: 400, Center: 40},
	"brain":        {Name: "Brain", Width: 100, Center: 50},
	"abdomen":      {Name: "Abdomen", Width: 350, Center: 50},
	"liver":        {Name: "Liver", Width: 150, Center: 30},
	"mediastinum":  {Name: "Mediastinum", Width: 350, Center: 50},
	"spine":        {Name: "Spine", Width: 400, Center: 50},
	"pelvis":       {Name: "Pelvis", Width: 400, Center: 50},
	"mr_t1":        {Name: "MR T1", Width: 600, Center: 300},
	"mr_t2":        {Name: "MR T2", Width: 4000, Center: 2000},
	"mr_flair":     {Name: "MR FLAIR", Width: 2000, Center: 1000},
	"default":      {Name: "Default", Width: 2000, Center: 1000},
	"full_dynamic": {Name: "Full Dynamic Range", Width: 4096, Center: 2048},
}

// LookupPreset returns the preset registered under the given name.
// Lookup is case-insensitive.
func LookupPreset(name string) (Preset, bool) {
	p, ok := presets[strings.ToLower(name)]
	return p, ok
}

// PresetForModality returns the fallback preset for a modality when a
// record declares no display window of its own.
func PresetForModality(modality string) Preset {
	switch strings.ToUpper(modality) {
	case "CT":
		return presets["soft_tissue"]
	case "MR":
		return presets["mr_t1"]
	default:
		return presets["default"]
	}
}
