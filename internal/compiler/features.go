package compiler

import (
	"fmt"
	"slices"
)

// Features maps feature names to their NFO feature byte.
var Features = map[string]byte{
	"trains":        0x00,
	"roadvehs":      0x01,
	"ships":         0x02,
	"aircraft":      0x03,
	"stations":      0x04,
	"canals":        0x05,
	"bridges":       0x06,
	"houses":        0x07,
	"globalvars":    0x08,
	"industrytiles": 0x09,
	"industries":    0x0A,
	"cargos":        0x0B,
	"sounds":        0x0C,
	"airports":      0x0D,
	"signals":       0x0E,
	"objects":       0x0F,
	"railtypes":     0x10,
	"airporttiles":  0x11,
}

// FeatureByName looks up a feature byte.
func FeatureByName(name string) (byte, error) {
	f, ok := Features[name]
	if !ok {
		return 0, fmt.Errorf("unknown feature %q, must be one of: %v", name, FeatureNames())
	}
	return f, nil
}

// FeatureNames returns the known feature names sorted by feature byte.
func FeatureNames() []string {
	names := make([]string, 0, len(Features))
	for name := range Features {
		names = append(names, name)
	}
	slices.SortFunc(names, func(a, b string) int {
		return int(Features[a]) - int(Features[b])
	})
	return names
}
