package builtin

import "github.com/go-viper/mapstructure/v2"

// decode maps a manifest-supplied config blob onto a typed struct using the
// same mapstructure tags internal/config relies on for viper decoding.
func decode(cfg map[string]any, out any) error {
	return mapstructure.Decode(cfg, out)
}
