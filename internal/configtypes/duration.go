package configtypes

import (
	"encoding/json"
	"reflect"
	"time"

	"github.com/go-viper/mapstructure/v2"
)

// Duration is a time.Duration which reads from human friendly strings
// like "25s" in config files and marshals back to the same form in
// every format the defaultconfig command generates.
type Duration time.Duration

func (d Duration) String() string {
	return time.Duration(d).String()
}

// ToDuration converts to time.Duration.
func (d Duration) ToDuration() time.Duration {
	return time.Duration(d)
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// MarshalText makes TOML encoding emit duration strings.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// MarshalYAML makes YAML encoding emit duration strings.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// StringToDurationHookFunc decodes duration strings into Duration
// values during config unmarshaling.
func StringToDurationHookFunc() mapstructure.DecodeHookFunc {
	durationType := reflect.TypeOf(Duration(0))
	return func(f reflect.Type, t reflect.Type, data interface{}) (interface{}, error) {
		if f.Kind() != reflect.String || t != durationType {
			return data, nil
		}
		return time.ParseDuration(data.(string))
	}
}
