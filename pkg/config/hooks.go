package config

import (
	"fmt"
	"io/fs"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-viper/mapstructure/v2"
)

var fileModeType = reflect.TypeOf(fs.FileMode(0))

// fileModeHookFunc decodes permission bits. Strings are octal ("0644",
// "644", "0o644"); numbers are taken as the mode value itself, which is
// what YAML and TOML octal literals produce. Only the 0777 permission bits
// are accepted, and a number such as 644, which can only be octal digits
// written as a decimal, is rejected.
func fileModeHookFunc() mapstructure.DecodeHookFuncType {
	return func(f reflect.Type, t reflect.Type, data interface{}) (interface{}, error) {
		if t != fileModeType {
			return data, nil
		}

		var bits uint64
		isString := false
		switch v := reflect.ValueOf(data); v.Kind() {
		case reflect.String:
			isString = true
			s := strings.TrimPrefix(strings.TrimSpace(v.String()), "0o")
			n, err := strconv.ParseUint(s, 8, 32)
			if err != nil {
				return nil, fmt.Errorf("invalid permissions %q: want an octal number like \"0644\"", v.String())
			}
			bits = n
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			if v.Int() < 0 {
				return nil, fmt.Errorf("invalid permissions %d", v.Int())
			}
			bits = uint64(v.Int())
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			bits = v.Uint()
		case reflect.Float32, reflect.Float64:
			if v.Float() < 0 || v.Float() != float64(uint64(v.Float())) {
				return nil, fmt.Errorf("invalid permissions %v", v.Float())
			}
			bits = uint64(v.Float())
		default:
			return data, nil
		}

		if bits > 0777 {
			if !isString && looksOctal(bits) {
				return nil, fmt.Errorf("invalid permissions %d: octal digits written as a decimal number, quote them (\"0%d\")", bits, bits)
			}
			return nil, fmt.Errorf("invalid permissions %#o: only the 0777 permission bits can be set", bits)
		}
		return fs.FileMode(bits), nil
	}
}

// looksOctal reports whether every decimal digit of n is an octal digit
func looksOctal(n uint64) bool {
	return !strings.ContainsAny(strconv.FormatUint(n, 10), "89")
}

// decoderConfig is shared by every koanf unmarshal in this package
func decoderConfig(result interface{}) *mapstructure.DecoderConfig {
	return &mapstructure.DecoderConfig{
		Result:           result,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			fileModeHookFunc(),
		),
	}
}
