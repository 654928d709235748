package config

import (
	"encoding"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/coral-mesh/hxgrep/internal/errors"
)

var textUnmarshalerType = reflect.TypeOf((*encoding.TextUnmarshaler)(nil)).Elem()

// LoadFromEnv loads configuration values from environment variables.
// It uses the `env` struct tag to determine which environment variable to read.
// This function recursively processes nested structs.
func LoadFromEnv(cfg any) error {
	return loadFromEnv(reflect.ValueOf(cfg))
}

// loadFromEnv recursively loads environment variables into a config struct.
func loadFromEnv(v reflect.Value) error {
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil
	}

	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		if !field.CanSet() {
			continue
		}

		envTag := fieldType.Tag.Get("env")
		if field.Kind() == reflect.Struct && envTag == "" {
			if err := loadFromEnv(field); err != nil {
				return err
			}
			continue
		}
		if envTag == "" {
			continue
		}

		envValue, ok := os.LookupEnv(envTag)
		if !ok || (envValue == "" && field.Kind() != reflect.String) {
			continue
		}

		if err := setFieldValue(field, envValue, envTag); err != nil {
			return err
		}
	}

	return nil
}

// setFieldValue sets a field value from a string environment variable.
func setFieldValue(field reflect.Value, value string, envVar string) error {
	invalid := func(kind string) error {
		return &errors.ConfigError{Field: envVar, Value: value, Msg: "not a valid " + kind}
	}

	if field.CanAddr() && field.Addr().Type().Implements(textUnmarshalerType) {
		u := field.Addr().Interface().(encoding.TextUnmarshaler)
		if err := u.UnmarshalText([]byte(value)); err != nil {
			return &errors.ConfigError{Field: envVar, Value: value, Msg: err.Error()}
		}
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			duration, err := time.ParseDuration(value)
			if err != nil {
				return invalid("duration")
			}
			field.SetInt(int64(duration))
		} else {
			intVal, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return invalid("integer")
			}
			field.SetInt(intVal)
		}

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		uintVal, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return invalid("unsigned integer")
		}
		field.SetUint(uintVal)

	case reflect.Bool:
		boolVal, err := strconv.ParseBool(value)
		if err != nil {
			return invalid("boolean")
		}
		field.SetBool(boolVal)

	case reflect.Float32, reflect.Float64:
		floatVal, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return invalid("float")
		}
		field.SetFloat(floatVal)

	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return &errors.ConfigError{Field: envVar, Msg: "unsupported slice type"}
		}
		values := strings.Split(value, ",")
		for i, v := range values {
			values[i] = strings.TrimSpace(v)
		}
		field.Set(reflect.ValueOf(values))

	default:
		return &errors.ConfigError{Field: envVar, Msg: "unsupported type " + field.Kind().String()}
	}

	return nil
}

// MergeFromEnv merges environment variables into an existing config.
// This is a convenience wrapper around LoadFromEnv.
func MergeFromEnv(cfg any) error {
	return LoadFromEnv(cfg)
}
