package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
)

// EnvPrefix prefixes every environment variable name
const EnvPrefix = "EVENTSOURCE"

// LoadEnv overrides cfg from environment variables. Names are derived from
// yaml tags: stream.url becomes EVENTSOURCE_STREAM_URL.
func LoadEnv(cfg *Config) error {
	return loadEnvStruct(reflect.ValueOf(cfg).Elem(), EnvPrefix)
}

func envKey(prefix string, field reflect.StructField) (string, bool) {
	tag := field.Tag.Get("yaml")
	if tag == "" || tag == "-" {
		return "", false
	}
	name := strings.Split(tag, ",")[0]
	return prefix + "_" + strings.ToUpper(name), true
}

func loadEnvStruct(v reflect.Value, prefix string) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		if !field.CanSet() {
			continue
		}
		key, ok := envKey(prefix, t.Field(i))
		if !ok {
			continue
		}

		switch field.Kind() {
		case reflect.Struct:
			if err := loadEnvStruct(field, key); err != nil {
				return err
			}

		case reflect.Ptr:
			if field.IsNil() {
				if !hasEnvVarsWithPrefix(key) {
					continue
				}
				field.Set(reflect.New(field.Type().Elem()))
			}
			if err := loadEnvStruct(field.Elem(), key); err != nil {
				return err
			}

		default:
			val, ok := os.LookupEnv(key)
			if !ok {
				continue
			}
			if err := setField(field, key, val); err != nil {
				return err
			}
		}
	}

	return nil
}

func setField(field reflect.Value, key, val string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(val)

	case reflect.Int, reflect.Int64:
		n, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid int value for %s: %v", key, err)
		}
		field.SetInt(n)

	case reflect.Float64:
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return fmt.Errorf("invalid float value for %s: %v", key, err)
		}
		field.SetFloat(f)

	case reflect.Bool:
		b, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("invalid bool value for %s: %v", key, err)
		}
		field.SetBool(b)

	case reflect.Slice:
		// comma-separated strings
		if field.Type().Elem().Kind() != reflect.String {
			return nil
		}
		parts := strings.Split(val, ",")
		slice := reflect.MakeSlice(field.Type(), len(parts), len(parts))
		for i, part := range parts {
			slice.Index(i).SetString(strings.TrimSpace(part))
		}
		field.Set(slice)

	case reflect.Map:
		// comma-separated key=value pairs
		if field.Type().Key().Kind() != reflect.String || field.Type().Elem().Kind() != reflect.String {
			return nil
		}
		m := reflect.MakeMap(field.Type())
		for _, pair := range strings.Split(val, ",") {
			k, v, ok := strings.Cut(pair, "=")
			if !ok {
				return fmt.Errorf("invalid map entry for %s: %q", key, pair)
			}
			m.SetMapIndex(reflect.ValueOf(strings.TrimSpace(k)), reflect.ValueOf(strings.TrimSpace(v)))
		}
		field.Set(m)
	}
	return nil
}

func hasEnvVarsWithPrefix(prefix string) bool {
	prefix = prefix + "_"
	for _, env := range os.Environ() {
		if strings.HasPrefix(env, prefix) {
			return true
		}
	}
	return false
}

// EnvExample lists an example assignment for every supported variable
func EnvExample(cfg *Config) []string {
	var examples []string
	generateEnvExamples(reflect.TypeOf(cfg).Elem(), EnvPrefix, &examples)
	return examples
}

func generateEnvExamples(t reflect.Type, prefix string, examples *[]string) {
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		key, ok := envKey(prefix, field)
		if !ok {
			continue
		}

		switch field.Type.Kind() {
		case reflect.String:
			*examples = append(*examples, key+"=value")
		case reflect.Int, reflect.Int64:
			*examples = append(*examples, key+"=123")
		case reflect.Float64:
			*examples = append(*examples, key+"=1.5")
		case reflect.Bool:
			*examples = append(*examples, key+"=true")
		case reflect.Slice:
			if field.Type.Elem().Kind() == reflect.String {
				*examples = append(*examples, key+"=value1,value2")
			}
		case reflect.Map:
			*examples = append(*examples, key+"=Key1=value1,Key2=value2")
		case reflect.Struct:
			generateEnvExamples(field.Type, key, examples)
		case reflect.Ptr:
			if field.Type.Elem().Kind() == reflect.Struct {
				generateEnvExamples(field.Type.Elem(), key, examples)
			}
		}
	}
}
