package persistence

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/heartware/timetable-sync/modules/timetable/domain"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// LoadSchema overlays a descriptor file on the built-in schema. Fields absent from
// the file keep their defaults. Files ending in .toml are read as TOML, anything
// else as YAML. Unknown keys are rejected in both formats.
func LoadSchema(path string) (domain.Schema, error) {
	schema := domain.DefaultSchema()
	if path == "" {
		return schema, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return domain.Schema{}, err
	}
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		err = decodeTOML(b, &schema)
	} else {
		err = decodeYAML(b, &schema)
	}
	if err != nil {
		return domain.Schema{}, fmt.Errorf("decode %s: %w", path, err)
	}
	if err := CheckSchema(schema); err != nil {
		return domain.Schema{}, fmt.Errorf("%s: %w", path, err)
	}
	return schema, nil
}

func decodeYAML(b []byte, schema *domain.Schema) error {
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(schema); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func decodeTOML(b []byte, schema *domain.Schema) error {
	md, err := toml.Decode(string(b), schema)
	if err != nil {
		return err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	return nil
}

// CheckSchema validates tags, column relations and positional widths.
func CheckSchema(s domain.Schema) error {
	if err := validate.Struct(s); err != nil {
		return err
	}
	defaults := domain.DefaultSchema().Tables()
	for i, d := range s.Tables() {
		if err := d.Check(); err != nil {
			return err
		}
		if want := len(defaults[i].Columns); len(d.Columns) != want {
			return fmt.Errorf("%s: expected %d columns, got %d", d.Table, want, len(d.Columns))
		}
	}
	return nil
}
