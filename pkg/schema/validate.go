package schema

import "sort"

// Schema maps field names to their expected types.
type Schema map[string]Type

// Keys returns the field names in sorted order.
func (s Schema) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Validate checks every field of schema against data. Fields are visited in
// sorted order so the reported errors are stable.
func Validate(schema Schema, data map[string]any) error {
	return ValidateAt("", schema, data)
}

// ValidateAt is Validate with every reported key prefixed by path.
func ValidateAt(path string, schema Schema, data map[string]any) error {
	var errs []error
	for _, name := range schema.Keys() {
		if err := check(path, name, schema[name], data); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return &AggregateError{Errors: errs}
	}
	return nil
}

// ValidateFields validates only the named fields. A field missing from the
// schema is reported like any other failure.
func ValidateFields(schema Schema, data map[string]any, fields ...string) error {
	var errs []error
	for _, name := range fields {
		typ, ok := schema[name]
		if !ok {
			errs = append(errs, &ValidationError{Key: name, Reason: "not defined in schema"})
			continue
		}
		if err := check("", name, typ, data); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return &AggregateError{Errors: errs}
	}
	return nil
}

func check(path, name string, typ Type, data map[string]any) error {
	key := name
	if path != "" {
		key = path + "." + name
	}
	value, exists := data[name]
	if !exists {
		return &ValidationError{Key: key, Reason: ReasonRequired}
	}
	if err := typ.Validate(value); err != nil {
		return &ValidationError{Key: key, Reason: err.Error(), Value: value}
	}
	return nil
}
