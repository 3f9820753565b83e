// Package pathwalk resolves dotted field/index paths against a trigger
// context. It navigates named fields and array indices only; it never
// evaluates code, so rule-supplied templates cannot execute anything.
package pathwalk

import (
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var pathExpr = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\[[0-9]+\])*(\.[A-Za-z_][A-Za-z0-9_]*(\[[0-9]+\])*)+$`)

// IsPathExpression reports whether template looks like a dotted path into
// the context rather than a literal value.
func IsPathExpression(template string) bool {
	return pathExpr.MatchString(template)
}

// Resolve walks path against root and renders the reached value as a
// string. Any navigation failure returns an error; callers fall back to the
// literal template.
func Resolve(root any, path string) (string, error) {
	current := root
	for _, segment := range strings.Split(path, ".") {
		name, indices, err := splitSegment(segment)
		if err != nil {
			return "", err
		}
		current, err = field(current, name)
		if err != nil {
			return "", err
		}
		for _, idx := range indices {
			current, err = index(current, idx)
			if err != nil {
				return "", err
			}
		}
	}
	return render(current)
}

func splitSegment(segment string) (string, []int, error) {
	open := strings.IndexByte(segment, '[')
	if open < 0 {
		return segment, nil, nil
	}
	name := segment[:open]
	var indices []int
	rest := segment[open:]
	for rest != "" {
		if rest[0] != '[' {
			return "", nil, fmt.Errorf("malformed index in segment %q", segment)
		}
		close := strings.IndexByte(rest, ']')
		if close < 0 {
			return "", nil, fmt.Errorf("unterminated index in segment %q", segment)
		}
		idx, err := strconv.Atoi(rest[1:close])
		if err != nil {
			return "", nil, fmt.Errorf("non-numeric index in segment %q", segment)
		}
		indices = append(indices, idx)
		rest = rest[close+1:]
	}
	return name, indices, nil
}

func field(value any, name string) (any, error) {
	if value == nil {
		return nil, fmt.Errorf("cannot read field %q of nil", name)
	}
	switch m := value.(type) {
	case map[string]any:
		v, ok := m[name]
		if !ok {
			return nil, fmt.Errorf("field %q not present", name)
		}
		return v, nil
	case map[string]string:
		v, ok := m[name]
		if !ok {
			return nil, fmt.Errorf("field %q not present", name)
		}
		return v, nil
	}

	rv := reflect.ValueOf(value)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, fmt.Errorf("cannot read field %q of nil pointer", name)
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Map:
		// Event and similar named map types land here.
		if rv.Type().Key().Kind() != reflect.String {
			return nil, fmt.Errorf("unsupported map key type for field %q", name)
		}
		v := rv.MapIndex(reflect.ValueOf(name))
		if !v.IsValid() {
			return nil, fmt.Errorf("field %q not present", name)
		}
		return v.Interface(), nil
	case reflect.Struct:
		f := rv.FieldByName(name)
		if !f.IsValid() || !f.CanInterface() {
			return nil, fmt.Errorf("field %q not present", name)
		}
		return f.Interface(), nil
	default:
		return nil, fmt.Errorf("cannot read field %q of %s", name, rv.Kind())
	}
}

func index(value any, idx int) (any, error) {
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, fmt.Errorf("cannot index into %s", rv.Kind())
	}
	if idx < 0 || idx >= rv.Len() {
		return nil, fmt.Errorf("index %d out of range (len %d)", idx, rv.Len())
	}
	return rv.Index(idx).Interface(), nil
}

func render(value any) (string, error) {
	switch v := value.(type) {
	case nil:
		return "", fmt.Errorf("path resolved to nil")
	case string:
		return v, nil
	case bool:
		return strconv.FormatBool(v), nil
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case time.Time:
		return v.Format(time.RFC3339), nil
	default:
		rv := reflect.ValueOf(value)
		switch rv.Kind() {
		case reflect.String:
			return rv.String(), nil
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return strconv.FormatInt(rv.Int(), 10), nil
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			return strconv.FormatUint(rv.Uint(), 10), nil
		case reflect.Float32, reflect.Float64:
			return strconv.FormatFloat(rv.Float(), 'f', -1, 64), nil
		}
		return "", fmt.Errorf("path resolved to non-scalar %T", value)
	}
}
