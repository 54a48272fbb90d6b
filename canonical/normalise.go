package canonical

import (
	"encoding"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"aibom.dev/ledger/bomerr"
)

var (
	jsonMarshaler = reflect.TypeOf((*json.Marshaler)(nil)).Elem()
	textMarshaler = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()
	numberType    = reflect.TypeOf(json.Number(""))
)

// Normalise converts v into a generic JSON tree of map[string]any, []any,
// string, bool, nil and json.Number.
//
// Go floats become float literals ("1.0", "1e16") and Go integers integer
// literals, so a float that happens to be integral keeps its float form.
// encoding/json would render float64(1) as "1". Values that implement
// json.Marshaler or encoding.TextMarshaler are rendered by encoding/json.
func Normalise(v any) (any, error) {
	return normaliseValue(reflect.ValueOf(v))
}

func normaliseValue(rv reflect.Value) (any, error) {
	if !rv.IsValid() {
		return nil, nil
	}
	if rv.Type() == numberType {
		return json.Number(rv.String()), nil
	}
	if rv.Kind() != reflect.Pointer && rv.Kind() != reflect.Interface &&
		(rv.Type().Implements(jsonMarshaler) || rv.Type().Implements(textMarshaler)) {
		return viaJSON(rv.Interface())
	}

	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil, nil
		}
		if rv.Kind() == reflect.Pointer && (rv.Type().Implements(jsonMarshaler) || rv.Type().Implements(textMarshaler)) {
			return viaJSON(rv.Interface())
		}
		return normaliseValue(rv.Elem())
	case reflect.Bool:
		return rv.Bool(), nil
	case reflect.String:
		return rv.String(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return json.Number(strconv.FormatInt(rv.Int(), 10)), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return json.Number(strconv.FormatUint(rv.Uint(), 10)), nil
	case reflect.Float32, reflect.Float64:
		bits := 64
		if rv.Kind() == reflect.Float32 {
			bits = 32
		}
		s, err := formatFloat(rv.Float(), bits)
		if err != nil {
			return nil, err
		}
		return json.Number(s), nil
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return viaJSON(rv.Interface())
		}
		if rv.IsNil() {
			return nil, nil
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			e, err := normaliseValue(iter.Value())
			if err != nil {
				return nil, err
			}
			out[iter.Key().String()] = e
		}
		return out, nil
	case reflect.Slice:
		if rv.IsNil() {
			return nil, nil
		}
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return viaJSON(rv.Interface())
		}
		fallthrough
	case reflect.Array:
		out := make([]any, rv.Len())
		for i := range out {
			e, err := normaliseValue(rv.Index(i))
			if err != nil {
				return nil, err
			}
			out[i] = e
		}
		return out, nil
	case reflect.Struct:
		return normaliseStruct(rv)
	default:
		return nil, bomerr.New(bomerr.KindEncoding, bomerr.RuleEncodeValue, fmt.Sprintf("unsupported value of type %s", rv.Type()))
	}
}

// normaliseStruct follows encoding/json field naming: the tag name, "-" to
// skip and omitempty. Embedded fields and the ",string" option are left to
// encoding/json.
func normaliseStruct(rv reflect.Value) (any, error) {
	t := rv.Type()
	out := make(map[string]any, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.Anonymous {
			return viaJSON(rv.Interface())
		}
		if !f.IsExported() {
			continue
		}
		tag := f.Tag.Get("json")
		if tag == "-" {
			continue
		}
		name, opts, _ := strings.Cut(tag, ",")
		if hasOption(opts, "string") {
			return viaJSON(rv.Interface())
		}
		if name == "" {
			name = f.Name
		}
		fv := rv.Field(i)
		if hasOption(opts, "omitempty") && isEmpty(fv) {
			continue
		}
		e, err := normaliseValue(fv)
		if err != nil {
			return nil, err
		}
		out[name] = e
	}
	return out, nil
}

func hasOption(opts, want string) bool {
	for opts != "" {
		var o string
		o, opts, _ = strings.Cut(opts, ",")
		if o == want {
			return true
		}
	}
	return false
}

func isEmpty(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Array, reflect.Map, reflect.Slice, reflect.String:
		return v.Len() == 0
	case reflect.Bool:
		return !v.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	case reflect.Interface, reflect.Pointer:
		return v.IsNil()
	}
	return false
}

func viaJSON(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, bomerr.Wrap(bomerr.KindEncoding, bomerr.RuleEncodeValue, "value is not JSON-encodable", err)
	}
	return decode(raw)
}

// formatFloat renders f as the shortest round-tripping literal in orjson's
// layout: plain decimal with a ".0" suffix while the decimal point sits within
// 16 digits, exponent form ("1e16", "1.5e-7") outside that window.
func formatFloat(f float64, bits int) (string, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", bomerr.New(bomerr.KindEncoding, bomerr.RuleEncodeNumber, fmt.Sprintf("non-finite number %v", f))
	}
	if f == 0 {
		if math.Signbit(f) {
			return "-0.0", nil
		}
		return "0.0", nil
	}

	s := strconv.FormatFloat(f, 'e', -1, bits)
	var b strings.Builder
	if s[0] == '-' {
		b.WriteByte('-')
		s = s[1:]
	}
	mant, expStr, _ := strings.Cut(s, "e")
	exp, err := strconv.Atoi(expStr)
	if err != nil {
		return "", bomerr.Wrap(bomerr.KindEncoding, bomerr.RuleEncodeNumber, fmt.Sprintf("cannot format number %v", f), err)
	}
	digits := strings.Replace(mant, ".", "", 1)
	n := len(digits)
	point := exp + 1 // digits before the decimal point

	switch {
	case point >= n && point <= 16:
		b.WriteString(digits)
		b.WriteString(strings.Repeat("0", point-n))
		b.WriteString(".0")
	case point > 0 && point <= 16:
		b.WriteString(digits[:point])
		b.WriteByte('.')
		b.WriteString(digits[point:])
	case point > -5 && point <= 0:
		b.WriteString("0.")
		b.WriteString(strings.Repeat("0", -point))
		b.WriteString(digits)
	default:
		b.WriteByte(digits[0])
		if n > 1 {
			b.WriteByte('.')
			b.WriteString(digits[1:])
		}
		b.WriteByte('e')
		b.WriteString(strconv.Itoa(point - 1))
	}
	return b.String(), nil
}
