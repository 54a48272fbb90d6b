// Package canonical produces the canonical JSON byte form of a document.
//
// Two semantically equal values always encode to identical bytes:
//   - object keys are sorted by their raw byte order at every level
//   - arrays keep their order
//   - no insignificant whitespace
//   - strings use RFC 8785 escaping (short escapes, other controls as \u00xx,
//     everything else literal UTF-8)
//   - integer literals are kept exactly, at any size
//   - other numbers use the shortest round-tripping digits in orjson's
//     layout, so 1.0 stays "1.0" and 1e16 "1e16"
//
// NaN and infinities have no JSON form and are rejected.
package canonical

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"aibom.dev/ledger/bomerr"
)

// Encode returns the canonical encoding of v.
//
// v may be any value encoding/json can marshal. The value is first normalised
// into a generic tree (see Normalise), so struct tags and Marshaler
// implementations apply.
func Encode(v any) ([]byte, error) {
	tree, err := Normalise(v)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := encodeValue(&buf, tree); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodeJSON canonicalizes raw JSON text.
func EncodeJSON(data []byte) ([]byte, error) {
	tree, err := decode(data)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := encodeValue(&buf, tree); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decode(raw []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var tree any
	if err := dec.Decode(&tree); err != nil {
		return nil, bomerr.Wrap(bomerr.KindEncoding, bomerr.RuleEncodeValue, "malformed JSON", err)
	}
	if dec.More() {
		return nil, bomerr.New(bomerr.KindEncoding, bomerr.RuleEncodeValue, "trailing data after JSON value")
	}
	return tree, nil
}

func encodeValue(buf *bytes.Buffer, v any) error {
	switch t := v.(type) {
	case nil:
		buf.WriteString("null")
	case bool:
		if t {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case string:
		writeString(buf, t)
	case json.Number:
		s, err := formatNumber(t)
		if err != nil {
			return err
		}
		buf.WriteString(s)
	case []any:
		buf.WriteByte('[')
		for i, elem := range t {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encodeValue(buf, elem); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeString(buf, k)
			buf.WriteByte(':')
			if err := encodeValue(buf, t[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return bomerr.New(bomerr.KindEncoding, bomerr.RuleEncodeValue, fmt.Sprintf("unsupported value of type %T", v))
	}
	return nil
}

// formatNumber keeps integer literals exact and re-renders every other
// literal through formatFloat.
func formatNumber(n json.Number) (string, error) {
	lit := n.String()
	if !strings.ContainsAny(lit, ".eE") {
		i, ok := new(big.Int).SetString(lit, 10)
		if !ok {
			return "", bomerr.New(bomerr.KindEncoding, bomerr.RuleEncodeNumber, fmt.Sprintf("invalid integer %q", lit))
		}
		return i.String(), nil
	}
	f, err := strconv.ParseFloat(lit, 64)
	if err != nil || math.IsInf(f, 0) {
		return "", bomerr.New(bomerr.KindEncoding, bomerr.RuleEncodeNumber, fmt.Sprintf("number %q has no finite float form", lit))
	}
	return formatFloat(f, 64)
}

const hexDigits = "0123456789abcdef"

func writeString(buf *bytes.Buffer, s string) {
	buf.WriteByte('"')
	for i := 0; i < len(s); {
		c := s[i]
		if c >= utf8.RuneSelf {
			r, size := utf8.DecodeRuneInString(s[i:])
			if r == utf8.RuneError && size == 1 {
				buf.WriteString(`�`)
			} else {
				buf.WriteString(s[i : i+size])
			}
			i += size
			continue
		}
		switch c {
		case '"':
			buf.WriteString(`\"`)
		case '\\':
			buf.WriteString(`\\`)
		case '\b':
			buf.WriteString(`\b`)
		case '\f':
			buf.WriteString(`\f`)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\t':
			buf.WriteString(`\t`)
		default:
			if c < 0x20 {
				buf.WriteString(`\u00`)
				buf.WriteByte(hexDigits[c>>4])
				buf.WriteByte(hexDigits[c&0xf])
			} else {
				buf.WriteByte(c)
			}
		}
		i++
	}
	buf.WriteByte('"')
}
