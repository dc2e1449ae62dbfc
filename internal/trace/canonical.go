package trace

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"unicode/utf16"

	"golang.org/x/text/unicode/norm"
)

// MarshalCanonical renders e as canonical JSON:
//
//	{"detail":{...},"kind":"admit","seq":4,"subject":"a","time":"100"}
//
// Object keys are sorted by UTF-16 code units, strings are NFC normalised,
// HTML characters are not escaped and times use simtime's canonical string
// form. The "detail" key is omitted when the event has no details.
func MarshalCanonical(e Event) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	if len(e.Detail) > 0 {
		buf.WriteString(`"detail":`)
		if err := writeStringMap(&buf, e.Detail); err != nil {
			return nil, fmt.Errorf("detail: %w", err)
		}
		buf.WriteByte(',')
	}

	buf.WriteString(`"kind":`)
	if err := writeString(&buf, string(e.Kind)); err != nil {
		return nil, fmt.Errorf("kind: %w", err)
	}
	fmt.Fprintf(&buf, `,"seq":%d,"subject":`, e.Seq)
	if err := writeString(&buf, e.Subject); err != nil {
		return nil, fmt.Errorf("subject: %w", err)
	}
	if !e.Time.IsFinite() {
		return nil, fmt.Errorf("time: non-finite value %s", e.Time.Canonical())
	}
	buf.WriteString(`,"time":`)
	if err := writeString(&buf, e.Time.Canonical()); err != nil {
		return nil, fmt.Errorf("time: %w", err)
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeStringMap(buf *bytes.Buffer, m map[string]string) error {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareUTF16)

	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeString(buf, k); err != nil {
			return fmt.Errorf("key %q: %w", k, err)
		}
		buf.WriteByte(':')
		if err := writeString(buf, m[k]); err != nil {
			return fmt.Errorf("value for key %q: %w", k, err)
		}
	}
	buf.WriteByte('}')
	return nil
}

// writeString appends the canonical JSON form of s.
// Only control characters, backslash and quote are escaped.
func writeString(buf *bytes.Buffer, s string) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(norm.NFC.String(s)); err != nil {
		return err
	}
	out := bytes.TrimSuffix(tmp.Bytes(), []byte{'\n'})
	buf.Write(unescapeLineSeparators(out))
	return nil
}

// unescapeLineSeparators turns the \u2028 and \u2029 escapes emitted by
// encoding/json back into literal characters. Escaped backslashes are copied
// as a pair so that a literal backslash-u sequence in the input stays escaped.
func unescapeLineSeparators(data []byte) []byte {
	if !bytes.Contains(data, []byte(`\u202`)) {
		return data
	}
	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		if data[i] != '\\' || i+1 >= len(data) {
			out = append(out, data[i])
			continue
		}
		if data[i+1] == 'u' && i+6 <= len(data) && string(data[i+2:i+5]) == "202" {
			switch data[i+5] {
			case '8':
				out = append(out, "\u2028"...)
				i += 5
				continue
			case '9':
				out = append(out, "\u2029"...)
				i += 5
				continue
			}
		}
		out = append(out, data[i], data[i+1])
		i++
	}
	return out
}

// compareUTF16 orders strings by UTF-16 code units. Go's native string
// comparison works on UTF-8 bytes, which disagrees for supplementary planes.
func compareUTF16(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))
	return slices.Compare(a16, b16)
}

// MarshalDetail renders a detail map as a canonical JSON object. An empty or
// nil map renders as {}.
func MarshalDetail(d map[string]string) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeStringMap(&buf, d); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
