package querylog

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Field names a segment of a delimited query log message.
type Field string

// Fields recognized by the panel, in wire order.
const (
	FieldTime   Field = "time"
	FieldMem    Field = "mem"
	FieldMethod Field = "method"
	FieldSQL    Field = "sql"
)

// Default delimiters shared by producer and consumer.
const (
	DefaultOuter = "|||"
	DefaultInner = ":::"
)

// DefaultFields is the field order used unless configured otherwise.
var DefaultFields = []Field{FieldTime, FieldMem, FieldMethod, FieldSQL}

// ErrMalformed marks a message that does not match the configured format.
// It means the producer and the consumer disagree on delimiters or fields.
var ErrMalformed = errors.New("querylog: malformed message")

// Mode selects which half of a key/value segment Extract returns.
type Mode int

const (
	ModeValue Mode = iota
	ModeKey
)

// Pair is one key/value segment of a message.
type Pair struct {
	Key   string
	Value string
}

// Format describes the two-level delimited message layout:
//
//	key0<inner>value0<outer>key1<inner>value1<outer>...
//
// Splitting is bounded by the field count, so the last field may itself
// contain either delimiter. Only the last field may carry the outer
// delimiter.
type Format struct {
	Outer  string
	Inner  string
	Fields []Field
}

// DefaultFormat returns the |||/::: format over DefaultFields.
func DefaultFormat() Format {
	fields := make([]Field, len(DefaultFields))
	copy(fields, DefaultFields)
	return Format{Outer: DefaultOuter, Inner: DefaultInner, Fields: fields}
}

// Validate checks that the format can be split unambiguously.
func (f Format) Validate() error {
	var errs []string
	if f.Outer == "" {
		errs = append(errs, "outer delimiter is empty")
	}
	if f.Inner == "" {
		errs = append(errs, "inner delimiter is empty")
	}
	if f.Outer != "" && f.Outer == f.Inner {
		errs = append(errs, "outer and inner delimiters are equal")
	}
	if len(f.Fields) == 0 {
		errs = append(errs, "no fields configured")
	}
	seen := make(map[Field]bool, len(f.Fields))
	for _, name := range f.Fields {
		if name == "" {
			errs = append(errs, "empty field name")
			continue
		}
		if seen[name] {
			errs = append(errs, fmt.Sprintf("duplicate field %q", name))
		}
		seen[name] = true
	}
	if len(errs) > 0 {
		return fmt.Errorf("querylog: invalid format: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Index returns the position of field within a message.
func (f Format) Index(field Field) (int, bool) {
	for i, name := range f.Fields {
		if name == field {
			return i, true
		}
	}
	return 0, false
}

// Split breaks message into one Pair per configured field.
func (f Format) Split(message string) ([]Pair, error) {
	segments := strings.SplitN(message, f.Outer, len(f.Fields))
	if len(segments) != len(f.Fields) {
		return nil, fmt.Errorf("%w: %d segments, want %d", ErrMalformed, len(segments), len(f.Fields))
	}
	pairs := make([]Pair, len(segments))
	for i, seg := range segments {
		key, value, ok := strings.Cut(seg, f.Inner)
		if !ok {
			return nil, fmt.Errorf("%w: segment %d has no %q", ErrMalformed, i, f.Inner)
		}
		pairs[i] = Pair{Key: key, Value: value}
	}
	return pairs, nil
}

// Extract returns the key or value of field within message. An unknown
// field yields "" and no error.
func (f Format) Extract(message string, field Field, mode Mode) (string, error) {
	idx, ok := f.Index(field)
	if !ok {
		return "", nil
	}
	pairs, err := f.Split(message)
	if err != nil {
		return "", err
	}
	if mode == ModeKey {
		return pairs[idx].Key, nil
	}
	return pairs[idx].Value, nil
}

// Compose joins pairs into a message. It is the inverse of Split and rejects
// pairs that Split could not recover.
func (f Format) Compose(pairs []Pair) (string, error) {
	if len(pairs) != len(f.Fields) {
		return "", fmt.Errorf("%w: %d pairs, want %d", ErrMalformed, len(pairs), len(f.Fields))
	}
	var b strings.Builder
	last := len(pairs) - 1
	for i, p := range pairs {
		if strings.Contains(p.Key, f.Inner) || strings.Contains(p.Key, f.Outer) {
			return "", fmt.Errorf("%w: key %q contains a delimiter", ErrMalformed, p.Key)
		}
		if i != last && strings.Contains(p.Value, f.Outer) {
			return "", fmt.Errorf("%w: value of %q contains %q", ErrMalformed, p.Key, f.Outer)
		}
		if i > 0 {
			b.WriteString(f.Outer)
		}
		b.WriteString(p.Key)
		b.WriteString(f.Inner)
		b.WriteString(p.Value)
	}
	return b.String(), nil
}

// ComposeValues builds a message keyed by the configured field names,
// taking each value from values. Missing fields are emitted empty.
func (f Format) ComposeValues(values map[Field]string) (string, error) {
	pairs := make([]Pair, len(f.Fields))
	for i, name := range f.Fields {
		pairs[i] = Pair{Key: string(name), Value: values[name]}
	}
	return f.Compose(pairs)
}

// parseNumber reads the leading decimal number of s, so "2.5 MB" and
// "0.0012 sec" parse as well as bare numbers. Anything unparseable is 0,
// and so is a number outside the float64 range.
func parseNumber(s string) float64 {
	s = strings.TrimSpace(s)
	end := 0
	seenDigit, seenDot, seenExp := false, false, false
scan:
	for end < len(s) {
		c := s[end]
		switch {
		case c >= '0' && c <= '9':
			seenDigit = true
		case (c == '+' || c == '-') && (end == 0 || s[end-1] == 'e' || s[end-1] == 'E'):
		case c == '.' && !seenDot && !seenExp:
			seenDot = true
		case (c == 'e' || c == 'E') && seenDigit && !seenExp:
			seenExp = true
		default:
			break scan
		}
		end++
	}
	for end > 0 {
		v, err := strconv.ParseFloat(s[:end], 64)
		if err == nil {
			return v
		}
		if errors.Is(err, strconv.ErrRange) {
			return 0
		}
		end--
	}
	return 0
}
