package ragfmt

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"

	"github.com/vmihailenco/msgpack/v5"
)

// Record is a loosely-typed result item (entity, relation, chunk or reference)
// as produced by upstream retrieval stages.
type Record = map[string]any

// Standard chunk field names.
const (
	FieldReferenceID = "reference_id"
	FieldContent     = "content"
	FieldFilePath    = "file_path"
	FieldChunkID     = "chunk_id"
)

// UnknownSource is the file_path reported for chunks that carry no source path.
const UnknownSource = "unknown_source"

type standardField struct {
	name string
	def  string
}

// standardFields lists the fields every normalized chunk carries, in output
// order, with the value used when the raw chunk lacks them.
var standardFields = [...]standardField{
	{name: FieldReferenceID, def: ""},
	{name: FieldContent, def: ""},
	{name: FieldFilePath, def: UnknownSource},
	{name: FieldChunkID, def: ""},
}

// StandardFields returns the standard chunk field names in output order.
func StandardFields() []string {
	names := make([]string, len(standardFields))
	for i, f := range standardFields {
		names[i] = f.name
	}
	return names
}

// IsStandardField reports whether name is one of the four standard chunk fields.
func IsStandardField(name string) bool {
	for _, f := range standardFields {
		if f.name == name {
			return true
		}
	}
	return false
}

// Field is a requested extension field of a normalized chunk.
type Field struct {
	Name  string
	Value any
	// Present reports whether the raw chunk carried the key.
	// Value is nil when Present is false.
	Present bool
}

// Chunk is a normalized text chunk.
//
// Its encodings emit reference_id, content, file_path and chunk_id first, followed
// by the extension fields in request order. Absent extension values encode as null.
type Chunk struct {
	ReferenceID string
	Content     string
	FilePath    string
	ChunkID     string

	// Extra holds the requested extension fields, one entry per distinct name.
	Extra []Field
}

func (c *Chunk) standardRef(name string) *string {
	switch name {
	case FieldReferenceID:
		return &c.ReferenceID
	case FieldContent:
		return &c.Content
	case FieldFilePath:
		return &c.FilePath
	case FieldChunkID:
		return &c.ChunkID
	}
	return nil
}

func (c *Chunk) applyDefaults() {
	for _, f := range standardFields {
		*c.standardRef(f.name) = f.def
	}
}

// Get returns the value stored under name and whether the key exists in the chunk.
// Requested-but-absent extension fields exist with a nil value.
func (c Chunk) Get(name string) (any, bool) {
	if p := c.standardRef(name); p != nil {
		return *p, true
	}
	for _, f := range c.Extra {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// Keys returns the chunk keys in encoding order.
func (c Chunk) Keys() []string {
	keys := make([]string, 0, len(standardFields)+len(c.Extra))
	keys = append(keys, StandardFields()...)
	for _, f := range c.Extra {
		keys = append(keys, f.Name)
	}
	return keys
}

// Map returns the chunk as a plain map. Key order is lost.
func (c Chunk) Map() map[string]any {
	m := make(map[string]any, len(standardFields)+len(c.Extra))
	for _, f := range standardFields {
		m[f.name] = *c.standardRef(f.name)
	}
	for _, f := range c.Extra {
		m[f.Name] = f.Value
	}
	return m
}

// MarshalJSON implements json.Marshaler.
func (c Chunk) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range standardFields {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeJSONPair(&buf, f.name, *c.standardRef(f.name)); err != nil {
			return nil, err
		}
	}
	for _, f := range c.Extra {
		buf.WriteByte(',')
		if err := writeJSONPair(&buf, f.Name, f.Value); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeJSONPair(buf *bytes.Buffer, key string, value any) error {
	k, err := json.Marshal(key)
	if err != nil {
		return err
	}
	v, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("chunk field %q: %w", key, err)
	}
	buf.Write(k)
	buf.WriteByte(':')
	buf.Write(v)
	return nil
}

// UnmarshalJSON implements json.Unmarshaler. Key order is preserved.
func (c *Chunk) UnmarshalJSON(data []byte) error {
	*c = Chunk{}
	c.applyDefaults()

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("chunk: expected object, got %v", tok)
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("chunk: expected key, got %v", tok)
		}
		if p := c.standardRef(name); p != nil {
			var s *string
			if err := dec.Decode(&s); err != nil {
				return fmt.Errorf("chunk field %q: %w", name, err)
			}
			if s != nil {
				*p = *s
			}
			continue
		}
		var v any
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("chunk field %q: %w", name, err)
		}
		c.Extra = append(c.Extra, Field{Name: name, Value: v, Present: v != nil})
	}
	_, err = dec.Token()
	return err
}

var (
	_ msgpack.CustomEncoder = Chunk{}
	_ msgpack.CustomDecoder = (*Chunk)(nil)
)

// EncodeMsgpack implements msgpack.CustomEncoder.
func (c Chunk) EncodeMsgpack(enc *msgpack.Encoder) error {
	if err := enc.EncodeMapLen(len(standardFields) + len(c.Extra)); err != nil {
		return err
	}
	for _, f := range standardFields {
		if err := enc.EncodeString(f.name); err != nil {
			return err
		}
		if err := enc.EncodeString(*c.standardRef(f.name)); err != nil {
			return err
		}
	}
	for _, f := range c.Extra {
		if err := enc.EncodeString(f.Name); err != nil {
			return err
		}
		if err := enc.Encode(f.Value); err != nil {
			return fmt.Errorf("chunk field %q: %w", f.Name, err)
		}
	}
	return nil
}

// DecodeMsgpack implements msgpack.CustomDecoder. Key order is preserved.
func (c *Chunk) DecodeMsgpack(dec *msgpack.Decoder) error {
	*c = Chunk{}
	c.applyDefaults()

	n, err := dec.DecodeMapLen()
	if err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		name, err := dec.DecodeString()
		if err != nil {
			return err
		}
		v, err := dec.DecodeInterface()
		if err != nil {
			return fmt.Errorf("chunk field %q: %w", name, err)
		}
		if p := c.standardRef(name); p != nil {
			if v != nil {
				*p = stringify(v)
			}
			continue
		}
		c.Extra = append(c.Extra, Field{Name: name, Value: v, Present: v != nil})
	}
	return nil
}

// stringify renders a raw standard-field value as a string.
// Scalars use strconv, string and byte-slice kinds are used as-is, and
// composite values are rendered as JSON text.
func stringify(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case []byte:
		return string(x)
	case json.Number:
		return x.String()
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.FormatInt(int64(x), 10)
	case int8:
		return strconv.FormatInt(int64(x), 10)
	case int16:
		return strconv.FormatInt(int64(x), 10)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int64:
		return strconv.FormatInt(x, 10)
	case uint:
		return strconv.FormatUint(uint64(x), 10)
	case uint8:
		return strconv.FormatUint(uint64(x), 10)
	case uint16:
		return strconv.FormatUint(uint64(x), 10)
	case uint32:
		return strconv.FormatUint(uint64(x), 10)
	case uint64:
		return strconv.FormatUint(x, 10)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case fmt.Stringer:
		return x.String()
	}
	// Named string and byte-slice types, e.g. json.RawMessage.
	switch rv := reflect.ValueOf(v); {
	case rv.Kind() == reflect.String:
		return rv.String()
	case rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8:
		return string(rv.Bytes())
	}
	if b, err := json.Marshal(v); err == nil {
		return string(b)
	}
	return fmt.Sprint(v)
}
