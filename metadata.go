package scopez

// Level is the verbosity of a callsite, ordered from most to least
// verbose: TRACE < DEBUG < INFO < WARN < ERROR.
type Level int8

const (
	LevelTrace Level = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
)

// String returns the conventional upper-case level name.
func (l Level) String() string {
	switch l {
	case LevelTrace:
		return "TRACE"
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Metadata is the immutable static descriptor for one callsite.
//
// It is created once, at callsite construction, and shared by every
// span and event that callsite ever produces. Subscribers receive a
// pointer to it and may compare pointers for callsite identity.
type Metadata struct {
	name     string
	target   string
	level    Level
	fields   []Key
	callsite *Callsite
}

// Name returns the callsite's declared name.
func (m *Metadata) Name() string { return m.name }

// Target returns the namespacing string, conventionally the
// originating package path.
func (m *Metadata) Target() string { return m.target }

// Level returns the declared verbosity level.
func (m *Metadata) Level() Level { return m.level }

// Callsite returns the callsite this metadata describes.
func (m *Metadata) Callsite() *Callsite { return m.callsite }

// Fields returns the set of fields declared at the callsite.
func (m *Metadata) Fields() FieldSet { return FieldSet{meta: m} }

// FieldSet is the ordered collection of field names declared by one
// callsite's Metadata. Fields are identified positionally; a Field can
// only be minted from the Metadata that declares it, so recording an
// undeclared field is rejected by construction.
type FieldSet struct {
	meta *Metadata
}

// Len returns the number of declared fields.
func (fs FieldSet) Len() int { return len(fs.meta.fields) }

// Names returns a copy of the declared field names in order.
func (fs FieldSet) Names() []Key {
	out := make([]Key, len(fs.meta.fields))
	copy(out, fs.meta.fields)
	return out
}

// Field looks up a declared field by name.
func (fs FieldSet) Field(name Key) (Field, bool) {
	for i, n := range fs.meta.fields {
		if n == name {
			return Field{index: i, meta: fs.meta}, true
		}
	}
	return Field{}, false
}

// At returns the declared field at a positional index.
func (fs FieldSet) At(index int) (Field, bool) {
	if index < 0 || index >= len(fs.meta.fields) {
		return Field{}, false
	}
	return Field{index: index, meta: fs.meta}, true
}

// Field identifies one declared field of one callsite. The zero Field
// is invalid.
type Field struct {
	meta  *Metadata
	index int
}

// Name returns the declared field name.
func (f Field) Name() Key {
	if f.meta == nil {
		return ""
	}
	return f.meta.fields[f.index]
}

// Index returns the positional index within the declaring Metadata.
func (f Field) Index() int { return f.index }

// Metadata returns the Metadata that declares this field.
func (f Field) Metadata() *Metadata { return f.meta }
