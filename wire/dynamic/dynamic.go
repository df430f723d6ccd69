// Package dynamic compiles JSON message definitions into serialize/read
// schedules at load time, so schema-driven payloads pay one indirect call per
// field instead of re-walking the definition on every message.
//
// The wire layout is identical to a hand-written composite: fields travel in
// declaration order with no tagging.
package dynamic

import (
	"os"

	"github.com/pkg/errors"

	"msgnet/lib/bytebuf"
	"msgnet/wire"
)

// Kind is a field type in a message definition.
type Kind string

const (
	KindString Kind = "string"
	KindInt    Kind = "int"
	KindFloat  Kind = "float"
)

// Value holds one field: string, int32, or float32.
type Value any

var (
	ErrUnknownMessage = errors.New("dynamic: message definition not found")
	ErrUnknownKind    = errors.New("dynamic: unknown field kind")
	ErrFieldMismatch  = errors.New("dynamic: field value does not match definition")
)

type fieldOp struct {
	name   string
	kind   Kind
	append func(b *bytebuf.Buffer, v Value)
	read   func(r *wire.Reader) (Value, error)
	zero   Value
}

func compileField(name string, kind Kind) (fieldOp, error) {
	op := fieldOp{name: name, kind: kind}
	switch kind {
	case KindString:
		op.zero = ""
		op.append = func(b *bytebuf.Buffer, v Value) { wire.AppendString(b, v.(string)) }
		op.read = func(r *wire.Reader) (Value, error) { return r.String() }
	case KindInt:
		op.zero = int32(0)
		op.append = func(b *bytebuf.Buffer, v Value) { wire.AppendInt32(b, v.(int32)) }
		op.read = func(r *wire.Reader) (Value, error) { return r.Int32() }
	case KindFloat:
		op.zero = float32(0)
		op.append = func(b *bytebuf.Buffer, v Value) { wire.AppendFloat32(b, v.(float32)) }
		op.read = func(r *wire.Reader) (Value, error) { return r.Float32() }
	default:
		return fieldOp{}, errors.Wrapf(ErrUnknownKind, "%q on field %q", kind, name)
	}
	return op, nil
}

// Definition is one compiled message: its type code and field schedule.
type Definition struct {
	Name     string
	TypeCode int16

	ops []fieldOp
}

// FieldCount reports how many fields the definition declares.
func (d *Definition) FieldCount() int { return len(d.ops) }

// Payload is a positional field vector stamped with a compiled definition.
type Payload struct {
	def    *Definition
	values []Value
}

var _ wire.Payload = (*Payload)(nil)

// Set appends field values in declaration order. Accepted Go types per kind:
// string; int/int32 for int; float32/float64 for float.
func (p *Payload) Set(values ...any) error {
	for _, v := range values {
		idx := len(p.values)
		if idx >= len(p.def.ops) {
			return errors.Wrapf(ErrFieldMismatch, "%q declares %d fields", p.def.Name, len(p.def.ops))
		}

		coerced, err := coerce(p.def.ops[idx], v)
		if err != nil {
			return err
		}
		p.values = append(p.values, coerced)
	}
	return nil
}

func coerce(op fieldOp, v any) (Value, error) {
	switch op.kind {
	case KindString:
		if s, ok := v.(string); ok {
			return s, nil
		}
	case KindInt:
		switch n := v.(type) {
		case int32:
			return n, nil
		case int:
			return int32(n), nil
		}
	case KindFloat:
		switch f := v.(type) {
		case float32:
			return f, nil
		case float64:
			return float32(f), nil
		}
	}
	return nil, errors.Wrapf(ErrFieldMismatch, "field %q wants %s, got %T", op.name, op.kind, v)
}

// TypeCode returns the message type code from the definition.
func (p *Payload) TypeCode() int16 { return p.def.TypeCode }

// Len reports how many field values are populated.
func (p *Payload) Len() int { return len(p.values) }

func (p *Payload) String(i int) (string, error) {
	v, err := p.at(i, KindString)
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (p *Payload) Int(i int) (int32, error) {
	v, err := p.at(i, KindInt)
	if err != nil {
		return 0, err
	}
	return v.(int32), nil
}

func (p *Payload) Float(i int) (float32, error) {
	v, err := p.at(i, KindFloat)
	if err != nil {
		return 0, err
	}
	return v.(float32), nil
}

func (p *Payload) at(i int, kind Kind) (Value, error) {
	if i < 0 || i >= len(p.values) {
		return nil, errors.Wrapf(ErrFieldMismatch, "field index %d of %d", i, len(p.values))
	}
	if p.def.ops[i].kind != kind {
		return nil, errors.Wrapf(ErrFieldMismatch, "field %d is %s", i, p.def.ops[i].kind)
	}
	return p.values[i], nil
}

// AppendTo runs the compiled serialize schedule. Unpopulated trailing fields
// serialize as their zero values.
func (p *Payload) AppendTo(b *bytebuf.Buffer) {
	for idx, op := range p.def.ops {
		if idx < len(p.values) {
			op.append(b, p.values[idx])
		} else {
			op.append(b, op.zero)
		}
	}
}

// ReadFrom runs the compiled read schedule, replacing any populated values.
func (p *Payload) ReadFrom(r *wire.Reader) error {
	values := make([]Value, 0, len(p.def.ops))
	for _, op := range p.def.ops {
		v, err := op.read(r)
		if err != nil {
			return errors.Wrapf(err, "reading field %q", op.name)
		}
		values = append(values, v)
	}
	p.values = values
	return nil
}

// Factory holds compiled definitions keyed by message name.
type Factory struct {
	defs map[string]*Definition
}

func NewFactory() *Factory {
	return &Factory{defs: make(map[string]*Definition)}
}

// New returns a fresh payload stamped with the named definition.
func (f *Factory) New(name string) (*Payload, error) {
	def, ok := f.defs[name]
	if !ok {
		return nil, errors.Wrap(ErrUnknownMessage, name)
	}
	return &Payload{def: def, values: make([]Value, 0, len(def.ops))}, nil
}

// Definition exposes a compiled definition by name.
func (f *Factory) Definition(name string) (*Definition, bool) {
	def, ok := f.defs[name]
	return def, ok
}

// Encode builds a typed envelope frame for the named message populated with
// values, mirroring a hand-written payload passed to wire.EncodeMessage.
func (f *Factory) Encode(name string, values ...any) ([]byte, error) {
	p, err := f.New(name)
	if err != nil {
		return nil, err
	}
	if err := p.Set(values...); err != nil {
		return nil, err
	}
	return wire.EncodeMessage(p.TypeCode(), p), nil
}

// LoadFile reads definitions from a JSON file.
func (f *Factory) LoadFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "opening definitions")
	}
	defer file.Close()

	return f.Load(file)
}
