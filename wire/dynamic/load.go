package dynamic

import (
	"encoding/json"
	"io"

	"github.com/pkg/errors"
)

// Load parses message definitions of the form
//
//	{
//	  "chat_message": {
//	    "type": 0,
//	    "fields": {"username": "string", "message": "string"}
//	  }
//	}
//
// Field order on the wire is declaration order in the JSON text, so the
// fields object is walked with a token decoder instead of a Go map.
func (f *Factory) Load(r io.Reader) error {
	dec := json.NewDecoder(r)

	if err := expectDelim(dec, '{'); err != nil {
		return errors.Wrap(err, "definitions root")
	}

	for dec.More() {
		name, err := stringToken(dec)
		if err != nil {
			return errors.Wrap(err, "message name")
		}

		def, err := decodeDefinition(dec, name)
		if err != nil {
			return errors.Wrapf(err, "compiling %q", name)
		}

		f.defs[name] = def
	}

	if err := expectDelim(dec, '}'); err != nil {
		return errors.Wrap(err, "definitions root")
	}

	return nil
}

func decodeDefinition(dec *json.Decoder, name string) (*Definition, error) {
	if err := expectDelim(dec, '{'); err != nil {
		return nil, err
	}

	def := &Definition{Name: name}
	sawType := false

	for dec.More() {
		key, err := stringToken(dec)
		if err != nil {
			return nil, err
		}

		switch key {
		case "type":
			tok, err := dec.Token()
			if err != nil {
				return nil, errors.Wrap(err, "reading type code")
			}
			num, ok := tok.(float64)
			if !ok {
				return nil, errors.Errorf("type code must be a number, got %v", tok)
			}
			def.TypeCode = int16(num)
			sawType = true
		case "fields":
			if err := decodeFields(dec, def); err != nil {
				return nil, err
			}
		default:
			// Unknown keys are skipped for forward compatibility.
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return nil, errors.Wrapf(err, "skipping key %q", key)
			}
		}
	}

	if err := expectDelim(dec, '}'); err != nil {
		return nil, err
	}

	if !sawType {
		return nil, errors.New("definition has no type code")
	}

	return def, nil
}

func decodeFields(dec *json.Decoder, def *Definition) error {
	if err := expectDelim(dec, '{'); err != nil {
		return errors.Wrap(err, "fields object")
	}

	for dec.More() {
		fieldName, err := stringToken(dec)
		if err != nil {
			return errors.Wrap(err, "field name")
		}
		kindName, err := stringToken(dec)
		if err != nil {
			return errors.Wrapf(err, "kind of field %q", fieldName)
		}

		op, err := compileField(fieldName, Kind(kindName))
		if err != nil {
			return err
		}
		def.ops = append(def.ops, op)
	}

	return expectDelim(dec, '}')
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return errors.Wrap(err, "reading token")
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return errors.Errorf("expected %q, got %v", want, tok)
	}
	return nil
}

func stringToken(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", errors.Wrap(err, "reading token")
	}
	s, ok := tok.(string)
	if !ok {
		return "", errors.Errorf("expected string token, got %v", tok)
	}
	return s, nil
}
