package term

// Encoder converts a Term into the JSON-ready shape described in
// spec.md §6: atoms/vars/numbers/strings become their native JSON
// scalar, lists become JSON arrays, and compounds become
// {"functor":...,"args":[...]}.
type Encoder struct{}

// NewEncoder returns the default Encoder.
func NewEncoder() *Encoder { return &Encoder{} }

// Encode converts t into a value safe to pass to encoding/json.Marshal.
func (e *Encoder) Encode(t Term) (any, error) {
	switch v := t.(type) {
	case nil:
		return nil, nil
	case Atom:
		return string(v), nil
	case Var:
		return v.Name, nil
	case Int:
		return int64(v), nil
	case Float:
		return float64(v), nil
	case String:
		return string(v), nil
	case Bool:
		if v {
			return "true", nil
		}
		return "false", nil
	case List:
		out := make([]any, len(v))
		for i, item := range v {
			enc, err := e.Encode(item)
			if err != nil {
				return nil, err
			}
			out[i] = enc
		}
		return out, nil
	case Compound:
		args := make([]any, len(v.Args))
		for i, a := range v.Args {
			enc, err := e.Encode(a)
			if err != nil {
				return nil, err
			}
			args[i] = enc
		}
		return jsonFunctor{Functor: v.Functor, Args: args}, nil
	case Binding:
		enc, err := e.Encode(v.Value)
		if err != nil {
			return nil, err
		}
		return jsonFunctor{Functor: "=", Args: []any{v.Name, enc}}, nil
	default:
		return nil, errUnsupportedTerm{t}
	}
}

// EncodeAnswer encodes one Answer as the JSON array of binding objects
// spec.md §6 describes.
func (e *Encoder) EncodeAnswer(a Answer) (any, error) {
	out := make([]any, len(a))
	for i, b := range a {
		enc, err := e.Encode(b)
		if err != nil {
			return nil, err
		}
		out[i] = enc
	}
	return out, nil
}

type jsonFunctor struct {
	Functor string `json:"functor"`
	Args    []any  `json:"args"`
}

type errUnsupportedTerm struct{ t Term }

func (e errUnsupportedTerm) Error() string {
	return "term: unsupported term type in encoder"
}
