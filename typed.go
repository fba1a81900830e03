package anchor

import "encoding/json"

// State is a typed convenience facade over a Go struct T, built by
// marshaling T to map[string]any and back through encoding/json,
// directly grounded in view/sync/entity_test.go's Collection[T]/
// Entity[T] pair. It is additive sugar over the untyped *Facade, not a
// replacement: Raw() always returns the underlying *Facade for callers
// that need the full untyped surface (Subscribe, derive.*, and so on).
type State[T any] struct {
	f *Facade
}

// New anchors value (marshaled to a record) as a typed State[T].
func New[T any](value T, opts ...Option) (*State[T], error) {
	data, err := structToMap(value)
	if err != nil {
		return nil, err
	}
	f, err := Anchor(data, opts...)
	if err != nil {
		return nil, err
	}
	return &State[T]{f: f}, nil
}

// Wrap adapts an existing record facade as a State[T], for code that
// anchored its own map[string]any and wants a typed view over it.
func Wrap[T any](f *Facade) (*State[T], error) {
	if f.Kind() != KindRecord {
		return nil, ErrWrongKind
	}
	return &State[T]{f: f}, nil
}

// Raw returns the untyped facade backing s.
func (s *State[T]) Raw() *Facade { return s.f }

// Get decodes the current record contents into a T value.
func (s *State[T]) Get() (T, error) {
	var out T
	raw, err := Get(s.f)
	if err != nil {
		return out, err
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, err
	}
	return out, nil
}

// Set replaces every field by assigning value's marshaled form onto
// the underlying record, as a single "assign" event.
func (s *State[T]) Set(value T) error {
	data, err := structToMap(value)
	if err != nil {
		return err
	}
	return s.f.Assign(data)
}

// Subscribe is Subscribe(s.Raw(), ...) with the delivered value
// decoded into T before handler runs.
func (s *State[T]) Subscribe(handler func(value T, ev Event)) (unsubscribe func()) {
	return Subscribe(s.f, func(raw any, ev Event) {
		data, err := json.Marshal(raw)
		if err != nil {
			return
		}
		var v T
		if err := json.Unmarshal(data, &v); err != nil {
			return
		}
		handler(v, ev)
	})
}

func structToMap(value any) (map[string]any, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}
