package anchor

import (
	"errors"
	"testing"

	"github.com/go-mizu/anchor/schema"
)

// intSchema accepts only int values, rejecting everything else —
// enough of a stub validator to exercise the C7 gate without pulling
// in a real schema library (spec.md §1 keeps the core agnostic of one).
type intSchema struct{}

func (intSchema) SafeParse(value any) schema.Result {
	if _, ok := value.(int); ok {
		return schema.Ok(value)
	}
	return schema.Fail(errors.New("want int"))
}

// shapedSchema is a minimal Shaped record schema: age must be an int,
// every other key passes through unchecked.
type shapedSchema struct{}

func (shapedSchema) SafeParse(value any) schema.Result { return schema.Ok(value) }
func (shapedSchema) Shape() map[string]schema.Schema {
	return map[string]schema.Schema{"age": intSchema{}}
}

func TestSchema_StrictRejectsInvalidWrite(t *testing.T) {
	f, _ := Anchor(map[string]any{"age": 1}, WithSchema(shapedSchema{}), WithStrict(true))

	if err := f.Set("age", "old"); !errors.Is(err, ErrValidation) {
		t.Errorf("Set() error = %v, want ErrValidation", err)
	}
	if got, _ := f.Get("age"); got != 1 {
		t.Errorf("Get(\"age\") after rejected strict write = %v, want 1", got)
	}
}

func TestSchema_LenientDiscardsInvalidWriteWithoutError(t *testing.T) {
	f, _ := Anchor(map[string]any{"age": 1}, WithSchema(shapedSchema{}))

	var violations []Violation
	OnViolation(func(v Violation) { violations = append(violations, v) })
	defer OnViolation(nil)

	if err := f.Set("age", "old"); err != nil {
		t.Errorf("Set() error = %v, want nil in lenient mode", err)
	}
	if got, _ := f.Get("age"); got != 1 {
		t.Errorf("Get(\"age\") after discarded lenient write = %v, want 1", got)
	}
	if len(violations) != 1 || violations[0].Kind != ViolationSchemaReject {
		t.Errorf("violations = %+v, want one ViolationSchemaReject", violations)
	}
}

func TestSchema_UnshapedKeyPassesThrough(t *testing.T) {
	f, _ := Anchor(map[string]any{"age": 1, "name": "ada"}, WithSchema(shapedSchema{}), WithStrict(true))

	if err := f.Set("name", "grace"); err != nil {
		t.Errorf("Set(\"name\") error = %v, want nil (no sub-schema for this key)", err)
	}
}

func TestSchema_SequencePushValidatesEachItem(t *testing.T) {
	f, _ := Anchor([]any{1, 2}, WithSchema(intSchema{}), WithStrict(true))

	if err := f.Push(3); err != nil {
		t.Fatalf("Push(3) error = %v", err)
	}
	if f.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", f.Len())
	}

	if err := f.Push("oops"); !errors.Is(err, ErrValidation) {
		t.Errorf("Push(\"oops\") error = %v, want ErrValidation", err)
	}
	if f.Len() != 3 {
		t.Errorf("Len() after rejected push = %d, want 3 (operation aborted entirely)", f.Len())
	}
}

func TestSchema_SequencePushAbortsWholeBatchOnOneBadItem(t *testing.T) {
	f, _ := Anchor([]any{}, WithSchema(intSchema{}), WithStrict(true))

	if err := f.Push(1, 2, "bad", 4); !errors.Is(err, ErrValidation) {
		t.Errorf("Push() error = %v, want ErrValidation", err)
	}
	if f.Len() != 0 {
		t.Errorf("Len() = %d, want 0 (no partial application)", f.Len())
	}
}

func TestSchema_LenientSequencePushDiscardsWholeBatch(t *testing.T) {
	f, _ := Anchor([]any{1}, WithSchema(intSchema{}))

	if err := f.Push(2, "bad"); err != nil {
		t.Errorf("Push() error = %v, want nil in lenient mode", err)
	}
	if f.Len() != 1 {
		t.Errorf("Len() = %d, want 1 (whole batch discarded, not partially applied)", f.Len())
	}
}

// wholeObjectSchema validates the merged candidate record as a whole,
// rejecting if "age" is present and not an int — used to exercise the
// Open Question decision that Assign revalidates the full object in
// strict mode (SPEC_FULL.md), not just the keys actually supplied.
type wholeObjectSchema struct{}

func (wholeObjectSchema) SafeParse(value any) schema.Result {
	rec, ok := value.(map[string]any)
	if !ok {
		return schema.Fail(errors.New("want record"))
	}
	if age, ok := rec["age"]; ok {
		if _, ok := age.(int); !ok {
			return schema.Fail(errors.New("age must be an int"))
		}
	}
	return schema.Ok(rec)
}

func TestSchema_AssignStrictRevalidatesWholeObject(t *testing.T) {
	f, _ := Anchor(map[string]any{"age": 1, "name": "ada"}, WithSchema(wholeObjectSchema{}), WithStrict(true))

	if err := f.Assign(map[string]any{"age": "old"}); !errors.Is(err, ErrValidation) {
		t.Errorf("Assign() error = %v, want ErrValidation", err)
	}
	if got, _ := f.Get("age"); got != 1 {
		t.Errorf("Get(\"age\") after rejected Assign = %v, want 1", got)
	}
}
