package derive

import (
	"strconv"

	"github.com/go-mizu/anchor"
)

// setByKind applies value at key on f regardless of kind. For an
// unordered collection key is ignored and value is added as a member.
func setByKind(f *anchor.Facade, key string, value any) {
	switch f.Kind() {
	case anchor.KindRecord:
		_ = f.Set(key, value)
	case anchor.KindSequence:
		if idx, err := strconv.Atoi(key); err == nil {
			_ = f.SetAt(idx, value)
		}
	case anchor.KindKeyed:
		_ = f.SetKey(key, value)
	case anchor.KindUnordered:
		_ = f.Add(value)
	}
}

// deleteByKind removes key from f regardless of kind.
func deleteByKind(f *anchor.Facade, key string) {
	switch f.Kind() {
	case anchor.KindRecord:
		_ = f.Delete(key)
	case anchor.KindKeyed:
		_ = f.DeleteKey(key)
	}
}

// fillArgs replays a fill event's [value, start, end] argument triple.
func fillArgs(f *anchor.Facade, args []any) {
	start, ok1 := args[1].(int)
	end, ok2 := args[2].(int)
	if ok1 && ok2 {
		_ = f.Fill(args[0], start, end)
	}
}

// clearByKind empties f's collection regardless of kind.
func clearByKind(f *anchor.Facade) {
	switch f.Kind() {
	case anchor.KindKeyed:
		_ = f.ClearKeyed()
	case anchor.KindUnordered:
		_ = f.ClearSet()
	}
}
