package anchor

import (
	"fmt"
	"strconv"
)

// stringify renders an arbitrary key (as used by keyed/unordered
// collections and the reserved @seq key) into the string form the
// observer/event machinery keys its maps by.
func stringify(k any) string {
	switch v := k.(type) {
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}
