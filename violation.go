package anchor

import "log/slog"

// ViolationKind enumerates the invariant violations §7 of the
// specification requires to be reported rather than thrown.
type ViolationKind string

const (
	ViolationDuplicateRegister ViolationKind = "duplicate-register"
	ViolationCircular          ViolationKind = "circular"
	ViolationImmutableWrite    ViolationKind = "immutable-write"
	ViolationDestroyedOp       ViolationKind = "destroyed-op"
	ViolationReservedKey       ViolationKind = "reserved-key"
	ViolationSchemaReject      ViolationKind = "schema-reject"
	ViolationHandlerPanic      ViolationKind = "handler-panic"
)

// Violation describes a recoverable, reported-not-thrown condition.
type Violation struct {
	Kind  ViolationKind
	ID    ID
	Key   string
	Err   error
	Panic any
}

var violationSink func(Violation)

// OnViolation installs a process-wide sink for every reported
// violation (schema rejection, destroyed-state operation, immutable
// write, circular self-assignment, reserved-key collision, or a
// subscriber/observer handler panic). It is additive sugar mirrored on
// the teacher's Store.SetOnChange callback registration pattern; the
// default behavior (structured slog logging) continues regardless of
// whether a sink is installed.
func OnViolation(f func(Violation)) {
	violationSink = f
}

var log = slog.Default()

// SetLogger overrides the logger used for violation reports.
func SetLogger(l *slog.Logger) {
	if l != nil {
		log = l
	}
}

func reportViolation(v Violation) {
	switch v.Kind {
	case ViolationSchemaReject, ViolationHandlerPanic:
		log.Warn("anchor: violation", slog.String("kind", string(v.Kind)), slog.String("id", v.ID.String()), slog.String("key", v.Key), slog.Any("error", v.Err))
	default:
		log.Warn("anchor: violation", slog.String("kind", string(v.Kind)), slog.String("id", v.ID.String()), slog.String("key", v.Key))
	}
	if violationSink != nil {
		violationSink(v)
	}
}
