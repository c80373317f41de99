package chunk

// StatusClass categorizes the kind of result or failure a Status carries.
type StatusClass uint8

const (
	// NoStatus is the default, information-free class. A Status with this
	// class, code 0, and empty description denotes "no information" and is
	// always both a success and recoverable.
	NoStatus StatusClass = iota
	FilesystemError
	FormatError
	CRCError
	VersionError
	StateError
	AllocationError
)

func (c StatusClass) String() string {
	switch c {
	case NoStatus:
		return "NO_STATUS"
	case FilesystemError:
		return "FILESYSTEM_ERROR"
	case FormatError:
		return "FORMAT_ERROR"
	case CRCError:
		return "CRC_ERROR"
	case VersionError:
		return "VERSION_ERROR"
	case StateError:
		return "STATE_ERROR"
	case AllocationError:
		return "ALLOCATION_ERROR"
	default:
		return "UNKNOWN_STATUS_CLASS"
	}
}

// statusPayload is the polymorphic-in-spirit, tagged-in-practice value
// behind a Status. The source this format was modeled on uses a
// pointer-to-polymorphic object here; a tagged struct gives the same
// projection (class, code, description) without a class hierarchy.
type statusPayload struct {
	class       StatusClass
	code        int
	description string
	failed      bool
}

// Status carries a class, an error code, and a human-readable description.
// The zero Status is NoStatus with code 0 and an empty description: it
// reports no information, and is simultaneously a success and recoverable.
//
// A non-default Status can still be a success (a warning) — Failure is the
// explicit bit, Success is simply "not Failure".
type Status struct {
	payload *statusPayload
}

// NewStatus builds a Status describing a failure of the given class and
// code, with a description that should name both the failing operation and
// the offending indices or sizes.
func NewStatus(class StatusClass, code int, description string) Status {
	return Status{payload: &statusPayload{class: class, code: code, description: description, failed: true}}
}

// NewWarning builds a non-default Status that is not a failure — e.g. a
// fill-chunk cover write that succeeded after falling back to a smaller
// chunk than requested.
func NewWarning(class StatusClass, code int, description string) Status {
	return Status{payload: &statusPayload{class: class, code: code, description: description, failed: false}}
}

// StatusClass returns NoStatus for the zero Status.
func (s Status) StatusClass() StatusClass {
	if s.payload == nil {
		return NoStatus
	}
	return s.payload.class
}

// ErrorCode returns 0 for the zero Status.
func (s Status) ErrorCode() int {
	if s.payload == nil {
		return 0
	}
	return s.payload.code
}

// Description returns "" for the zero Status.
func (s Status) Description() string {
	if s.payload == nil {
		return ""
	}
	return s.payload.description
}

// InformationAvailable is true iff this Status is not the default
// (no-information) value.
func (s Status) InformationAvailable() bool {
	return s.payload != nil
}

// Failure is true iff this Status was constructed as an explicit failure.
func (s Status) Failure() bool {
	return s.payload != nil && s.payload.failed
}

// Success is "not Failure" — the zero Status and warnings are both
// successes.
func (s Status) Success() bool {
	return !s.Failure()
}

// Recoverable is true for the zero Status and for any non-failure Status.
// A caller may choose to treat specific failure classes as recoverable too;
// at this layer only the default and warnings are unconditionally so.
func (s Status) Recoverable() bool {
	return s.Success()
}

// Bool reports InformationAvailable, the boolean view of a Status:
// `if status := c.Save(store); status.Bool() {  ...  }`.
func (s Status) Bool() bool {
	return s.InformationAvailable()
}

func (s Status) Error() string {
	if s.payload == nil {
		return ""
	}
	return s.payload.description
}
