package pwm

// Control attribute names. Values are written as decimal text.
const (
	AttrPeriod    = "period"
	AttrDutyCycle = "duty_cycle"
	AttrEnable    = "enable"
	AttrExport    = "export"
	AttrUnexport  = "unexport"
)

// Backend is the attribute I/O for one (chip, channel) pair.
//
// Implementations do no ordering or validation of their own; Channel is the
// only caller and owns those rules. Write failures should be *IOError.
//
// Export returns ErrAlreadyExported when the channel is already available,
// DeviceNotFound when the chip or channel does not exist and
// PermissionDenied when the control interface cannot be written.
//
//nolint:revive // interface name matches domain.
type Backend interface {
	Export() error
	Unexport() error
	Write(attr string, value uint64) error
	// Read returns the current value of attr, if the backend can tell.
	Read(attr string) (uint64, error)
	// Release frees in-process resources without touching hardware state.
	Release() error
}
