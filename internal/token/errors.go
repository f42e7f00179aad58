package token

// Error is a rejected-operation outcome. Code is stable and travels over the
// wire so clients can map a failure back to its sentinel.
type Error struct {
	Code   string
	msg    string
	parent *Error
}

func (e *Error) Error() string { return e.msg }

// Unwrap exposes the broader error this one refines, if any.
func (e *Error) Unwrap() error {
	if e.parent == nil {
		return nil
	}
	return e.parent
}

// NewError creates a coded error. Packages layered on top of the token use it
// for their own sentinels so every rejection shares one wire shape.
func NewError(code, msg string) *Error {
	e := &Error{Code: code, msg: msg}
	register(e)
	return e
}

// Caller-input errors.
var (
	ErrInvalidRecipient    = NewError("InvalidRecipient", "transfer to the zero address")
	ErrInsufficientBalance = NewError("InsufficientBalance", "transfer amount exceeds balance")
)

// Policy-gate errors.
var (
	ErrTradingDisabled       = NewError("TradingDisabled", "trading is not enabled yet")
	ErrExceedsMaxTransaction = NewError("ExceedsMaxTransaction", "transfer amount exceeds the maxTxAmount")
	ErrExceedsMaxWallet      = NewError("ExceedsMaxWallet", "recipient exceeds max wallet limit")
)

// Authorization errors. ErrOwnershipRenounced is a refinement of ErrNotOwner:
// errors.Is(ErrOwnershipRenounced, ErrNotOwner) is true.
var (
	ErrNotOwner           = NewError("NotOwner", "caller is not the owner")
	ErrOwnershipRenounced = newChildError("OwnershipRenounced", "ownership has been renounced", ErrNotOwner)
)

// Administrative input-validation errors. ErrZeroOwner is a refinement of
// ErrZeroAddress raised only by New.
var (
	ErrTaxTooHigh  = NewError("TaxTooHigh", "tax percentage cannot exceed 10")
	ErrZeroAddress = NewError("ZeroAddress", "Tax wallet cannot be zero address")
	ErrZeroOwner   = newChildError("ZeroOwner", "owner cannot be the zero address", ErrZeroAddress)
	ErrOverflow    = NewError("Overflow", "arithmetic overflow")
)

var byCode = map[string]*Error{}

func register(e *Error) { byCode[e.Code] = e }

func newChildError(code, msg string, parent *Error) *Error {
	e := NewError(code, msg)
	e.parent = parent
	return e
}

// ErrorByCode returns the registered sentinel for code.
func ErrorByCode(code string) (*Error, bool) {
	e, ok := byCode[code]
	return e, ok
}
