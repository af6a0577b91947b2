package services

import "fmt"

// Error is a domain failure with a stable code that handlers map to a notice
type Error struct {
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error with the same code, so callers can write
// errors.Is(err, services.ErrEmailExists)
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// with returns a copy of e carrying a cause or a more specific message
func (e *Error) with(cause error, message string) *Error {
	out := *e
	out.Err = cause
	if message != "" {
		out.Message = message
	}
	return &out
}

var (
	ErrInvalidCredentials = &Error{Code: "INVALID_CREDENTIALS", Message: "Invalid email or password"}
	ErrEmailExists        = &Error{Code: "EMAIL_EXISTS", Message: "Email already exists"}
	ErrValidation         = &Error{Code: "VALIDATION_ERROR", Message: "Invalid request data"}
	ErrUserNotFound       = &Error{Code: "USER_NOT_FOUND", Message: "User not found"}
	ErrForbidden          = &Error{Code: "FORBIDDEN", Message: "You are not allowed to do that"}
	ErrProfileIncomplete  = &Error{Code: "PROFILE_INCOMPLETE", Message: "Please complete your profile details before booking a lab technician."}
	ErrBookingNotFound    = &Error{Code: "BOOKING_NOT_FOUND", Message: "Booking not found"}
	ErrInvalidTransition  = &Error{Code: "INVALID_TRANSITION", Message: "Booking is not in a state that allows this action"}
	ErrReportExists       = &Error{Code: "REPORT_EXISTS", Message: "A report has already been uploaded for this booking"}
	ErrReportNotFound     = &Error{Code: "REPORT_NOT_FOUND", Message: "Report not found"}
)
