// Package avaerrors holds the coded error sentinels shared by the engine and
// the harness around it.
package avaerrors

import (
	"errors"
	"strings"
)

// Fatal (F) errors: the engine stops in the halted state with the fault flag set.
var (
	ErrFTypeViolation   = errors.New("F1|TypeViolation: Arithmetic evaluation reached with a non-integer operand type.")
	ErrFUnimplementedOp = errors.New("F2|UnimplementedOp: Arithmetic operation is reserved and has no executable semantics.")
	ErrFDivideByZero    = errors.New("F3|DivideByZero: Integer division with a zero right operand.")
	ErrFSlotRange       = errors.New("F4|SlotRange: Slot index outside the slot store.")
	ErrFPopRefused      = errors.New("F5|PopRefused: Operand stack did not honour a pop after reporting a valid top element.")
	ErrFUnknownOp       = errors.New("F6|UnknownOp: Arithmetic operation selector is not defined.")
	ErrFPrintRange      = errors.New("F7|PrintRange: PRINT value has no single-digit representation.")
	ErrFTruncated       = errors.New("F8|Truncated: Operand fetch ran past the end of the program image.")
)

// Harness (H) errors: raised around the engine, never by it.
var (
	ErrHCycleLimit   = errors.New("H1|CycleLimit: Cycle budget exhausted before the engine halted.")
	ErrHEmptyProgram = errors.New("H2|EmptyProgram: Program image has no bytes.")
	ErrHBadHex       = errors.New("H3|BadHex: Program text is not valid hex.")
	ErrHBadConfig    = errors.New("H4|BadConfig: Configuration value out of range.")
	ErrHTraceMissing = errors.New("H5|TraceMissing: No trace recorded for the requested program.")
)

var known = []error{
	ErrFTypeViolation, ErrFUnimplementedOp, ErrFDivideByZero, ErrFSlotRange,
	ErrFPopRefused, ErrFUnknownOp, ErrFPrintRange, ErrFTruncated,
	ErrHCycleLimit, ErrHEmptyProgram, ErrHBadHex, ErrHBadConfig, ErrHTraceMissing,
}

// Sentinel returns the registered sentinel wrapped somewhere in err, or err
// itself when none matches.
func Sentinel(err error) error {
	for _, s := range known {
		if errors.Is(err, s) {
			return s
		}
	}
	return err
}

// IsFatal reports whether err carries one of the F-class sentinels.
func IsFatal(err error) bool {
	return strings.HasPrefix(GetErrorCode(err), "F")
}

// GetErrorName extracts the error name from the error message.
func GetErrorName(err error) string {
	if err == nil {
		return "No Error"
	}
	errStr := Sentinel(err).Error()
	if !strings.Contains(errStr, "|") || !strings.Contains(errStr, ":") {
		return errStr
	}
	parts := strings.SplitN(errStr, "|", 2)
	nameParts := strings.SplitN(parts[1], ":", 2)
	return strings.TrimSpace(nameParts[0])
}

// GetErrorCode extracts the error code from the error message.
func GetErrorCode(err error) string {
	if err == nil {
		return ""
	}
	errStr := Sentinel(err).Error()
	if !strings.Contains(errStr, "|") {
		return ""
	}
	parts := strings.SplitN(errStr, "|", 2)
	return strings.TrimSpace(parts[0])
}

// GetErrorCodeWithName returns the error code and name in the format "Code_ErrorName".
func GetErrorCodeWithName(err error) string {
	code := GetErrorCode(err)
	name := GetErrorName(err)
	if code == "" || name == "" {
		return ""
	}
	return code + "_" + name
}
