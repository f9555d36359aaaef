package kyoto

import (
	"errors"
	"fmt"

	"github.com/eigerco/kyotocabinet/internal/kcffi"
)

var (
	ErrInvalidPath = errors.New("kyoto: path is not representable as a C string")
	ErrClosed      = errors.New("kyoto: database is closed")
)

// Code is a Kyoto Cabinet error code, as reported by kcdbecode.
type Code int32

const (
	CodeSuccess          Code = Code(kcffi.ESuccess)
	CodeNoImplementation Code = Code(kcffi.ENoImpl)
	CodeInvalid          Code = Code(kcffi.EInvalid)
	CodeNoRepository     Code = Code(kcffi.ENoRepos)
	CodeNoPermission     Code = Code(kcffi.ENoPerm)
	CodeBroken           Code = Code(kcffi.EBroken)
	CodeDuplicateRecord  Code = Code(kcffi.EDupRec)
	CodeNoRecord         Code = Code(kcffi.ENoRec)
	CodeLogic            Code = Code(kcffi.ELogic)
	CodeSystem           Code = Code(kcffi.ESystem)
	CodeMisc             Code = Code(kcffi.EMisc)
)

var codeNames = map[Code]string{
	CodeSuccess:          "success",
	CodeNoImplementation: "not implemented",
	CodeInvalid:          "invalid operation",
	CodeNoRepository:     "file not found",
	CodeNoPermission:     "no permission",
	CodeBroken:           "broken file",
	CodeDuplicateRecord:  "record duplication",
	CodeNoRecord:         "no record",
	CodeLogic:            "logical inconsistency",
	CodeSystem:           "system error",
	CodeMisc:             "miscellaneous error",
}

func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("unknown error %d", int32(c))
}

// Error is a failure reported by the native library through its error slot.
type Error struct {
	Code    Code
	Message string
}

// Sentinels for errors.Is; they match any *Error carrying the same code.
var (
	ErrNoImplementation = &Error{Code: CodeNoImplementation}
	ErrInvalid          = &Error{Code: CodeInvalid}
	ErrNoRepository     = &Error{Code: CodeNoRepository}
	ErrNoPermission     = &Error{Code: CodeNoPermission}
	ErrBroken           = &Error{Code: CodeBroken}
	ErrDuplicateRecord  = &Error{Code: CodeDuplicateRecord}
	ErrNoRecord         = &Error{Code: CodeNoRecord}
	ErrLogic            = &Error{Code: CodeLogic}
	ErrSystem           = &Error{Code: CodeSystem}
	ErrMisc             = &Error{Code: CodeMisc}
)

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("kyoto: %s (%d)", e.Code, int32(e.Code))
	}
	return fmt.Sprintf("kyoto: %s (%s, %d)", e.Message, e.Code, int32(e.Code))
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// nativeState is one read of a handle's error slot.
type nativeState struct {
	code int32
	msg  string
}

func readState(lib kcffi.Library, h kcffi.DB) nativeState {
	return nativeState{code: lib.DBECode(h), msg: lib.DBEMsg(h)}
}

// err returns nil for the success code.
func (s nativeState) err() error {
	if s.code == kcffi.ESuccess {
		return nil
	}
	return &Error{Code: Code(s.code), Message: s.msg}
}

// failure is err for a call whose return value reported failure; a slot
// still reading success is reported as a miscellaneous error.
func (s nativeState) failure(op string) error {
	if err := s.err(); err != nil {
		return err
	}
	return &Error{Code: CodeMisc, Message: op + " failed without setting an error"}
}
