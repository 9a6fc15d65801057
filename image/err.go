package image

import (
	"errors"

	"github.com/ezrec/ucomp/translate"
)

var f = translate.From

var (
	// Loader errors
	ErrEquateSyntax    = errors.New(f(".equ syntax"))
	ErrEquateDuplicate = errors.New(f(".equ duplicated"))
	ErrDirective       = errors.New(f("directive unknown"))
	ErrArguments       = errors.New(f("wrong number of arguments"))
	ErrNoCompartment   = errors.New(f("no compartment declared"))
	ErrNoCallsite      = errors.New(f("no call site declared"))

	// Validation errors
	ErrDefaultMissing       = errors.New(f("default compartment missing"))
	ErrCompartmentDuplicate = errors.New(f("compartment duplicated"))
	ErrCompartmentId        = errors.New(f("compartment ids not dense"))
	ErrCallsiteDuplicate    = errors.New(f("call site duplicated"))
	ErrCallsiteEmpty        = errors.New(f("call site without destinations"))
	ErrRegionIndex          = errors.New(f("region index out of range"))
	ErrRegionDuplicate      = errors.New(f("region duplicated"))
	ErrRegionReserved       = errors.New(f("region reserved to the default compartment"))
	ErrAclInterval          = errors.New(f("acl interval empty"))

	// Link errors
	ErrImageSize = errors.New(f("image exceeds flash"))
)

type ErrSyntax struct {
	LineNo int
	Line   string
	Err    error
}

func (err ErrSyntax) Error() string {
	return f("line %d '%v' %v", err.LineNo, err.Line, err.Err)
}

func (err ErrSyntax) Unwrap() error {
	return err.Err
}

type ErrParseNumber string

func (err ErrParseNumber) Error() string {
	return f("'%v' is not a number", string(err))
}

type ErrParseExpression string

func (err ErrParseExpression) Error() string {
	return f("$(%v) is not a valid expression", string(err))
}

// ErrCompartmentUnknown names a compartment that was never declared.
type ErrCompartmentUnknown string

func (err ErrCompartmentUnknown) Error() string {
	return f("compartment %v unknown", string(err))
}

// ErrInvalid locates a validation error.
type ErrInvalid struct {
	Name string
	Err  error
}

func (err ErrInvalid) Error() string {
	return f("%v: %v", err.Name, err.Err)
}

func (err ErrInvalid) Unwrap() error {
	return err.Err
}
