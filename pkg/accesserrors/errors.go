// Package accesserrors provides the uniform error taxonomy that crosses every
// API boundary in the cluster: writer, reader, shard router, REST and gRPC
// surfaces all construct and classify errors through this package so that a
// NotFound raised by a DynamoDB-backed persistent reader looks identical to
// one raised by an in-memory access manager.
package accesserrors

import (
	"errors"
	"fmt"
)

// Kind is the stable, wire-mappable category of an AccessError.
type Kind string

const (
	KindInvalidArgument       Kind = "INVALID_ARGUMENT"
	KindNotFound              Kind = "NOT_FOUND"
	KindAlreadyExists         Kind = "ALREADY_EXISTS"
	KindWouldCreateCycle      Kind = "WOULD_CREATE_CYCLE"
	KindCacheEmpty            Kind = "CACHE_EMPTY"
	KindEventNotCached        Kind = "EVENT_NOT_CACHED"
	KindPersistentStorageEmpty Kind = "PERSISTENT_STORAGE_EMPTY"
	KindReaderRefreshFailed   Kind = "READER_REFRESH_FAILED"
	KindServiceUnavailable    Kind = "SERVICE_UNAVAILABLE"
	KindInternal              Kind = "INTERNAL"
)

// httpStatus maps each Kind to its stable HTTP status code (§4.I).
var httpStatus = map[Kind]int{
	KindInvalidArgument:        400,
	KindNotFound:               404,
	KindAlreadyExists:          409,
	KindWouldCreateCycle:       409,
	KindCacheEmpty:             503,
	KindEventNotCached:         404,
	KindPersistentStorageEmpty: 503,
	KindReaderRefreshFailed:    500,
	KindServiceUnavailable:     503,
	KindInternal:               500,
}

// grpcCode maps each Kind to its stable gRPC status code, using the
// canonical numeric values from google.golang.org/grpc/codes so callers that
// don't want the grpc module as a dependency can still compare directly.
var grpcCode = map[Kind]uint32{
	KindInvalidArgument:        3,  // InvalidArgument
	KindNotFound:               5,  // NotFound
	KindAlreadyExists:          6,  // AlreadyExists
	KindWouldCreateCycle:       9,  // FailedPrecondition
	KindCacheEmpty:             14, // Unavailable
	KindEventNotCached:         5,  // NotFound
	KindPersistentStorageEmpty: 14, // Unavailable
	KindReaderRefreshFailed:    13, // Internal
	KindServiceUnavailable:     14, // Unavailable
	KindInternal:               13, // Internal
}

// Attribute is a single {name, value} pair surfaced to callers, used for
// parameter names per §4.I ("Parameter names MUST be surfaced as attributes
// when applicable").
type Attribute struct {
	Name  string
	Value string
}

// AccessError is the single error type used across the cluster boundary.
type AccessError struct {
	Kind       Kind
	Code       string
	Message    string
	Target     string
	Attributes []Attribute
	Inner      error
}

// Error implements the error interface.
func (e *AccessError) Error() string {
	if e.Target != "" {
		return fmt.Sprintf("%s: %s (target=%s)", e.Kind, e.Message, e.Target)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the inner error chain to errors.Is/errors.As.
func (e *AccessError) Unwrap() error {
	return e.Inner
}

// HTTPStatus returns the stable HTTP status code for this error's Kind.
func (e *AccessError) HTTPStatus() int {
	if s, ok := httpStatus[e.Kind]; ok {
		return s
	}
	return 500
}

// GRPCCode returns the stable gRPC status code for this error's Kind.
func (e *AccessError) GRPCCode() uint32 {
	if c, ok := grpcCode[e.Kind]; ok {
		return c
	}
	return 13
}

// WithAttribute appends a parameter attribute and returns the same error for
// fluent construction: accesserrors.InvalidArgument(...).WithAttribute(...).
func (e *AccessError) WithAttribute(name, value string) *AccessError {
	e.Attributes = append(e.Attributes, Attribute{Name: name, Value: value})
	return e
}

// WithCause attaches an inner error, preserving the chain up to the
// configured depth when later converted to wire form (see InnerChain).
func (e *AccessError) WithCause(err error) *AccessError {
	e.Inner = err
	return e
}

// New constructs an AccessError of the given kind.
func New(kind Kind, code, message string) *AccessError {
	return &AccessError{Kind: kind, Code: code, Message: message}
}

// InvalidArgument builds an InvalidArgument error; name is the offending
// parameter, surfaced as an attribute per §4.I.
func InvalidArgument(name, message string) *AccessError {
	return New(KindInvalidArgument, "INVALID_ARGUMENT", message).WithAttribute("parameter", name)
}

// NotFound builds a NotFound(resource, id) error per §3/§4.C.
func NotFound(resource, id string) *AccessError {
	return New(KindNotFound, "NOT_FOUND", fmt.Sprintf("%s %q not found", resource, id)).
		WithAttribute("resource", resource).
		WithAttribute("id", id)
}

// AlreadyExists builds an AlreadyExists(kind, id) error for strict-mode
// duplicate mutations.
func AlreadyExists(kind, id string) *AccessError {
	return New(KindAlreadyExists, "ALREADY_EXISTS", fmt.Sprintf("%s %q already exists", kind, id)).
		WithAttribute("kind", kind).
		WithAttribute("id", id)
}

// WouldCreateCycle builds the error raised when a non-leaf edge would close
// a cycle in the group-to-group subgraph (§4.A).
func WouldCreateCycle(from, to string) *AccessError {
	return New(KindWouldCreateCycle, "WOULD_CREATE_CYCLE",
		fmt.Sprintf("adding edge %s->%s would create a cycle", from, to)).
		WithAttribute("from", from).
		WithAttribute("to", to)
}

// CacheEmpty builds the benign startup condition raised by an empty event
// cache (§4.F).
func CacheEmpty() *AccessError {
	return New(KindCacheEmpty, "CACHE_EMPTY", "event cache has no events")
}

// EventNotCached builds the error raised when a reader's watermark has
// fallen out of the cache's retention window (§4.F).
func EventNotCached(priorEventID string) *AccessError {
	return New(KindEventNotCached, "EVENT_NOT_CACHED",
		fmt.Sprintf("event %s is not present in the cache", priorEventID)).
		WithAttribute("priorEventId", priorEventID)
}

// PersistentStorageEmpty builds the error raised when a Load is attempted
// against an empty persistent store (§4.F/§6).
func PersistentStorageEmpty() *AccessError {
	return New(KindPersistentStorageEmpty, "PERSISTENT_STORAGE_EMPTY", "persistent storage has no snapshot")
}

// ReaderRefreshFailed builds a terminal reader refresh error (§4.I).
func ReaderRefreshFailed(message string) *AccessError {
	return New(KindReaderRefreshFailed, "READER_REFRESH_FAILED", message)
}

// ServiceUnavailable builds the error the trip switch actuates to (§5).
func ServiceUnavailable(message string) *AccessError {
	return New(KindServiceUnavailable, "SERVICE_UNAVAILABLE", message)
}

// Internal builds a catch-all internal error.
func Internal(message string) *AccessError {
	return New(KindInternal, "INTERNAL", message)
}

// Is reports whether the first AccessError in err's chain (err itself, or
// the first one reached by unwrapping) has the given Kind. AccessErrors
// attached deeper down as causes of that one are not consulted.
func Is(err error, kind Kind) bool {
	var ae *AccessError
	if errors.As(err, &ae) {
		return ae.Kind == kind
	}
	return false
}

// InnerChain walks err's Unwrap chain, collecting up to maxDepth inner
// AccessErrors for a wire-form innerError chain (§7: "InnerException chains
// map to nested innerError records up to the configured depth"). maxDepth <=
// 0 means unbounded, matching the default in §4.I.
func InnerChain(err error, maxDepth int) []*AccessError {
	var chain []*AccessError
	cur := err
	for cur != nil {
		var ae *AccessError
		if !errors.As(cur, &ae) {
			break
		}
		chain = append(chain, ae)
		if maxDepth > 0 && len(chain) >= maxDepth {
			break
		}
		cur = ae.Inner
	}
	return chain
}

// Flatten renders an AggregateException-style multi-error's children into
// indexed attributes InnerException{i}Code/Message, per §7.
func Flatten(errs []error) []Attribute {
	var attrs []Attribute
	for i, err := range errs {
		var ae *AccessError
		if errors.As(err, &ae) {
			attrs = append(attrs,
				Attribute{Name: fmt.Sprintf("InnerException%dCode", i), Value: ae.Code},
				Attribute{Name: fmt.Sprintf("InnerException%dMessage", i), Value: ae.Message},
			)
		} else {
			attrs = append(attrs,
				Attribute{Name: fmt.Sprintf("InnerException%dMessage", i), Value: err.Error()},
			)
		}
	}
	return attrs
}
