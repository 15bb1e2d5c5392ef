package analysis

// Kind tells the three analysis failures apart in logs and metrics.
type Kind string

const (
	KindProviderError       Kind = "provider_error"
	KindUnparseableResponse Kind = "unparseable_response"
	KindMalformedResult     Kind = "malformed_result"
)

// FallbackProviderMessage is used when the provider gives no error text.
const FallbackProviderMessage = "failed to analyze image"

// Error is a failed analysis. Match kinds with errors.Is against the
// sentinels below.
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

var (
	ErrProviderError       = &Error{Kind: KindProviderError}
	ErrUnparseableResponse = &Error{Kind: KindUnparseableResponse}
	ErrMalformedResult     = &Error{Kind: KindMalformedResult}
)

func (e *Error) Error() string {
	if e.Message != "" {
		return string(e.Kind) + ": " + e.Message
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Is matches any *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func newProviderError(message string, cause error) *Error {
	if message == "" {
		message = FallbackProviderMessage
	}
	return &Error{Kind: KindProviderError, Message: message, cause: cause}
}

func newUnparseableResponse() *Error {
	return &Error{Kind: KindUnparseableResponse, Message: "could not parse JSON from provider response"}
}

func newMalformedResult(cause error) *Error {
	return &Error{Kind: KindMalformedResult, Message: "provider JSON does not match the nutrition result shape", cause: cause}
}
