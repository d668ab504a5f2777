package common

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/rakshitha2207/spotify-mcp/internal/auth"
	"github.com/rakshitha2207/spotify-mcp/internal/governor"
)

// Error kinds returned to MCP clients. The set is closed; clients
// branch on it.
const (
	KindAuthenticationError  = "authentication_error"
	KindRateLimited          = "rate_limited"
	KindInvalidArgument      = "invalid_argument"
	KindUnknownTool          = "unknown_tool"
	KindRemoteOperationError = "remote_operation_error"
)

// Envelope is the uniform error shape every tool returns. It never
// leaks stack traces or raw upstream payloads.
type Envelope struct {
	Kind              string `json:"kind"`
	Message           string `json:"message"`
	RetryAfterSeconds int    `json:"retryAfterSeconds,omitempty"`
}

// ArgumentError reports a tool invocation with missing or malformed
// arguments. No remote call was issued.
type ArgumentError struct {
	Message string
}

func (e *ArgumentError) Error() string { return e.Message }

// InvalidArgument creates an ArgumentError with a formatted message.
func InvalidArgument(format string, args ...interface{}) error {
	return &ArgumentError{Message: fmt.Sprintf(format, args...)}
}

// Classify maps an internal error to the client-facing envelope.
func Classify(err error) Envelope {
	var authErr *auth.AuthenticationError
	if errors.As(err, &authErr) {
		return Envelope{Kind: KindAuthenticationError, Message: authErr.Reason}
	}

	var rateErr *governor.RateLimitedError
	if errors.As(err, &rateErr) {
		return Envelope{
			Kind:              KindRateLimited,
			Message:           fmt.Sprintf("rate limited on %s operations", rateErr.Class),
			RetryAfterSeconds: int(math.Ceil(rateErr.RetryAfter.Seconds())),
		}
	}

	var argErr *ArgumentError
	if errors.As(err, &argErr) {
		return Envelope{Kind: KindInvalidArgument, Message: argErr.Message}
	}

	return Envelope{Kind: KindRemoteOperationError, Message: err.Error()}
}

// ErrorResult renders err as an MCP error result carrying the JSON
// envelope.
func ErrorResult(err error) *mcp.CallToolResult {
	envelope := Classify(err)
	data, marshalErr := json.Marshal(envelope)
	if marshalErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf(`{"kind":%q,"message":"failed to encode error"}`, envelope.Kind))
	}
	return mcp.NewToolResultError(string(data))
}
