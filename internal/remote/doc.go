// Package remote provides an HTTP client for a remote program API.
//
// # Overview
//
// An endpoint exposes a flat collection of programs under a base URL. The
// client lists program metadata, fetches a single program with its content and
// writes new content back. Each Client is bound to one endpoint.
//
// # Architecture
//
// The package is split into three files:
//
//   - client.go: HTTP client implementation and request/response handling
//   - types.go: the Program record and its naming helpers
//   - errors.go: the error taxonomy and user-facing hints
//
// # Client Usage
//
//	client, err := remote.NewClient(ep, creds, remote.WithTimeout(5*time.Second))
//	if err != nil {
//		return err
//	}
//
//	programs, err := client.ListPrograms(ctx)
//	if err != nil {
//		logging.Warn("list failed", logging.Err(err))
//	}
//
// # API Endpoints
//
//   - GET <base>/: {"programs": [...]} metadata only, content may be absent
//   - GET <base>/<id>: {"program": {...}} with content
//   - PUT <base>/<id>: body {"content": "..."}, response {"program": {...}}
//
// The base URL is used as configured with any trailing slash removed, and the
// program id is path-escaped.
//
// # Request Handling
//
// All requests:
//   - Use context for cancellation
//   - Set Content-Type and Accept to application/json
//   - Include User-Agent: remedit/0.1
//   - Have a 10-second timeout covering connect and read
//   - Carry Basic credentials only when both username and password exist
//
// There are no retries. Callers decide whether to try again.
//
// # Error Handling
//
// Failures are reported as one of three types:
//
//   - *TransportError: no HTTP response was received
//   - *ProtocolError: the body was not JSON, lacked the envelope field, or
//     named a program other than the one requested
//   - *APIError: the status was outside 2xx; Message holds the trimmed body
//
// Hint maps an error to a short sentence suitable for the status line. It
// inspects only error types and status codes, never message text.
//
// # Thread Safety
//
// Client is immutable after construction and safe for concurrent use.
package remote
