package errors

// Code is a stable taxonomy code. Codes that correspond to an error
// string emitted by the push server use that exact (lower-cased) wire
// string so classification is a direct comparison.
type Code string

const (
	// CodeIllegalParam indicates invalid caller-supplied parameters
	// (empty credentials, unroutable domain). Never retried.
	CodeIllegalParam Code = "illegal param"

	// CodeUnknownClientID indicates the server no longer recognises the
	// clientId, typically after a server reload or heartbeat timeout.
	CodeUnknownClientID Code = "unknown clientid"

	// CodeExceedMaxConn indicates the server's connection capacity is
	// exhausted.
	CodeExceedMaxConn Code = "exceed max conn"

	// CodeCannotCmd indicates the server temporarily cannot process the
	// command.
	CodeCannotCmd Code = "cannot cmd"

	// CodeAuthFailed indicates the push layer rejected the session
	// credential during signin.
	CodeAuthFailed Code = "auth failed"

	// CodeExceedRateLimit indicates too many failed login attempts (URS 412)
	CodeExceedRateLimit Code = "exceed rate limit"

	// CodeAccountNotFound indicates the account does not exist (URS 420)
	CodeAccountNotFound Code = "account not found"

	// CodeAccountFrozen indicates the account is locked (URS 422)
	CodeAccountFrozen Code = "account frozen"

	// CodePasswordMismatch indicates a wrong password (URS 460)
	CodePasswordMismatch Code = "password mismatch"

	// CodeAborted indicates the request was cancelled locally
	CodeAborted Code = "aborted"

	// CodeNetworkError indicates a transport-level failure
	CodeNetworkError Code = "network error"

	// CodeServerError is the collapse bucket for malformed payloads and
	// unrecognised server error strings.
	CodeServerError Code = "server error"

	// CodeTimeout indicates the request exceeded its deadline
	CodeTimeout Code = "timeout"
)

// CodeInfo provides human-readable information about taxonomy codes
type CodeInfo struct {
	Code     Code
	Name     string
	Message  string
	Category Category
	Severity Severity
}

// codeRegistry maps taxonomy codes to their information
var codeRegistry = map[Code]CodeInfo{
	CodeIllegalParam:     {CodeIllegalParam, "IllegalParam", "invalid parameters", CategoryValidation, SeverityError},
	CodeUnknownClientID:  {CodeUnknownClientID, "UnknownClientId", "connection has been lost", CategoryProtocol, SeverityWarning},
	CodeExceedMaxConn:    {CodeExceedMaxConn, "ExceedMaxConnections", "server connection capacity exceeded", CategoryServer, SeverityWarning},
	CodeCannotCmd:        {CodeCannotCmd, "CannotProcessCommand", "request temporarily unprocessable", CategoryServer, SeverityWarning},
	CodeAuthFailed:       {CodeAuthFailed, "AuthFailed", "authentication failed", CategoryAuth, SeverityError},
	CodeExceedRateLimit:  {CodeExceedRateLimit, "ExceedRateLimit", "too many failed attempts, try again later", CategoryAuth, SeverityError},
	CodeAccountNotFound:  {CodeAccountNotFound, "AccountNotFound", "account does not exist", CategoryAuth, SeverityError},
	CodeAccountFrozen:    {CodeAccountFrozen, "AccountFrozen", "account is frozen", CategoryAuth, SeverityError},
	CodePasswordMismatch: {CodePasswordMismatch, "PasswordMismatch", "wrong password", CategoryAuth, SeverityError},
	CodeAborted:          {CodeAborted, "Aborted", "request aborted", CategoryCancelled, SeverityInfo},
	CodeNetworkError:     {CodeNetworkError, "NetworkError", "network failure", CategoryTransport, SeverityError},
	CodeServerError:      {CodeServerError, "ServerError", "server error", CategoryServer, SeverityError},
	CodeTimeout:          {CodeTimeout, "Timeout", "request timed out", CategoryTimeout, SeverityError},
}

// infoFor returns registry information for a code, falling back to the
// server error bucket for codes outside the taxonomy.
func infoFor(code Code) CodeInfo {
	if info, ok := codeRegistry[code]; ok {
		return info
	}
	return codeRegistry[CodeServerError]
}

// GetCodeInfo returns information about a taxonomy code
func GetCodeInfo(code Code) (CodeInfo, bool) {
	info, exists := codeRegistry[code]
	return info, exists
}

// GetCodeName returns the name of a taxonomy code
func GetCodeName(code Code) string {
	if info, exists := codeRegistry[code]; exists {
		return info.Name
	}
	return "UnknownError"
}

// ListCodes returns all registered taxonomy codes
func ListCodes() []CodeInfo {
	codes := make([]CodeInfo, 0, len(codeRegistry))
	for _, info := range codeRegistry {
		codes = append(codes, info)
	}
	return codes
}
