package errors

import "strings"

// serverStringAliases maps wire error strings that differ from their
// canonical code. The server has emitted both spellings of the signin
// failure over time.
var serverStringAliases = map[string]Code{
	"auth-failed": CodeAuthFailed,
}

// FromServerString maps a raw server error string into the taxonomy.
// The string is lower-cased first; anything unrecognised collapses to
// CodeServerError and the caller should retain the original string as
// detail for diagnostics.
func FromServerString(s string) Code {
	lowered := strings.ToLower(strings.TrimSpace(s))
	if code, ok := serverStringAliases[lowered]; ok {
		return code
	}
	if _, ok := codeRegistry[Code(lowered)]; ok {
		return Code(lowered)
	}
	return CodeServerError
}

// ServerError builds a classified error from a raw server error string,
// keeping the original string as detail when it falls outside the
// taxonomy.
func ServerError(raw string) PushError {
	code := FromServerString(raw)
	err := New(code)
	if code == CodeServerError && raw != "" {
		err = err.WithDetail(raw)
	}
	return err
}

// ursCodeMap maps URS login return codes into the taxonomy. The codes
// are the credential service's documented failure modes.
var ursCodeMap = map[string]Code{
	"412": CodeExceedRateLimit,  // wrong password too many times
	"420": CodeAccountNotFound,  // user not found
	"422": CodeAccountFrozen,    // user locked
	"460": CodePasswordMismatch, // verify fail
	"401": CodeIllegalParam,     // illegal parameters
}

// FromURSCode maps a URS numeric return code into the taxonomy. An
// empty code means the HTTP exchange itself failed.
func FromURSCode(retcode string) PushError {
	if retcode == "" {
		return New(CodeNetworkError)
	}
	if code, ok := ursCodeMap[retcode]; ok {
		return Newf(code, "urs retcode %s", retcode)
	}
	return Newf(CodeServerError, "urs retcode %s", retcode)
}
