package domain

import "strings"

// RunMode is the execution context of a request.
type RunMode string

const (
	// RunModeCLI is a command-line invocation. Session and form checks
	// do not apply.
	RunModeCLI RunMode = "cli"

	// RunModeGateway is a one-shot gateway (CGI) process.
	RunModeGateway RunMode = "gateway"

	// RunModeEmbedded is a request served by the long-running HTTP server.
	RunModeEmbedded RunMode = "embedded"
)

// Environment variables consulted by DetectRunMode and the initializer.
const (
	EnvRequestMethod    = "REQUEST_METHOD"
	EnvScriptName       = "SCRIPT_NAME"
	EnvHTTPCookie       = "HTTP_COOKIE"
	EnvGatewayInterface = "GATEWAY_INTERFACE"
	EnvAcceptLanguage   = "HTTP_ACCEPT_LANGUAGE"
	EnvLang             = "LANG"
	EnvEmbedded         = "LEDGERGATE_EMBEDDED"
	EnvNoSessionCheck   = "LEDGERGATE_NO_SESSION_CHECK"
)

// IsNetwork reports whether the mode serves HTTP clients.
func (m RunMode) IsNetwork() bool {
	return m == RunModeGateway || m == RunModeEmbedded
}

// String implements fmt.Stringer.
func (m RunMode) String() string {
	return string(m)
}

// DetectRunMode determines the run mode from environment variables.
// The embedded indicator wins over a gateway interface; no request method
// at all means command line.
func DetectRunMode(env map[string]string) RunMode {
	if isTruthy(env[EnvEmbedded]) {
		return RunModeEmbedded
	}
	if strings.HasPrefix(strings.ToUpper(env[EnvGatewayInterface]), "CGI/") {
		return RunModeGateway
	}
	if env[EnvRequestMethod] == "" {
		return RunModeCLI
	}
	return RunModeGateway
}

// NoSessionCheck reports whether the environment disables session checks.
func NoSessionCheck(env map[string]string) bool {
	return isTruthy(env[EnvNoSessionCheck])
}

func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
