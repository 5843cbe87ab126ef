package request

import (
	"net/http"
	"path"
	"regexp"
	"strings"

	"github.com/yndnr/ledgergate-go/internal/core/domain"
)

var nonWordRe = regexp.MustCompile(`\W`)

// ValidateMethod accepts HEAD, GET and POST only.
func ValidateMethod(method string) error {
	switch method {
	case http.MethodHead, http.MethodGet, http.MethodPost:
		return nil
	case "":
		return domain.ErrMethodMissing
	}
	return domain.ErrMethodNotAllowed.WithDetails(method)
}

// ScriptFromPath extracts the script name (last path element) from a
// SCRIPT_NAME or URL path.
func ScriptFromPath(p string) string {
	p = strings.TrimRight(p, "/")
	if p == "" {
		return ""
	}
	return path.Base(p)
}

// ValidateScriptName rejects names carrying parent-directory or path
// separator sequences.
func ValidateScriptName(script string) error {
	if script == "" {
		return domain.ErrInvalidScript.WithDetails("empty script name")
	}
	if strings.Contains(script, "..") || strings.ContainsAny(script, `/\`) || strings.ContainsRune(script, 0) {
		return domain.ErrInvalidScript.WithDetails(script)
	}
	return nil
}

// ScriptFromScriptPath validates a full SCRIPT_NAME and returns its script
// name. Directory components are allowed; parent-directory references and
// backslashes anywhere in the path are not.
func ScriptFromScriptPath(p string) (string, error) {
	if strings.Contains(p, "..") || strings.ContainsRune(p, '\\') {
		return "", domain.ErrInvalidScript.WithDetails(p)
	}
	script := ScriptFromPath(p)
	if err := ValidateScriptName(script); err != nil {
		return "", err
	}
	return script, nil
}

// SanitizeAction replaces every non-word character with an underscore.
func SanitizeAction(action string) string {
	return nonWordRe.ReplaceAllString(action, "_")
}
