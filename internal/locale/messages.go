package locale

import "sort"

// Message keys shared by the error reporter, the session gate and the
// HTTP error page.
const (
	MsgInternalDatabaseError = "Internal Database Error"
	MsgAccessDenied          = "Access Denied"
	MsgInvalidDateTime       = "Invalid date/time entered"
	MsgDivisionByZero        = "Division by 0 error"
	MsgRequiredInput         = "Required input not provided"
	MsgConflict              = "Conflict with Existing Data"
	MsgErrorFromFunction     = "Error from Function:"
	MsgSessionInvalid        = "Session expired or not valid"
	MsgFormInvalid           = "This form has already been submitted or has expired"
	MsgMethodNotAllowed      = "Request method not allowed"
	MsgInvalidScript         = "Invalid script name"
	MsgUnknownScript         = "Unknown script"
	MsgUnknownAction         = "Unknown action"
	MsgError                 = "Error"
)

var messageKeys = map[string]struct{}{
	MsgInternalDatabaseError: {},
	MsgAccessDenied:          {},
	MsgInvalidDateTime:       {},
	MsgDivisionByZero:        {},
	MsgRequiredInput:         {},
	MsgConflict:              {},
	MsgErrorFromFunction:     {},
	MsgSessionInvalid:        {},
	MsgFormInvalid:           {},
	MsgMethodNotAllowed:      {},
	MsgInvalidScript:         {},
	MsgUnknownScript:         {},
	MsgUnknownAction:         {},
	MsgError:                 {},
}

// IsKey reports whether s is a message key.
func IsKey(s string) bool {
	_, ok := messageKeys[s]
	return ok
}

// Translate renders s in l when s is a message key and returns it
// unchanged otherwise. Free text is never run through the formatter.
func Translate(l Locale, s string) string {
	if l == nil || !IsKey(s) {
		return s
	}
	return l.Text(s)
}

var builtinMessages = map[string]map[string]string{
	"en": {},
	"de": {
		MsgInternalDatabaseError: "Interner Datenbankfehler",
		MsgAccessDenied:          "Zugriff verweigert",
		MsgInvalidDateTime:       "Ungültiges Datum oder ungültige Uhrzeit",
		MsgDivisionByZero:        "Division durch 0",
		MsgRequiredInput:         "Erforderliche Eingabe fehlt",
		MsgConflict:              "Konflikt mit vorhandenen Daten",
		MsgErrorFromFunction:     "Fehler aus Funktion:",
		MsgSessionInvalid:        "Sitzung abgelaufen oder ungültig",
		MsgFormInvalid:           "Dieses Formular wurde bereits abgeschickt oder ist abgelaufen",
		MsgMethodNotAllowed:      "Anfragemethode nicht erlaubt",
		MsgInvalidScript:         "Ungültiger Skriptname",
		MsgUnknownScript:         "Unbekanntes Skript",
		MsgUnknownAction:         "Unbekannte Aktion",
		MsgError:                 "Fehler",
	},
	"es": {
		MsgInternalDatabaseError: "Error interno de la base de datos",
		MsgAccessDenied:          "Acceso denegado",
		MsgInvalidDateTime:       "Fecha u hora no válida",
		MsgDivisionByZero:        "Error de división por 0",
		MsgRequiredInput:         "No se proporcionó un dato requerido",
		MsgConflict:              "Conflicto con datos existentes",
		MsgErrorFromFunction:     "Error de la función:",
		MsgSessionInvalid:        "Sesión caducada o no válida",
		MsgFormInvalid:           "Este formulario ya fue enviado o ha caducado",
		MsgMethodNotAllowed:      "Método de petición no permitido",
		MsgInvalidScript:         "Nombre de script no válido",
		MsgUnknownScript:         "Script desconocido",
		MsgUnknownAction:         "Acción desconocida",
		MsgError:                 "Error",
	},
	"fr": {
		MsgInternalDatabaseError: "Erreur interne de la base de données",
		MsgAccessDenied:          "Accès refusé",
		MsgInvalidDateTime:       "Date ou heure invalide",
		MsgDivisionByZero:        "Erreur de division par 0",
		MsgRequiredInput:         "Saisie obligatoire manquante",
		MsgConflict:              "Conflit avec des données existantes",
		MsgErrorFromFunction:     "Erreur de la fonction :",
		MsgSessionInvalid:        "Session expirée ou invalide",
		MsgFormInvalid:           "Ce formulaire a déjà été soumis ou a expiré",
		MsgMethodNotAllowed:      "Méthode de requête non autorisée",
		MsgInvalidScript:         "Nom de script invalide",
		MsgUnknownScript:         "Script inconnu",
		MsgUnknownAction:         "Action inconnue",
		MsgError:                 "Erreur",
	},
}

func builtinLanguages() []string {
	langs := make([]string, 0, len(builtinMessages))
	for lang := range builtinMessages {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}
