// Package i18n translates the error and violation codes returned by the API.
package i18n

import "strings"

// DefaultLanguage is used when the client asks for nothing we support.
const DefaultLanguage = "en"

var catalog = map[string]map[string]string{
	"en": {
		"required":              "Required",
		"must_be_positive":      "Must be greater than zero",
		"must_not_be_negative":  "Must not be negative",
		"out_of_range":          "Out of range",
		"too_few_digits":        "Too few digits",
		"invalid_date":          "Invalid date, use YYYY-MM-DD",
		"start_after_end":       "Start date is after end date",
		"validation_failed":     "Some fields are invalid",
		"not_found":             "Not found",
		"invalid_reference":     "Referenced record does not belong here",
		"conflict":              "Conflicts with the current state",
		"try_again":             "Something went wrong, please try again",
		"invalid_json":          "Malformed request body",
		"payload_too_large":     "Request body too large",
		"invalid_id":            "Invalid id",
		"invalid_pdf":           "Attachment is not a valid PDF",
		"storage_not_available": "Document storage is not configured",
		"stream_unavailable":    "Live updates are not available",
	},
	"es": {
		"required":              "Obligatorio",
		"must_be_positive":      "Debe ser mayor que cero",
		"must_not_be_negative":  "No puede ser negativo",
		"out_of_range":          "Fuera de rango",
		"too_few_digits":        "Faltan dígitos",
		"invalid_date":          "Fecha no válida, use AAAA-MM-DD",
		"start_after_end":       "La fecha de inicio es posterior a la final",
		"validation_failed":     "Algunos campos no son válidos",
		"not_found":             "No encontrado",
		"invalid_reference":     "El registro indicado no pertenece aquí",
		"conflict":              "Entra en conflicto con el estado actual",
		"try_again":             "Algo salió mal, inténtelo de nuevo",
		"invalid_json":          "Cuerpo de la solicitud mal formado",
		"payload_too_large":     "Cuerpo de la solicitud demasiado grande",
		"invalid_id":            "Identificador no válido",
		"invalid_pdf":           "El adjunto no es un PDF válido",
		"storage_not_available": "El almacenamiento de documentos no está configurado",
		"stream_unavailable":    "Las actualizaciones en vivo no están disponibles",
	},
}

// DetectLanguage picks the first supported language from an
// Accept-Language header. q-values are ignored; order wins.
func DetectLanguage(header string) string {
	for _, part := range strings.Split(header, ",") {
		tag, _, _ := strings.Cut(part, ";")
		tag = strings.ToLower(strings.TrimSpace(tag))
		base, _, _ := strings.Cut(tag, "-")
		if _, ok := catalog[base]; ok {
			return base
		}
	}
	return DefaultLanguage
}

// T returns the message for code in lang, falling back to the default
// language and then to the code itself.
func T(lang, code string) string {
	if msg, ok := catalog[lang][code]; ok {
		return msg
	}
	if msg, ok := catalog[DefaultLanguage][code]; ok {
		return msg
	}
	return code
}

// Fields translates every violation code in v.
func Fields(lang string, v map[string]string) map[string]string {
	if len(v) == 0 {
		return nil
	}
	out := make(map[string]string, len(v))
	for field, code := range v {
		out[field] = T(lang, code)
	}
	return out
}
