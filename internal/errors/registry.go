package errors

import (
	"net/http"
	"sort"
)

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
	Status   int
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Transport Errors (FB100-FB109)
	// ============================================

	"FB100": {
		Category: CategoryTransport,
		Message:  "Malformed multipart body",
		Detail:   "The request body is not valid multipart/form-data. A part may be truncated, the closing boundary may be missing, or a part may lack a field name.",
		Status:   http.StatusBadRequest,
	},
	"FB101": {
		Category: CategoryTransport,
		Message:  "Request canceled",
		Detail:   "The client went away before the request body was read. Spooled files were discarded.",
		Status:   http.StatusBadRequest,
	},
	"FB102": {
		Category: CategoryTransport,
		Message:  "Request body too large",
		Detail:   "The request body exceeded the configured size limit.",
		Status:   http.StatusRequestEntityTooLarge,
	},

	// ============================================
	// Path Errors (FB110-FB119)
	// ============================================

	"FB110": {
		Category: CategoryPath,
		Message:  "Malformed field path",
		Detail:   "A multipart field name is not a valid bracket path such as data[variables][file].",
		Status:   http.StatusBadRequest,
	},
	"FB111": {
		Category: CategoryPath,
		Message:  "Field path collision",
		Detail:   "Two fields address the same position, or one field is both a value and the parent of another field.",
		Status:   http.StatusBadRequest,
	},
	"FB112": {
		Category: CategoryPath,
		Message:  "Payload shape mismatch",
		Detail:   "The rebuilt payload does not match the expected shape of the operation.",
		Status:   http.StatusBadRequest,
	},

	// ============================================
	// Payload Errors (FB120-FB129)
	// ============================================

	"FB120": {
		Category: CategoryPayload,
		Message:  "Missing operation payload",
		Detail:   "The multipart body has no fields under the operation payload key.",
		Status:   http.StatusBadRequest,
	},
	"FB121": {
		Category: CategoryPayload,
		Message:  "Unnamed payload value",
		Detail:   "A value cannot be sent because it has no field path.",
		Status:   http.StatusBadRequest,
	},
	"FB122": {
		Category: CategoryPayload,
		Message:  "Invalid operation",
		Detail:   "The operation payload must be a map with a string query, an optional string operationName and a map of variables.",
		Status:   http.StatusBadRequest,
	},

	// ============================================
	// Schema Errors (FB130-FB139)
	// ============================================

	"FB130": {
		Category: CategorySchema,
		Message:  "File literals are not allowed",
		Detail:   "File values must be passed as variables. Inline literals in query text cannot carry file contents.",
		Status:   http.StatusBadRequest,
	},
	"FB131": {
		Category: CategorySchema,
		Message:  "Query syntax error",
		Detail:   "The query text could not be read.",
		Status:   http.StatusBadRequest,
	},

	// ============================================
	// Stream Errors (FB140-FB149)
	// ============================================

	"FB140": {
		Category: CategoryStream,
		Message:  "File stream failed",
		Detail:   "Reading an uploaded file failed. File streams can be read once.",
		Status:   http.StatusInternalServerError,
	},
	"FB141": {
		Category: CategoryStream,
		Message:  "Spool storage failed",
		Detail:   "An uploaded file could not be written to temporary storage.",
		Status:   http.StatusInternalServerError,
	},

	// ============================================
	// Config Errors (FB150-FB159)
	// ============================================

	"FB150": {
		Category: CategoryConfig,
		Message:  "Invalid configuration",
		Detail:   "filebridge.json contains an invalid value.",
		Status:   http.StatusInternalServerError,
	},
	"FB151": {
		Category: CategoryConfig,
		Message:  "Configuration file not found",
		Detail:   "No filebridge.json was found in the working directory.",
		Status:   http.StatusInternalServerError,
	},

	// ============================================
	// CLI Errors (FB160-FB169)
	// ============================================

	"FB160": {
		Category: CategoryCLI,
		Message:  "Invalid --file flag",
		Detail:   "File flags take the form variable.path=./local/file.",
		Status:   http.StatusBadRequest,
	},
	"FB161": {
		Category: CategoryCLI,
		Message:  "Request failed",
		Detail:   "The server did not accept the operation.",
		Status:   http.StatusBadGateway,
	},

	// ============================================
	// Internal Errors (FB190-FB199)
	// ============================================

	"FB199": {
		Category: CategoryInternal,
		Message:  "Internal error",
		Detail:   "An unexpected error occurred while handling the upload.",
		Status:   http.StatusInternalServerError,
	},
}

// GetAllCodes returns all registered error codes in order.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}

// Register adds a new error template to the registry.
func Register(code string, template ErrorTemplate) {
	registry[code] = template
}
