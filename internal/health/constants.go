package health

// HTTP paths served by Register.
const (
	PathHealth = "/health"
	PathReady  = "/ready"
	PathLive   = "/live"
)

// HeaderContentType is the Content-Type header name.
const HeaderContentType = "Content-Type"

// ContentTypeJSON is the JSON content type.
const ContentTypeJSON = "application/json"
