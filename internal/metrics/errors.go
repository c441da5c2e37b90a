package metrics

import "strconv"

const (
	errorsTotal      = "errors_total"
	panicsTotal      = "panics_total"
	errorsByEndpoint = "errors_by_endpoint"
)

// RecordError counts an error response by envelope code and HTTP status.
func RecordError(code string, status int) {
	counter(errorsTotal, labels{"error_code": code, "http_status": strconv.Itoa(status)})
}

// RecordPanic counts a recovered panic, whether in a handler or a reading.
func RecordPanic() {
	counter(panicsTotal, nil)
}

// RecordErrorByEndpoint counts an error against the route pattern that raised it.
func RecordErrorByEndpoint(endpoint, code string) {
	counter(errorsByEndpoint, labels{"endpoint": endpoint, "error_code": code})
}
