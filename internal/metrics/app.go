package metrics

import "time"

const (
	guidanceRequests      = "guidance_requests_total"
	guidanceGenerationMs  = "guidance_generation_duration_ms"
	guidanceResponseBytes = "guidance_response_bytes"

	rateLimitRejections = "rate_limit_rejections_total"
	rateLimitClients    = "rate_limit_tracked_clients"

	contactMessages = "contact_messages_total"
	adminLogins     = "admin_logins_total"

	healthChecks       = "app_health_check_total"
	healthCheckLatency = "app_health_check_duration_ms"

	serverStartTime = "app_server_start_time_seconds"
)

// RecordGuidance counts one interpretation by outcome ("ok" or an error kind)
// and language.
func RecordGuidance(outcome, language string) {
	counter(guidanceRequests, labels{"outcome": outcome, "language": language})
}

// RecordGeneration records one provider call. reason is empty on success;
// responseBytes is only reported when positive.
func RecordGeneration(provider, reason string, duration time.Duration, responseBytes int) {
	status := reason
	if status == "" {
		status = "success"
	}
	histogram(guidanceGenerationMs, duration, labels{"provider": provider, "status": status})
	if responseBytes > 0 {
		gauge(guidanceResponseBytes, float64(responseBytes), labels{"provider": provider})
	}
}

func RecordRateLimitRejection(limiter string) {
	counter(rateLimitRejections, labels{"limiter": limiter})
}

// SetRateLimitTrackedClients reports the limiter table size after a sweep.
func SetRateLimitTrackedClients(limiter string, count int) {
	gauge(rateLimitClients, float64(count), labels{"limiter": limiter})
}

func RecordContactMessage(success bool) {
	counter(contactMessages, labels{"status": statusLabel(success)})
}

// RecordAdminLogin counts login attempts by result (success, invalid,
// forbidden, throttled or error).
func RecordAdminLogin(result string) {
	counter(adminLogins, labels{"result": result})
}

func RecordHealthCheck(check string, healthy bool, duration time.Duration) {
	status := "healthy"
	if !healthy {
		status = "unhealthy"
	}
	counter(healthChecks, labels{"check": check, "status": status})
	histogram(healthCheckLatency, duration, labels{"check": check})
}

// SetServerStartTime records process start as a Unix timestamp.
func SetServerStartTime(unix int64) {
	gauge(serverStartTime, float64(unix), nil)
}
