package internaldefs

import (
	"github.com/MrEthical07/sessiongate"
)

// CounterDef names one engine counter for export.
type CounterDef struct {
	ID   sessiongate.MetricID
	Name string
	Help string
}

// HistogramDef names one engine histogram for export.
type HistogramDef struct {
	ID   sessiongate.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in output order.
var CounterDefs = []CounterDef{
	{ID: sessiongate.MetricSessionValid, Name: "sessiongate_session_valid_total", Help: "Requests whose session token verified."},
	{ID: sessiongate.MetricSessionNoToken, Name: "sessiongate_session_no_token_total", Help: "Requests without a session cookie."},
	{ID: sessiongate.MetricSessionMalformed, Name: "sessiongate_session_malformed_total", Help: "Structurally invalid session tokens."},
	{ID: sessiongate.MetricSessionBadSignature, Name: "sessiongate_session_bad_signature_total", Help: "Session tokens with an invalid signature or algorithm."},
	{ID: sessiongate.MetricSessionExpired, Name: "sessiongate_session_expired_total", Help: "Correctly signed but expired session tokens."},
	{ID: sessiongate.MetricSessionMissingIdentity, Name: "sessiongate_session_missing_identity_total", Help: "Verified session tokens without a user id."},
	{ID: sessiongate.MetricSessionIssued, Name: "sessiongate_session_issued_total", Help: "Session tokens issued at login or registration."},
	{ID: sessiongate.MetricSessionRenewed, Name: "sessiongate_session_renewed_total", Help: "Sliding session renewals."},
	{ID: sessiongate.MetricRecordWriteFailure, Name: "sessiongate_record_write_failure_total", Help: "Failed session record writes."},
	{ID: sessiongate.MetricLoginSuccess, Name: "sessiongate_login_success_total", Help: "Successful logins."},
	{ID: sessiongate.MetricLoginFailure, Name: "sessiongate_login_failure_total", Help: "Rejected login credentials."},
	{ID: sessiongate.MetricLoginRateLimited, Name: "sessiongate_login_rate_limited_total", Help: "Logins refused by throttling."},
	{ID: sessiongate.MetricRegisterSuccess, Name: "sessiongate_register_success_total", Help: "Created accounts."},
	{ID: sessiongate.MetricRegisterDuplicate, Name: "sessiongate_register_duplicate_total", Help: "Registrations for an existing email."},
	{ID: sessiongate.MetricRegisterRateLimited, Name: "sessiongate_register_rate_limited_total", Help: "Registrations refused by throttling."},
	{ID: sessiongate.MetricLogout, Name: "sessiongate_logout_total", Help: "Logouts."},
	{ID: sessiongate.MetricRateLimitHit, Name: "sessiongate_rate_limit_hit_total", Help: "Throttling denials of any kind."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: sessiongate.MetricVerifyLatency, Name: "sessiongate_verify_latency_seconds", Help: "Session token verification latency."},
}

// HistogramBounds are the bucket upper bounds in seconds, matching the engine's buckets.
var HistogramBounds = []string{
	"0.00005",
	"0.0001",
	"0.00025",
	"0.0005",
	"0.001",
	"0.0025",
	"0.005",
	"+Inf",
}

// HistogramBoundSuffix renders each bound as a metric-name-safe suffix.
var HistogramBoundSuffix = []string{
	"0_00005",
	"0_0001",
	"0_00025",
	"0_0005",
	"0_001",
	"0_0025",
	"0_005",
	"inf",
}

// AuditDropped is the counter for audit events dropped under backpressure.
var AuditDropped = CounterDef{
	Name: "sessiongate_audit_dropped_total",
	Help: "Audit events dropped because the dispatcher queue was full.",
}

// NormalizeBuckets pads or truncates raw to the fixed bucket count.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts to the cumulative form Prometheus expects.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
