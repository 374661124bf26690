package observability

const (
	MUsecaseRequests         MetricKey = "usecase_requests_total"
	MUsecaseDuration         MetricKey = "usecase_duration_seconds"
	MHTTPRequests            MetricKey = "http_requests_total"
	MHTTPRequestDuration     MetricKey = "http_request_duration_seconds"
	MExternalRequests        MetricKey = "external_requests_total"
	MExternalRequestDuration MetricKey = "external_request_duration_seconds"
	MPromoApplications       MetricKey = "promo_applications_total"
	MCheckoutEvents          MetricKey = "checkout_events_total"
	MCountdownStreams        MetricKey = "countdown_streams_total"
	MRateLimited             MetricKey = "http_rate_limited_total"
)

// MetricSpec describes how a MetricKey is registered with the metrics backend.
type MetricSpec struct {
	Key     MetricKey
	Help    string
	Labels  []string
	Buckets []float64
}

// CounterSpecs lists every counter the service emits.
var CounterSpecs = []MetricSpec{
	{Key: MUsecaseRequests, Help: "Total number of use case invocations.", Labels: []string{"use_case", "outcome"}},
	{Key: MHTTPRequests, Help: "Total number of HTTP requests served.", Labels: []string{"method", "route", "status"}},
	{Key: MExternalRequests, Help: "Total number of calls to external peers.", Labels: []string{"peer", "endpoint", "outcome"}},
	{Key: MPromoApplications, Help: "Promo code application attempts by outcome.", Labels: []string{"outcome"}},
	{Key: MCheckoutEvents, Help: "Checkout events handled by the worker.", Labels: []string{"event", "outcome"}},
	{Key: MCountdownStreams, Help: "Section countdown streams by how they ended.", Labels: []string{"outcome"}},
	{Key: MRateLimited, Help: "Requests rejected by the rate limiter.", Labels: []string{"route"}},
}

// HistogramSpecs lists every histogram the service emits. Nil buckets mean the backend default.
var HistogramSpecs = []MetricSpec{
	{Key: MUsecaseDuration, Help: "Duration of use case execution in seconds.", Labels: []string{"use_case"}},
	{Key: MHTTPRequestDuration, Help: "Duration of HTTP requests in seconds.", Labels: []string{"method", "route", "status"}},
	{Key: MExternalRequestDuration, Help: "Duration of external calls in seconds.", Labels: []string{"peer", "endpoint"}},
}
