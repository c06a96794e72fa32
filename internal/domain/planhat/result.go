package planhat

// Request methods recorded on an ApiResult. Lookups that were never sent use
// MethodQuery with EndpointNone.
const (
	MethodGet    = "GET"
	MethodPost   = "POST"
	MethodPut    = "PUT"
	MethodQuery  = "query"
	EndpointNone = "none"
)

// ApiResult is the uniform outcome of a remote call. Non-2xx responses are
// reported with Success false, never as a Go error.
type ApiResult[T any] struct {
	Success  bool   `json:"success"`
	Data     T      `json:"data"`
	Endpoint string `json:"endpoint"`
	Method   string `json:"method"`
	Record   any    `json:"record,omitempty"`
	Error    string `json:"error,omitempty"`
}

// NotAttempted returns a failed result for a lookup that was not sent.
func NotAttempted[T any]() *ApiResult[T] {
	return &ApiResult[T]{
		Success:  false,
		Endpoint: EndpointNone,
		Method:   MethodQuery,
	}
}
