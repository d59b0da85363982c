package gateway

import "github.com/lydakis/mcp-aggregating-gateway/internal/dispatch"

// Envelope is the text-content JSON body returned for every tools/call
// response, whether it originated from a single dispatch or a batch.
type Envelope struct {
	Success  bool             `json:"success"`
	Data     any              `json:"data,omitempty"`
	Error    *EnvelopeError   `json:"error,omitempty"`
	Metadata EnvelopeMetadata `json:"metadata"`
}

// EnvelopeError is the "error" field of a failed Envelope.
type EnvelopeError struct {
	Message string `json:"message"`
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
}

// EnvelopeMetadata is the "metadata" field, always present.
type EnvelopeMetadata struct {
	ServerName     string `json:"serverName"`
	OperationName  string `json:"operationName"`
	DurationMs     int64  `json:"durationMs"`
	Cached         bool   `json:"cached"`
	TokensEstimate int    `json:"tokensEstimate"`
}

// FromBridgeResult builds the single-operation envelope described for
// category meta-tools.
func FromBridgeResult(r dispatch.BridgeResult) Envelope {
	env := Envelope{
		Success: r.Success,
		Metadata: EnvelopeMetadata{
			ServerName:     r.Meta.Upstream,
			OperationName:  r.Meta.OperationName,
			DurationMs:     r.Meta.DurationMs,
			Cached:         r.Meta.Cached,
			TokensEstimate: r.Meta.TokensEstimate,
		},
	}
	if r.Success {
		env.Data = r.Body
	} else {
		env.Error = &EnvelopeError{Message: r.Err.Message, Code: string(r.Err.Code)}
	}
	return env
}

// validationEnvelope builds a failed envelope for input the dispatcher
// never saw: an unknown meta-tool name or malformed arguments.
func validationEnvelope(operationName, message string) Envelope {
	return Envelope{
		Success: false,
		Error:   &EnvelopeError{Message: message, Code: string(dispatch.CodeValidationError)},
		Metadata: EnvelopeMetadata{
			OperationName: operationName,
		},
	}
}

// BatchResultItem is one entry of a batch envelope's "data.results" array.
type BatchResultItem struct {
	Success  bool             `json:"success"`
	Data     any              `json:"data,omitempty"`
	Error    *EnvelopeError   `json:"error,omitempty"`
	Metadata EnvelopeMetadata `json:"metadata"`
}

// BatchSummary is the "data.summary" field of a batch envelope.
type BatchSummary struct {
	Total      int   `json:"total"`
	Succeeded  int   `json:"succeeded"`
	Failed     int   `json:"failed"`
	DurationMs int64 `json:"durationMs"`
}

// BatchData is the "data" field of a batch_operations envelope.
type BatchData struct {
	Results []BatchResultItem `json:"results"`
	Summary BatchSummary      `json:"summary"`
}
