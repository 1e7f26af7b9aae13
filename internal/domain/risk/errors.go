package risk

import "errors"

var (
	// ErrMalformedAIResponse: the model's output contained no parseable JSON
	// object. Never replaced by a default score.
	ErrMalformedAIResponse = errors.New("ai response is not a well-formed json object")
	// ErrInferenceUnavailable: the inference backend failed or timed out.
	ErrInferenceUnavailable = errors.New("inference backend unavailable")
	// ErrGatewayUnavailable is internal only; the analysis degrades to
	// zero-valued defaults instead of surfacing it.
	ErrGatewayUnavailable = errors.New("on-chain data gateway unavailable")
)
