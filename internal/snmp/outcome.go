// Package snmp fetches single attributes from network devices over SNMP and
// classifies every reply into an Outcome.
package snmp

import "fmt"

// Kind tags the variant carried by an Outcome.
type Kind int

const (
	KindValue Kind = iota
	KindNotFound
	KindTransportError
	KindProtocolError
)

// String returns a short lowercase name for the kind.
func (k Kind) String() string {
	switch k {
	case KindValue:
		return "value"
	case KindNotFound:
		return "not_found"
	case KindTransportError:
		return "transport_error"
	case KindProtocolError:
		return "protocol_error"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Outcome is the result of one fetch. Exactly one variant is set: Value is
// meaningful only for KindValue, Detail only for the error kinds.
type Outcome struct {
	Kind   Kind
	Value  string
	Detail string
}

// ErrorPrefix starts every formatted error cell so report consumers can tell
// failures from values by inspection.
const ErrorPrefix = "Error: "

// TransportPrefix follows ErrorPrefix for failures where the device never answered.
const TransportPrefix = "transport: "

// Value builds a successful outcome.
func Value(v string) Outcome {
	return Outcome{Kind: KindValue, Value: v}
}

// NotFound builds an outcome for an object the device says it does not have.
func NotFound(detail string) Outcome {
	return Outcome{Kind: KindNotFound, Detail: detail}
}

// TransportError builds an outcome for a request that got no usable reply.
func TransportError(detail string) Outcome {
	return Outcome{Kind: KindTransportError, Detail: detail}
}

// ProtocolError builds an outcome for a reply that signaled an error other
// than not-found, or carried no data.
func ProtocolError(detail string) Outcome {
	return Outcome{Kind: KindProtocolError, Detail: detail}
}

// OK reports whether the outcome carries a value.
func (o Outcome) OK() bool {
	return o.Kind == KindValue
}

// Text renders the outcome as a report cell.
func (o Outcome) Text() string {
	switch o.Kind {
	case KindValue:
		return o.Value
	case KindTransportError:
		return ErrorPrefix + TransportPrefix + o.Detail
	default:
		return ErrorPrefix + o.Detail
	}
}

func (o Outcome) String() string {
	return o.Kind.String() + ": " + o.Text()
}
