package inventory

import (
	"context"

	"github.com/nmslite/fleetpoll/internal/snmp"
)

// Fetcher is the single-attribute lookup Resolve works against.
type Fetcher interface {
	Fetch(ctx context.Context, oid string) snmp.Outcome
}

// Resolve tries the fallback candidates in order. A value ends the search;
// not-found moves on to the next candidate; any other failure is returned
// as is without trying further candidates. When every candidate is
// not-found the result is a not-found naming the logical attribute.
func Resolve(ctx context.Context, f Fetcher, spec FallbackSpec) snmp.Outcome {
	exhausted := snmp.NotFound(spec.name + " not found on this device")

	for _, oid := range spec.oids {
		out := f.Fetch(ctx, oid)
		switch out.Kind {
		case snmp.KindValue:
			return out
		case snmp.KindNotFound:
			continue
		case snmp.KindTransportError, snmp.KindProtocolError:
			return out
		default:
			return snmp.ProtocolError("unclassified reply for " + oid)
		}
	}

	return exhausted
}
