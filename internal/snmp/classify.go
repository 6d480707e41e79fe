package snmp

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/gosnmp/gosnmp"
)

// errorStatusNames maps PDU error-status codes to their RFC 3416 names.
var errorStatusNames = map[gosnmp.SNMPError]string{
	gosnmp.NoError:             "noError",
	gosnmp.TooBig:              "tooBig",
	gosnmp.NoSuchName:          "noSuchName",
	gosnmp.BadValue:            "badValue",
	gosnmp.ReadOnly:            "readOnly",
	gosnmp.GenErr:              "genErr",
	gosnmp.NoAccess:            "noAccess",
	gosnmp.WrongType:           "wrongType",
	gosnmp.WrongLength:         "wrongLength",
	gosnmp.WrongEncoding:       "wrongEncoding",
	gosnmp.WrongValue:          "wrongValue",
	gosnmp.NoCreation:          "noCreation",
	gosnmp.InconsistentValue:   "inconsistentValue",
	gosnmp.ResourceUnavailable: "resourceUnavailable",
	gosnmp.CommitFailed:        "commitFailed",
	gosnmp.UndoFailed:          "undoFailed",
	gosnmp.AuthorizationError:  "authorizationError",
	gosnmp.NotWritable:         "notWritable",
	gosnmp.InconsistentName:    "inconsistentName",
}

func errorStatusName(status gosnmp.SNMPError) string {
	if name, ok := errorStatusNames[status]; ok {
		return name
	}
	return fmt.Sprintf("errorStatus(%d)", uint8(status))
}

// isNotFoundStatus reports whether the status text names a missing object
// or instance. SNMPv1 agents answer unknown OIDs with noSuchName.
func isNotFoundStatus(status gosnmp.SNMPError) bool {
	return strings.HasPrefix(errorStatusName(status), "noSuch")
}

// classify turns the result of a single-OID Get into an Outcome.
func classify(oid string, packet *gosnmp.SnmpPacket, err error) Outcome {
	if err != nil {
		return TransportError(err.Error())
	}
	if packet == nil {
		return TransportError("no response received")
	}

	if packet.Error != gosnmp.NoError {
		detail := fmt.Sprintf("%s at %s", errorStatusName(packet.Error), offendingOID(packet))
		if isNotFoundStatus(packet.Error) {
			return NotFound(detail)
		}
		return ProtocolError(detail)
	}

	if len(packet.Variables) == 0 {
		return ProtocolError("no data returned")
	}

	pdu := packet.Variables[0]
	switch pdu.Type {
	case gosnmp.NoSuchObject:
		return NotFound(fmt.Sprintf("noSuchObject at %s", pduName(pdu, oid)))
	case gosnmp.NoSuchInstance:
		return NotFound(fmt.Sprintf("noSuchInstance at %s", pduName(pdu, oid)))
	}

	return Value(stringify(pdu))
}

// offendingOID resolves the 1-based error index against the reply bindings.
func offendingOID(packet *gosnmp.SnmpPacket) string {
	idx := int(packet.ErrorIndex)
	if idx < 1 || idx > len(packet.Variables) {
		return "?"
	}
	return strings.TrimPrefix(packet.Variables[idx-1].Name, ".")
}

func pduName(pdu gosnmp.SnmpPDU, fallback string) string {
	if pdu.Name == "" {
		return fallback
	}
	return strings.TrimPrefix(pdu.Name, ".")
}

// stringify renders a binding value the way it reads on a device's own UI:
// octet strings as text, OIDs without the leading dot, numbers in decimal.
func stringify(pdu gosnmp.SnmpPDU) string {
	switch v := pdu.Value.(type) {
	case nil:
		return ""
	case []byte:
		return string(v)
	case string:
		if pdu.Type == gosnmp.ObjectIdentifier {
			return strings.TrimPrefix(v, ".")
		}
		return v
	case *big.Int:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}
