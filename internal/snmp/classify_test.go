package snmp

import (
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/gosnmp/gosnmp"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	const oid = "1.3.6.1.2.1.1.1.0"

	tests := []struct {
		name   string
		packet *gosnmp.SnmpPacket
		err    error
		want   Outcome
	}{
		{
			name: "transport error",
			err:  errors.New("request timeout (after 1 retries)"),
			want: TransportError("request timeout (after 1 retries)"),
		},
		{
			name: "nil packet without error",
			want: TransportError("no response received"),
		},
		{
			name: "v1 noSuchName",
			packet: &gosnmp.SnmpPacket{
				Error:      gosnmp.NoSuchName,
				ErrorIndex: 1,
				Variables:  []gosnmp.SnmpPDU{{Name: "." + oid, Type: gosnmp.Null}},
			},
			want: NotFound("noSuchName at " + oid),
		},
		{
			name: "genErr with index",
			packet: &gosnmp.SnmpPacket{
				Error:      gosnmp.GenErr,
				ErrorIndex: 1,
				Variables:  []gosnmp.SnmpPDU{{Name: "." + oid, Type: gosnmp.Null}},
			},
			want: ProtocolError("genErr at " + oid),
		},
		{
			name: "tooBig without index",
			packet: &gosnmp.SnmpPacket{
				Error: gosnmp.TooBig,
			},
			want: ProtocolError("tooBig at ?"),
		},
		{
			name: "error index out of range",
			packet: &gosnmp.SnmpPacket{
				Error:      gosnmp.AuthorizationError,
				ErrorIndex: 4,
				Variables:  []gosnmp.SnmpPDU{{Name: "." + oid}},
			},
			want: ProtocolError("authorizationError at ?"),
		},
		{
			name:   "no bindings",
			packet: &gosnmp.SnmpPacket{},
			want:   ProtocolError("no data returned"),
		},
		{
			name: "v2c noSuchObject",
			packet: &gosnmp.SnmpPacket{
				Variables: []gosnmp.SnmpPDU{{Name: "." + oid, Type: gosnmp.NoSuchObject}},
			},
			want: NotFound("noSuchObject at " + oid),
		},
		{
			name: "v2c noSuchInstance without name",
			packet: &gosnmp.SnmpPacket{
				Variables: []gosnmp.SnmpPDU{{Type: gosnmp.NoSuchInstance}},
			},
			want: NotFound("noSuchInstance at " + oid),
		},
		{
			name: "octet string",
			packet: &gosnmp.SnmpPacket{
				Variables: []gosnmp.SnmpPDU{{Name: "." + oid, Type: gosnmp.OctetString, Value: []byte("RICOH MP C3004")}},
			},
			want: Value("RICOH MP C3004"),
		},
		{
			name: "counter",
			packet: &gosnmp.SnmpPacket{
				Variables: []gosnmp.SnmpPDU{{Name: "." + oid, Type: gosnmp.Counter32, Value: uint(184233)}},
			},
			want: Value("184233"),
		},
		{
			name: "integer",
			packet: &gosnmp.SnmpPacket{
				Variables: []gosnmp.SnmpPDU{{Name: "." + oid, Type: gosnmp.Integer, Value: 2}},
			},
			want: Value("2"),
		},
		{
			name: "counter64 as big int",
			packet: &gosnmp.SnmpPacket{
				Variables: []gosnmp.SnmpPDU{{Name: "." + oid, Type: gosnmp.Counter64, Value: big.NewInt(9000000000)}},
			},
			want: Value("9000000000"),
		},
		{
			name: "object identifier",
			packet: &gosnmp.SnmpPacket{
				Variables: []gosnmp.SnmpPDU{{Name: "." + oid, Type: gosnmp.ObjectIdentifier, Value: ".1.3.6.1.4.1.367"}},
			},
			want: Value("1.3.6.1.4.1.367"),
		},
		{
			name: "first binding wins",
			packet: &gosnmp.SnmpPacket{
				Variables: []gosnmp.SnmpPDU{
					{Name: "." + oid, Type: gosnmp.OctetString, Value: []byte("first")},
					{Name: ".1.3.6.1.2.1.1.5.0", Type: gosnmp.OctetString, Value: []byte("second")},
				},
			},
			want: Value("first"),
		},
		{
			name: "null value",
			packet: &gosnmp.SnmpPacket{
				Variables: []gosnmp.SnmpPDU{{Name: "." + oid, Type: gosnmp.Null}},
			},
			want: Value(""),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(oid, tt.packet, tt.err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOutcomeText(t *testing.T) {
	assert.Equal(t, "HP LaserJet", Value("HP LaserJet").Text())
	assert.Equal(t, "Error: noSuchName at 1.3.6", NotFound("noSuchName at 1.3.6").Text())
	assert.Equal(t, "Error: genErr at ?", ProtocolError("genErr at ?").Text())

	transport := TransportError("request timeout (after 0 retries)").Text()
	assert.True(t, strings.HasPrefix(transport, ErrorPrefix+TransportPrefix), transport)
}

func TestOutcomeOK(t *testing.T) {
	assert.True(t, Value("").OK())
	assert.False(t, NotFound("x").OK())
	assert.False(t, TransportError("x").OK())
	assert.False(t, ProtocolError("x").OK())
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "value", KindValue.String())
	assert.Equal(t, "not_found", KindNotFound.String())
	assert.Equal(t, "transport_error", KindTransportError.String())
	assert.Equal(t, "protocol_error", KindProtocolError.String())
	assert.Equal(t, "kind(9)", Kind(9).String())
}
