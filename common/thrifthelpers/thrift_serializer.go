// Package thrifthelpers holds the binary encoding shared by envelopes and
// the TCP transport.
package thrifthelpers

import (
	"github.com/apache/thrift/lib/go/thrift"
)

// BinaryDeserialize decodes b into dst. An empty b leaves dst untouched.
func BinaryDeserialize(dst thrift.TStruct, b []byte) error {
	if len(b) == 0 {
		return nil
	}
	return thrift.NewTDeserializer().Read(dst, b)
}

// BinarySerialize encodes src. A nil src encodes to nil bytes.
func BinarySerialize(src thrift.TStruct) ([]byte, error) {
	if src == nil {
		return nil, nil
	}
	return thrift.NewTSerializer().Write(src)
}

// FramedBinaryProtocol wraps a stream transport so that every flushed struct
// becomes one length-prefixed frame.
func FramedBinaryProtocol(trans thrift.TTransport) (thrift.TProtocol, thrift.TTransport) {
	framed := thrift.NewTFramedTransport(trans)
	return thrift.NewTBinaryProtocolTransport(framed), framed
}
