package messages

import (
	"fmt"

	"github.com/apache/thrift/lib/go/thrift"
	"github.com/pkg/errors"

	"github.com/dataspaces/hsched/common/thrifthelpers"
)

// Envelope is the unit the transport moves between peers.
type Envelope struct {
	Kind    Kind
	Sender  PeerID
	Payload []byte
}

// NewEnvelope encodes header, which may be nil for kinds without one.
func NewEnvelope(kind Kind, sender PeerID, header thrift.TStruct) (*Envelope, error) {
	env := &Envelope{Kind: kind, Sender: sender}
	if header == nil {
		return env, nil
	}
	payload, err := thrifthelpers.BinarySerialize(header)
	if err != nil {
		return nil, errors.Wrapf(err, "encode %v header", kind)
	}
	env.Payload = payload
	return env, nil
}

// Decode unpacks the payload into header.
func (e *Envelope) Decode(header thrift.TStruct) error {
	if err := thrifthelpers.BinaryDeserialize(header, e.Payload); err != nil {
		return errors.Wrapf(err, "decode %v header from peer %d", e.Kind, e.Sender)
	}
	return nil
}

func (e *Envelope) String() string {
	return fmt.Sprintf("{kind:%v, sender:%d, payload:%dB}", e.Kind, e.Sender, len(e.Payload))
}

func (e *Envelope) Write(p thrift.TProtocol) error {
	w := newFieldWriter(p, "Envelope")
	w.i32("kind", 1, int32(e.Kind))
	w.i32("sender", 2, int32(e.Sender))
	w.binary("payload", 3, e.Payload)
	return w.end()
}

func (e *Envelope) Read(p thrift.TProtocol) error {
	return readStruct(p, "Envelope", func(id int16, typ thrift.TType) error {
		switch id {
		case 1:
			var k int32
			if err := readI32(p, typ, &k); err != nil {
				return err
			}
			e.Kind = Kind(k)
			return nil
		case 2:
			var s int32
			if err := readI32(p, typ, &s); err != nil {
				return err
			}
			e.Sender = PeerID(s)
			return nil
		case 3:
			return readBinary(p, typ, &e.Payload)
		}
		return p.Skip(typ)
	})
}

// Encode serializes a whole envelope, used by byte-oriented transports.
func Encode(e *Envelope) ([]byte, error) {
	return thrifthelpers.BinarySerialize(e)
}

// DecodeEnvelope is the inverse of Encode.
func DecodeEnvelope(b []byte) (*Envelope, error) {
	e := &Envelope{}
	if len(b) == 0 {
		return nil, errors.New("empty envelope")
	}
	if err := thrifthelpers.BinaryDeserialize(e, b); err != nil {
		return nil, errors.Wrap(err, "decode envelope")
	}
	return e, nil
}
