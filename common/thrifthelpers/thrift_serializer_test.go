package thrifthelpers

import (
	"testing"

	"github.com/apache/thrift/lib/go/thrift"
)

type nameStruct struct{ name string }

func (n *nameStruct) Write(p thrift.TProtocol) error {
	if err := p.WriteStructBegin("nameStruct"); err != nil {
		return err
	}
	if err := p.WriteFieldBegin("name", thrift.STRING, 1); err != nil {
		return err
	}
	if err := p.WriteString(n.name); err != nil {
		return err
	}
	if err := p.WriteFieldEnd(); err != nil {
		return err
	}
	if err := p.WriteFieldStop(); err != nil {
		return err
	}
	return p.WriteStructEnd()
}

func (n *nameStruct) Read(p thrift.TProtocol) error {
	if _, err := p.ReadStructBegin(); err != nil {
		return err
	}
	for {
		_, typ, id, err := p.ReadFieldBegin()
		if err != nil {
			return err
		}
		if typ == thrift.STOP {
			break
		}
		if id == 1 && typ == thrift.STRING {
			if n.name, err = p.ReadString(); err != nil {
				return err
			}
		} else if err := p.Skip(typ); err != nil {
			return err
		}
		if err := p.ReadFieldEnd(); err != nil {
			return err
		}
	}
	return p.ReadStructEnd()
}

func TestBinaryRoundTrip(t *testing.T) {
	b, err := BinarySerialize(&nameStruct{name: "bucket"})
	if err != nil {
		t.Fatal(err)
	}
	out := &nameStruct{}
	if err := BinaryDeserialize(out, b); err != nil {
		t.Fatal(err)
	}
	if out.name != "bucket" {
		t.Errorf("got %q", out.name)
	}
}

func TestEmptyInputs(t *testing.T) {
	if b, err := BinarySerialize(nil); b != nil || err != nil {
		t.Errorf("nil struct: %v %v", b, err)
	}
	out := &nameStruct{name: "keep"}
	if err := BinaryDeserialize(out, nil); err != nil || out.name != "keep" {
		t.Errorf("empty input: %v %q", err, out.name)
	}
}
