package messages

import (
	"github.com/apache/thrift/lib/go/thrift"
	"github.com/pkg/errors"
)

// fieldWriter writes struct fields in order and remembers the first error,
// so Write methods read as a flat list of fields.
type fieldWriter struct {
	p    thrift.TProtocol
	name string
	err  error
}

func newFieldWriter(p thrift.TProtocol, name string) *fieldWriter {
	w := &fieldWriter{p: p, name: name}
	if err := p.WriteStructBegin(name); err != nil {
		w.err = errors.Wrapf(err, "%s: write struct begin", name)
	}
	return w
}

func (w *fieldWriter) field(name string, typ thrift.TType, id int16, value func() error) {
	if w.err != nil {
		return
	}
	if err := w.p.WriteFieldBegin(name, typ, id); err != nil {
		w.err = errors.Wrapf(err, "%s: write field begin %s", w.name, name)
		return
	}
	if err := value(); err != nil {
		w.err = errors.Wrapf(err, "%s: write field %s", w.name, name)
		return
	}
	if err := w.p.WriteFieldEnd(); err != nil {
		w.err = errors.Wrapf(err, "%s: write field end %s", w.name, name)
	}
}

func (w *fieldWriter) i32(name string, id int16, v int32) {
	w.field(name, thrift.I32, id, func() error { return w.p.WriteI32(v) })
}

func (w *fieldWriter) i64(name string, id int16, v int64) {
	w.field(name, thrift.I64, id, func() error { return w.p.WriteI64(v) })
}

func (w *fieldWriter) double(name string, id int16, v float64) {
	w.field(name, thrift.DOUBLE, id, func() error { return w.p.WriteDouble(v) })
}

func (w *fieldWriter) str(name string, id int16, v string) {
	w.field(name, thrift.STRING, id, func() error { return w.p.WriteString(v) })
}

func (w *fieldWriter) binary(name string, id int16, v []byte) {
	w.field(name, thrift.STRING, id, func() error { return w.p.WriteBinary(v) })
}

func (w *fieldWriter) strct(name string, id int16, v thrift.TStruct) {
	w.field(name, thrift.STRUCT, id, func() error { return v.Write(w.p) })
}

func (w *fieldWriter) i32List(name string, id int16, vs []int32) {
	w.field(name, thrift.LIST, id, func() error {
		if err := w.p.WriteListBegin(thrift.I32, len(vs)); err != nil {
			return err
		}
		for _, v := range vs {
			if err := w.p.WriteI32(v); err != nil {
				return err
			}
		}
		return w.p.WriteListEnd()
	})
}

func (w *fieldWriter) structList(name string, id int16, n int, elem func(i int) thrift.TStruct) {
	w.field(name, thrift.LIST, id, func() error {
		if err := w.p.WriteListBegin(thrift.STRUCT, n); err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			if err := elem(i).Write(w.p); err != nil {
				return err
			}
		}
		return w.p.WriteListEnd()
	})
}

func (w *fieldWriter) end() error {
	if w.err != nil {
		return w.err
	}
	if err := w.p.WriteFieldStop(); err != nil {
		return errors.Wrapf(err, "%s: write field stop", w.name)
	}
	if err := w.p.WriteStructEnd(); err != nil {
		return errors.Wrapf(err, "%s: write struct end", w.name)
	}
	return nil
}

// readStruct reads fields until STOP, handing each to field. field must
// consume the value, or skip it for ids it does not know.
func readStruct(p thrift.TProtocol, name string, field func(id int16, typ thrift.TType) error) error {
	if _, err := p.ReadStructBegin(); err != nil {
		return errors.Wrapf(err, "%s: read struct begin", name)
	}
	for {
		_, typ, id, err := p.ReadFieldBegin()
		if err != nil {
			return errors.Wrapf(err, "%s: read field begin", name)
		}
		if typ == thrift.STOP {
			break
		}
		if err := field(id, typ); err != nil {
			return errors.Wrapf(err, "%s: read field %d", name, id)
		}
		if err := p.ReadFieldEnd(); err != nil {
			return errors.Wrapf(err, "%s: read field end", name)
		}
	}
	if err := p.ReadStructEnd(); err != nil {
		return errors.Wrapf(err, "%s: read struct end", name)
	}
	return nil
}

// The read helpers skip values whose wire type does not match, the way
// generated thrift code treats unexpected field types.

func readI32(p thrift.TProtocol, typ thrift.TType, dst *int32) error {
	if typ != thrift.I32 {
		return p.Skip(typ)
	}
	v, err := p.ReadI32()
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

func readI64(p thrift.TProtocol, typ thrift.TType, dst *int64) error {
	if typ != thrift.I64 {
		return p.Skip(typ)
	}
	v, err := p.ReadI64()
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

func readDouble(p thrift.TProtocol, typ thrift.TType, dst *float64) error {
	if typ != thrift.DOUBLE {
		return p.Skip(typ)
	}
	v, err := p.ReadDouble()
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

func readString(p thrift.TProtocol, typ thrift.TType, dst *string) error {
	if typ != thrift.STRING {
		return p.Skip(typ)
	}
	v, err := p.ReadString()
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

func readBinary(p thrift.TProtocol, typ thrift.TType, dst *[]byte) error {
	if typ != thrift.STRING {
		return p.Skip(typ)
	}
	v, err := p.ReadBinary()
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

func readStructField(p thrift.TProtocol, typ thrift.TType, dst thrift.TStruct) error {
	if typ != thrift.STRUCT {
		return p.Skip(typ)
	}
	return dst.Read(p)
}

func readI32List(p thrift.TProtocol, typ thrift.TType, dst *[]int32) error {
	if typ != thrift.LIST {
		return p.Skip(typ)
	}
	elemType, size, err := p.ReadListBegin()
	if err != nil {
		return err
	}
	if elemType != thrift.I32 {
		return errors.Errorf("expected list of i32, got element type %v", elemType)
	}
	if err := checkListSize(p, size, 4); err != nil {
		return err
	}
	vs := make([]int32, 0, minInt(size, maxListPrealloc))
	for i := 0; i < size; i++ {
		v, err := p.ReadI32()
		if err != nil {
			return err
		}
		vs = append(vs, v)
	}
	*dst = vs
	return p.ReadListEnd()
}

// readStructList calls elem for each list element; elem reads one struct.
func readStructList(p thrift.TProtocol, typ thrift.TType, elem func() error) error {
	if typ != thrift.LIST {
		return p.Skip(typ)
	}
	elemType, size, err := p.ReadListBegin()
	if err != nil {
		return err
	}
	if elemType != thrift.STRUCT {
		return errors.Errorf("expected list of struct, got element type %v", elemType)
	}
	if err := checkListSize(p, size, 1); err != nil {
		return err
	}
	for i := 0; i < size; i++ {
		if err := elem(); err != nil {
			return err
		}
	}
	return p.ReadListEnd()
}

// Cap on slice capacity taken from a wire list header. Longer lists grow
// through append as elements actually arrive.
const maxListPrealloc = 1024

// checkListSize rejects a list header claiming more elements than the
// remaining input can hold, at elemSize bytes per element or more.
// Stream transports report an unknown remainder as the max uint64.
func checkListSize(p thrift.TProtocol, size, elemSize int) error {
	remaining := p.Transport().RemainingBytes()
	if uint64(size) > remaining/uint64(elemSize) {
		return errors.Errorf("list of %d elements exceeds the %d bytes left in the message", size, remaining)
	}
	return nil
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
