package messages

import (
	"fmt"

	"github.com/apache/thrift/lib/go/thrift"
)

// Topology locates a bucket: the physical node id and, on machines that
// report one, its coordinates in the interconnect mesh.
type Topology struct {
	Nid   int32
	MeshX int32
	MeshY int32
	MeshZ int32
}

func (m *Topology) Write(p thrift.TProtocol) error {
	w := newFieldWriter(p, "Topology")
	w.i32("nid", 1, m.Nid)
	w.i32("meshX", 2, m.MeshX)
	w.i32("meshY", 3, m.MeshY)
	w.i32("meshZ", 4, m.MeshZ)
	return w.end()
}

func (m *Topology) Read(p thrift.TProtocol) error {
	return readStruct(p, "Topology", func(id int16, typ thrift.TType) error {
		switch id {
		case 1:
			return readI32(p, typ, &m.Nid)
		case 2:
			return readI32(p, typ, &m.MeshX)
		case 3:
			return readI32(p, typ, &m.MeshY)
		case 4:
			return readI32(p, typ, &m.MeshZ)
		}
		return p.Skip(typ)
	})
}

func (m Topology) String() string {
	return fmt.Sprintf("nid %d mesh_coord (%d,%d,%d)", m.Nid, m.MeshX, m.MeshY, m.MeshZ)
}

// BBox is an n-dimensional bounding box with inclusive lower and upper corners.
type BBox struct {
	NumDims int32
	Lb      []int32
	Ub      []int32
}

func (m *BBox) Write(p thrift.TProtocol) error {
	w := newFieldWriter(p, "BBox")
	w.i32("numDims", 1, m.NumDims)
	w.i32List("lb", 2, m.Lb)
	w.i32List("ub", 3, m.Ub)
	return w.end()
}

func (m *BBox) Read(p thrift.TProtocol) error {
	return readStruct(p, "BBox", func(id int16, typ thrift.TType) error {
		switch id {
		case 1:
			return readI32(p, typ, &m.NumDims)
		case 2:
			return readI32List(p, typ, &m.Lb)
		case 3:
			return readI32List(p, typ, &m.Ub)
		}
		return p.Skip(typ)
	})
}

// VarDesc describes one version (step) of a variable over a region.
type VarDesc struct {
	Name string
	Step int32
	BBox BBox
	Size int64
}

func (m *VarDesc) Write(p thrift.TProtocol) error {
	w := newFieldWriter(p, "VarDesc")
	w.str("name", 1, m.Name)
	w.i32("step", 2, m.Step)
	w.strct("bbox", 3, &m.BBox)
	w.i64("size", 4, m.Size)
	return w.end()
}

func (m *VarDesc) Read(p thrift.TProtocol) error {
	return readStruct(p, "VarDesc", func(id int16, typ thrift.TType) error {
		switch id {
		case 1:
			return readString(p, typ, &m.Name)
		case 2:
			return readI32(p, typ, &m.Step)
		case 3:
			return readStructField(p, typ, &m.BBox)
		case 4:
			return readI64(p, typ, &m.Size)
		}
		return p.Skip(typ)
	})
}

// RegisterResource is sent by every bucket of a pool when it joins.
type RegisterResource struct {
	PoolID    int32
	NumBucket int32 // capacity of the pool
	MpiRank   int32 // origin rank of the sender within the pool
	Topo      Topology
}

func (m *RegisterResource) Write(p thrift.TProtocol) error {
	w := newFieldWriter(p, "RegisterResource")
	w.i32("poolID", 1, m.PoolID)
	w.i32("numBucket", 2, m.NumBucket)
	w.i32("mpiRank", 3, m.MpiRank)
	w.strct("topo", 4, &m.Topo)
	return w.end()
}

func (m *RegisterResource) Read(p thrift.TProtocol) error {
	return readStruct(p, "RegisterResource", func(id int16, typ thrift.TType) error {
		switch id {
		case 1:
			return readI32(p, typ, &m.PoolID)
		case 2:
			return readI32(p, typ, &m.NumBucket)
		case 3:
			return readI32(p, typ, &m.MpiRank)
		case 4:
			return readStructField(p, typ, &m.Topo)
		}
		return p.Skip(typ)
	})
}

// FinishTask is sent by a participating bucket once its part of (Tid, Step) is done.
type FinishTask struct {
	PoolID int32
	Tid    int32
	Step   int32
}

func (m *FinishTask) Write(p thrift.TProtocol) error {
	w := newFieldWriter(p, "FinishTask")
	w.i32("poolID", 1, m.PoolID)
	w.i32("tid", 2, m.Tid)
	w.i32("step", 3, m.Step)
	return w.end()
}

func (m *FinishTask) Read(p thrift.TProtocol) error {
	return readStruct(p, "FinishTask", func(id int16, typ thrift.TType) error {
		switch id {
		case 1:
			return readI32(p, typ, &m.PoolID)
		case 2:
			return readI32(p, typ, &m.Tid)
		case 3:
			return readI32(p, typ, &m.Step)
		}
		return p.Skip(typ)
	})
}

// UpdateVar announces that a variable version became available.
type UpdateVar struct {
	Var VarDesc
}

func (m *UpdateVar) Write(p thrift.TProtocol) error {
	w := newFieldWriter(p, "UpdateVar")
	w.strct("var", 1, &m.Var)
	return w.end()
}

func (m *UpdateVar) Read(p thrift.TProtocol) error {
	return readStruct(p, "UpdateVar", func(id int16, typ thrift.TType) error {
		if id == 1 {
			return readStructField(p, typ, &m.Var)
		}
		return p.Skip(typ)
	})
}

// ExecDag asks the scheduler to load and run the workflow in ConfFile.
type ExecDag struct {
	ConfFile string
}

func (m *ExecDag) Write(p thrift.TProtocol) error {
	w := newFieldWriter(p, "ExecDag")
	w.str("confFile", 1, m.ConfFile)
	return w.end()
}

func (m *ExecDag) Read(p thrift.TProtocol) error {
	return readStruct(p, "ExecDag", func(id int16, typ thrift.TType) error {
		if id == 1 {
			return readString(p, typ, &m.ConfFile)
		}
		return p.Skip(typ)
	})
}

// BuildStaging asks for auxiliary staging over a pool once it is registered.
type BuildStaging struct {
	PoolID          int32
	StagingConfFile string
}

func (m *BuildStaging) Write(p thrift.TProtocol) error {
	w := newFieldWriter(p, "BuildStaging")
	w.i32("poolID", 1, m.PoolID)
	w.str("stagingConfFile", 2, m.StagingConfFile)
	return w.end()
}

func (m *BuildStaging) Read(p thrift.TProtocol) error {
	return readStruct(p, "BuildStaging", func(id int16, typ thrift.TType) error {
		switch id {
		case 1:
			return readI32(p, typ, &m.PoolID)
		case 2:
			return readString(p, typ, &m.StagingConfFile)
		}
		return p.Skip(typ)
	})
}

// ExecTask tells one bucket to run its part of (Tid, Step). Peers and Ranks
// list every participant in the same order for every recipient, so RankHint
// indexes both.
type ExecTask struct {
	Tid       int32
	Step      int32
	RankHint  int32
	NprocHint int32
	Peers     []int32
	Ranks     []int32
	Vars      []VarDesc
}

func (m *ExecTask) Write(p thrift.TProtocol) error {
	w := newFieldWriter(p, "ExecTask")
	w.i32("tid", 1, m.Tid)
	w.i32("step", 2, m.Step)
	w.i32("rankHint", 3, m.RankHint)
	w.i32("nprocHint", 4, m.NprocHint)
	w.i32List("peers", 5, m.Peers)
	w.i32List("ranks", 6, m.Ranks)
	w.structList("vars", 7, len(m.Vars), func(i int) thrift.TStruct { return &m.Vars[i] })
	return w.end()
}

func (m *ExecTask) Read(p thrift.TProtocol) error {
	return readStruct(p, "ExecTask", func(id int16, typ thrift.TType) error {
		switch id {
		case 1:
			return readI32(p, typ, &m.Tid)
		case 2:
			return readI32(p, typ, &m.Step)
		case 3:
			return readI32(p, typ, &m.RankHint)
		case 4:
			return readI32(p, typ, &m.NprocHint)
		case 5:
			return readI32List(p, typ, &m.Peers)
		case 6:
			return readI32List(p, typ, &m.Ranks)
		case 7:
			m.Vars = m.Vars[:0]
			return readStructList(p, typ, func() error {
				var v VarDesc
				if err := v.Read(p); err != nil {
					return err
				}
				m.Vars = append(m.Vars, v)
				return nil
			})
		}
		return p.Skip(typ)
	})
}

// FinishDag is the reply to the exec-dag submitter once the workflow finished.
type FinishDag struct {
	DagExecutionTime float64 // seconds
}

func (m *FinishDag) Write(p thrift.TProtocol) error {
	w := newFieldWriter(p, "FinishDag")
	w.double("dagExecutionTime", 1, m.DagExecutionTime)
	return w.end()
}

func (m *FinishDag) Read(p thrift.TProtocol) error {
	return readStruct(p, "FinishDag", func(id int16, typ thrift.TType) error {
		if id == 1 {
			return readDouble(p, typ, &m.DagExecutionTime)
		}
		return p.Skip(typ)
	})
}
