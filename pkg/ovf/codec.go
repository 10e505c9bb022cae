// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package ovf

import (
	"fmt"
	"math"
	"sort"

	"google.golang.org/protobuf/encoding/protowire"
)

// Message is the collaborator contract §6.3 calls "Codec": any message
// type the container format can store must be able to serialize itself
// and parse itself back from bytes. encodeDelimited and decodeDelimited
// work over this interface; the writer and reader themselves operate on
// the concrete types in message.go.
type Message interface {
	Marshal() ([]byte, error)
	Unmarshal(data []byte) error
}

// encodeDelimited serializes m and prefixes it with a varint byte length,
// matching the protobuf "delimited" wire convention used for streams of
// independent messages (google::protobuf::util::SerializeDelimitedToOstream
// in the original C++ implementation).
func encodeDelimited(m Message) ([]byte, error) {
	payload, err := m.Marshal()
	if err != nil {
		return nil, err
	}
	out := protowire.AppendVarint(nil, uint64(len(payload)))
	out = append(out, payload...)
	return out, nil
}

// decodeDelimited reads a varint length prefix followed by that many
// payload bytes from data, and parses the payload into m. It returns the
// number of bytes consumed from data (prefix + payload), so callers can
// advance past exactly one record.
func decodeDelimited(data []byte, m Message) (consumed int, err error) {
	length, n := protowire.ConsumeVarint(data)
	if n < 0 {
		return 0, fmt.Errorf("%w: bad length prefix", ErrCorrupt)
	}
	start := n
	end := start + int(length)
	if end < start || end > len(data) {
		return 0, fmt.Errorf("%w: length prefix %d exceeds available %d bytes", ErrCorrupt, length, len(data)-start)
	}
	if err := m.Unmarshal(data[start:end]); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return end, nil
}

// --- field numbers, kept local to this file so message.go stays a plain
// struct definition readers can understand without cross-referencing the
// wire format. ---

const (
	fieldJobID         = protowire.Number(1)
	fieldJobMetaData   = protowire.Number(2)
	fieldNumWorkPlanes = protowire.Number(3)
	fieldWorkPlanes    = protowire.Number(4)

	fieldWorkPlaneNumber = protowire.Number(1)
	fieldZPosInMM        = protowire.Number(2)
	fieldWPMetaData      = protowire.Number(3)
	fieldVectorBlocks    = protowire.Number(4)

	fieldMarkingParamsKey = protowire.Number(1)
	fieldVBMetaData       = protowire.Number(2)
	fieldRepeats          = protowire.Number(3)
	fieldPoints           = protowire.Number(4)

	fieldWorkPlanePositions = protowire.Number(1)
	fieldJobShellPosition   = protowire.Number(2)

	fieldVectorBlockPositions   = protowire.Number(1)
	fieldWorkPlaneShellPosition = protowire.Number(2)

	mapKeyField   = protowire.Number(1)
	mapValueField = protowire.Number(2)
)

func appendStringMap(b []byte, field protowire.Number, m map[string]string) []byte {
	if len(m) == 0 {
		return b
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		var entry []byte
		entry = protowire.AppendTag(entry, mapKeyField, protowire.BytesType)
		entry = protowire.AppendString(entry, k)
		entry = protowire.AppendTag(entry, mapValueField, protowire.BytesType)
		entry = protowire.AppendString(entry, m[k])
		b = protowire.AppendTag(b, field, protowire.BytesType)
		b = protowire.AppendBytes(b, entry)
	}
	return b
}

func consumeMapEntry(data []byte) (key, value string, err error) {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return "", "", fmt.Errorf("bad map entry tag")
		}
		data = data[n:]
		switch num {
		case mapKeyField:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return "", "", fmt.Errorf("bad map entry key")
			}
			key = v
			data = data[n:]
		case mapValueField:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return "", "", fmt.Errorf("bad map entry value")
			}
			value = v
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return "", "", fmt.Errorf("bad map entry field")
			}
			data = data[n:]
		}
	}
	return key, value, nil
}

func appendInt64Slice(b []byte, field protowire.Number, vals []int64) []byte {
	if len(vals) == 0 {
		return b
	}
	var packed []byte
	for _, v := range vals {
		packed = protowire.AppendVarint(packed, uint64(v))
	}
	b = protowire.AppendTag(b, field, protowire.BytesType)
	b = protowire.AppendBytes(b, packed)
	return b
}

func appendFloat32Slice(b []byte, field protowire.Number, vals []float32) []byte {
	if len(vals) == 0 {
		return b
	}
	var packed []byte
	for _, v := range vals {
		packed = protowire.AppendFixed32(packed, math.Float32bits(v))
	}
	b = protowire.AppendTag(b, field, protowire.BytesType)
	b = protowire.AppendBytes(b, packed)
	return b
}

// Marshal serializes j using a small protobuf-compatible wire schema.
func (j *Job) Marshal() ([]byte, error) {
	var b []byte
	if j.JobID != "" {
		b = protowire.AppendTag(b, fieldJobID, protowire.BytesType)
		b = protowire.AppendString(b, j.JobID)
	}
	b = appendStringMap(b, fieldJobMetaData, j.JobMetaData)
	if j.NumWorkPlanes != 0 {
		b = protowire.AppendTag(b, fieldNumWorkPlanes, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(uint32(j.NumWorkPlanes)))
	}
	for _, wp := range j.WorkPlanes {
		payload, err := wp.Marshal()
		if err != nil {
			return nil, err
		}
		b = protowire.AppendTag(b, fieldWorkPlanes, protowire.BytesType)
		b = protowire.AppendBytes(b, payload)
	}
	return b, nil
}

// Unmarshal parses data produced by Marshal into j, replacing its contents.
func (j *Job) Unmarshal(data []byte) error {
	*j = Job{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return fmt.Errorf("Job: bad tag")
		}
		data = data[n:]
		switch num {
		case fieldJobID:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return fmt.Errorf("Job: bad job_id")
			}
			j.JobID = v
			data = data[n:]
		case fieldJobMetaData:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return fmt.Errorf("Job: bad job_meta_data")
			}
			k, val, err := consumeMapEntry(v)
			if err != nil {
				return fmt.Errorf("Job: %w", err)
			}
			if j.JobMetaData == nil {
				j.JobMetaData = map[string]string{}
			}
			j.JobMetaData[k] = val
			data = data[n:]
		case fieldNumWorkPlanes:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return fmt.Errorf("Job: bad num_work_planes")
			}
			j.NumWorkPlanes = int32(uint32(v))
			data = data[n:]
		case fieldWorkPlanes:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return fmt.Errorf("Job: bad work_planes entry")
			}
			wp := &WorkPlane{}
			if err := wp.Unmarshal(v); err != nil {
				return fmt.Errorf("Job: %w", err)
			}
			j.WorkPlanes = append(j.WorkPlanes, wp)
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return fmt.Errorf("Job: bad field %d", num)
			}
			data = data[n:]
		}
	}
	return nil
}

// Marshal serializes wp using a small protobuf-compatible wire schema.
func (wp *WorkPlane) Marshal() ([]byte, error) {
	var b []byte
	if wp.WorkPlaneNumber != 0 {
		b = protowire.AppendTag(b, fieldWorkPlaneNumber, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(uint32(wp.WorkPlaneNumber)))
	}
	if wp.ZPosInMM != 0 {
		b = protowire.AppendTag(b, fieldZPosInMM, protowire.Fixed32Type)
		b = protowire.AppendFixed32(b, math.Float32bits(wp.ZPosInMM))
	}
	b = appendStringMap(b, fieldWPMetaData, wp.MetaData)
	for _, vb := range wp.VectorBlocks {
		payload, err := vb.Marshal()
		if err != nil {
			return nil, err
		}
		b = protowire.AppendTag(b, fieldVectorBlocks, protowire.BytesType)
		b = protowire.AppendBytes(b, payload)
	}
	return b, nil
}

// Unmarshal parses data produced by Marshal into wp, replacing its contents.
func (wp *WorkPlane) Unmarshal(data []byte) error {
	*wp = WorkPlane{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return fmt.Errorf("WorkPlane: bad tag")
		}
		data = data[n:]
		switch num {
		case fieldWorkPlaneNumber:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return fmt.Errorf("WorkPlane: bad work_plane_number")
			}
			wp.WorkPlaneNumber = int32(uint32(v))
			data = data[n:]
		case fieldZPosInMM:
			v, n := protowire.ConsumeFixed32(data)
			if n < 0 {
				return fmt.Errorf("WorkPlane: bad z_pos_in_mm")
			}
			wp.ZPosInMM = math.Float32frombits(v)
			data = data[n:]
		case fieldWPMetaData:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return fmt.Errorf("WorkPlane: bad meta_data")
			}
			k, val, err := consumeMapEntry(v)
			if err != nil {
				return fmt.Errorf("WorkPlane: %w", err)
			}
			if wp.MetaData == nil {
				wp.MetaData = map[string]string{}
			}
			wp.MetaData[k] = val
			data = data[n:]
		case fieldVectorBlocks:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return fmt.Errorf("WorkPlane: bad vector_blocks entry")
			}
			vb := &VectorBlock{}
			if err := vb.Unmarshal(v); err != nil {
				return fmt.Errorf("WorkPlane: %w", err)
			}
			wp.VectorBlocks = append(wp.VectorBlocks, vb)
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return fmt.Errorf("WorkPlane: bad field %d", num)
			}
			data = data[n:]
		}
	}
	return nil
}

// Marshal serializes vb using a small protobuf-compatible wire schema.
func (vb *VectorBlock) Marshal() ([]byte, error) {
	var b []byte
	if vb.MarkingParamsKey != 0 {
		b = protowire.AppendTag(b, fieldMarkingParamsKey, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(uint32(vb.MarkingParamsKey)))
	}
	b = appendStringMap(b, fieldVBMetaData, vb.MetaData)
	if vb.Repeats != 0 {
		b = protowire.AppendTag(b, fieldRepeats, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(uint32(vb.Repeats)))
	}
	b = appendFloat32Slice(b, fieldPoints, vb.Points)
	return b, nil
}

// Unmarshal parses data produced by Marshal into vb, replacing its contents.
func (vb *VectorBlock) Unmarshal(data []byte) error {
	*vb = VectorBlock{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return fmt.Errorf("VectorBlock: bad tag")
		}
		data = data[n:]
		switch num {
		case fieldMarkingParamsKey:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return fmt.Errorf("VectorBlock: bad marking_params_key")
			}
			vb.MarkingParamsKey = int32(uint32(v))
			data = data[n:]
		case fieldVBMetaData:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return fmt.Errorf("VectorBlock: bad meta_data")
			}
			k, val, err := consumeMapEntry(v)
			if err != nil {
				return fmt.Errorf("VectorBlock: %w", err)
			}
			if vb.MetaData == nil {
				vb.MetaData = map[string]string{}
			}
			vb.MetaData[k] = val
			data = data[n:]
		case fieldRepeats:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return fmt.Errorf("VectorBlock: bad repeats")
			}
			vb.Repeats = int32(uint32(v))
			data = data[n:]
		case fieldPoints:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return fmt.Errorf("VectorBlock: bad points")
			}
			for len(v) > 0 {
				fv, fn := protowire.ConsumeFixed32(v)
				if fn < 0 {
					return fmt.Errorf("VectorBlock: bad packed point")
				}
				vb.Points = append(vb.Points, math.Float32frombits(fv))
				v = v[fn:]
			}
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return fmt.Errorf("VectorBlock: bad field %d", num)
			}
			data = data[n:]
		}
	}
	return nil
}

// Marshal serializes l using a small protobuf-compatible wire schema.
func (l *JobLUT) Marshal() ([]byte, error) {
	var b []byte
	b = appendInt64Slice(b, fieldWorkPlanePositions, l.WorkPlanePositions)
	if l.JobShellPosition != 0 {
		b = protowire.AppendTag(b, fieldJobShellPosition, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(l.JobShellPosition))
	}
	return b, nil
}

// Unmarshal parses data produced by Marshal into l, replacing its contents.
func (l *JobLUT) Unmarshal(data []byte) error {
	*l = JobLUT{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return fmt.Errorf("JobLUT: bad tag")
		}
		data = data[n:]
		switch num {
		case fieldWorkPlanePositions:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return fmt.Errorf("JobLUT: bad work_plane_positions")
			}
			for len(v) > 0 {
				pv, pn := protowire.ConsumeVarint(v)
				if pn < 0 {
					return fmt.Errorf("JobLUT: bad packed position")
				}
				l.WorkPlanePositions = append(l.WorkPlanePositions, int64(pv))
				v = v[pn:]
			}
			data = data[n:]
		case fieldJobShellPosition:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return fmt.Errorf("JobLUT: bad job_shell_position")
			}
			l.JobShellPosition = int64(v)
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return fmt.Errorf("JobLUT: bad field %d", num)
			}
			data = data[n:]
		}
	}
	return nil
}

// Marshal serializes l using a small protobuf-compatible wire schema.
func (l *WorkPlaneLUT) Marshal() ([]byte, error) {
	var b []byte
	b = appendInt64Slice(b, fieldVectorBlockPositions, l.VectorBlockPositions)
	if l.WorkPlaneShellPosition != 0 {
		b = protowire.AppendTag(b, fieldWorkPlaneShellPosition, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(l.WorkPlaneShellPosition))
	}
	return b, nil
}

// Unmarshal parses data produced by Marshal into l, replacing its contents.
func (l *WorkPlaneLUT) Unmarshal(data []byte) error {
	*l = WorkPlaneLUT{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return fmt.Errorf("WorkPlaneLUT: bad tag")
		}
		data = data[n:]
		switch num {
		case fieldVectorBlockPositions:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return fmt.Errorf("WorkPlaneLUT: bad vector_block_positions")
			}
			for len(v) > 0 {
				pv, pn := protowire.ConsumeVarint(v)
				if pn < 0 {
					return fmt.Errorf("WorkPlaneLUT: bad packed position")
				}
				l.VectorBlockPositions = append(l.VectorBlockPositions, int64(pv))
				v = v[pn:]
			}
			data = data[n:]
		case fieldWorkPlaneShellPosition:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return fmt.Errorf("WorkPlaneLUT: bad work_plane_shell_position")
			}
			l.WorkPlaneShellPosition = int64(v)
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return fmt.Errorf("WorkPlaneLUT: bad field %d", num)
			}
			data = data[n:]
		}
	}
	return nil
}
