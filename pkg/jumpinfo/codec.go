package jumpinfo

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// Wire field numbers for Encode/Decode. These are a hand-rolled framing
// built directly on protowire's tag+length+value primitives (no .proto
// schema, no generated code) -- the "self-describing object framing"
// §6 of the format calls for, reusing protobuf's varint/zigzag/LEN
// encoding rather than inventing one.
const (
	fieldEdition             = 1
	fieldPackingType         = 2
	fieldBitsPerValue        = 3
	fieldReferenceValue      = 4
	fieldBinaryScaleFactor   = 5
	fieldDecimalScaleFactor  = 6
	fieldOffsetBeforeData    = 7
	fieldOffsetAfterData     = 8
	fieldOffsetBeforeBitmap  = 9
	fieldNumberOfDataPoints  = 10
	fieldNumberOfValues      = 11
	fieldTotalLength         = 12
	fieldMessageStartOffset  = 13
	fieldMD5GridSection      = 14
	fieldSphericalHarmonics  = 15
	fieldCcsdsFlags          = 16
	fieldCcsdsBlockSize      = 17
	fieldCcsdsRSI            = 18
	fieldCcsdsOffsets        = 19
)

// Encode serialises j into the wire format persisted by IndexFile.
func Encode(j *JumpInfo) []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldEdition, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(j.Edition))

	b = protowire.AppendTag(b, fieldPackingType, protowire.BytesType)
	b = protowire.AppendString(b, string(j.PackingType))

	b = protowire.AppendTag(b, fieldBitsPerValue, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(j.BitsPerValue))

	b = protowire.AppendTag(b, fieldReferenceValue, protowire.Fixed64Type)
	b = protowire.AppendFixed64(b, math.Float64bits(j.ReferenceValue))

	b = protowire.AppendTag(b, fieldBinaryScaleFactor, protowire.VarintType)
	b = protowire.AppendVarint(b, protowire.EncodeZigZag(int64(j.BinaryScaleFactor)))

	b = protowire.AppendTag(b, fieldDecimalScaleFactor, protowire.VarintType)
	b = protowire.AppendVarint(b, protowire.EncodeZigZag(int64(j.DecimalScaleFactor)))

	b = protowire.AppendTag(b, fieldOffsetBeforeData, protowire.VarintType)
	b = protowire.AppendVarint(b, j.OffsetBeforeData)

	b = protowire.AppendTag(b, fieldOffsetAfterData, protowire.VarintType)
	b = protowire.AppendVarint(b, j.OffsetAfterData)

	b = protowire.AppendTag(b, fieldOffsetBeforeBitmap, protowire.VarintType)
	b = protowire.AppendVarint(b, j.OffsetBeforeBitmap)

	b = protowire.AppendTag(b, fieldNumberOfDataPoints, protowire.VarintType)
	b = protowire.AppendVarint(b, j.NumberOfDataPoints)

	b = protowire.AppendTag(b, fieldNumberOfValues, protowire.VarintType)
	b = protowire.AppendVarint(b, j.NumberOfValues)

	b = protowire.AppendTag(b, fieldTotalLength, protowire.VarintType)
	b = protowire.AppendVarint(b, j.TotalLength)

	b = protowire.AppendTag(b, fieldMessageStartOffset, protowire.VarintType)
	b = protowire.AppendVarint(b, j.MessageStartOffset)

	b = protowire.AppendTag(b, fieldMD5GridSection, protowire.BytesType)
	b = protowire.AppendString(b, j.MD5GridSection)

	b = protowire.AppendTag(b, fieldSphericalHarmonics, protowire.VarintType)
	b = protowire.AppendVarint(b, boolToVarint(j.SphericalHarmonics))

	if j.PackingType == PackingCCSDS {
		b = protowire.AppendTag(b, fieldCcsdsFlags, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(j.CcsdsFlags))

		b = protowire.AppendTag(b, fieldCcsdsBlockSize, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(j.CcsdsBlockSize))

		b = protowire.AppendTag(b, fieldCcsdsRSI, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(j.CcsdsRSI))

		var packed []byte
		for _, o := range j.CcsdsOffsets {
			packed = protowire.AppendVarint(packed, o)
		}
		b = protowire.AppendTag(b, fieldCcsdsOffsets, protowire.BytesType)
		b = protowire.AppendBytes(b, packed)
	}

	return b
}

// Decode deserialises the bytes produced by Encode.
func Decode(data []byte) (*JumpInfo, error) {
	j := &JumpInfo{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, fmt.Errorf("jumpinfo: decode: bad tag: %w", protowire.ParseError(n))
		}
		data = data[n:]

		switch num {
		case fieldEdition:
			v, n, err := consumeVarint(data, typ)
			if err != nil {
				return nil, err
			}
			j.Edition = uint8(v)
			data = data[n:]
		case fieldPackingType:
			s, n, err := consumeString(data, typ)
			if err != nil {
				return nil, err
			}
			j.PackingType = PackingType(s)
			data = data[n:]
		case fieldBitsPerValue:
			v, n, err := consumeVarint(data, typ)
			if err != nil {
				return nil, err
			}
			j.BitsPerValue = uint(v)
			data = data[n:]
		case fieldReferenceValue:
			v, n := protowire.ConsumeFixed64(data)
			if n < 0 {
				return nil, fmt.Errorf("jumpinfo: decode referenceValue: %w", protowire.ParseError(n))
			}
			j.ReferenceValue = math.Float64frombits(v)
			data = data[n:]
		case fieldBinaryScaleFactor:
			v, n, err := consumeVarint(data, typ)
			if err != nil {
				return nil, err
			}
			j.BinaryScaleFactor = int(protowire.DecodeZigZag(v))
			data = data[n:]
		case fieldDecimalScaleFactor:
			v, n, err := consumeVarint(data, typ)
			if err != nil {
				return nil, err
			}
			j.DecimalScaleFactor = int(protowire.DecodeZigZag(v))
			data = data[n:]
		case fieldOffsetBeforeData:
			v, n, err := consumeVarint(data, typ)
			if err != nil {
				return nil, err
			}
			j.OffsetBeforeData = v
			data = data[n:]
		case fieldOffsetAfterData:
			v, n, err := consumeVarint(data, typ)
			if err != nil {
				return nil, err
			}
			j.OffsetAfterData = v
			data = data[n:]
		case fieldOffsetBeforeBitmap:
			v, n, err := consumeVarint(data, typ)
			if err != nil {
				return nil, err
			}
			j.OffsetBeforeBitmap = v
			data = data[n:]
		case fieldNumberOfDataPoints:
			v, n, err := consumeVarint(data, typ)
			if err != nil {
				return nil, err
			}
			j.NumberOfDataPoints = v
			data = data[n:]
		case fieldNumberOfValues:
			v, n, err := consumeVarint(data, typ)
			if err != nil {
				return nil, err
			}
			j.NumberOfValues = v
			data = data[n:]
		case fieldTotalLength:
			v, n, err := consumeVarint(data, typ)
			if err != nil {
				return nil, err
			}
			j.TotalLength = v
			data = data[n:]
		case fieldMessageStartOffset:
			v, n, err := consumeVarint(data, typ)
			if err != nil {
				return nil, err
			}
			j.MessageStartOffset = v
			data = data[n:]
		case fieldMD5GridSection:
			s, n, err := consumeString(data, typ)
			if err != nil {
				return nil, err
			}
			j.MD5GridSection = s
			data = data[n:]
		case fieldSphericalHarmonics:
			v, n, err := consumeVarint(data, typ)
			if err != nil {
				return nil, err
			}
			j.SphericalHarmonics = v != 0
			data = data[n:]
		case fieldCcsdsFlags:
			v, n, err := consumeVarint(data, typ)
			if err != nil {
				return nil, err
			}
			j.CcsdsFlags = uint(v)
			data = data[n:]
		case fieldCcsdsBlockSize:
			v, n, err := consumeVarint(data, typ)
			if err != nil {
				return nil, err
			}
			j.CcsdsBlockSize = uint(v)
			data = data[n:]
		case fieldCcsdsRSI:
			v, n, err := consumeVarint(data, typ)
			if err != nil {
				return nil, err
			}
			j.CcsdsRSI = uint(v)
			data = data[n:]
		case fieldCcsdsOffsets:
			packed, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, fmt.Errorf("jumpinfo: decode ccsdsOffsets: %w", protowire.ParseError(n))
			}
			for len(packed) > 0 {
				v, vn := protowire.ConsumeVarint(packed)
				if vn < 0 {
					return nil, fmt.Errorf("jumpinfo: decode ccsdsOffsets entry: %w", protowire.ParseError(vn))
				}
				j.CcsdsOffsets = append(j.CcsdsOffsets, v)
				packed = packed[vn:]
			}
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return nil, fmt.Errorf("jumpinfo: decode: unknown field %d: %w", num, protowire.ParseError(n))
			}
			data = data[n:]
		}
	}
	return j, nil
}

func consumeVarint(data []byte, typ protowire.Type) (uint64, int, error) {
	if typ != protowire.VarintType {
		return 0, 0, fmt.Errorf("jumpinfo: decode: expected varint, got wire type %d", typ)
	}
	v, n := protowire.ConsumeVarint(data)
	if n < 0 {
		return 0, 0, fmt.Errorf("jumpinfo: decode varint: %w", protowire.ParseError(n))
	}
	return v, n, nil
}

func consumeString(data []byte, typ protowire.Type) (string, int, error) {
	if typ != protowire.BytesType {
		return "", 0, fmt.Errorf("jumpinfo: decode: expected bytes, got wire type %d", typ)
	}
	b, n := protowire.ConsumeBytes(data)
	if n < 0 {
		return "", 0, fmt.Errorf("jumpinfo: decode bytes: %w", protowire.ParseError(n))
	}
	return string(b), n, nil
}

func boolToVarint(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}
