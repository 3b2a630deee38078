package protocol

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Envelope is the outer frame carried on every WebSocket binary message:
// field 1 payloadType (varint), field 2 payload (bytes), field 3
// clientMsgId (string, optional).
type Envelope struct {
	PayloadType PayloadType
	Payload     []byte
	ClientMsgID string
}

// Marshal encodes the envelope using protobuf wire rules.
func (e Envelope) Marshal() []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(e.PayloadType))
	b = protowire.AppendTag(b, 2, protowire.BytesType)
	b = protowire.AppendBytes(b, e.Payload)
	if e.ClientMsgID != "" {
		b = protowire.AppendTag(b, 3, protowire.BytesType)
		b = protowire.AppendString(b, e.ClientMsgID)
	}
	return b
}

// UnmarshalEnvelope decodes a raw frame into an Envelope.
func UnmarshalEnvelope(buf []byte) (Envelope, error) {
	var e Envelope
	for len(buf) > 0 {
		num, typ, n := protowire.ConsumeTag(buf)
		if n < 0 {
			return e, fmt.Errorf("protocol: consume tag: %w", protowire.ParseError(n))
		}
		buf = buf[n:]
		switch num {
		case 1:
			v, n := protowire.ConsumeVarint(buf)
			if n < 0 {
				return e, fmt.Errorf("protocol: consume payloadType: %w", protowire.ParseError(n))
			}
			e.PayloadType = PayloadType(v)
			buf = buf[n:]
		case 2:
			v, n := protowire.ConsumeBytes(buf)
			if n < 0 {
				return e, fmt.Errorf("protocol: consume payload: %w", protowire.ParseError(n))
			}
			e.Payload = append([]byte(nil), v...)
			buf = buf[n:]
		case 3:
			v, n := protowire.ConsumeString(buf)
			if n < 0 {
				return e, fmt.Errorf("protocol: consume clientMsgId: %w", protowire.ParseError(n))
			}
			e.ClientMsgID = v
			buf = buf[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, buf)
			if n < 0 {
				return e, fmt.Errorf("protocol: skip unknown field %d: %w", num, protowire.ParseError(n))
			}
			buf = buf[n:]
		}
	}
	return e, nil
}

// field helpers shared by every per-message codec below. Each message
// type writes/reads a flat set of varint/bytes/string fields in
// ascending field-number order, matching protobuf's canonical encoding.

type fieldWriter struct{ buf []byte }

func (w *fieldWriter) varint(n protowire.Number, v uint64) {
	if v == 0 {
		return
	}
	w.buf = protowire.AppendTag(w.buf, n, protowire.VarintType)
	w.buf = protowire.AppendVarint(w.buf, v)
}

func (w *fieldWriter) zigzag(n protowire.Number, v int64) {
	if v == 0 {
		return
	}
	w.buf = protowire.AppendTag(w.buf, n, protowire.VarintType)
	w.buf = protowire.AppendVarint(w.buf, protowire.EncodeZigZag(v))
}

func (w *fieldWriter) str(n protowire.Number, v string) {
	if v == "" {
		return
	}
	w.buf = protowire.AppendTag(w.buf, n, protowire.BytesType)
	w.buf = protowire.AppendString(w.buf, v)
}

func (w *fieldWriter) bytes(n protowire.Number, v []byte) {
	if len(v) == 0 {
		return
	}
	w.buf = protowire.AppendTag(w.buf, n, protowire.BytesType)
	w.buf = protowire.AppendBytes(w.buf, v)
}

func (w *fieldWriter) boolean(n protowire.Number, v bool) {
	if !v {
		return
	}
	w.varint(n, 1)
}

type fieldReader struct {
	fields map[protowire.Number]fieldValue
}

type fieldValue struct {
	varint uint64
	bytes  []byte
}

func parseFields(buf []byte) (fieldReader, error) {
	fr := fieldReader{fields: make(map[protowire.Number]fieldValue)}
	for len(buf) > 0 {
		num, typ, n := protowire.ConsumeTag(buf)
		if n < 0 {
			return fr, fmt.Errorf("protocol: consume tag: %w", protowire.ParseError(n))
		}
		buf = buf[n:]
		switch typ {
		case protowire.VarintType:
			v, n := protowire.ConsumeVarint(buf)
			if n < 0 {
				return fr, fmt.Errorf("protocol: consume varint field %d: %w", num, protowire.ParseError(n))
			}
			fr.fields[num] = fieldValue{varint: v}
			buf = buf[n:]
		case protowire.BytesType:
			v, n := protowire.ConsumeBytes(buf)
			if n < 0 {
				return fr, fmt.Errorf("protocol: consume bytes field %d: %w", num, protowire.ParseError(n))
			}
			fr.fields[num] = fieldValue{bytes: append([]byte(nil), v...)}
			buf = buf[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, buf)
			if n < 0 {
				return fr, fmt.Errorf("protocol: skip field %d: %w", num, protowire.ParseError(n))
			}
			buf = buf[n:]
		}
	}
	return fr, nil
}

func (fr fieldReader) u64(n protowire.Number) uint64 { return fr.fields[n].varint }
func (fr fieldReader) i64(n protowire.Number) int64   { return int64(fr.fields[n].varint) }
func (fr fieldReader) zigzag(n protowire.Number) int64 {
	return protowire.DecodeZigZag(fr.fields[n].varint)
}
func (fr fieldReader) str(n protowire.Number) string   { return string(fr.fields[n].bytes) }
func (fr fieldReader) bytes(n protowire.Number) []byte { return fr.fields[n].bytes }
func (fr fieldReader) boolean(n protowire.Number) bool { return fr.fields[n].varint != 0 }
