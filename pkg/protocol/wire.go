package protocol

import "google.golang.org/protobuf/encoding/protowire"

// Thin wrappers around protowire's free functions, used by the
// per-message decoders in messages.go for repeated-submessage fields
// that the fieldReader/fieldWriter helpers in envelope.go don't cover.

func consumeTag(b []byte) (protowire.Number, protowire.Type, int) {
	return protowire.ConsumeTag(b)
}

func consumeBytes(b []byte) ([]byte, int) {
	return protowire.ConsumeBytes(b)
}

func consumeVarint(b []byte) (uint64, int) {
	return protowire.ConsumeVarint(b)
}

func skipField(num protowire.Number, typ protowire.Type, b []byte) int {
	return protowire.ConsumeFieldValue(num, typ, b)
}

func errParse(n int) error {
	return protowire.ParseError(n)
}

func appendTagVarint(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}
