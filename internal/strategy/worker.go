package strategy

import (
	"context"
	"fmt"
	"math"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/encoding"
	"google.golang.org/protobuf/encoding/protowire"
)

// Worker is an optional external indicator process reached over gRPC,
// matching spec.md §1's explicit framing: "the concrete strategy
// mathematics beyond what gates the FSM (indicator formulas are a
// black box returning {signal, confidence, reason})". No .proto/protoc
// step ships with this repo (same reasoning as pkg/protocol's
// hand-rolled envelope codec), so the wire messages below are encoded
// directly with google.golang.org/protobuf/encoding/protowire and
// registered as a custom grpc content-subtype codec.
type Worker struct {
	conn *grpc.ClientConn
}

const workerCodecName = "ctradertick"
const workerMethod = "/ctrader.indicatorworker.v1.IndicatorWorker/Evaluate"

func init() {
	encoding.RegisterCodec(tickCodec{})
}

// NewWorker dials the external indicator worker at addr.
func NewWorker(addr string) (*Worker, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()), grpc.WithDefaultCallOptions(grpc.CallContentSubtype(workerCodecName)))
	if err != nil {
		return nil, fmt.Errorf("worker: dial %s: %w", addr, err)
	}
	return &Worker{conn: conn}, nil
}

// Close releases the underlying connection.
func (w *Worker) Close() error {
	if w.conn == nil {
		return nil
	}
	return w.conn.Close()
}

func (w *Worker) Name() string { return "external_worker" }

// Evaluate forwards the bundle's latest closes and spread to the
// external worker and translates its {direction, confidence, reason}
// reply back into a Signal.
func (w *Worker) Evaluate(b Bundle) (Signal, error) {
	if len(b.M5) == 0 {
		return Signal{}, nil
	}
	req := &tickRequest{
		Symbol:     b.Symbol,
		SpreadPips: b.SpreadPips,
	}
	if len(b.H1) > 0 {
		req.H1Close = float64(b.H1[len(b.H1)-1].Close())
	}
	if len(b.M15) > 0 {
		req.M15Close = float64(b.M15[len(b.M15)-1].Close())
	}
	req.M5Close = float64(b.M5[len(b.M5)-1].Close())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var resp tickResponse
	if err := w.conn.Invoke(ctx, workerMethod, req, &resp); err != nil {
		return Signal{}, fmt.Errorf("worker: evaluate %s: %w", b.Symbol, err)
	}
	dir := DirectionNone
	switch resp.Direction {
	case "BUY":
		dir = DirectionBuy
	case "SELL":
		dir = DirectionSell
	default:
		return Signal{}, nil
	}
	return Signal{Valid: true, Direction: dir, Confidence: resp.Confidence, Reason: resp.Reason, Source: w.Name()}, nil
}

type tickRequest struct {
	Symbol     string
	H1Close    float64
	M15Close   float64
	M5Close    float64
	SpreadPips float64
}

func (r *tickRequest) marshal() []byte {
	var b []byte
	b = appendString(b, 1, r.Symbol)
	b = appendDouble(b, 2, r.H1Close)
	b = appendDouble(b, 3, r.M15Close)
	b = appendDouble(b, 4, r.M5Close)
	b = appendDouble(b, 5, r.SpreadPips)
	return b
}

type tickResponse struct {
	Direction  string
	Confidence float64
	Reason     string
}

func (resp *tickResponse) unmarshal(buf []byte) error {
	for len(buf) > 0 {
		num, typ, n := protowire.ConsumeTag(buf)
		if n < 0 {
			return fmt.Errorf("worker: bad tag")
		}
		buf = buf[n:]
		switch num {
		case 1:
			s, m := protowire.ConsumeBytes(buf)
			if m < 0 {
				return fmt.Errorf("worker: bad string field")
			}
			resp.Direction = string(s)
			buf = buf[m:]
		case 2:
			v, m := protowire.ConsumeFixed64(buf)
			if m < 0 {
				return fmt.Errorf("worker: bad double field")
			}
			resp.Confidence = math.Float64frombits(v)
			buf = buf[m:]
		case 3:
			s, m := protowire.ConsumeBytes(buf)
			if m < 0 {
				return fmt.Errorf("worker: bad string field")
			}
			resp.Reason = string(s)
			buf = buf[m:]
		default:
			m := protowire.ConsumeFieldValue(num, typ, buf)
			if m < 0 {
				return fmt.Errorf("worker: bad field")
			}
			buf = buf[m:]
		}
	}
	return nil
}

func appendString(b []byte, num protowire.Number, v string) []byte {
	if v == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, v)
}

func appendDouble(b []byte, num protowire.Number, v float64) []byte {
	b = protowire.AppendTag(b, num, protowire.Fixed64Type)
	return protowire.AppendFixed64(b, math.Float64bits(v))
}

// tickCodec is the grpc encoding.Codec that (de)serializes tickRequest
// and tickResponse through the protowire helpers above.
type tickCodec struct{}

func (tickCodec) Name() string { return workerCodecName }

func (tickCodec) Marshal(v any) ([]byte, error) {
	switch m := v.(type) {
	case *tickRequest:
		return m.marshal(), nil
	default:
		return nil, fmt.Errorf("worker: codec cannot marshal %T", v)
	}
}

func (tickCodec) Unmarshal(data []byte, v any) error {
	switch m := v.(type) {
	case *tickResponse:
		return m.unmarshal(data)
	default:
		return fmt.Errorf("worker: codec cannot unmarshal into %T", v)
	}
}
