// Package recorder decorates store-backed operations with call counting and
// input/output history kept in the same key-value backend.
//
// For an operation named N the backend holds:
//
//   - N          invocation counter (INCR)
//   - N:inputs   canonical JSON of each positional argument tuple (RPUSH)
//   - N:outputs  canonical JSON of each result (RPUSH)
//
// Counter increment and list appends are separate backend calls with no
// transaction. Sequential callers always see len(inputs) == len(outputs) ==
// counter; concurrent callers may observe them transiently diverge, and
// cross-caller order follows the backend's serialization order.
package recorder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/recall/internal/ir"
	"github.com/roach88/recall/internal/kv"
)

const instrumentationName = "github.com/roach88/recall/internal/recorder"

// ErrUnserializable is returned when call arguments have no canonical form.
// The wrapped operation is not invoked.
var ErrUnserializable = errors.New("arguments cannot be serialized")

// Op is a recordable operation: positional arguments in, one result out.
type Op func(ctx context.Context, args ...any) (any, error)

// Middleware decorates an Op.
type Middleware func(Op) Op

// InputsKey returns the list key holding recorded argument tuples.
func InputsKey(name string) string { return name + ":inputs" }

// OutputsKey returns the list key holding recorded results.
func OutputsKey(name string) string { return name + ":outputs" }

// Recorder builds recording middleware against a backend.
type Recorder struct {
	backend kv.Backend
	logger  *slog.Logger
	tracer  trace.Tracer
	calls   *prometheus.CounterVec
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Recorder) {
		r.logger = logger
	}
}

// WithTracerProvider sets the provider used for per-call spans.
// Defaults to the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(r *Recorder) {
		r.tracer = tp.Tracer(instrumentationName)
	}
}

// WithRegisterer registers the recorded-calls counter with reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(r *Recorder) {
		reg.MustRegister(r.calls)
	}
}

// New creates a Recorder writing to backend.
func New(backend kv.Backend, opts ...Option) *Recorder {
	r := &Recorder{
		backend: backend,
		logger:  slog.Default(),
		tracer:  otel.GetTracerProvider().Tracer(instrumentationName),
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "recall_recorded_calls_total",
			Help: "Number of recorded operation invocations.",
		}, []string{"method"}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Backend returns the backend the recorder writes to.
func (r *Recorder) Backend() kv.Backend {
	return r.backend
}

// CountCalls increments the counter for name before every call.
// A failed increment aborts the call.
func (r *Recorder) CountCalls(name string) Middleware {
	return func(next Op) Op {
		return func(ctx context.Context, args ...any) (any, error) {
			n, err := r.backend.Incr(ctx, name)
			if err != nil {
				return nil, fmt.Errorf("count calls %s: %w", name, err)
			}
			r.calls.WithLabelValues(name).Inc()
			r.logger.Debug("call counted", "method", name, "count", n)
			return next(ctx, args...)
		}
	}
}

// CallHistory appends the serialized arguments before the call and the
// serialized result after it. A failed call appends no output and its error
// is returned unchanged.
func (r *Recorder) CallHistory(name string) Middleware {
	return func(next Op) Op {
		return func(ctx context.Context, args ...any) (any, error) {
			input, err := ir.FormatArgs(args)
			if err != nil {
				return nil, fmt.Errorf("call history %s: %w: %w", name, ErrUnserializable, err)
			}
			if err := r.backend.RPush(ctx, InputsKey(name), []byte(input)); err != nil {
				return nil, fmt.Errorf("call history %s: %w", name, err)
			}

			result, err := next(ctx, args...)
			if err != nil {
				return nil, err
			}

			output, ferr := ir.FormatResult(result)
			if ferr != nil {
				// Outputs stay aligned with inputs even for unencodable results.
				r.logger.Warn("result has no canonical form", "method", name, "error", ferr)
				output, _ = ir.FormatResult(fmt.Sprintf("%v", result))
			}
			if err := r.backend.RPush(ctx, OutputsKey(name), []byte(output)); err != nil {
				return result, fmt.Errorf("call history %s: %w", name, err)
			}
			return result, nil
		}
	}
}

// Record wraps op with counting and history under name, counting first.
// Each call runs inside a span carrying the method name.
func (r *Recorder) Record(name string, op Op) Op {
	inner := r.CountCalls(name)(r.CallHistory(name)(op))

	return func(ctx context.Context, args ...any) (any, error) {
		ctx, span := r.tracer.Start(ctx, "recorder.call",
			trace.WithAttributes(attribute.String("recall.method", name)))
		defer span.End()

		result, err := inner(ctx, args...)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return result, err
		}
		return result, nil
	}
}

// Func1 records a typed single-argument function under name.
func Func1[A, R any](r *Recorder, name string, fn func(context.Context, A) (R, error)) func(context.Context, A) (R, error) {
	recorded := r.Record(name, func(ctx context.Context, args ...any) (any, error) {
		arg, _ := args[0].(A)
		return fn(ctx, arg)
	})

	return func(ctx context.Context, arg A) (R, error) {
		result, err := recorded(ctx, arg)
		out, _ := result.(R)
		return out, err
	}
}
