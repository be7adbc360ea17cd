package obs

import (
	"context"
	"log"
	"time"
)

type ctxKey string

// RequestIDKey carries the request id set by the HTTP middleware so timed
// operations can be correlated with their request log line.
const RequestIDKey ctxKey = "req_id"

// Time logs and records the duration of a named operation. Use as
// defer Time(ctx, "op")(&err); the error pointer is read at completion so
// failures land in the same line.
func Time(ctx context.Context, name string) func(errp *error) {
	start := time.Now()

	reqID, _ := ctx.Value(RequestIDKey).(string)

	return func(errp *error) {
		dur := time.Since(start)
		OpDuration.WithLabelValues(name).Observe(dur.Seconds())

		if errp != nil && *errp != nil {
			log.Printf("request=%s op=%s dur=%dms err=%v", reqID, name, dur.Milliseconds(), *errp)
			return
		}
		log.Printf("request=%s op=%s dur=%dms", reqID, name, dur.Milliseconds())
	}
}
