package audit

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/kaungthantlinn-coding/DisasterAppApi-sub002/internal/shared"
)

const (
	maxCapturedBody    = 64 << 10
	defaultWriteBudget = 5 * time.Second
	anonymousActor     = "anonymous"

	// WriteOK and WriteFailed label sink outcomes for a WriteObserver.
	WriteOK     = "ok"
	WriteFailed = "failed"
)

// WriteObserver receives the outcome of every sink write.
type WriteObserver interface {
	ObserveAuditWrite(result string)
}

// Interceptor wraps HTTP handlers and writes one Record per audit-worthy
// request. Writes run detached from the request; a failing sink is logged
// and never affects the response.
type Interceptor struct {
	sink     Sink
	logger   *slog.Logger
	timeout  time.Duration
	observer WriteObserver
	now      func() time.Time

	mu       sync.Mutex
	closed   bool
	inflight sync.WaitGroup
}

// NewInterceptor constructs an Interceptor. observer may be nil; a
// non-positive timeout falls back to five seconds.
func NewInterceptor(sink Sink, logger *slog.Logger, timeout time.Duration, observer WriteObserver) *Interceptor {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = defaultWriteBudget
	}
	return &Interceptor{sink: sink, logger: logger, timeout: timeout, observer: observer, now: time.Now}
}

// Middleware audits requests passing through next. A panicking handler is
// audited with severity error and the panic is re-raised unchanged.
func (i *Interceptor) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !ShouldLog(r.Method, r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}
		start := i.now()
		body := i.captureBody(r)
		ctx, failure := shared.ContextWithFailureSlot(r.Context())
		r = r.WithContext(ctx)
		rw := &responseRecorder{ResponseWriter: w, status: http.StatusOK}

		defer func() {
			recovered := recover()
			err := failure()
			status := rw.status
			if recovered != nil {
				err = panicError(recovered)
				if !rw.wroteHeader {
					status = http.StatusInternalServerError
				}
			}
			i.record(r, start, status, err, body)
			if recovered != nil {
				panic(recovered)
			}
		}()
		next.ServeHTTP(rw, r)
	})
}

// Wait blocks until every in-flight sink write has finished. Requests must
// not be served concurrently with Wait; use Close during shutdown.
func (i *Interceptor) Wait() {
	i.inflight.Wait()
}

// Close stops dispatching new writes and waits for in-flight ones. Records
// produced after Close are logged and dropped.
func (i *Interceptor) Close() {
	i.mu.Lock()
	i.closed = true
	i.mu.Unlock()
	i.inflight.Wait()
}

// captureBody buffers up to maxCapturedBody bytes of the request body and
// splices them back in front of the unread remainder.
func (i *Interceptor) captureBody(r *http.Request) string {
	if r.Body == nil || r.Body == http.NoBody {
		return ""
	}
	buf, err := io.ReadAll(io.LimitReader(r.Body, maxCapturedBody))
	if err != nil {
		i.logger.Warn("audit capture body", slog.Any("error", err))
	}
	r.Body = &splicedBody{Reader: io.MultiReader(bytes.NewReader(buf), r.Body), closer: r.Body}
	return string(buf)
}

func (i *Interceptor) record(r *http.Request, start time.Time, status int, failure error, body string) {
	if i.sink == nil {
		return
	}
	defer func() {
		if p := recover(); p != nil {
			i.logger.Error("audit build record panic", slog.Any("panic", p))
		}
	}()
	i.dispatch(r.Context(), i.buildRecord(r, start, status, failure, body))
}

func (i *Interceptor) buildRecord(r *http.Request, start time.Time, status int, failure error, body string) Record {
	path := r.URL.Path
	cls := Classify(r.Method, path, status, failure)
	entityType, entityID := Entity(path)

	meta := map[string]string{
		MetaMethod:        r.Method,
		MetaPath:          path,
		MetaStatusCode:    strconv.Itoa(status),
		MetaDurationMS:    strconv.FormatInt(i.now().Sub(start).Milliseconds(), 10),
		MetaContentType:   r.Header.Get("Content-Type"),
		MetaContentLength: strconv.FormatInt(r.ContentLength, 10),
		MetaReferer:       r.Referer(),
		MetaTimestamp:     start.UTC().Format(time.RFC3339Nano),
	}
	if reqID := middleware.GetReqID(r.Context()); reqID != "" {
		meta[MetaRequestID] = reqID
	}

	rec := Record{
		ID:         uuid.New(),
		Action:     cls.Action,
		Severity:   cls.Severity,
		UserName:   anonymousActor,
		Details:    Details(r.Method, path, status, failure, body),
		Resource:   cls.Resource,
		IPAddress:  ClientIP(r),
		UserAgent:  r.UserAgent(),
		Metadata:   meta,
		EntityType: entityType,
		EntityID:   entityID,
		CreatedAt:  start.UTC(),
	}
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		if id, err := uuid.Parse(sess.User()); err == nil {
			rec.UserID = &id
		}
		if name := sess.UserName(); name != "" {
			rec.UserName = name
		}
	}
	return rec
}

func (i *Interceptor) dispatch(ctx context.Context, rec Record) {
	i.mu.Lock()
	if i.closed {
		i.mu.Unlock()
		i.logger.Warn("audit write dropped after close", slog.String("action", rec.Action))
		i.observe(WriteFailed)
		return
	}
	i.inflight.Add(1)
	i.mu.Unlock()
	go func() {
		defer i.inflight.Done()
		defer func() {
			if p := recover(); p != nil {
				i.logger.Error("audit write panic", slog.String("action", rec.Action), slog.Any("panic", p))
				i.observe(WriteFailed)
			}
		}()
		writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), i.timeout)
		defer cancel()
		if err := i.sink.CreateLog(writeCtx, rec); err != nil {
			i.logger.Error("audit write failed",
				slog.String("action", rec.Action),
				slog.String("path", rec.Metadata[MetaPath]),
				slog.Any("error", err))
			i.observe(WriteFailed)
			return
		}
		i.observe(WriteOK)
	}()
}

func (i *Interceptor) observe(result string) {
	if i.observer != nil {
		i.observer.ObserveAuditWrite(result)
	}
}

func panicError(v any) error {
	if err, ok := v.(error); ok {
		return err
	}
	return errors.New(fmt.Sprint(v))
}

type splicedBody struct {
	io.Reader
	closer io.Closer
}

func (b *splicedBody) Close() error {
	return b.closer.Close()
}

// responseRecorder captures the status code while streaming the body
// straight to the client.
type responseRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *responseRecorder) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *responseRecorder) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

func (w *responseRecorder) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *responseRecorder) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
