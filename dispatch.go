package strut

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"runtime/debug"
	"strconv"
	"strings"
	"time"
)

// dispatch runs one request through the pipeline: route, extract,
// invoke, respond. Each phase either advances or converts its failure
// into a problem response; nothing is written to the wire until the
// response is fully serialized.
func (s *Service) dispatch(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	reqID := requestID(r)
	w.Header().Set(RequestIDHeader, reqID)

	if s.limiter != nil && !s.limiter.Allow() {
		w.Header().Set("Retry-After", "1")
		s.writeProblem(w, reqID, NewProblem(http.StatusTooManyRequests, "request rate limit exceeded"))
		return
	}

	res := s.router.lookup(r.Method, r.URL.Path)

	var status int
	var ep *endpoint
	switch res.kind {
	case matchNone:
		status = s.writeProblem(w, reqID, NewProblem(http.StatusNotFound, "no route matches this path"))
	case matchWrongMethod:
		w.Header().Set("Allow", strings.Join(res.allow, ", "))
		status = s.writeProblem(w, reqID, NewProblem(http.StatusMethodNotAllowed, fmt.Sprintf("method %s not allowed", r.Method)))
	case matchFound:
		ep = res.endpoint
		status = s.serve(w, r, ep, res.vars, reqID)
	}

	if s.metrics != nil {
		template := "(no route)"
		method := r.Method
		if ep != nil {
			template = ep.template.raw
			method = ep.method
		}
		s.metrics.observe(method, template, status, time.Since(start))
	}
}

// serve handles a routed request and reports the status written.
func (s *Service) serve(w http.ResponseWriter, r *http.Request, ep *endpoint, vars map[string]string, reqID string) int {
	if ep.rawHandler != nil {
		for name, val := range vars {
			r.SetPathValue(name, val)
		}
		rec := &responseRecorder{ResponseWriter: w, status: http.StatusOK}
		ep.rawHandler.ServeHTTP(rec, r)
		return rec.status
	}

	bodyLimit := s.bodyLimit
	if ep.bodyLimit > 0 {
		bodyLimit = ep.bodyLimit
	}

	req := &Request{
		http:      r,
		id:        reqID,
		template:  ep.template.raw,
		vars:      vars,
		bodyLimit: bodyLimit,
		validator: s.validator,
	}

	ctx := withRequest(r.Context(), req)
	if s.tracer != nil {
		var finish func()
		ctx, finish = s.tracer.StartSpan(ctx, ep.method+" "+ep.template.raw, map[string]string{
			"http.method":   ep.method,
			"http.template": ep.template.raw,
			"request.id":    reqID,
		})
		defer finish()
	}
	req.http = r.WithContext(ctx)

	// Extract in declaration order; the first failure ends the request.
	args := make([]reflect.Value, 0, len(ep.params)+1)
	args = append(args, reflect.ValueOf(ctx))
	for _, p := range ep.params {
		pv := reflect.New(p.base)
		if err := pv.Interface().(Extractor).Bind(req); err != nil {
			return s.writeProblem(w, reqID, extractionProblem(err))
		}
		if p.passPtr {
			args = append(args, pv)
		} else {
			args = append(args, pv.Elem())
		}
	}

	out, err := s.invoke(ep, args, reqID, r)
	if err != nil {
		return s.writeProblem(w, reqID, s.handlerProblem(err, reqID, r))
	}

	return s.respond(w, req, ep, out, reqID)
}

// invoke calls the handler, converting a panic into an error so a
// misbehaving endpoint cannot take the server down.
func (s *Service) invoke(ep *endpoint, args []reflect.Value, reqID string, r *http.Request) (out []reflect.Value, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Error("handler panic",
				slog.Any("panic", rec),
				slog.String("stack", string(debug.Stack())),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("request_id", reqID),
			)
			err = fmt.Errorf("handler panic: %v", rec)
			out = nil
		}
	}()

	out = ep.handler.Call(args)
	if e, ok := out[1].Interface().(error); ok && e != nil {
		return nil, e
	}
	return out, nil
}

// respond serializes the handler's response and writes it. Serialization
// happens fully before the first byte reaches the wire, so a failure
// here still produces a clean 500 problem instead of a torn response.
func (s *Service) respond(w http.ResponseWriter, req *Request, ep *endpoint, out []reflect.Value, reqID string) int {
	rv := out[0]
	if rv.Kind() == reflect.Pointer && rv.IsNil() {
		s.logger.Error("handler returned nil response",
			slog.String("method", ep.method),
			slog.String("template", ep.template.raw),
			slog.String("request_id", reqID),
		)
		return s.writeProblem(w, reqID, NewProblem(http.StatusInternalServerError, "internal server error"))
	}

	if ep.respNeedAddr {
		pv := reflect.New(rv.Type())
		pv.Elem().Set(rv)
		rv = pv
	}
	responder := rv.Interface().(Responder)

	payload, err := responder.Respond(req)
	if err != nil {
		s.logger.Error("response serialization failed",
			slog.String("method", ep.method),
			slog.String("template", ep.template.raw),
			slog.String("request_id", reqID),
			slog.Any("error", err),
		)
		return s.writeProblem(w, reqID, NewProblem(http.StatusInternalServerError, "internal server error"))
	}

	// The client may have gone away while the handler ran. Abandon
	// rather than write into a dead connection.
	if err := req.Context().Err(); err != nil {
		s.logger.Warn("request abandoned",
			slog.String("method", ep.method),
			slog.String("template", ep.template.raw),
			slog.String("request_id", reqID),
		)
		return payload.Status
	}

	if hs, ok := responder.(HeaderSetter); ok {
		hs.SetHeaders(w.Header())
	}
	if cs, ok := responder.(CookieSetter); ok {
		for _, c := range cs.Cookies() {
			http.SetCookie(w, c)
		}
	}

	if payload.ContentType != "" {
		w.Header().Set("Content-Type", payload.ContentType)
	}
	if payload.Stream == nil {
		w.Header().Set("Content-Length", strconv.Itoa(len(payload.Body)))
	}
	w.WriteHeader(payload.Status)
	if payload.Stream != nil {
		if _, err := io.Copy(w, payload.Stream); err != nil {
			s.logger.Warn("response stream interrupted",
				slog.String("method", ep.method),
				slog.String("template", ep.template.raw),
				slog.String("request_id", reqID),
			)
		}
	} else if len(payload.Body) > 0 {
		_, _ = w.Write(payload.Body)
	}
	return payload.Status
}

// extractionProblem maps a bind failure to a problem response. Bind
// errors default to 400; extractors signal other statuses (413, 415)
// through StatusCoder.
func extractionProblem(err error) *Problem {
	var p *Problem
	if errors.As(err, &p) {
		q := *p
		if q.Status == 0 {
			q.Status = http.StatusBadRequest
		}
		return &q
	}
	var sc StatusCoder
	if errors.As(err, &sc) {
		return NewProblem(sc.StatusCode(), err.Error())
	}
	return NewProblem(http.StatusBadRequest, err.Error())
}

// handlerProblem maps a handler error to a problem response. Errors
// without an explicit status become an opaque 500: the detail is logged,
// not leaked.
func (s *Service) handlerProblem(err error, reqID string, r *http.Request) *Problem {
	var p *Problem
	if errors.As(err, &p) {
		return p
	}
	var sc StatusCoder
	if errors.As(err, &sc) {
		return NewProblem(sc.StatusCode(), err.Error())
	}
	s.logger.Error("handler error",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("request_id", reqID),
		slog.Any("error", err),
	)
	return NewProblem(http.StatusInternalServerError, "internal server error")
}

// writeProblem serializes a problem document and writes it, reporting
// the status for metrics. The caller's Problem is copied before the
// request-scoped fields are filled in, so handlers can safely return
// shared values.
func (s *Service) writeProblem(w http.ResponseWriter, reqID string, p *Problem) int {
	q := *p
	p = &q
	if p.Status == 0 {
		p.Status = http.StatusInternalServerError
	}
	if p.Type == "" {
		p.Type = "about:blank"
	}
	if p.Title == "" {
		p.Title = http.StatusText(p.Status)
	}
	if p.RequestID == "" {
		p.RequestID = reqID
	}

	body, err := jsonMarshal(p)
	if err != nil {
		// A problem document is plain data; this cannot happen short of
		// memory corruption. Degrade to text rather than recurse.
		http.Error(w, p.Detail, p.Status)
		return p.Status
	}

	w.Header().Set("Content-Type", mediaProblem)
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(p.Status)
	_, _ = w.Write(body)
	return p.Status
}
