// Package web serves the booking form: a thin collaborator that collects a
// validated BookingRequest and renders the session's progress stream live.
package web

import (
	"context"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/example/court-booker/internal/domain/booking"
	"github.com/example/court-booker/internal/infrastructure/activenet"
)

// Runner executes one automation session for a validated request, feeding
// progress into the reporter, and returns the single final outcome.
type Runner func(ctx context.Context, req booking.BookingRequest, rep booking.Reporter) booking.SessionOutcome

type Server struct {
	addr       string
	sessions   *SessionManager
	accessHash string
	runner     Runner
	tmpl       *template.Template
	log        *zap.Logger
}

func New(addr string, sessions *SessionManager, accessHash string, runner Runner, log *zap.Logger) (*Server, error) {
	tmpl, err := ParseTemplates()
	if err != nil {
		return nil, err
	}
	return &Server{
		addr:       addr,
		sessions:   sessions,
		accessHash: accessHash,
		runner:     runner,
		tmpl:       tmpl,
		log:        log,
	}, nil
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/login", s.handleLogin)
	mux.HandleFunc("/logout", s.handleLogout)
	mux.HandleFunc("/", s.requireAuth(s.handleForm))
	mux.HandleFunc("/run", s.requireAuth(s.handleRun))
	return s.logging(mux)
}

func (s *Server) ListenAndServe() error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.log.Info("listening", zap.String("addr", s.addr))
	return srv.ListenAndServe()
}

func (s *Server) logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("took", time.Since(start)))
	})
}

func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.sessions.IsAuthed(r) {
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		next(w, r)
	}
}

func writeErr(w http.ResponseWriter, err error, code int) {
	w.WriteHeader(code)
	_, _ = w.Write([]byte(err.Error()))
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	w.Header().Set("content-type", "text/html; charset=utf-8")
	if err := s.tmpl.ExecuteTemplate(w, name, data); err != nil {
		writeErr(w, err, http.StatusInternalServerError)
	}
}

type loginData struct {
	Error string
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case "GET":
		s.render(w, "login.html", loginData{})
	case "POST":
		_ = r.ParseForm()
		password := r.FormValue("password")
		if err := bcrypt.CompareHashAndPassword([]byte(s.accessHash), []byte(password)); err != nil {
			s.render(w, "login.html", loginData{Error: "Wrong access password"})
			return
		}
		if err := s.sessions.SetAuthed(w); err != nil {
			writeErr(w, err, http.StatusInternalServerError)
			return
		}
		http.Redirect(w, r, "/", http.StatusFound)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.sessions.Clear(w)
	http.Redirect(w, r, "/login", http.StatusFound)
}

type hourOption struct {
	Hour  int
	Label string
}

type formData struct {
	Error       string
	Courts      []string
	Hours       []hourOption
	DefaultDate string
}

func (s *Server) formData() formData {
	d := formData{
		Courts: activenet.Courts,
		// Slots typically open a week out.
		DefaultDate: time.Now().AddDate(0, 0, 7).Format("2006-01-02"),
	}
	for h := activenet.FirstHour; h <= activenet.LastHour; h++ {
		d.Hours = append(d.Hours, hourOption{Hour: h, Label: activenet.HourLabel(h)})
	}
	return d
}

func (s *Server) handleForm(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	s.render(w, "form.html", s.formData())
}

// parseRequest builds and validates a BookingRequest from the posted form.
func parseRequest(r *http.Request) (booking.BookingRequest, error) {
	_ = r.ParseForm()

	req := booking.BookingRequest{
		Credentials: booking.Credentials{
			Email:    strings.TrimSpace(r.FormValue("email")),
			Password: r.FormValue("password"),
		},
		Court:     r.FormValue("court"),
		EventName: strings.TrimSpace(r.FormValue("event_name")),
	}

	date, err := time.Parse("2006-01-02", r.FormValue("date"))
	if err != nil {
		return req, fmt.Errorf("invalid date: %w", err)
	}
	req.Date = date

	start, err := strconv.Atoi(r.FormValue("start"))
	if err != nil {
		return req, fmt.Errorf("invalid start hour")
	}
	hours, err := strconv.Atoi(r.FormValue("hours"))
	if err != nil || hours < 1 {
		return req, fmt.Errorf("invalid duration")
	}
	req.Windows = []booking.TimeWindow{{StartHour: start, Hours: hours}}

	if b := r.FormValue("backup"); b != "" {
		backup, err := strconv.Atoi(b)
		if err != nil {
			return req, fmt.Errorf("invalid backup hour")
		}
		req.Windows = append(req.Windows, booking.TimeWindow{StartHour: backup, Hours: hours})
	}

	if !activenet.KnownCourt(req.Court) {
		return req, fmt.Errorf("unknown court %q", req.Court)
	}
	for _, win := range req.Windows {
		if !activenet.BookableHour(win.StartHour) {
			return req, fmt.Errorf("hour %d is outside bookable hours", win.StartHour)
		}
	}
	return req, req.Validate()
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	req, err := parseRequest(r)
	if err != nil {
		writeErr(w, err, http.StatusBadRequest)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeErr(w, fmt.Errorf("streaming unsupported"), http.StatusInternalServerError)
		return
	}
	w.Header().Set("content-type", "text/plain; charset=utf-8")
	w.Header().Set("cache-control", "no-cache")
	w.WriteHeader(http.StatusOK)

	// The reporter writes in arrival order; the session is single-threaded
	// so no locking is needed here.
	rep := booking.ReporterFunc(func(e booking.ProgressEvent) {
		fmt.Fprintf(w, "%s [%s] %s: %s\n",
			e.At.Format("15:04:05"), e.Stage, e.Severity, e.Message)
		flusher.Flush()
	})

	out := s.runner(r.Context(), req, rep)
	fmt.Fprintf(w, "outcome: %s (%d slot(s) claimed)\n", out.Status, out.ClaimedCount())
	if out.FailedStep != "" {
		fmt.Fprintf(w, "stopped at confirmation step %q; finish manually from your cart\n", out.FailedStep)
	}
	flusher.Flush()
}
