// Package httpcb hosts the payment gateway's return URL: it settles each
// callback with a fresh one-shot state machine and sends the browser on.
package httpcb

import (
	"encoding/json"
	"html/template"
	"net/http"
	"strings"

	"github.com/and161185/libdesk/internal/repository"
	"github.com/and161185/libdesk/internal/service"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// CallbackPath is the route registered with the gateway as return URL.
const CallbackPath = "/payment/callback"

// Server wires the callback handler, health and metrics endpoints.
type Server struct {
	payments   repository.PaymentRepository
	log        *zap.Logger
	metrics    *Metrics
	publicBase string
}

// New constructs a Server. publicBase prefixes in-app navigation targets
// (e.g. https://library.example.org); empty keeps them relative.
func New(payments repository.PaymentRepository, m *Metrics, publicBase string, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	if m == nil {
		m = NewMetrics()
	}
	return &Server{
		payments:   payments,
		log:        log,
		metrics:    m,
		publicBase: strings.TrimSuffix(publicBase, "/"),
	}
}

// Router builds the mux with middleware applied.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(Recover(s.log), Logging(s.log), Instrument(s.metrics))

	r.HandleFunc(CallbackPath, s.handleCallback).Methods(http.MethodGet)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	return r
}

type callbackView struct {
	State         string  `json:"state"`
	Message       string  `json:"message"`
	PIDX          string  `json:"pidx,omitempty"`
	TransactionID string  `json:"transactionId,omitempty"`
	Amount        float64 `json:"amount,omitempty"`
	Redirect      string  `json:"redirect"`
	RedirectAfter int     `json:"redirectAfterMs"`
}

func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	params := service.ParseCallback(r.URL.Query())
	out := service.NewPaymentCallback(s.payments, s.log).Run(r.Context(), params)
	s.metrics.Callback(out.State.String())

	v := callbackView{
		State:         out.State.String(),
		Message:       out.Message,
		PIDX:          params.PIDX,
		TransactionID: params.TransactionID,
		Amount:        params.DisplayAmount(),
		Redirect:      s.target(out.Next.Target()),
		RedirectAfter: int(out.Next.After.Milliseconds()),
	}

	if wantsJSON(r) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(v)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := page.Execute(w, v); err != nil {
		s.log.Warn("render callback page", zap.Error(err))
	}
}

func (s *Server) target(t string) string {
	if strings.HasPrefix(t, "/") {
		return s.publicBase + t
	}
	return t
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

var page = template.Must(template.New("callback").Funcs(template.FuncMap{
	"secs": func(ms int) int { return ms / 1000 },
}).Parse(`<!doctype html>
<html>
<head>
<meta charset="utf-8">
<meta http-equiv="refresh" content="{{secs .RedirectAfter}};url={{.Redirect}}">
<title>Payment {{.State}}</title>
</head>
<body>
<h1>{{if eq .State "success"}}Payment successful{{else}}Payment not completed{{end}}</h1>
<p>{{.Message}}</p>
{{if .TransactionID}}<p>Transaction: {{.TransactionID}}</p>{{end}}
{{if .Amount}}<p>Amount: {{printf "%.2f" .Amount}}</p>{{end}}
<p><a href="{{.Redirect}}">Continue</a></p>
</body>
</html>
`))
