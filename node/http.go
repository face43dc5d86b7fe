package node

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kamalbuilds/movetracer/history"
	"github.com/kamalbuilds/movetracer/movement"
	"github.com/kamalbuilds/movetracer/reconstruct"
	"github.com/kamalbuilds/movetracer/service"
	"github.com/kamalbuilds/movetracer/simulator"
	"github.com/kamalbuilds/movetracer/utils"
	mtvalidator "github.com/kamalbuilds/movetracer/validator"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/sourcegraph/conc"
)

const maxRequestBody = 1 << 20

var errHistoryDisabled = errors.New("history is disabled")

type httpService struct {
	srv      *http.Server
	listener net.Listener
}

var _ service.Service = (*httpService)(nil)

func (h *httpService) Run(ctx context.Context) error {
	errCh := make(chan error)
	defer close(errCh)

	var wg conc.WaitGroup
	defer wg.Wait()
	wg.Go(func() {
		if err := h.srv.Serve(h.listener); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	})

	select {
	case <-ctx.Done():
		return h.srv.Shutdown(context.Background())
	case err := <-errCh:
		return err
	}
}

func makeHTTPService(listener net.Listener, handler http.Handler) *httpService {
	return &httpService{
		srv: &http.Server{
			Addr:    listener.Addr().String(),
			Handler: handler,
			// ReadTimeout also sets ReadHeaderTimeout and IdleTimeout.
			ReadTimeout: 30 * time.Second,
		},
		listener: listener,
	}
}

func makeMetrics(listener net.Listener, gatherer prometheus.Gatherer, reg prometheus.Registerer) *httpService {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{Registry: reg}))
	return makeHTTPService(listener, mux)
}

// Handler serves the REST surface of a simulator.Service.
type Handler struct {
	svc            *simulator.Service
	log            utils.SimpleLogger
	validator      *validator.Validate
	throttler      *utils.Throttler[simulator.Service]
	listener       RequestListener
	defaultNetwork utils.Network
	corsOrigins    []string
	version        string
}

func NewHandler(svc *simulator.Service) *Handler {
	return &Handler{
		svc:            svc,
		log:            utils.NewNopZapLogger(),
		validator:      mtvalidator.Validator(),
		throttler:      utils.NewThrottler(16, svc),
		listener:       &SelectiveRequestListener{},
		defaultNetwork: utils.Testnet,
	}
}

func (h *Handler) WithLogger(log utils.SimpleLogger) *Handler {
	h.log = log
	return h
}

// WithThrottler bounds the simulations and replays running at once.
func (h *Handler) WithThrottler(t *utils.Throttler[simulator.Service]) *Handler {
	h.throttler = t
	return h
}

func (h *Handler) WithListener(l RequestListener) *Handler {
	h.listener = l
	return h
}

func (h *Handler) WithDefaultNetwork(n utils.Network) *Handler {
	h.defaultNetwork = n
	return h
}

func (h *Handler) WithCORS(origins []string) *Handler {
	h.corsOrigins = origins
	return h
}

func (h *Handler) WithVersion(version string) *Handler {
	h.version = version
	return h
}

// Routes builds the mux. CORS wraps it when origins are configured.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	routes := map[string]func(*http.Request) (any, error){
		"POST /api/simulate":    h.simulate,
		"POST /api/replay":      h.replay,
		"POST /api/validate":    h.validate,
		"GET /api/transaction":  h.transaction,
		"GET /api/account":      h.account,
		"GET /api/recent":       h.recent,
		"GET /api/health":       h.health,
		"GET /api/history":      h.historyList,
		"GET /api/history/{id}": h.historyGet,
		"DELETE /api/history":   h.historyClear,
		"GET /healthz":          h.healthz,
	}
	for pattern, fn := range routes {
		mux.Handle(pattern, h.endpoint(pattern, fn))
	}
	if len(h.corsOrigins) == 0 {
		return mux
	}
	return cors.New(cors.Options{
		AllowedOrigins: h.corsOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
		AllowedHeaders: []string{"Content-Type"},
	}).Handler(mux)
}

func (h *Handler) endpoint(route string, fn func(*http.Request) (any, error)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		status := http.StatusOK
		res, err := fn(r)
		if err != nil {
			status = simulator.HTTPStatus(err)
			if status >= http.StatusInternalServerError {
				h.log.Warnw("Request failed", "route", route, "status", status, "err", err)
			} else {
				h.log.Debugw("Request rejected", "route", route, "status", status, "err", err)
			}
			res = map[string]string{"error": err.Error()}
		}
		writeJSON(w, status, res)
		h.listener.OnRequest(route, status, time.Since(start))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// prechecker reports missing required fields with the same errors the service would.
type prechecker interface {
	precheck() error
}

func (h *Handler) decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody))
	if err := dec.Decode(dst); err != nil {
		return &movement.InvalidPayloadError{Field: "body", Reason: "Invalid JSON body: " + err.Error()}
	}
	if p, ok := dst.(prechecker); ok {
		if err := p.precheck(); err != nil {
			return err
		}
	}
	if err := h.validator.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return &movement.InvalidPayloadError{
				Field:  verrs[0].Field(),
				Reason: "Invalid " + verrs[0].Field() + ": failed " + verrs[0].Tag() + " check",
			}
		}
		return err
	}
	return nil
}

func (h *Handler) network(n string) string {
	if n == "" {
		return h.defaultNetwork.String()
	}
	return n
}

func wantViews(r *http.Request) bool {
	v, _ := strconv.ParseBool(r.URL.Query().Get("views"))
	return v
}

type simulateBody struct {
	Sender  string                        `json:"sender" validate:"omitempty,move_address"`
	Payload movement.EntryFunctionPayload `json:"payload"`
	Network string                        `json:"network"`
	simulator.GasOptions
}

func (b *simulateBody) precheck() error {
	req := movement.SimulationRequest{Sender: b.Sender, Payload: b.Payload}
	return req.Validate()
}

type simulateResponse struct {
	*movement.SimulationResult
	Views *reconstruct.Views `json:"views,omitempty"`
}

func (h *Handler) simulate(r *http.Request) (any, error) {
	var body simulateBody
	if err := h.decode(r, &body); err != nil {
		return nil, err
	}
	var result *movement.SimulationResult
	err := h.throttler.Do(r.Context(), func(ctx context.Context, svc *simulator.Service) error {
		var err error
		result, err = svc.Simulate(ctx, simulator.SimulateRequest{
			Sender:  body.Sender,
			Payload: body.Payload,
			Network: h.network(body.Network),
			Gas:     body.GasOptions,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	res := simulateResponse{SimulationResult: result}
	if wantViews(r) {
		res.Views = h.views(result)
	}
	return res, nil
}

type replayBody struct {
	Hash    string `json:"hash" validate:"omitempty,tx_hash"`
	Network string `json:"network"`
}

type replayResponse struct {
	*simulator.ReplayResult
	Views *reconstruct.Views `json:"views,omitempty"`
}

func (h *Handler) replay(r *http.Request) (any, error) {
	var body replayBody
	if err := h.decode(r, &body); err != nil {
		return nil, err
	}
	var result *simulator.ReplayResult
	err := h.throttler.Do(r.Context(), func(ctx context.Context, svc *simulator.Service) error {
		var err error
		result, err = svc.Replay(ctx, body.Hash, h.network(body.Network))
		return err
	})
	if err != nil {
		return nil, err
	}
	res := replayResponse{ReplayResult: result}
	if wantViews(r) {
		res.Views = h.views(result.Simulation)
	}
	return res, nil
}

func (h *Handler) views(result *movement.SimulationResult) *reconstruct.Views {
	views, err := reconstruct.BuildViews(result)
	if err != nil {
		h.log.Debugw("Failed to derive views", "err", err)
		return nil
	}
	return views
}

type validateBody struct {
	Sender  string                        `json:"sender" validate:"omitempty,move_address"`
	Payload movement.EntryFunctionPayload `json:"payload"`
	Network string                        `json:"network"`
}

func (b *validateBody) precheck() error {
	req := movement.SimulationRequest{Sender: b.Sender, Payload: b.Payload}
	return req.Validate()
}

func (h *Handler) validate(r *http.Request) (any, error) {
	var body validateBody
	if err := h.decode(r, &body); err != nil {
		return nil, err
	}
	return h.svc.Validate(r.Context(), body.Sender, body.Payload, h.network(body.Network))
}

func (h *Handler) transaction(r *http.Request) (any, error) {
	q := r.URL.Query()
	return h.svc.GetTransaction(r.Context(), q.Get("hash"), h.network(q.Get("network")))
}

func (h *Handler) account(r *http.Request) (any, error) {
	q := r.URL.Query()
	resources, _ := strconv.ParseBool(q.Get("resources"))
	return h.svc.GetAccountInfo(r.Context(), q.Get("address"), h.network(q.Get("network")), resources)
}

func (h *Handler) recent(r *http.Request) (any, error) {
	return h.svc.RecentTransactions(r.Context(), h.network(r.URL.Query().Get("network")))
}

func (h *Handler) health(r *http.Request) (any, error) {
	return h.svc.NetworkHealth(r.Context(), h.network(r.URL.Query().Get("network")))
}

func (h *Handler) store() (history.Store, error) {
	if store := h.svc.History(); store != nil {
		return store, nil
	}
	return nil, errHistoryDisabled
}

func (h *Handler) historyList(*http.Request) (any, error) {
	store, err := h.store()
	if err != nil {
		return nil, err
	}
	return store.List()
}

func (h *Handler) historyGet(r *http.Request) (any, error) {
	store, err := h.store()
	if err != nil {
		return nil, err
	}
	return store.Get(r.PathValue("id"))
}

func (h *Handler) historyClear(*http.Request) (any, error) {
	store, err := h.store()
	if err != nil {
		return nil, err
	}
	if err = store.Clear(); err != nil {
		return nil, err
	}
	return map[string]bool{"cleared": true}, nil
}

func (h *Handler) healthz(*http.Request) (any, error) {
	return map[string]string{"status": "ok", "version": h.version}, nil
}
