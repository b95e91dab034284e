package memberapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

type HandlerOption func(*handler)

// WithToken requires a matching bearer token on every request.
func WithToken(token string) HandlerOption {
	return func(h *handler) {
		h.token = strings.TrimSpace(token)
	}
}

type handler struct {
	api   API
	token string
	mux   *http.ServeMux
}

// NewHandler exposes api over the HTTP endpoints Client calls.
func NewHandler(api API, opts ...HandlerOption) http.Handler {
	h := &handler{api: api, mux: http.NewServeMux()}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}

	h.mux.HandleFunc("GET /id-list", func(w http.ResponseWriter, r *http.Request) {
		respond(w, r.Context(), func(ctx context.Context) (any, error) {
			return h.api.ListIDCards(ctx, r.URL.Query().Get("member_id"))
		})
	})
	h.mux.HandleFunc("GET /id-status", func(w http.ResponseWriter, r *http.Request) {
		respond(w, r.Context(), func(ctx context.Context) (any, error) {
			return h.api.IDCardStatus(ctx, r.URL.Query().Get("id"))
		})
	})
	h.mux.HandleFunc("GET /comets-data", func(w http.ResponseWriter, r *http.Request) {
		respond(w, r.Context(), func(ctx context.Context) (any, error) {
			return h.api.CometsData(ctx, r.URL.Query().Get("id"))
		})
	})
	h.mux.HandleFunc("POST /new-id-card-request", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			MemberID string `json:"member_id"`
			Reason   string `json:"reason"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "Bad Request", "request body must be json")
			return
		}
		respond(w, r.Context(), func(ctx context.Context) (any, error) {
			return h.api.RequestNewIDCard(ctx, body.MemberID, body.Reason)
		})
	})
	h.mux.HandleFunc("GET /member-benefits", func(w http.ResponseWriter, r *http.Request) {
		respond(w, r.Context(), func(ctx context.Context) (any, error) {
			q := r.URL.Query()
			return h.api.MemberBenefits(ctx, q.Get("member_id"), q.Get("plan_type"))
		})
	})
	h.mux.HandleFunc("GET /dental-coverage", func(w http.ResponseWriter, r *http.Request) {
		respond(w, r.Context(), func(ctx context.Context) (any, error) {
			return h.api.DentalCoverage(ctx, r.URL.Query().Get("member_id"))
		})
	})
	h.mux.HandleFunc("GET /member-status", func(w http.ResponseWriter, r *http.Request) {
		respond(w, r.Context(), func(ctx context.Context) (any, error) {
			return h.api.MemberStatus(ctx, r.URL.Query().Get("member_id"))
		})
	})

	return h
}

func (h *handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.token != "" && r.Header.Get("Authorization") != "Bearer "+h.token {
		writeError(w, http.StatusUnauthorized, "Unauthorized", "missing or invalid token")
		return
	}
	h.mux.ServeHTTP(w, r)
}

func respond(w http.ResponseWriter, ctx context.Context, call func(context.Context) (any, error)) {
	out, err := call(ctx)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			writeError(w, http.StatusNotFound, "Not Found", err.Error())
		case errors.Is(err, ErrInvalidRequest):
			writeError(w, http.StatusBadRequest, "Bad Request", err.Error())
		default:
			writeError(w, http.StatusBadGateway, "Unavailable", err.Error())
		}
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorBody{Error: code, Message: msg})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
