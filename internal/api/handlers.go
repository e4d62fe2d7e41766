package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/site-quote/internal/engine"
	"github.com/sells-group/site-quote/internal/model"
	"github.com/sells-group/site-quote/internal/pricing"
	"github.com/sells-group/site-quote/internal/store"
)

// QuoteRequest is the body of the quote endpoints.
type QuoteRequest struct {
	Contact       model.Contact       `json:"contact"`
	Questionnaire model.Questionnaire `json:"questionnaire"`
	Currency      string              `json:"currency,omitempty"`
}

// QuoteResponse is the engine result plus a display string for the final
// price. LeadID is set when the quote was saved.
type QuoteResponse struct {
	LeadID            string               `json:"lead_id,omitempty"`
	Recommendation    model.Recommendation `json:"recommendation"`
	Quote             model.Quote          `json:"quote"`
	FinalPriceDisplay string               `json:"final_price_display"`
}

type errorResponse struct {
	Error   string   `json:"error"`
	Missing []string `json:"missing,omitempty"`
	Invalid []string `json:"invalid,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGetPricing(w http.ResponseWriter, r *http.Request) {
	table, ok := s.loadPricing(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, table.Resolve(chi.URLParam(r, "currency")))
}

func (s *Server) handlePreviewQuote(w http.ResponseWriter, r *http.Request) {
	var req QuoteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	resp, ok := s.evaluate(w, r, &req)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreateQuote(w http.ResponseWriter, r *http.Request) {
	var req QuoteRequest
	if !decodeBody(w, r, &req) {
		return
	}

	var missing []string
	if strings.TrimSpace(req.Contact.Name) == "" {
		missing = append(missing, "contact.name")
	}
	if strings.TrimSpace(req.Contact.Email) == "" {
		missing = append(missing, "contact.email")
	}
	if len(missing) > 0 {
		respondJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "contact incomplete", Missing: missing})
		return
	}

	resp, ok := s.evaluate(w, r, &req)
	if !ok {
		return
	}

	lead := &model.Lead{
		Contact:        req.Contact,
		Questionnaire:  req.Questionnaire,
		Recommendation: resp.Recommendation,
		Quote:          resp.Quote,
	}
	if err := s.store.SaveLead(r.Context(), lead); err != nil {
		zap.L().Error("api: save lead failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to save quote")
		return
	}

	zap.L().Info("api: lead saved",
		zap.String("lead_id", lead.ID),
		zap.Stringer("package", lead.Recommendation.Package),
		zap.String("final_price", lead.Quote.FinalPrice.String()),
	)

	resp.LeadID = lead.ID
	respondJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleListQuotes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.LeadFilter{Package: q.Get("package")}

	if filter.Package != "" {
		pkg, err := model.ParsePackageType(filter.Package)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid package")
			return
		}
		filter.Package = pkg.String()
	}
	var err error
	if filter.Limit, err = intParam(q.Get("limit")); err != nil {
		respondError(w, http.StatusBadRequest, "invalid limit")
		return
	}
	if filter.Offset, err = intParam(q.Get("offset")); err != nil {
		respondError(w, http.StatusBadRequest, "invalid offset")
		return
	}

	leads, err := s.store.ListLeads(r.Context(), filter)
	if err != nil {
		zap.L().Error("api: list leads failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to list quotes")
		return
	}
	respondJSON(w, http.StatusOK, leads)
}

func (s *Server) handleGetQuote(w http.ResponseWriter, r *http.Request) {
	lead, err := s.store.GetLead(r.Context(), chi.URLParam(r, "id"))
	if eris.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "quote not found")
		return
	}
	if err != nil {
		zap.L().Error("api: get lead failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to load quote")
		return
	}
	respondJSON(w, http.StatusOK, lead)
}

func (s *Server) handlePutPricing(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "currency")
	if err := pricing.ValidateCurrency(code); err != nil {
		respondError(w, http.StatusBadRequest, "invalid currency")
		return
	}

	var entry pricing.Entry
	if !decodeBody(w, r, &entry) {
		return
	}
	code = pricing.NormalizeCurrency(code)
	if err := entry.Validate(code); err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if err := s.store.PutCurrencyPricing(r.Context(), code, entry); err != nil {
		zap.L().Error("api: put pricing failed", zap.String("currency", code), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to save pricing")
		return
	}
	zap.L().Info("api: pricing updated", zap.String("currency", code))
	respondJSON(w, http.StatusOK, entry)
}

func (s *Server) handleDeletePricing(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "currency")
	if err := pricing.ValidateCurrency(code); err != nil {
		respondError(w, http.StatusBadRequest, "invalid currency")
		return
	}

	err := s.store.DeleteCurrencyPricing(r.Context(), code)
	if eris.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "pricing not found")
		return
	}
	if err != nil {
		zap.L().Error("api: delete pricing failed", zap.String("currency", code), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to delete pricing")
		return
	}
	zap.L().Info("api: pricing deleted", zap.String("currency", pricing.NormalizeCurrency(code)))
	w.WriteHeader(http.StatusNoContent)
}

// evaluate loads pricing and runs the engine, writing the error response
// itself when either step fails.
func (s *Server) evaluate(w http.ResponseWriter, r *http.Request, req *QuoteRequest) (QuoteResponse, bool) {
	table, ok := s.loadPricing(w, r)
	if !ok {
		return QuoteResponse{}, false
	}

	currency := req.Currency
	if strings.TrimSpace(currency) == "" {
		currency = s.defaultCurrency
	}

	res, err := s.engine.Evaluate(&req.Questionnaire, table, currency)
	if err != nil {
		var verr *engine.ValidationError
		if errors.As(err, &verr) {
			respondJSON(w, http.StatusUnprocessableEntity, errorResponse{
				Error:   "questionnaire incomplete",
				Missing: verr.Missing,
				Invalid: verr.Invalid,
			})
			return QuoteResponse{}, false
		}
		zap.L().Error("api: evaluate failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to compute quote")
		return QuoteResponse{}, false
	}

	return QuoteResponse{
		Recommendation:    res.Recommendation,
		Quote:             res.Quote,
		FinalPriceDisplay: pricing.FormatAmount(res.Quote.Currency, res.Quote.FinalPrice),
	}, true
}

func (s *Server) loadPricing(w http.ResponseWriter, r *http.Request) (pricing.Table, bool) {
	table, err := s.pricing.LoadPricing(r.Context())
	if err != nil {
		zap.L().Error("api: load pricing failed", zap.Error(err))
		respondError(w, http.StatusServiceUnavailable, "pricing unavailable")
		return nil, false
	}
	return table, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func intParam(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, eris.Errorf("api: invalid integer %q", s)
	}
	return n, nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("api: encode response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, errorResponse{Error: msg})
}
