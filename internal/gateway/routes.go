package gateway

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/leadgrid/leadgrid/internal/domain"
	"github.com/leadgrid/leadgrid/internal/hooks"
	"github.com/leadgrid/leadgrid/internal/jobs"
	"github.com/leadgrid/leadgrid/internal/orchestrate"
	"github.com/leadgrid/leadgrid/internal/store"
)

// registerRoutes wires the REST API. Health and the WebSocket endpoint are
// public; the WebSocket handshake does its own auth. Everything else
// requires bearer credentials.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ws", s.handleWebSocket)

	mux.HandleFunc("GET /status", s.requireAuth(s.handleStatus))

	mux.HandleFunc("POST /users", s.requireAuth(s.handleUserCreate))
	mux.HandleFunc("GET /users/{id}", s.requireAuth(s.handleUserGet))
	mux.HandleFunc("GET /users/{id}/requirements", s.requireAuth(s.handleRequirementList))
	mux.HandleFunc("GET /users/{id}/tickets", s.requireAuth(s.handleTicketList))

	mux.HandleFunc("POST /requirements", s.requireAuth(s.handleRequirementCreate))
	mux.HandleFunc("GET /requirements/{id}", s.requireAuth(s.handleRequirementGet))
	mux.HandleFunc("DELETE /requirements/{id}", s.requireAuth(s.handleRequirementDelete))
	mux.HandleFunc("POST /requirements/{id}/classify", s.requireAuth(s.handleClassify))
	mux.HandleFunc("POST /requirements/{id}/industry", s.requireAuth(s.handleClassifyIndustry))
	mux.HandleFunc("GET /requirements/{id}/roles", s.requireAuth(s.handleRoleList))
	mux.HandleFunc("PUT /requirements/{id}/roles", s.requireAuth(s.handleRoleUpsert))
	mux.HandleFunc("GET /requirements/{id}/leads", s.requireAuth(s.handleLeadList))
	mux.HandleFunc("GET /requirements/{id}/campaigns", s.requireAuth(s.handleCampaignList))

	mux.HandleFunc("POST /leads/{id}/enrich", s.requireAuth(s.handleLeadEnrich))

	mux.HandleFunc("POST /campaigns", s.requireAuth(s.handleCampaignCreate))
	mux.HandleFunc("GET /campaigns/{id}", s.requireAuth(s.handleCampaignGet))
	mux.HandleFunc("POST /campaigns/{id}/send", s.requireAuth(s.handleCampaignSend))

	mux.HandleFunc("POST /tickets", s.requireAuth(s.handleTicketCreate))
	mux.HandleFunc("GET /tickets/{id}", s.requireAuth(s.handleTicketGet))
	mux.HandleFunc("PUT /tickets/{id}/status", s.requireAuth(s.handleTicketStatus))

	mux.HandleFunc("/", handleNotFound)
}

// requireAuth rejects requests without valid bearer credentials. Failed
// attempts count against the per-IP rate limit shared with the WebSocket
// handshake.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.authLimiter.allow(r.RemoteAddr) {
			writeError(w, http.StatusTooManyRequests, "rate_limited", "too many failed auth attempts")
			return
		}
		result := AuthorizeHTTP(s.auth, r.Header.Get("Authorization"))
		if !result.OK {
			s.authLimiter.recordFailure(r.RemoteAddr)
			writeError(w, http.StatusUnauthorized, "unauthorized", result.Reason)
			return
		}
		next(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{
		"error":   code,
		"message": message,
	})
}

// writeStoreError maps store errors to HTTP responses.
func writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found", "resource not found")
		return
	}
	writeError(w, http.StatusInternalServerError, "internal", err.Error())
}

func decodeBody(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "request body must be valid JSON")
		return false
	}
	return true
}

func (s *Server) handleUserCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email   string `json:"email"`
		Name    string `json:"name"`
		Company string `json:"company"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Email == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "invalid_body", "email and name are required")
		return
	}
	user := &domain.User{
		Email:   req.Email,
		Name:    req.Name,
		Company: req.Company,
	}
	if err := s.deps.Users.Create(user); err != nil {
		writeError(w, http.StatusConflict, "conflict", err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (s *Server) handleUserGet(w http.ResponseWriter, r *http.Request) {
	user, err := s.deps.Users.Get(r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleRequirementCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID         string `json:"userId"`
		FreeText       string `json:"freeText"`
		Industry       string `json:"industry"`
		ProductService string `json:"productService"`
		TargetLocation string `json:"targetLocation"`
		TargetMarket   string `json:"targetMarket"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.UserID == "" || req.FreeText == "" {
		writeError(w, http.StatusBadRequest, "invalid_body", "userId and freeText are required")
		return
	}
	if _, err := s.deps.Users.Get(req.UserID); err != nil {
		writeStoreError(w, err)
		return
	}
	requirement := &domain.Requirement{
		UserID:         req.UserID,
		FreeText:       req.FreeText,
		Industry:       req.Industry,
		ProductService: req.ProductService,
		TargetLocation: req.TargetLocation,
		TargetMarket:   req.TargetMarket,
	}
	if err := s.deps.Requirements.Create(requirement); err != nil {
		writeStoreError(w, err)
		return
	}
	if s.deps.Hooks != nil {
		s.deps.Hooks.EmitAsync(r.Context(), hooks.EventRequirementCreated, map[string]any{
			"requirementId": requirement.ID,
			"userId":        requirement.UserID,
		})
	}
	writeJSON(w, http.StatusCreated, requirement)
}

func (s *Server) handleRequirementGet(w http.ResponseWriter, r *http.Request) {
	requirement, err := s.deps.Requirements.Get(r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, requirement)
}

func (s *Server) handleRequirementList(w http.ResponseWriter, r *http.Request) {
	requirements, err := s.deps.Requirements.ListByUser(r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, requirements)
}

func (s *Server) handleRequirementDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Requirements.Delete(r.PathValue("id")); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleClassify runs the classification pipeline synchronously and maps
// orchestration failures onto their HTTP status: 429 for rate limits, 503
// for unavailable providers, 422 for output that never validated.
func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	if s.deps.Classifier == nil {
		writeError(w, http.StatusServiceUnavailable, "unavailable", "classification is not configured")
		return
	}
	result, err := s.deps.Classifier.Classify(r.Context(), r.PathValue("id"))
	if err != nil {
		var classified *orchestrate.ClassifiedError
		if errors.As(err, &classified) {
			writeError(w, classified.Status, string(classified.Kind), classified.Message)
			return
		}
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleClassifyIndustry re-runs only the industry half of classification,
// leaving roles and requirement status alone.
func (s *Server) handleClassifyIndustry(w http.ResponseWriter, r *http.Request) {
	if s.deps.Classifier == nil {
		writeError(w, http.StatusServiceUnavailable, "unavailable", "classification is not configured")
		return
	}
	result, err := s.deps.Classifier.ClassifyIndustry(r.Context(), r.PathValue("id"))
	if err != nil {
		var classified *orchestrate.ClassifiedError
		if errors.As(err, &classified) {
			writeError(w, classified.Status, string(classified.Kind), classified.Message)
			return
		}
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleRoleList(w http.ResponseWriter, r *http.Request) {
	roles, err := s.deps.Roles.ListByRequirement(r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, roles)
}

// handleRoleUpsert edits one role in a requirement's ranking by its
// case-insensitive title, inserting it if the title is new. Manual curation
// of a classified ranking without re-running the provider.
func (s *Server) handleRoleUpsert(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Role       string  `json:"role"`
		Priority   int     `json:"priority"`
		Reasoning  string  `json:"reasoning"`
		Relevance  string  `json:"relevance"`
		Confidence float64 `json:"confidence"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Role == "" || req.Priority < 1 {
		writeError(w, http.StatusBadRequest, "invalid_body", "role and a priority >= 1 are required")
		return
	}
	relevance := domain.IndustryRelevance(req.Relevance)
	if !relevance.Valid() {
		writeError(w, http.StatusBadRequest, "invalid_body", "unknown relevance: "+req.Relevance)
		return
	}
	requirement, err := s.deps.Requirements.Get(r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	role := &domain.DecisionMakerRole{
		RequirementID: requirement.ID,
		Role:          req.Role,
		Priority:      req.Priority,
		Reasoning:     req.Reasoning,
		Relevance:     relevance,
		Confidence:    req.Confidence,
	}
	if err := s.deps.Roles.UpsertByKey(role); err != nil {
		writeStoreError(w, err)
		return
	}
	roles, err := s.deps.Roles.ListByRequirement(requirement.ID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, roles)
}

func (s *Server) handleLeadList(w http.ResponseWriter, r *http.Request) {
	leads, err := s.deps.Leads.ListByRequirement(r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, leads)
}

func (s *Server) handleLeadEnrich(w http.ResponseWriter, r *http.Request) {
	if s.deps.Queue == nil {
		writeError(w, http.StatusServiceUnavailable, "unavailable", "job queue is not configured")
		return
	}
	lead, err := s.deps.Leads.Get(r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	jobID, err := s.deps.Queue.Enqueue(jobs.KindEnrichLead,
		map[string]string{"leadId": lead.ID}, 3)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"jobId":  jobID,
		"leadId": lead.ID,
	})
}

func (s *Server) handleCampaignCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RequirementID string `json:"requirementId"`
		Name          string `json:"name"`
		Subject       string `json:"subject"`
		BodyTemplate  string `json:"bodyTemplate"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.RequirementID == "" || req.Subject == "" || req.BodyTemplate == "" {
		writeError(w, http.StatusBadRequest, "invalid_body", "requirementId, subject and bodyTemplate are required")
		return
	}
	requirement, err := s.deps.Requirements.Get(req.RequirementID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	campaign := &domain.Campaign{
		RequirementID: requirement.ID,
		UserID:        requirement.UserID,
		Name:          req.Name,
		Subject:       req.Subject,
		BodyTemplate:  req.BodyTemplate,
	}
	if err := s.deps.Campaigns.Create(campaign); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, campaign)
}

func (s *Server) handleCampaignGet(w http.ResponseWriter, r *http.Request) {
	campaign, err := s.deps.Campaigns.Get(r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, campaign)
}

func (s *Server) handleCampaignList(w http.ResponseWriter, r *http.Request) {
	campaigns, err := s.deps.Campaigns.ListByRequirement(r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, campaigns)
}

func (s *Server) handleCampaignSend(w http.ResponseWriter, r *http.Request) {
	if s.deps.Queue == nil {
		writeError(w, http.StatusServiceUnavailable, "unavailable", "job queue is not configured")
		return
	}
	campaign, err := s.deps.Campaigns.Get(r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if campaign.Status == domain.CampaignStatusRunning {
		writeError(w, http.StatusConflict, "conflict", "campaign is already sending")
		return
	}
	jobID, err := s.deps.Queue.Enqueue(jobs.KindSendCampaign,
		map[string]string{"campaignId": campaign.ID}, 3)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"jobId":      jobID,
		"campaignId": campaign.ID,
	})
}

func (s *Server) handleTicketCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID  string `json:"userId"`
		Subject string `json:"subject"`
		Body    string `json:"body"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.UserID == "" || req.Subject == "" {
		writeError(w, http.StatusBadRequest, "invalid_body", "userId and subject are required")
		return
	}
	if _, err := s.deps.Users.Get(req.UserID); err != nil {
		writeStoreError(w, err)
		return
	}
	ticket := &domain.Ticket{
		UserID:  req.UserID,
		Subject: req.Subject,
		Body:    req.Body,
	}
	if err := s.deps.Tickets.Create(ticket); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ticket)
}

func (s *Server) handleTicketGet(w http.ResponseWriter, r *http.Request) {
	ticket, err := s.deps.Tickets.Get(r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ticket)
}

func (s *Server) handleTicketList(w http.ResponseWriter, r *http.Request) {
	tickets, err := s.deps.Tickets.ListByUser(r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tickets)
}

func (s *Server) handleTicketStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status string `json:"status"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	status := domain.TicketStatus(req.Status)
	if !status.Valid() {
		writeError(w, http.StatusBadRequest, "invalid_body", "unknown ticket status: "+req.Status)
		return
	}
	if err := s.deps.Tickets.UpdateStatus(r.PathValue("id"), status); err != nil {
		writeStoreError(w, err)
		return
	}
	ticket, err := s.deps.Tickets.Get(r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ticket)
}

// handleStatus reports server uptime, connected clients, and job queue depth.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		Status:    "ok",
		Version:   s.version,
		Clients:   s.clients.Count(),
		StartedAt: s.startedAt.Format(time.RFC3339),
	}
	if s.deps.Queue != nil {
		counts, err := s.deps.Queue.Counts()
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal", err.Error())
			return
		}
		resp.Jobs = counts
	}
	writeJSON(w, http.StatusOK, resp)
}
