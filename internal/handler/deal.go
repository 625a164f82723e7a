package handler

import (
	"errors"
	"net/http"
	"strconv"

	"pipelineiq-backend/internal/analytics"
	"pipelineiq-backend/internal/domain"
	"pipelineiq-backend/internal/repository"
	"pipelineiq-backend/internal/server/authctx"
	"pipelineiq-backend/internal/service"

	"github.com/go-chi/chi/v5"
)

type DealHandler struct {
	Deals   repository.DealRepository
	Service service.DealService
	Access  service.AccessService
}

func (h DealHandler) RegisterRoutes(r chi.Router) {
	r.Get("/deals", h.list)
	r.Post("/deals", h.create)
	r.Post("/deals/bulk-delete", h.bulkDelete)
	r.Get("/deals/{id}", h.get)
	r.Put("/deals/{id}", h.update)
	r.Post("/deals/{id}/move", h.move)
	r.Post("/deals/{id}/reorder", h.reorder)
	r.Post("/deals/{id}/archive", h.archive)
}

// dealPayload is the wire shape of a deal. Commission figures are derived at
// the boundary, never read from storage.
type dealPayload struct {
	ID               int64                 `json:"id"`
	UserID           int64                 `json:"userId"`
	ClientName       string                `json:"clientName"`
	ClientEmail      string                `json:"clientEmail,omitempty"`
	ClientPhone      string                `json:"clientPhone,omitempty"`
	PropertyAddress  string                `json:"propertyAddress,omitempty"`
	DealType         domain.DealType       `json:"dealType"`
	Status           domain.LifecycleStage `json:"status"`
	PipelineStatusID int64                 `json:"pipelineStatusId"`
	PipelineStatus   *statusPayload        `json:"pipelineStatus,omitempty"`
	LeadSourceID     *int64                `json:"leadSourceId,omitempty"`
	LeadSource       *leadSourcePayload    `json:"leadSource,omitempty"`
	ArchiveReason    string                `json:"archiveReason,omitempty"`

	ExpectedSalePrice   float64 `json:"expectedSalePrice"`
	ActualSalePrice     float64 `json:"actualSalePrice"`
	GrossCommissionRate float64 `json:"grossCommissionRate"`
	BrokerageSplitRate  float64 `json:"brokerageSplitRate"`
	ReferralOutRate     float64 `json:"referralOutRate"`
	TransactionFee      float64 `json:"transactionFee"`
	SalePrice           float64 `json:"salePrice"`
	GrossCommission     float64 `json:"grossCommission"`
	NetCommission       float64 `json:"netCommission"`

	SortOrder      int     `json:"sortOrder"`
	CloseDate      string  `json:"closeDate,omitempty"`
	StageEnteredAt string  `json:"stageEnteredAt"`
	ClosedAt       *string `json:"closedAt,omitempty"`
	CreatedAt      string  `json:"createdAt"`
	UpdatedAt      string  `json:"updatedAt"`
}

func toDealPayload(d domain.Deal) dealPayload {
	p := dealPayload{
		ID:                  d.ID,
		UserID:              d.UserID,
		ClientName:          d.ClientName,
		ClientEmail:         d.ClientEmail,
		ClientPhone:         d.ClientPhone,
		PropertyAddress:     d.PropertyAddress,
		DealType:            d.DealType,
		Status:              d.Status,
		PipelineStatusID:    d.PipelineStatusID,
		LeadSourceID:        d.LeadSourceID,
		ArchiveReason:       d.ArchiveReason,
		ExpectedSalePrice:   d.ExpectedSalePrice,
		ActualSalePrice:     d.ActualSalePrice,
		GrossCommissionRate: d.GrossCommissionRate,
		BrokerageSplitRate:  d.BrokerageSplitRate,
		ReferralOutRate:     d.ReferralOutRate,
		TransactionFee:      d.TransactionFee,
		SalePrice:           analytics.SalePrice(d),
		GrossCommission:     analytics.GrossCommission(d),
		NetCommission:       analytics.NetCommission(d),
		SortOrder:           d.SortOrder,
		CloseDate:           d.CloseDate,
		StageEnteredAt:      d.StageEnteredAt.UTC().Format(timestampLayout),
		CreatedAt:           d.CreatedAt.UTC().Format(timestampLayout),
		UpdatedAt:           d.UpdatedAt.UTC().Format(timestampLayout),
	}
	if d.ClosedAt != nil {
		v := d.ClosedAt.UTC().Format(timestampLayout)
		p.ClosedAt = &v
	}
	if d.PipelineStatus != nil {
		sp := toStatusPayload(*d.PipelineStatus)
		p.PipelineStatus = &sp
	}
	if d.LeadSource != nil {
		lp := toLeadSourcePayload(*d.LeadSource)
		p.LeadSource = &lp
	}
	return p
}

const timestampLayout = "2006-01-02T15:04:05Z07:00"

// dealFilterFromQuery builds the repository filter from the SPA's URL params,
// intersecting any requested agents with the caller's visibility scope.
func (h DealHandler) dealFilterFromQuery(r *http.Request, user authctx.CurrentUser) (repository.DealFilter, error) {
	scope := h.Access.ResolveScope(r.Context(), user)
	agents, err := parseIDList(r, "agents")
	if err != nil {
		return repository.DealFilter{}, err
	}
	scope = h.Access.NarrowScope(scope, agents)

	statusIDs, err := parseIDList(r, "pipelineStages")
	if err != nil {
		return repository.DealFilter{}, err
	}
	// statusId is the single-stage deep-link form of pipelineStages
	if single, err := parseIDList(r, "statusId"); err != nil {
		return repository.DealFilter{}, err
	} else if len(single) > 0 {
		statusIDs = append(statusIDs, single...)
	}
	sourceIDs, err := parseIDList(r, "leadSources")
	if err != nil {
		return repository.DealFilter{}, err
	}
	f := repository.DealFilter{
		UserIDs:       scope.UserIDs,
		StatusIDs:     statusIDs,
		LeadSourceIDs: sourceIDs,
		DealTypes:     parseStringList(r, "dealTypes"),
		Stages:        parseStringList(r, "stages"),
	}
	if yearStr := r.URL.Query().Get("year"); yearStr != "" {
		year, err := strconv.Atoi(yearStr)
		if err != nil {
			return repository.DealFilter{}, errInvalidYear
		}
		f.CreatedYear = year
	}
	return f, nil
}

func (h DealHandler) list(w http.ResponseWriter, r *http.Request) {
	user := authctx.FromContext(r.Context())
	f, err := h.dealFilterFromQuery(r, *user)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	deals, err := h.Deals.List(r.Context(), f, 0)
	if err != nil {
		writeRepoError(w, err)
		return
	}
	payload := make([]dealPayload, 0, len(deals))
	for _, d := range deals {
		payload = append(payload, toDealPayload(d))
	}
	writeJSON(w, http.StatusOK, payload)
}

func (h DealHandler) get(w http.ResponseWriter, r *http.Request) {
	user := authctx.FromContext(r.Context())
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	scope := h.Access.ResolveScope(r.Context(), *user)
	deal, err := h.Deals.Get(r.Context(), scope.UserIDs, id)
	if err != nil {
		writeRepoError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDealPayload(*deal))
}

type dealRequest struct {
	ClientName          *string  `json:"clientName"`
	ClientEmail         *string  `json:"clientEmail"`
	ClientPhone         *string  `json:"clientPhone"`
	PropertyAddress     *string  `json:"propertyAddress"`
	DealType            *string  `json:"dealType"`
	PipelineStatusID    *int64   `json:"pipelineStatusId"`
	LeadSourceID        *int64   `json:"leadSourceId"`
	ExpectedSalePrice   *float64 `json:"expectedSalePrice"`
	ActualSalePrice     *float64 `json:"actualSalePrice"`
	GrossCommissionRate *float64 `json:"grossCommissionRate"`
	BrokerageSplitRate  *float64 `json:"brokerageSplitRate"`
	ReferralOutRate     *float64 `json:"referralOutRate"`
	TransactionFee      *float64 `json:"transactionFee"`
	CloseDate           *string  `json:"closeDate"`
}

func (h DealHandler) create(w http.ResponseWriter, r *http.Request) {
	user := authctx.FromContext(r.Context())
	var req dealRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.ClientName == nil || *req.ClientName == "" {
		writeError(w, http.StatusBadRequest, "clientName is required")
		return
	}
	if req.DealType == nil || !domain.ValidDealType(domain.DealType(*req.DealType)) {
		writeError(w, http.StatusBadRequest, "invalid dealType")
		return
	}
	if req.PipelineStatusID == nil {
		writeError(w, http.StatusBadRequest, "pipelineStatusId is required")
		return
	}
	target, err := h.Service.Statuses.Get(r.Context(), *req.PipelineStatusID)
	if err != nil {
		writeRepoError(w, err)
		return
	}
	in := repository.CreateDealInput{
		UserID:           user.ID,
		ClientName:       *req.ClientName,
		DealType:         domain.DealType(*req.DealType),
		PipelineStatusID: target.ID,
		Lifecycle:        target.Lifecycle,
		LeadSourceID:     req.LeadSourceID,
	}
	if req.ClientEmail != nil {
		in.ClientEmail = *req.ClientEmail
	}
	if req.ClientPhone != nil {
		in.ClientPhone = *req.ClientPhone
	}
	if req.PropertyAddress != nil {
		in.PropertyAddress = *req.PropertyAddress
	}
	if req.ExpectedSalePrice != nil {
		in.ExpectedSalePrice = *req.ExpectedSalePrice
	}
	if req.GrossCommissionRate != nil {
		in.GrossCommissionRate = *req.GrossCommissionRate
	}
	if req.BrokerageSplitRate != nil {
		in.BrokerageSplitRate = *req.BrokerageSplitRate
	}
	if req.ReferralOutRate != nil {
		in.ReferralOutRate = *req.ReferralOutRate
	}
	if req.TransactionFee != nil {
		in.TransactionFee = *req.TransactionFee
	}
	if req.CloseDate != nil {
		in.CloseDate = *req.CloseDate
	}
	deal, err := h.Deals.Create(r.Context(), in)
	if err != nil {
		writeRepoError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toDealPayload(*deal))
}

func (h DealHandler) update(w http.ResponseWriter, r *http.Request) {
	user := authctx.FromContext(r.Context())
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var req dealRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.DealType != nil && !domain.ValidDealType(domain.DealType(*req.DealType)) {
		writeError(w, http.StatusBadRequest, "invalid dealType")
		return
	}
	scope := h.Access.ResolveScope(r.Context(), *user)
	in := repository.UpdateDealInput{
		ClientName:          req.ClientName,
		ClientEmail:         req.ClientEmail,
		ClientPhone:         req.ClientPhone,
		PropertyAddress:     req.PropertyAddress,
		LeadSourceID:        req.LeadSourceID,
		ExpectedSalePrice:   req.ExpectedSalePrice,
		ActualSalePrice:     req.ActualSalePrice,
		GrossCommissionRate: req.GrossCommissionRate,
		BrokerageSplitRate:  req.BrokerageSplitRate,
		ReferralOutRate:     req.ReferralOutRate,
		TransactionFee:      req.TransactionFee,
		CloseDate:           req.CloseDate,
	}
	if req.DealType != nil {
		dt := domain.DealType(*req.DealType)
		in.DealType = &dt
	}
	deal, err := h.Deals.Update(r.Context(), scope.UserIDs, id, in)
	if err != nil {
		writeRepoError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDealPayload(*deal))
}

func (h DealHandler) move(w http.ResponseWriter, r *http.Request) {
	user := authctx.FromContext(r.Context())
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var req struct {
		StatusID int64 `json:"statusId"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	scope := h.Access.ResolveScope(r.Context(), *user)
	deal, err := h.Service.MoveToStatus(r.Context(), scope.UserIDs, id, req.StatusID)
	if err != nil {
		writeRepoError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDealPayload(*deal))
}

func (h DealHandler) reorder(w http.ResponseWriter, r *http.Request) {
	user := authctx.FromContext(r.Context())
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var req struct {
		BeforeID int64 `json:"beforeId"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	scope := h.Access.ResolveScope(r.Context(), *user)
	if err := h.Service.Reorder(r.Context(), scope.UserIDs, id, req.BeforeID); err != nil {
		switch {
		case errors.Is(err, service.ErrReorderSelf):
			// dropping a card on itself is a no-op, not an error
			writeJSON(w, http.StatusOK, map[string]any{"moved": false})
		case errors.Is(err, service.ErrReorderCrossStage), errors.Is(err, service.ErrReorderCrossType):
			writeError(w, http.StatusUnprocessableEntity, err.Error())
		default:
			writeRepoError(w, err)
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"moved": true})
}

func (h DealHandler) archive(w http.ResponseWriter, r *http.Request) {
	user := authctx.FromContext(r.Context())
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var req struct {
		Reason string `json:"reason"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	scope := h.Access.ResolveScope(r.Context(), *user)
	deal, err := h.Service.Archive(r.Context(), scope.UserIDs, id, req.Reason)
	if err != nil {
		writeRepoError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDealPayload(*deal))
}

func (h DealHandler) bulkDelete(w http.ResponseWriter, r *http.Request) {
	user := authctx.FromContext(r.Context())
	var req struct {
		IDs []int64 `json:"ids"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.IDs) == 0 {
		writeError(w, http.StatusBadRequest, "ids is required")
		return
	}
	scope := h.Access.ResolveScope(r.Context(), *user)
	deleted, err := h.Deals.BulkDelete(r.Context(), scope.UserIDs, req.IDs)
	if err != nil {
		writeRepoError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": deleted})
}
