package handler

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"pipelineiq-backend/internal/analytics"
	"pipelineiq-backend/internal/domain"
	"pipelineiq-backend/internal/repository"
	"pipelineiq-backend/internal/server/authctx"
	"pipelineiq-backend/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/xuri/excelize/v2"
)

type ExportHandler struct {
	Deals  repository.DealRepository
	Access service.AccessService
}

func (h ExportHandler) RegisterRoutes(r chi.Router) {
	r.Get("/deals/export", h.exportDeals)
}

// exportDeals streams the caller's visible deals as csv (default) or xlsx.
// The same filter params as GET /deals apply.
func (h ExportHandler) exportDeals(w http.ResponseWriter, r *http.Request) {
	user := authctx.FromContext(r.Context())
	scope := h.Access.ResolveScope(r.Context(), *user)
	agents, err := parseIDList(r, "agents")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	scope = h.Access.NarrowScope(scope, agents)

	statusIDs, err := parseIDList(r, "pipelineStages")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	sourceIDs, err := parseIDList(r, "leadSources")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	f := repository.DealFilter{
		UserIDs:       scope.UserIDs,
		StatusIDs:     statusIDs,
		LeadSourceIDs: sourceIDs,
		DealTypes:     parseStringList(r, "dealTypes"),
		Stages:        parseStringList(r, "stages"),
	}
	if yearStr := r.URL.Query().Get("year"); yearStr != "" {
		year, perr := strconv.Atoi(yearStr)
		if perr != nil {
			writeError(w, http.StatusBadRequest, "invalid year")
			return
		}
		f.CreatedYear = year
	}
	deals, err := h.Deals.List(r.Context(), f, 0)
	if err != nil {
		writeRepoError(w, err)
		return
	}

	suffix := time.Now().UTC().Format("20060102")
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "csv"
	}
	switch format {
	case "csv":
		data, err := dealsToCSV(deals)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"deals_%s.csv\"", suffix))
		_, _ = w.Write(data)
	case "xlsx":
		data, err := dealsToXLSX(deals)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"deals_%s.xlsx\"", suffix))
		_, _ = w.Write(data)
	default:
		writeError(w, http.StatusBadRequest, "invalid format (use csv or xlsx)")
	}
}

var exportHeader = []string{
	"id", "client_name", "client_email", "client_phone", "property_address",
	"deal_type", "stage", "lifecycle", "lead_source", "expected_sale_price",
	"actual_sale_price", "gross_commission_rate", "net_commission",
	"close_date", "archive_reason", "created_at",
}

func exportRow(d domain.Deal) []string {
	stage := ""
	if d.PipelineStatus != nil {
		stage = d.PipelineStatus.Name
	}
	source := ""
	if d.LeadSource != nil {
		source = d.LeadSource.Name
	}
	return []string{
		strconv.FormatInt(d.ID, 10),
		d.ClientName,
		d.ClientEmail,
		d.ClientPhone,
		d.PropertyAddress,
		string(d.DealType),
		stage,
		string(d.Status),
		source,
		formatMoney(d.ExpectedSalePrice),
		formatMoney(d.ActualSalePrice),
		strconv.FormatFloat(d.GrossCommissionRate, 'f', -1, 64),
		formatMoney(analytics.NetCommission(d)),
		d.CloseDate,
		d.ArchiveReason,
		d.CreatedAt.UTC().Format("2006-01-02"),
	}
}

func formatMoney(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func dealsToCSV(deals []domain.Deal) ([]byte, error) {
	buf := &bytes.Buffer{}
	cw := csv.NewWriter(buf)
	if err := cw.Write(exportHeader); err != nil {
		return nil, err
	}
	for _, d := range deals {
		if err := cw.Write(exportRow(d)); err != nil {
			return nil, err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func dealsToXLSX(deals []domain.Deal) ([]byte, error) {
	f := excelize.NewFile()
	sheet := "Deals"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, err
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	for c, v := range exportHeader {
		cell, _ := excelize.CoordinatesToCellName(c+1, 1)
		_ = f.SetCellValue(sheet, cell, v)
	}
	for r, d := range deals {
		row := r + 2
		for c, v := range exportRow(d) {
			cell, _ := excelize.CoordinatesToCellName(c+1, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}

	_ = f.SetColWidth(sheet, "A", "A", 8)
	_ = f.SetColWidth(sheet, "B", "E", 24)
	_ = f.SetColWidth(sheet, "F", "I", 16)
	_ = f.SetColWidth(sheet, "J", "M", 18)
	_ = f.SetColWidth(sheet, "N", "P", 14)

	style, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#1F2937"}, Pattern: 1},
	})
	_ = f.SetCellStyle(sheet, "A1", "P1", style)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
