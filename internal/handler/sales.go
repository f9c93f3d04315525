package handler

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/bharathmeg/InsightHub/internal/apierror"
	"github.com/bharathmeg/InsightHub/internal/dto"
	"github.com/bharathmeg/InsightHub/internal/infra"
	"github.com/bharathmeg/InsightHub/internal/middleware"
	"github.com/bharathmeg/InsightHub/internal/service"

	"github.com/gin-gonic/gin"
)

type SalesHandler struct{ svc service.SaleService }

func NewSalesHandler(svc service.SaleService) *SalesHandler { return &SalesHandler{svc: svc} }

// AddSale godoc
// @Summary      Add a sale
// @Description  Inserts a sale for the caller's company and records it for undo.
// @Tags         sales
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body     dto.AddSaleRequest true "Sale"
// @Success      201  {object} dto.SaleResponse
// @Failure      422  {object} apierror.ValidationError
// @Router       /v1/sales [post]
func (h *SalesHandler) AddSale(c *gin.Context) {
	var req dto.AddSaleRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.AddSale(c.Request.Context(), middleware.GetSession(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// DeleteSale godoc
// @Summary      Delete a sale
// @Description  Deleting an id that does not exist is a no-op.
// @Tags         sales
// @Security     BearerAuth
// @Param        id   path     int true "Sale id"
// @Success      204
// @Failure      400  {object} apierror.APIError
// @Router       /v1/sales/{id} [delete]
func (h *SalesHandler) DeleteSale(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, apierror.New("Invalid sale id"))
		return
	}
	if err := h.svc.DeleteSale(c.Request.Context(), middleware.GetSession(c), uint(id)); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListSales godoc
// @Summary      List the company's sales
// @Tags         sales
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object} dto.SaleListResponse
// @Router       /v1/sales [get]
func (h *SalesHandler) ListSales(c *gin.Context) {
	resp, err := h.svc.ListSales(c.Request.Context(), middleware.GetSession(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Undo godoc
// @Summary      Undo the caller's last add or delete
// @Tags         sales
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object} dto.UndoResponse
// @Router       /v1/sales/undo [post]
func (h *SalesHandler) Undo(c *gin.Context) {
	resp, err := h.svc.UndoLast(c.Request.Context(), middleware.GetSession(c))
	if errors.Is(err, service.ErrNothingToUndo) {
		c.JSON(http.StatusOK, dto.UndoResponse{Undone: false, Message: service.ErrNothingToUndo.Error()})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Ledger godoc
// @Summary      Pending undo entries for the caller, newest first
// @Tags         sales
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object} dto.LedgerListResponse
// @Router       /v1/ledger [get]
func (h *SalesHandler) Ledger(c *gin.Context) {
	resp, err := h.svc.ListLedger(c.Request.Context(), middleware.GetSession(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// RevenueByProduct godoc
// @Summary      Revenue, quantity and sale count per product
// @Tags         analytics
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object} dto.RevenueByProductResponse
// @Router       /v1/analytics/revenue-by-product [get]
func (h *SalesHandler) RevenueByProduct(c *gin.Context) {
	resp, err := h.svc.RevenueByProduct(c.Request.Context(), middleware.GetSession(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Export godoc
// @Summary      Download the company's sales
// @Tags         sales
// @Produce      text/csv
// @Produce      application/pdf
// @Security     BearerAuth
// @Param        format query string false "csv (default), xlsx or pdf"
// @Success      200
// @Failure      422  {object} apierror.ValidationError
// @Router       /v1/sales/export [get]
func (h *SalesHandler) Export(c *gin.Context) {
	var q dto.ExportQuery
	if !bindQueryAndValidate(c, &q) {
		return
	}
	sess := middleware.GetSession(c)

	var buf bytes.Buffer
	if err := h.svc.Export(c.Request.Context(), sess, &buf, q.Format); err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", infra.ExportFileName(sess.Company, q.Format)))
	c.Data(http.StatusOK, infra.ContentType(q.Format), buf.Bytes())
}

// EmailExport godoc
// @Summary      Mail the company's sales export to the caller
// @Tags         sales
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body     dto.EmailExportRequest false "Format"
// @Success      202  {object} dto.EmailExportResponse
// @Failure      503  {object} apierror.APIError
// @Router       /v1/sales/export/email [post]
func (h *SalesHandler) EmailExport(c *gin.Context) {
	var req dto.EmailExportRequest
	if c.Request.ContentLength != 0 && !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.EmailExport(c.Request.Context(), middleware.GetSession(c), req.Format)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, resp)
}
