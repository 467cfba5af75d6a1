package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rezonia/invoice-assistant/internal/auth"
	money "github.com/rezonia/invoice-assistant/internal/decimal"
	"github.com/rezonia/invoice-assistant/internal/model"
	"github.com/rezonia/invoice-assistant/internal/render"
	"github.com/rezonia/invoice-assistant/internal/store"
)

const pdfContentType = "application/pdf"

func creator(c *gin.Context) string {
	id, _ := auth.CreatorID(c)
	return id
}

func (s *Server) handlePreviewInvoice(c *gin.Context) {
	var draft model.Draft
	if err := c.ShouldBindJSON(&draft); err != nil {
		s.respondError(c, model.NewValidationError("body", nil, "binding", err.Error()))
		return
	}
	if err := model.CheckItems(draft.Items); err != nil {
		s.respondError(c, err)
		return
	}

	pdf, err := render.RenderBytes(render.FromDraft(draft, "", s.now()))
	if err != nil {
		s.respondError(c, fmt.Errorf("render preview: %w", err))
		return
	}
	c.Header("Content-Disposition", `inline; filename="invoice-draft.pdf"`)
	c.Data(http.StatusOK, pdfContentType, pdf)
}

func (s *Server) handleCreateInvoice(c *gin.Context) {
	var draft model.Draft
	if err := c.ShouldBindJSON(&draft); err != nil {
		s.respondError(c, model.NewValidationError("body", nil, "binding", err.Error()))
		return
	}
	if err := model.CheckItems(draft.Items); err != nil {
		s.respondError(c, err)
		return
	}
	if draft.DueDate != "" {
		if _, err := parseDate(draft.DueDate); err != nil {
			s.respondError(c, model.NewValidationError("due_date", draft.DueDate, "date", "must be YYYY-MM-DD"))
			return
		}
	}

	inv, err := s.repo.CreateInvoice(c.Request.Context(), model.NewInvoiceFromDraft(creator(c), draft, s.now()))
	if err != nil {
		s.respondError(c, err)
		return
	}
	s.requestLog(c).Info("invoice saved", "invoice_id", inv.ID, "amount", inv.Amount)
	c.JSON(http.StatusCreated, inv)
}

func (s *Server) handleListInvoices(c *gin.Context) {
	filter, err := parseListFilter(c)
	if err != nil {
		s.respondError(c, err)
		return
	}

	invoices, err := s.repo.ListInvoices(c.Request.Context(), creator(c), filter)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, InvoiceListResponse{Invoices: invoices, Count: len(invoices)})
}

func (s *Server) handleSummary(c *gin.Context) {
	invoices, err := s.repo.ListInvoices(c.Request.Context(), creator(c), store.ListFilter{})
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, store.Summarize(invoices))
}

func (s *Server) handleGetInvoice(c *gin.Context) {
	inv, err := s.repo.GetInvoice(c.Request.Context(), creator(c), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, inv)
}

func (s *Server) handleUpdateInvoice(c *gin.Context) {
	var update model.InvoiceUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		s.respondError(c, model.NewValidationError("body", nil, "binding", err.Error()))
		return
	}

	inv, err := s.repo.UpdateInvoice(c.Request.Context(), creator(c), c.Param("id"), update)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, inv)
}

func (s *Server) handleDeleteInvoice(c *gin.Context) {
	if err := s.repo.DeleteInvoice(c.Request.Context(), creator(c), c.Param("id")); err != nil {
		s.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleInvoicePDF(c *gin.Context) {
	ctx := c.Request.Context()
	inv, err := s.repo.GetInvoice(ctx, creator(c), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}

	issuer := ""
	if profile, err := s.repo.GetProfile(ctx, creator(c)); err == nil {
		issuer = profile.Company
	} else if !errors.Is(err, model.ErrProfileNotFound) {
		s.respondError(c, err)
		return
	}

	pdf, err := render.RenderBytes(render.FromInvoice(*inv, issuer))
	if err != nil {
		s.respondError(c, fmt.Errorf("render invoice %s: %w", inv.ID, err))
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="invoice-%s.pdf"`, inv.ID))
	c.Data(http.StatusOK, pdfContentType, pdf)
}

// parseListFilter reads status, min_amount, max_amount, from, to, q and limit
func parseListFilter(c *gin.Context) (store.ListFilter, error) {
	filter := store.ListFilter{
		Status: model.Status(strings.TrimSpace(c.Query("status"))),
		From:   strings.TrimSpace(c.Query("from")),
		To:     strings.TrimSpace(c.Query("to")),
		Search: c.Query("q"),
	}

	for _, bound := range []struct {
		name   string
		target **float64
	}{
		{"min_amount", &filter.MinAmount},
		{"max_amount", &filter.MaxAmount},
	} {
		raw := strings.TrimSpace(c.Query(bound.name))
		if raw == "" {
			continue
		}
		d, err := money.FromString(raw)
		if err != nil {
			return filter, model.NewValidationError(bound.name, raw, "number", "must be a number")
		}
		if !money.IsNonNegative(d) {
			return filter, model.NewValidationError(bound.name, raw, "min", "must not be negative")
		}
		v := money.ToFloat(d)
		*bound.target = &v
	}

	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return filter, model.NewValidationError("limit", raw, "number", "must be an integer")
		}
		filter.Limit = limit
	}

	return filter, filter.Validate()
}

func parseDate(s string) (time.Time, error) {
	return time.Parse(model.DateLayout, s)
}
