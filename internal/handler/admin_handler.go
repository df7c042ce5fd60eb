package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/alhassan/smart-sales-agent-go/internal/domain"
	"github.com/alhassan/smart-sales-agent-go/internal/service"
)

// ============================================================
// Catalog — /v1/products
// ============================================================

func listProductsHandler(svc *service.AdminService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/products")
		defer span.End()

		products, err := svc.ListProducts(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"products": products})
	}
}

func createProductHandler(svc *service.AdminService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/products")
		defer span.End()

		var p domain.Product
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}

		created, err := svc.CreateProduct(ctx, &p)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	}
}

func updatePriceHandler(svc *service.AdminService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/products/{productId}/price")
		defer span.End()

		var body struct {
			Price float64 `json:"price"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}

		updated, err := svc.UpdateProductPrice(ctx, chi.URLParam(r, "productId"), body.Price)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, updated)
	}
}

func deleteProductHandler(svc *service.AdminService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/products/{productId}")
		defer span.End()

		if err := svc.DeleteProduct(ctx, chi.URLParam(r, "productId")); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// ============================================================
// Invoices — /v1/invoices
// ============================================================

func listInvoicesHandler(svc *service.AdminService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/invoices")
		defer span.End()

		page, pageSize := parsePagination(r)
		invoices, err := svc.ListInvoices(ctx, page, pageSize)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"invoices":  invoices,
			"page":      page,
			"page_size": pageSize,
		})
	}
}

func getInvoiceHandler(svc *service.AdminService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/invoices/{invoiceId}")
		defer span.End()

		id, err := invoiceID(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		inv, err := svc.GetInvoice(ctx, id)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, inv)
	}
}

func getInvoicePDFHandler(svc *service.AdminService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/invoices/{invoiceId}/pdf")
		defer span.End()

		id, err := invoiceID(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		data, err := svc.GetInvoiceDocument(ctx, id)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=invoice_%06d.pdf", id))
		w.WriteHeader(http.StatusOK)
		w.Write(data)
	}
}

func rerenderInvoiceHandler(svc *service.AdminService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/invoices/{invoiceId}/render")
		defer span.End()

		id, err := invoiceID(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		inv, err := svc.RerenderInvoice(ctx, id)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, inv)
	}
}

func invoiceID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "invoiceId"), 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid invoice id")
	}
	return id, nil
}

// ============================================================
// Artifacts — GET /v1/artifacts/{ref}
// ============================================================

func artifactHandler(svc *service.AdminService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/artifacts/{ref}")
		defer span.End()

		ref := chi.URLParam(r, "ref")
		// References are flat names; anything path-like is hostile.
		if ref == "" || strings.ContainsAny(ref, "/\\") || strings.Contains(ref, "..") {
			writeError(w, http.StatusBadRequest, "invalid artifact reference")
			return
		}

		data, err := svc.GetArtifact(ctx, ref)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		w.Header().Set("Content-Type", "application/pdf")
		w.WriteHeader(http.StatusOK)
		w.Write(data)
	}
}

// ============================================================
// Ops metrics — GET /v1/metrics/ops
// ============================================================

func opsMetricsHandler(svc *service.AdminService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.OpsSnapshot())
	}
}
