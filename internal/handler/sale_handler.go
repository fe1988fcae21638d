package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ritmo-app/ritmo-api/internal/models"
	"github.com/ritmo-app/ritmo-api/internal/service"
	appErrors "github.com/ritmo-app/ritmo-api/pkg/errors"
	"github.com/ritmo-app/ritmo-api/pkg/response"
)

// SaleHandler exposes product catalog and sale endpoints.
type SaleHandler struct {
	sales *service.SaleService
}

// NewSaleHandler constructs SaleHandler.
func NewSaleHandler(sales *service.SaleService) *SaleHandler {
	return &SaleHandler{sales: sales}
}

// ListProducts godoc
// @Summary List products
// @Tags Sales
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /products [get]
func (h *SaleHandler) ListProducts(c *gin.Context) {
	products, err := h.sales.ListProducts(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, products, nil)
}

// GetProduct godoc
// @Summary Get product
// @Tags Sales
// @Produce json
// @Param id path string true "Product ID"
// @Success 200 {object} response.Envelope
// @Router /products/{id} [get]
func (h *SaleHandler) GetProduct(c *gin.Context) {
	product, err := h.sales.GetProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, product, nil)
}

// CreateProduct godoc
// @Summary Create product
// @Tags Sales
// @Accept json
// @Produce json
// @Param payload body service.CreateProductRequest true "Product payload"
// @Success 201 {object} response.Envelope
// @Router /products [post]
func (h *SaleHandler) CreateProduct(c *gin.Context) {
	var req service.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	product, err := h.sales.CreateProduct(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, product)
}

// UpdateProduct godoc
// @Summary Update product
// @Tags Sales
// @Accept json
// @Produce json
// @Param id path string true "Product ID"
// @Param payload body service.UpdateProductRequest true "Product payload"
// @Success 200 {object} response.Envelope
// @Router /products/{id} [put]
func (h *SaleHandler) UpdateProduct(c *gin.Context) {
	var req service.UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	product, err := h.sales.UpdateProduct(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, product, nil)
}

// DeleteProduct godoc
// @Summary Delete product
// @Tags Sales
// @Produce json
// @Param id path string true "Product ID"
// @Success 204
// @Router /products/{id} [delete]
func (h *SaleHandler) DeleteProduct(c *gin.Context) {
	if err := h.sales.DeleteProduct(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListSales godoc
// @Summary List sales
// @Tags Sales
// @Produce json
// @Param productId query string false "Filter by product"
// @Param studentId query string false "Filter by student"
// @Param month query int false "Sold month (1-12)"
// @Param year query int false "Sold year"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /sales [get]
func (h *SaleHandler) ListSales(c *gin.Context) {
	var filter models.SaleFilter
	filter.ProductID = c.Query("productId")
	filter.StudentID = c.Query("studentId")
	filter.Month = parseIntQuery(c, "month", 0)
	filter.Year = parseIntQuery(c, "year", 0)
	filter.Page = parseIntQuery(c, "page", 1)
	filter.PageSize = parseIntQuery(c, "limit", 20)

	sales, pagination, err := h.sales.ListSales(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sales, pagination)
}

// CreateSale godoc
// @Summary Record sale
// @Description Decrements stock and writes a settled income ledger entry
// @Tags Sales
// @Accept json
// @Produce json
// @Param payload body service.CreateSaleRequest true "Sale payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /sales [post]
func (h *SaleHandler) CreateSale(c *gin.Context) {
	var req service.CreateSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	sale, err := h.sales.RecordSale(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, sale)
}
