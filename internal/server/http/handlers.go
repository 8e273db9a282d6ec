package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/dmitrijs2005/possync/internal/common"
	"github.com/dmitrijs2005/possync/internal/models"
	"github.com/gin-gonic/gin"
)

// statusOf maps backend errors to HTTP status codes.
func statusOf(err error) int {
	switch {
	case errors.Is(err, common.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, common.ErrAuthorization):
		return http.StatusForbidden
	case common.IsConnectivity(err):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (s *Server) fail(c *gin.Context, err error) {
	code := statusOf(err)
	if code == http.StatusInternalServerError {
		s.logger.Error(c.Request.Context(), "admin request failed", "path", c.FullPath(), "err", err)
		c.JSON(code, gin.H{"error": "internal error"})
		return
	}
	c.JSON(code, gin.H{"error": err.Error()})
}

func (s *Server) bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return false
	}
	return true
}

func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck reports ready only when the backend answers.
func (s *Server) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := s.store.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

func (s *Server) listShops(c *gin.Context) {
	names, err := s.store.ListShops(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"shops": names})
}

func (s *Server) createShop(c *gin.Context) {
	var req CreateShopRequest
	if !s.bind(c, &req) {
		return
	}

	shop := models.Shop{Name: req.Name, Config: req.Config}
	if err := s.store.CreateShop(c.Request.Context(), shop, req.Password, req.CopyFrom); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"name": req.Name, "copied_from": req.CopyFrom})
}

func (s *Server) querySales(c *gin.Context) {
	limit := 0
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
			return
		}
		limit = n
	}
	newestFirst := true
	if v := c.Query("newest_first"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid newest_first"})
			return
		}
		newestFirst = b
	}

	sales, err := s.store.QuerySales(c.Request.Context(), c.Param("shop"), limit, newestFirst)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sales": sales})
}

func (s *Server) findByBarcode(c *gin.Context) {
	barcode := c.Query("barcode")
	if barcode == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "barcode is required"})
		return
	}
	products, err := s.store.FindByBarcode(c.Request.Context(), barcode)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

func (s *Server) upsertProduct(c *gin.Context) {
	var req UpsertProductRequest
	if !s.bind(c, &req) {
		return
	}

	rev, err := s.store.UpsertProduct(c.Request.Context(), req.ProductID, req.Shop, req.fields(), req.Price)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rev)
}

func (s *Server) deleteProduct(c *gin.Context) {
	if err := s.store.DeleteProduct(c.Request.Context(), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) removePrice(c *gin.Context) {
	if err := s.store.RemovePrice(c.Request.Context(), c.Param("id"), c.Param("shop")); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
