package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "finwise/internal/errors"
	"finwise/internal/models"
	"finwise/internal/services"
)

// CategoryHandler handles category-related requests
type CategoryHandler struct {
	categoryService services.CategoryServicer
	auditService    services.AuditServicer
}

// NewCategoryHandler creates a new CategoryHandler
func NewCategoryHandler(categoryService services.CategoryServicer, auditService services.AuditServicer) *CategoryHandler {
	return &CategoryHandler{categoryService: categoryService, auditService: auditService}
}

// CreateCategoryRequest represents the request payload for creating a category
type CreateCategoryRequest struct {
	Name        string              `json:"name" binding:"required,max=100"`
	Type        models.CategoryType `json:"type" binding:"required,category_type"`
	Color       string              `json:"color" binding:"required,hex_color"`
	Icon        string              `json:"icon" binding:"max=50"`
	BudgetLimit *decimal.Decimal    `json:"budget_limit" swaggertype:"number"`
}

// UpdateCategoryRequest represents the request payload for updating a category.
// Omitted fields keep their stored value.
type UpdateCategoryRequest struct {
	Name        *string              `json:"name" binding:"omitempty,max=100"`
	Type        *models.CategoryType `json:"type" binding:"omitempty,category_type"`
	Color       *string              `json:"color" binding:"omitempty,hex_color"`
	Icon        *string              `json:"icon" binding:"omitempty,max=50"`
	BudgetLimit *decimal.Decimal     `json:"budget_limit" swaggertype:"number"`
}

// CreateCategory handles the creation of a new category
// @Summary     Create a category
// @Description Create a new category owned by the authenticated user
// @Tags        categories
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateCategoryRequest true "Category details"
// @Success     201 {object} models.Category "Category created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     409 {object} ErrorResponse "Duplicate category name"
// @Router      /categories [post]
func (h *CategoryHandler) CreateCategory(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateCategoryRequest
	if err := bindJSON(c, &req); err != nil {
		respondWithError(c, err)
		return
	}

	category, err := h.categoryService.CreateCategory(c.Request.Context(), userID, services.CategoryInput{
		Name:        req.Name,
		Type:        req.Type,
		Color:       req.Color,
		Icon:        req.Icon,
		BudgetLimit: req.BudgetLimit,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), services.AuditEntry{
		UserID:       userID,
		Action:       "CREATE_CATEGORY",
		ResourceType: "category",
		ResourceID:   category.ID,
		IPAddress:    c.ClientIP(),
		Changes:      map[string]any{"name": category.Name, "type": category.Type},
	})

	c.JSON(http.StatusCreated, gin.H{"category": category})
}

// ListCategories returns the global categories and the user's own
// @Summary     List categories
// @Description Get the global categories plus the authenticated user's own, ordered by name
// @Tags        categories
// @Produce     json
// @Security    BearerAuth
// @Param       type query string false "Filter by category type (income/expense/both)"
// @Success     200 {array} models.Category "List of categories"
// @Failure     400 {object} ErrorResponse "Invalid type filter"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /categories [get]
func (h *CategoryHandler) ListCategories(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var filter services.CategoryFilter
	if raw := c.Query("type"); raw != "" {
		categoryType := models.CategoryType(raw)
		if !categoryType.Valid() {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid type: expected income, expense or both"))
			return
		}
		filter.Type = &categoryType
	}

	categories, err := h.categoryService.ListCategories(c.Request.Context(), userID, filter)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

// GetCategory handles the retrieval of a specific category
// @Summary     Get category by ID
// @Description Get a global category or one of the user's own
// @Tags        categories
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Category ID"
// @Success     200 {object} models.Category "Category details"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Category not found"
// @Router      /categories/{id} [get]
func (h *CategoryHandler) GetCategory(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	category, err := h.categoryService.GetCategory(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"category": category})
}

// UpdateCategory handles updating a category
// @Summary     Update category
// @Description Update one of the user's own categories. Global categories are not editable.
// @Tags        categories
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string                true "Category ID"
// @Param       request body UpdateCategoryRequest true "Fields to update"
// @Success     200 {object} models.Category "Category updated"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Category not found or not editable"
// @Failure     409 {object} ErrorResponse "Duplicate category name"
// @Router      /categories/{id} [put]
func (h *CategoryHandler) UpdateCategory(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateCategoryRequest
	if err := bindJSON(c, &req); err != nil {
		respondWithError(c, err)
		return
	}

	categoryID := c.Param("id")
	category, err := h.categoryService.UpdateCategory(c.Request.Context(), userID, categoryID, models.CategoryPatch{
		Name:        req.Name,
		Type:        req.Type,
		Color:       req.Color,
		Icon:        req.Icon,
		BudgetLimit: req.BudgetLimit,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), services.AuditEntry{
		UserID:       userID,
		Action:       "UPDATE_CATEGORY",
		ResourceType: "category",
		ResourceID:   categoryID,
		IPAddress:    c.ClientIP(),
	})

	c.JSON(http.StatusOK, gin.H{"category": category})
}

// DeleteCategory handles deleting a category
// @Summary     Delete category
// @Description Delete one of the user's own categories. Fails while transactions reference it.
// @Tags        categories
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Category ID"
// @Success     200 {object} map[string]string "Category deleted"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Global or foreign category"
// @Failure     404 {object} ErrorResponse "Category not found"
// @Failure     409 {object} ErrorResponse "Category in use"
// @Router      /categories/{id} [delete]
func (h *CategoryHandler) DeleteCategory(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	categoryID := c.Param("id")
	if err := h.categoryService.DeleteCategory(c.Request.Context(), userID, categoryID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), services.AuditEntry{
		UserID:       userID,
		Action:       "DELETE_CATEGORY",
		ResourceType: "category",
		ResourceID:   categoryID,
		IPAddress:    c.ClientIP(),
	})

	c.JSON(http.StatusOK, gin.H{"message": "Category deleted successfully"})
}
