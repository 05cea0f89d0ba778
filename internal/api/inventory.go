package api

import (
	"net/http"

	"library-rental/internal/models"

	"github.com/gin-gonic/gin"
)

// BookRequest represents a book create/update payload
type BookRequest struct {
	Title      string   `json:"title" binding:"required"`
	Author     *string  `json:"author"`
	DailyPrice *float64 `json:"daily_price" binding:"required"`
}

func (r *BookRequest) valid(c *gin.Context) bool {
	if *r.DailyPrice < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "daily_price must be non-negative"})
		return false
	}
	return true
}

// createBook handles book creation. Staff only.
func (h *Handler) createBook(c *gin.Context) {
	if !caller(c).IsStaff() {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only staff can manage books"})
		return
	}

	var req BookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	if !req.valid(c) {
		return
	}

	book := &models.Book{Title: req.Title, Author: req.Author, DailyPrice: *req.DailyPrice}
	if err := h.store.CreateBook(c.Request.Context(), book); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create book"})
		return
	}

	c.JSON(http.StatusCreated, book)
}

// listBooks handles book listing for any authenticated caller
func (h *Handler) listBooks(c *gin.Context) {
	books, err := h.store.GetBooks(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list books"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"books": books})
}

// getBook handles get book by ID
func (h *Handler) getBook(c *gin.Context) {
	bookID, ok := pathID(c)
	if !ok {
		return
	}

	book, err := h.catalog.GetBook(c.Request.Context(), bookID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load book"})
		return
	}
	if book == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Book not found"})
		return
	}

	count, avg := h.catalog.RatingStats(c.Request.Context(), bookID)
	c.JSON(http.StatusOK, gin.H{
		"book": book,
		"ratings": gin.H{
			"count":   count,
			"average": avg,
		},
	})
}

// updateBook handles book updates. Staff only.
func (h *Handler) updateBook(c *gin.Context) {
	if !caller(c).IsStaff() {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only staff can manage books"})
		return
	}

	bookID, ok := pathID(c)
	if !ok {
		return
	}

	var req BookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	if !req.valid(c) {
		return
	}

	book := &models.Book{ID: bookID, Title: req.Title, Author: req.Author, DailyPrice: *req.DailyPrice}
	found, err := h.store.UpdateBook(c.Request.Context(), book)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update book"})
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "Book not found"})
		return
	}

	h.catalog.Invalidate(c.Request.Context(), bookID)
	c.JSON(http.StatusOK, book)
}

// deleteBook handles book deletion. Staff only.
func (h *Handler) deleteBook(c *gin.Context) {
	if !caller(c).IsStaff() {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only staff can manage books"})
		return
	}

	bookID, ok := pathID(c)
	if !ok {
		return
	}

	found, err := h.store.DeleteBook(c.Request.Context(), bookID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete book"})
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "Book not found"})
		return
	}

	h.catalog.Invalidate(c.Request.Context(), bookID)
	c.JSON(http.StatusOK, gin.H{"detail": "Book deleted"})
}

// CreateUserRequest carries a username, role and the credential hash
// produced by the external identity service.
type CreateUserRequest struct {
	Username       string `json:"username" binding:"required"`
	HashedPassword string `json:"hashed_password" binding:"required"`
	Role           string `json:"role" binding:"required"`
}

// createUser handles account creation. Admin only.
func (h *Handler) createUser(c *gin.Context) {
	if caller(c).Role != models.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only admins can create users"})
		return
	}

	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	switch req.Role {
	case models.RoleAdmin, models.RoleOperator, models.RoleUser:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown role"})
		return
	}

	existing, err := h.store.GetUserByUsername(c.Request.Context(), req.Username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check username"})
		return
	}
	if existing != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Username already exists"})
		return
	}

	user := &models.User{
		Username:       req.Username,
		HashedPassword: req.HashedPassword,
		Role:           req.Role,
	}
	if err := h.store.CreateUser(c.Request.Context(), user); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}

	c.JSON(http.StatusCreated, user)
}
