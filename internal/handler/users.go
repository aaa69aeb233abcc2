package handler

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/ticket-sales/internal/model"
	"github.com/iliyamo/ticket-sales/internal/repository"
)

// UserHandler serves customer records.
type UserHandler struct {
	Store repository.Store
}

func NewUserHandler(store repository.Store) *UserHandler {
	if store == nil {
		panic("nil store passed to NewUserHandler")
	}
	return &UserHandler{Store: store}
}

type userRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	LastName string `json:"lastName"`
	IsAdmin  bool   `json:"isAdmin"`
}

// Create handles POST /api/users. A taken email yields 409.
func (h *UserHandler) Create(c echo.Context) error {
	var req userRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	email := strings.TrimSpace(req.Email)
	switch {
	case email == "":
		return badRequest(c, "missing required field: email")
	case !strings.Contains(email, "@"):
		return badRequest(c, "invalid email")
	case strings.TrimSpace(req.Name) == "":
		return badRequest(c, "missing required field: name")
	}
	u := &model.User{
		Email:    email,
		Name:     strings.TrimSpace(req.Name),
		LastName: strings.TrimSpace(req.LastName),
		IsAdmin:  req.IsAdmin,
	}
	if err := h.Store.CreateUser(c.Request().Context(), u); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"user": u})
}

// Get handles GET /api/users/:id.
func (h *UserHandler) Get(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	u, err := h.Store.GetUser(c.Request().Context(), id)
	if err != nil {
		return lookup(c, "user", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"user": u})
}

// GetByEmail handles GET /api/users/email/:email.
func (h *UserHandler) GetByEmail(c echo.Context) error {
	email, err := url.PathUnescape(c.Param("email"))
	if err != nil {
		return badRequest(c, "invalid email")
	}
	u, err := h.Store.GetUserByEmail(c.Request().Context(), email)
	if err != nil {
		return lookup(c, "user", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"user": u})
}

// List handles GET /api/users?page&per_page.
func (h *UserHandler) List(c echo.Context) error {
	page := parsePage(c)
	users, total, err := h.Store.ListUsers(c.Request().Context(), page)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, listResponse{Items: users, Pagination: model.NewPagination(page, total)})
}
