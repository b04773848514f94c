// This file defines handlers for the name-list catalog resources: genres,
// stars, directors and certifications.  All four share the same row shape,
// so the handlers are factories taking the repository for the resource.
// Reads are public; create/update/delete are mounted under the admin group.
package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-store/internal/repository"
)

type nameReq struct {
	Name string `json:"name"`
}

type nameResp struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`
}

// NameList returns all records of one catalog resource, sorted by name.
func NameList(repo *repository.NameRepo) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()

		recs, err := repo.List(ctx)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
		}
		out := make([]nameResp, 0, len(recs))
		for _, r := range recs {
			out = append(out, nameResp{ID: r.ID, Name: r.Name})
		}
		return c.JSON(http.StatusOK, echo.Map{"items": out})
	}
}

// NameGet returns one record by id.
func NameGet(repo *repository.NameRepo) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, ok := pathID(c, "id")
		if !ok {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
		}

		ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()

		rec, err := repo.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
			}
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
		}
		return c.JSON(http.StatusOK, nameResp{ID: rec.ID, Name: rec.Name})
	}
}

// NameCreate inserts a record; duplicate names return 409.
func NameCreate(repo *repository.NameRepo) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req nameReq
		if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Name) == "" {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "name required"})
		}

		ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()

		rec, err := repo.Create(ctx, strings.TrimSpace(req.Name))
		if err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return c.JSON(http.StatusConflict, echo.Map{"error": "name already exists"})
			}
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create failed"})
		}
		return c.JSON(http.StatusCreated, nameResp{ID: rec.ID, Name: rec.Name})
	}
}

// NameUpdate renames a record.
func NameUpdate(repo *repository.NameRepo) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, ok := pathID(c, "id")
		if !ok {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
		}
		var req nameReq
		if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Name) == "" {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "name required"})
		}

		ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()

		rec, err := repo.Update(ctx, id, strings.TrimSpace(req.Name))
		if err != nil {
			switch {
			case errors.Is(err, repository.ErrNotFound):
				return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
			case errors.Is(err, repository.ErrDuplicate):
				return c.JSON(http.StatusConflict, echo.Map{"error": "name already exists"})
			}
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
		}
		return c.JSON(http.StatusOK, nameResp{ID: rec.ID, Name: rec.Name})
	}
}

// NameDelete removes a record; 409 while movies still reference it.
func NameDelete(repo *repository.NameRepo) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, ok := pathID(c, "id")
		if !ok {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
		}

		ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()

		if err := repo.Delete(ctx, id); err != nil {
			switch {
			case errors.Is(err, repository.ErrNotFound):
				return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
			case errors.Is(err, repository.ErrConflict):
				return c.JSON(http.StatusConflict, echo.Map{"error": "still referenced by movies"})
			}
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
		}
		return c.NoContent(http.StatusNoContent)
	}
}
