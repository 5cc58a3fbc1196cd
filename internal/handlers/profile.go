package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/petermazzocco/bboard/internal/auth"
	"github.com/petermazzocco/bboard/internal/board"
	"github.com/petermazzocco/bboard/internal/forms"
)

const maxMemory = 32 << 20

// readSubmission parses a listing form, multipart or urlencoded.
func readSubmission(r *http.Request) (board.ListingSubmission, error) {
	if err := r.ParseMultipartForm(maxMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return board.ListingSubmission{}, err
	}
	sub := board.ListingSubmission{Values: r.PostForm}
	if r.MultipartForm == nil {
		return sub, nil
	}
	if files := r.MultipartForm.File["image"]; len(files) > 0 {
		u, err := readUpload(files[0])
		if err != nil {
			return sub, err
		}
		sub.Image = u
	}
	for _, fh := range r.MultipartForm.File["additional_images"] {
		u, err := readUpload(fh)
		if err != nil {
			return sub, err
		}
		sub.AdditionalImages = append(sub.AdditionalImages, u)
	}
	return sub, nil
}

// readUpload reads at most one byte past the size limit so oversized files
// still fail validation.
func readUpload(fh *multipart.FileHeader) (*forms.Upload, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload %s: %w", fh.Filename, err)
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, forms.MaxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload %s: %w", fh.Filename, err)
	}
	return forms.NewUpload(fh.Filename, data), nil
}

func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFrom(r.Context())
	listings, err := h.Board.Profile(r.Context(), user)
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user":     user,
		"listings": h.listingViews(listings),
	})
}

func (h *Handler) ProfileListing(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	d, err := h.Board.ProfileListing(r.Context(), auth.UserFrom(r.Context()), id)
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, h.detailView(d))
}

func (h *Handler) NewListing(w http.ResponseWriter, r *http.Request) {
	tree, err := h.Board.Rubrics(r.Context())
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"form":    map[string]any{"is_active": true, "price": 0},
		"rubrics": tree.Sub,
	})
}

func (h *Handler) CreateListing(w http.ResponseWriter, r *http.Request) {
	sub, err := readSubmission(r)
	if err != nil {
		badRequest(w, "invalid form")
		return
	}
	l, err := h.Board.CreateListing(r.Context(), auth.UserFrom(r.Context()), sub)
	if err != nil {
		h.fail(w, r, err, "Listing not added")
		return
	}
	success(w, http.StatusCreated, "Listing added", map[string]any{"listing": h.listingView(l)})
}

func (h *Handler) EditListing(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	d, err := h.Board.ProfileListing(r.Context(), auth.UserFrom(r.Context()), id)
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	tree, err := h.Board.Rubrics(r.Context())
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	body := h.detailView(d)
	body["rubrics"] = tree.Sub
	writeJSON(w, http.StatusOK, body)
}

func (h *Handler) UpdateListing(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	sub, err := readSubmission(r)
	if err != nil {
		badRequest(w, "invalid form")
		return
	}
	l, err := h.Board.UpdateListing(r.Context(), auth.UserFrom(r.Context()), id, sub)
	if err != nil {
		h.fail(w, r, err, "Listing not changed")
		return
	}
	success(w, http.StatusOK, "Listing changed", map[string]any{"listing": h.listingView(l)})
}

func (h *Handler) ConfirmDeleteListing(w http.ResponseWriter, r *http.Request) {
	h.ProfileListing(w, r)
}

func (h *Handler) DeleteListing(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	if err := h.Board.DeleteOwnListing(r.Context(), auth.UserFrom(r.Context()), id); err != nil {
		h.fail(w, r, err, "")
		return
	}
	success(w, http.StatusOK, "Listing deleted", nil)
}
