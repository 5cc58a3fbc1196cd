package handlers

import (
	"net/http"

	"github.com/petermazzocco/bboard/internal/auth"
	"github.com/petermazzocco/bboard/internal/board"
	"github.com/petermazzocco/bboard/internal/paginate"
	"github.com/petermazzocco/bboard/models"
)

type listingView struct {
	models.Listing
	ImageURL string `json:"image_url,omitempty"`
}

type imageView struct {
	ID  uint   `json:"id"`
	URL string `json:"url"`
}

func (h *Handler) listingView(l *models.Listing) listingView {
	return listingView{Listing: *l, ImageURL: h.Board.ImageURL(l.Image)}
}

func (h *Handler) listingViews(listings []models.Listing) []listingView {
	views := make([]listingView, len(listings))
	for i := range listings {
		views[i] = h.listingView(&listings[i])
	}
	return views
}

func (h *Handler) pageView(p board.ListingPage) paginate.Page[listingView] {
	return paginate.Page[listingView]{
		Items:       h.listingViews(p.Items),
		Number:      p.Number,
		NumPages:    p.NumPages,
		Count:       p.Count,
		PerPage:     p.PerPage,
		HasNext:     p.HasNext,
		HasPrevious: p.HasPrevious,
	}
}

func (h *Handler) detailView(d *board.Detail) map[string]any {
	images := make([]imageView, len(d.Images))
	for i, img := range d.Images {
		images[i] = imageView{ID: img.ID, URL: h.Board.ImageURL(img.Image)}
	}
	return map[string]any{
		"listing":           h.listingView(d.Listing),
		"additional_images": images,
		"comments":          d.Comments,
	}
}

func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	keyword := r.URL.Query().Get("keyword")
	p, err := h.Board.Index(r.Context(), keyword, r.URL.Query().Get("page"))
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"page": h.pageView(p),
		"form": map[string]string{"keyword": keyword},
	})
}

func (h *Handler) ByRubric(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "rubric_id")
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	keyword := r.URL.Query().Get("keyword")
	rubric, p, err := h.Board.ByRubric(r.Context(), id, keyword, r.URL.Query().Get("page"))
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"rubric": rubric,
		"page":   h.pageView(p),
		"form":   map[string]string{"keyword": keyword},
	})
}

func (h *Handler) Rubrics(w http.ResponseWriter, r *http.Request) {
	tree, err := h.Board.Rubrics(r.Context())
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, tree)
}

// Detail shows a listing with its images, comments and the comment form the
// viewer gets. The rubric segment of the path is not checked.
func (h *Handler) Detail(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	d, err := h.Board.Detail(r.Context(), id)
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	form := h.Board.CommentForm(auth.UserFrom(r.Context()))
	body := h.detailView(d)
	body["form"] = map[string]any{"kind": form.Kind(), "initial": form.Initial()}
	writeJSON(w, http.StatusOK, body)
}

func (h *Handler) PostComment(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	if err := r.ParseForm(); err != nil {
		badRequest(w, "invalid form")
		return
	}
	viewer := auth.UserFrom(r.Context())
	c, err := h.Board.PostComment(r.Context(), viewer, id, r.PostForm, remoteIP(r))
	if err != nil {
		h.fail(w, r, err, "Comment not added")
		return
	}
	success(w, http.StatusCreated, "Comment added", map[string]any{"comment": c})
}
