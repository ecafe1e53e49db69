package httpx

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ariefcatur/go-marketplace.git/internal/catalog"
)

const maxUploadBytes = 10 << 20

type ingestResp struct {
	catalog.BatchResult
	Rows int `json:"rows"`
}

func (a *API) listProducts(w http.ResponseWriter, r *http.Request) {
	skip, limit, err := pagination(r)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	ps, err := a.Catalog.List(r.Context(), skip, limit, r.URL.Query().Get("category"))
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(ps))
}

// searchProducts matches ?query= against name, description and category.
func (a *API) searchProducts(w http.ResponseWriter, r *http.Request) {
	skip, limit, err := pagination(r)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	q := strings.TrimSpace(r.URL.Query().Get("query"))
	if q == "" {
		writeErr(w, r, badRequest("query is required"))
		return
	}
	ps, err := a.Catalog.Search(r.Context(), q, skip, limit)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(ps))
}

func (a *API) listCategory(w http.ResponseWriter, r *http.Request) {
	skip, limit, err := pagination(r)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	ps, err := a.Catalog.List(r.Context(), skip, limit, chi.URLParam(r, "category"))
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(ps))
}

func (a *API) createProduct(w http.ResponseWriter, r *http.Request) {
	var p catalog.Product
	if err := decodeJSON(r, &p); err != nil {
		writeErr(w, r, err)
		return
	}
	created, err := a.Catalog.Create(r.Context(), &p)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (a *API) updateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := productID(r)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	var patch catalog.ProductPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeErr(w, r, err)
		return
	}
	p, err := a.Catalog.Update(r.Context(), id, patch)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (a *API) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := productID(r)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	p, err := a.Catalog.Delete(r.Context(), id)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func productID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, badRequest("product id must be a positive integer")
	}
	return id, nil
}

func (a *API) getProduct(w http.ResponseWriter, r *http.Request) {
	id, err := productID(r)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	p, err := a.Catalog.Get(r.Context(), id)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// ingestProducts upserts products from an uploaded .xlsx in the "file"
// form field. Bad rows are reported, not fatal.
func (a *API) ingestProducts(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeErr(w, r, badRequest("multipart upload expected: %v", err))
		return
	}
	f, hdr, err := r.FormFile("file")
	if err != nil {
		writeErr(w, r, badRequest("file field is required"))
		return
	}
	defer f.Close()

	rows, rejected, err := catalog.ParseXLSX(f, hdr.Size)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	res, err := catalog.Ingest(r.Context(), a.Catalog, rows)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	if len(rejected) > 0 {
		res.Rejected = append(rejected, res.Rejected...)
	}
	writeJSON(w, http.StatusOK, ingestResp{BatchResult: res, Rows: len(rows) + len(rejected)})
}
