package area

import (
	"errors"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/waynai/waynai-go/internal/api"
	"github.com/waynai/waynai-go/internal/types"
)

// Ensure implementation satisfies the interface
var _ Handler = (*HandlerImpl)(nil)

type Handler interface {
	ListCodes(w http.ResponseWriter, r *http.Request)
	SearchSubRegions(w http.ResponseWriter, r *http.Request)
	Resolve(w http.ResponseWriter, r *http.Request)
}

// HandlerImpl exposes the reference table over HTTP.
type HandlerImpl struct {
	index  *Index
	logger *slog.Logger
}

func NewHandlerImpl(index *Index, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{
		index:  index,
		logger: logger,
	}
}

// ListCodes handles GET /api/area/codes.
func (h *HandlerImpl) ListCodes(w http.ResponseWriter, r *http.Request) {
	_, span := otel.Tracer("AreaHandler").Start(r.Context(), "ListCodes")
	defer span.End()

	codesList := h.index.All()
	api.WriteJSONResponse(w, r, http.StatusOK, map[string]any{
		"count": len(codesList),
		"codes": codesList,
	})
	span.SetStatus(codes.Ok, "Codes returned")
}

// SearchSubRegions handles GET /api/area/codes/search?areaName=: all
// sub-region codes of the named region.
func (h *HandlerImpl) SearchSubRegions(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("AreaHandler").Start(r.Context(), "SearchSubRegions", trace.WithAttributes(
		attribute.String("areaName", r.URL.Query().Get("areaName")),
	))
	defer span.End()

	areaName := r.URL.Query().Get("areaName")
	if areaName == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "areaName parameter is required")
		span.SetStatus(codes.Error, "Missing areaName")
		return
	}

	ref, err := h.index.Resolve(areaName)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			api.ErrorResponse(w, r, http.StatusNotFound, "해당 지역을 찾을 수 없습니다")
			span.SetStatus(codes.Error, "Area not found")
			return
		}
		h.logger.ErrorContext(ctx, "Area resolution failed", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "지역 조회 중 오류가 발생했습니다")
		span.RecordError(err)
		span.SetStatus(codes.Error, "Area resolution failed")
		return
	}

	subRegions := h.index.SubRegions(ref.Code)
	api.WriteJSONResponse(w, r, http.StatusOK, map[string]any{
		"areaName": ref.Name,
		"areaCode": ref.Code,
		"count":    len(subRegions),
		"codes":    subRegions,
	})
	span.SetStatus(codes.Ok, "Sub-regions returned")
}

// Resolve handles GET /api/area/resolve?name=&sigungu=: grounds a free-text
// area name, optionally narrowed by a sub-region name, against the table.
func (h *HandlerImpl) Resolve(w http.ResponseWriter, r *http.Request) {
	_, span := otel.Tracer("AreaHandler").Start(r.Context(), "Resolve", trace.WithAttributes(
		attribute.String("name", r.URL.Query().Get("name")),
	))
	defer span.End()

	name := r.URL.Query().Get("name")
	if name == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "name parameter is required")
		span.SetStatus(codes.Error, "Missing name")
		return
	}

	ref, err := h.index.ResolveHint(types.AreaHint{
		AreaName:      name,
		SubRegionName: r.URL.Query().Get("sigungu"),
	})
	if err != nil {
		api.ErrorResponse(w, r, http.StatusNotFound, "해당 지역을 찾을 수 없습니다")
		span.SetStatus(codes.Error, "Area not found")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, ref)
	span.SetStatus(codes.Ok, "Area resolved")
}
