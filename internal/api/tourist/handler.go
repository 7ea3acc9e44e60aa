package tourist

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
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
	GetSpots(w http.ResponseWriter, r *http.Request)
	SearchSpots(w http.ResponseWriter, r *http.Request)
	GetRandomSpots(w http.ResponseWriter, r *http.Request)
	GetRandomSubRegionSpots(w http.ResponseWriter, r *http.Request)
}

// HandlerImpl provides the implementation for Handler.
type HandlerImpl struct {
	touristService TouristService
	logger         *slog.Logger
}

func NewHandlerImpl(touristService TouristService, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{
		touristService: touristService,
		logger:         logger,
	}
}

type spotsResponse struct {
	Area  *types.AreaRef     `json:"area,omitempty"`
	Count int                `json:"count"`
	Spots []types.SpotRecord `json:"spots"`
}

// GetSpots handles GET /api/tourist/spots?areaCode=&sigunguCode=.
// Malformed codes produce a structured 400.
func (h *HandlerImpl) GetSpots(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("TouristHandler").Start(r.Context(), "GetSpots")
	defer span.End()

	regionCode := r.URL.Query().Get("areaCode")
	subRegionCode := r.URL.Query().Get("sigunguCode")

	spots, err := h.touristService.AreaBasedSpots(ctx, regionCode, subRegionCode)
	if err != nil {
		h.logger.WarnContext(ctx, "Spot lookup rejected", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		span.RecordError(err)
		span.SetStatus(codes.Error, "Spot lookup rejected")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, spotsResponse{Count: len(spots), Spots: spots})
	span.SetStatus(codes.Ok, "Spots returned")
}

// SearchSpots handles GET /api/tourist/spots/search?keyword=&areaCode=&sigunguCode=.
func (h *HandlerImpl) SearchSpots(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("TouristHandler").Start(r.Context(), "SearchSpots", trace.WithAttributes(
		attribute.String("keyword", r.URL.Query().Get("keyword")),
	))
	defer span.End()

	keyword := r.URL.Query().Get("keyword")
	if keyword == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "keyword parameter is required")
		span.SetStatus(codes.Error, "Missing keyword")
		return
	}
	regionCode := r.URL.Query().Get("areaCode")
	subRegionCode := r.URL.Query().Get("sigunguCode")

	spots, err := h.touristService.KeywordSpots(ctx, keyword, regionCode, subRegionCode)
	if err != nil {
		h.logger.WarnContext(ctx, "Keyword lookup rejected", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		span.RecordError(err)
		span.SetStatus(codes.Error, "Keyword lookup rejected")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, spotsResponse{Count: len(spots), Spots: spots})
	span.SetStatus(codes.Ok, "Spots returned")
}

// GetRandomSpots handles GET /api/tourist/spots/random.
func (h *HandlerImpl) GetRandomSpots(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("TouristHandler").Start(r.Context(), "GetRandomSpots")
	defer span.End()

	area, spots, err := h.touristService.RandomAreaSpots(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "Random spot lookup failed", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "무작위 관광지 조회 중 오류가 발생했습니다")
		span.RecordError(err)
		span.SetStatus(codes.Error, "Random spot lookup failed")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, spotsResponse{Area: &area, Count: len(spots), Spots: spots})
	span.SetStatus(codes.Ok, "Spots returned")
}

// GetRandomSubRegionSpots handles GET /api/tourist/spots/random/{areaCode}:
// spots from one random sub-region within the given region.
func (h *HandlerImpl) GetRandomSubRegionSpots(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("TouristHandler").Start(r.Context(), "GetRandomSubRegionSpots")
	defer span.End()

	regionCode := chi.URLParam(r, "areaCode")

	area, spots, err := h.touristService.RandomSubRegionSpots(ctx, regionCode)
	if err != nil {
		h.logger.WarnContext(ctx, "Random sub-region lookup rejected", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		span.RecordError(err)
		span.SetStatus(codes.Error, "Random sub-region lookup rejected")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, spotsResponse{Area: &area, Count: len(spots), Spots: spots})
	span.SetStatus(codes.Ok, "Spots returned")
}
