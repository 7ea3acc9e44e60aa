package course

import (
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/waynai/waynai-go/internal/api"
	"github.com/waynai/waynai-go/internal/types"
)

// Ensure implementation satisfies the interface
var _ Handler = (*HandlerImpl)(nil)

type Handler interface {
	GenerateCourse(w http.ResponseWriter, r *http.Request)
	GenerateTips(w http.ResponseWriter, r *http.Request)
}

// HandlerImpl provides the implementation for Handler.
type HandlerImpl struct {
	courseService CourseService
	logger        *slog.Logger
}

func NewHandlerImpl(courseService CourseService, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{
		courseService: courseService,
		logger:        logger,
	}
}

// GenerateCourse handles POST /api/course with a JSON TourCourseRequest body.
func (h *HandlerImpl) GenerateCourse(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("CourseHandler").Start(r.Context(), "GenerateCourse")
	defer span.End()

	var req types.TourCourseRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		span.SetStatus(codes.Error, "Invalid request body")
		return
	}

	course, err := h.courseService.GenerateCourse(ctx, req)
	if err != nil {
		h.logger.WarnContext(ctx, "Course request rejected", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		span.RecordError(err)
		span.SetStatus(codes.Error, "Course request rejected")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, course)
	span.SetStatus(codes.Ok, "Course generated")
}

// GenerateTips handles POST /api/course/tips.
func (h *HandlerImpl) GenerateTips(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("CourseHandler").Start(r.Context(), "GenerateTips")
	defer span.End()

	var req types.TourCourseRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		span.SetStatus(codes.Error, "Invalid request body")
		return
	}
	if req.Destination == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "destination is required")
		span.SetStatus(codes.Error, "Missing destination")
		return
	}

	tips := h.courseService.GenerateTips(ctx, req)
	api.WriteJSONResponse(w, r, http.StatusOK, map[string]any{
		"destination": req.Destination,
		"theme":       req.Theme,
		"tips":        tips,
	})
	span.SetStatus(codes.Ok, "Tips generated")
}
