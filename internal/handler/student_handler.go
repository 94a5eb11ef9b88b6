package handler

import (
	"net/http"

	"github.com/dafibh/sppku/sppku-backend/internal/domain"
	"github.com/dafibh/sppku/sppku-backend/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// StudentHandler handles student and class requests
type StudentHandler struct {
	studentService *service.StudentService
	classService   *service.ClassService
}

// NewStudentHandler creates a new StudentHandler
func NewStudentHandler(studentService *service.StudentService, classService *service.ClassService) *StudentHandler {
	return &StudentHandler{
		studentService: studentService,
		classService:   classService,
	}
}

// CreateStudentRequest represents the create student request body
type CreateStudentRequest struct {
	NIS         string  `json:"nis" validate:"required,max=32"`
	Name        string  `json:"name" validate:"required,max=255"`
	ClassID     int32   `json:"classId" validate:"required,gt=0"`
	ParentPhone *string `json:"parentPhone,omitempty" validate:"omitempty,max=32"`
}

// UpdateStudentRequest represents the update student request body
type UpdateStudentRequest struct {
	Name        string  `json:"name" validate:"required,max=255"`
	ClassID     int32   `json:"classId" validate:"required,gt=0"`
	ParentPhone *string `json:"parentPhone,omitempty" validate:"omitempty,max=32"`
}

// CreateClassRequest represents the create class request body
type CreateClassRequest struct {
	Name string `json:"name" validate:"required,max=255"`
}

// Create registers a student
// @Summary Create student
// @Tags students
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateStudentRequest true "Student"
// @Success 201 {object} domain.Student
// @Failure 400 {object} ProblemDetails
// @Failure 403 {object} ProblemDetails
// @Failure 409 {object} ProblemDetails
// @Router /students [post]
func (h *StudentHandler) Create(c echo.Context) error {
	actor, ok, err := currentActor(c)
	if !ok {
		return err
	}

	var req CreateStudentRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}

	student, err := h.studentService.Create(c.Request().Context(), actor, service.CreateStudentInput{
		NIS:         req.NIS,
		Name:        req.Name,
		ClassID:     req.ClassID,
		ParentPhone: req.ParentPhone,
	})
	if err != nil {
		return handleServiceError(c, err, "create student")
	}

	log.Info().Int32("student_id", student.ID).Str("nis", student.NIS).Msg("Student created")
	return c.JSON(http.StatusCreated, student)
}

// List returns students
// @Summary List students
// @Tags students
// @Produce json
// @Security BearerAuth
// @Param classId query int false "Class ID"
// @Param activeOnly query bool false "Only active students"
// @Param search query string false "Name or NIS contains"
// @Success 200 {array} domain.Student
// @Failure 400 {object} ProblemDetails
// @Failure 403 {object} ProblemDetails
// @Router /students [get]
func (h *StudentHandler) List(c echo.Context) error {
	actor, ok, err := currentActor(c)
	if !ok {
		return err
	}

	classID, err := parseOptionalInt32(c.QueryParam("classId"))
	if err != nil {
		return NewValidationError(c, "Invalid query parameters", []ValidationError{
			{Field: "classId", Message: "Must be an integer"},
		})
	}

	students, err := h.studentService.List(c.Request().Context(), actor, domain.StudentFilters{
		ClassID:    classID,
		ActiveOnly: c.QueryParam("activeOnly") == "true",
		Search:     c.QueryParam("search"),
	})
	if err != nil {
		return handleServiceError(c, err, "list students")
	}
	return c.JSON(http.StatusOK, students)
}

// Get returns one student
// @Summary Get student
// @Tags students
// @Produce json
// @Security BearerAuth
// @Param id path int true "Student ID"
// @Success 200 {object} domain.Student
// @Failure 403 {object} ProblemDetails
// @Failure 404 {object} ProblemDetails
// @Router /students/{id} [get]
func (h *StudentHandler) Get(c echo.Context) error {
	actor, ok, err := currentActor(c)
	if !ok {
		return err
	}
	id, ok, err := parseID(c, "id")
	if !ok {
		return err
	}

	student, err := h.studentService.Get(c.Request().Context(), actor, id)
	if err != nil {
		return handleServiceError(c, err, "get student")
	}
	return c.JSON(http.StatusOK, student)
}

// Update changes a student
// @Summary Update student
// @Tags students
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Student ID"
// @Param request body UpdateStudentRequest true "Student"
// @Success 200 {object} domain.Student
// @Failure 400 {object} ProblemDetails
// @Failure 403 {object} ProblemDetails
// @Failure 404 {object} ProblemDetails
// @Router /students/{id} [put]
func (h *StudentHandler) Update(c echo.Context) error {
	actor, ok, err := currentActor(c)
	if !ok {
		return err
	}
	id, ok, err := parseID(c, "id")
	if !ok {
		return err
	}

	var req UpdateStudentRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}

	student, err := h.studentService.Update(c.Request().Context(), actor, id, service.UpdateStudentInput{
		Name:        req.Name,
		ClassID:     req.ClassID,
		ParentPhone: req.ParentPhone,
	})
	if err != nil {
		return handleServiceError(c, err, "update student")
	}
	return c.JSON(http.StatusOK, student)
}

// SetActive activates or deactivates a student
// @Summary Activate or deactivate student
// @Tags students
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Student ID"
// @Param request body SetActiveRequest true "Active flag"
// @Success 200 {object} domain.Student
// @Failure 400 {object} ProblemDetails
// @Failure 403 {object} ProblemDetails
// @Failure 404 {object} ProblemDetails
// @Router /students/{id}/active [patch]
func (h *StudentHandler) SetActive(c echo.Context) error {
	actor, ok, err := currentActor(c)
	if !ok {
		return err
	}
	id, ok, err := parseID(c, "id")
	if !ok {
		return err
	}

	var req SetActiveRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}

	student, err := h.studentService.SetActive(c.Request().Context(), actor, id, *req.Active)
	if err != nil {
		return handleServiceError(c, err, "update student")
	}

	log.Info().Int32("student_id", id).Bool("active", student.Active).Msg("Student active status changed")
	return c.JSON(http.StatusOK, student)
}

// CreateClass adds a class
// @Summary Create class
// @Tags classes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateClassRequest true "Class"
// @Success 201 {object} domain.SchoolClass
// @Failure 400 {object} ProblemDetails
// @Failure 403 {object} ProblemDetails
// @Failure 409 {object} ProblemDetails
// @Router /classes [post]
func (h *StudentHandler) CreateClass(c echo.Context) error {
	actor, ok, err := currentActor(c)
	if !ok {
		return err
	}

	var req CreateClassRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}

	class, err := h.classService.Create(c.Request().Context(), actor, req.Name)
	if err != nil {
		return handleServiceError(c, err, "create class")
	}
	return c.JSON(http.StatusCreated, class)
}

// ListClasses returns all classes
// @Summary List classes
// @Tags classes
// @Produce json
// @Security BearerAuth
// @Success 200 {array} domain.SchoolClass
// @Router /classes [get]
func (h *StudentHandler) ListClasses(c echo.Context) error {
	classes, err := h.classService.List(c.Request().Context())
	if err != nil {
		return handleServiceError(c, err, "list classes")
	}
	return c.JSON(http.StatusOK, classes)
}
