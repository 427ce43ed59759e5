package api

import (
	"errors"
	"fmt"
	"net/http"

	"hybridx/training-app/internal/domain"
	"hybridx/training-app/internal/service"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ProgramHandler exposes the program catalog and its admin management.
type ProgramHandler struct {
	programService service.ProgramService
}

func NewProgramHandler(programService service.ProgramService) *ProgramHandler {
	return &ProgramHandler{programService: programService}
}

type ProgramRequest struct {
	Name        string             `json:"name" binding:"required"`
	Description string             `json:"description"`
	ProgramType domain.ProgramType `json:"programType" binding:"required,oneof=hyrox running"`
	TargetRace  string             `json:"targetRace"`
	Workouts    []domain.Workout   `json:"workouts" binding:"required,min=1"`
}

func (r *ProgramRequest) toDomain() *domain.Program {
	return &domain.Program{
		Name:        r.Name,
		Description: r.Description,
		ProgramType: r.ProgramType,
		TargetRace:  r.TargetRace,
		Workouts:    r.Workouts,
	}
}

// ListPrograms returns the full catalog; athletes browse it to pick a plan.
func (h *ProgramHandler) ListPrograms(c *gin.Context) {
	programs, err := h.programService.List(c.Request.Context())
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to list programs")
		return
	}
	c.JSON(http.StatusOK, programs)
}

func (h *ProgramHandler) GetProgram(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid program ID format")
		return
	}

	program, err := h.programService.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrProgramNotFound) {
			abortWithError(c, http.StatusNotFound, err.Error())
			return
		}
		abortWithError(c, http.StatusInternalServerError, "Failed to get program")
		return
	}
	c.JSON(http.StatusOK, program)
}

func (h *ProgramHandler) CreateProgram(c *gin.Context) {
	var req ProgramRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	program, err := h.programService.Create(c.Request.Context(), req.toDomain())
	if err != nil {
		if errors.Is(err, service.ErrProgramInvalid) {
			abortWithError(c, http.StatusBadRequest, err.Error())
			return
		}
		abortWithError(c, http.StatusInternalServerError, "Failed to create program")
		return
	}
	c.JSON(http.StatusCreated, program)
}

func (h *ProgramHandler) UpdateProgram(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid program ID format")
		return
	}

	var req ProgramRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}
	program := req.toDomain()
	program.ID = id

	updated, err := h.programService.Update(c.Request.Context(), program)
	if err != nil {
		if errors.Is(err, service.ErrProgramInvalid) {
			abortWithError(c, http.StatusBadRequest, err.Error())
			return
		}
		if errors.Is(err, service.ErrProgramNotFound) {
			abortWithError(c, http.StatusNotFound, err.Error())
			return
		}
		abortWithError(c, http.StatusInternalServerError, "Failed to update program")
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *ProgramHandler) DeleteProgram(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid program ID format")
		return
	}

	if err := h.programService.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, service.ErrProgramNotFound) {
			abortWithError(c, http.StatusNotFound, err.Error())
			return
		}
		abortWithError(c, http.StatusInternalServerError, "Failed to delete program")
		return
	}
	c.Status(http.StatusNoContent)
}
