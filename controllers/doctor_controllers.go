package controllers

import (
	"net/http"
	"strconv"

	"github.com/eyespire/clinic-backend/models"
	"github.com/eyespire/clinic-backend/utils"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type DoctorController struct {
	DB *gorm.DB
}

func NewDoctorController(db *gorm.DB) *DoctorController {
	return &DoctorController{DB: db}
}

// CreateDoctor registers a doctor profile.
func (dc *DoctorController) CreateDoctor(c *gin.Context) {
	type request struct {
		UserID         *uint  `json:"userId"`
		Name           string `json:"name" binding:"required"`
		Specialization string `json:"specialization"`
	}
	var req request
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	doctor := models.Doctor{
		UserID:         req.UserID,
		Name:           req.Name,
		Specialization: req.Specialization,
	}
	if err := dc.DB.Create(&doctor).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Doctor created", doctor)
}

// GetDoctors lists all doctors.
func (dc *DoctorController) GetDoctors(c *gin.Context) {
	var doctors []models.Doctor
	if err := dc.DB.Find(&doctors).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Doctors retrieved", doctors)
}

// GetDoctor returns one doctor by ID.
func (dc *DoctorController) GetDoctor(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	var doctor models.Doctor
	if err := dc.DB.First(&doctor, uint(id)).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.RespondAppError(c, utils.NotFoundError("doctor not found"))
			return
		}
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Doctor retrieved", doctor)
}
