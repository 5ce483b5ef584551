package controllers

import (
	"net/http"

	"github.com/eyespire/clinic-backend/models"
	"github.com/eyespire/clinic-backend/utils"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type MedicalServiceController struct {
	DB *gorm.DB
}

func NewMedicalServiceController(db *gorm.DB) *MedicalServiceController {
	return &MedicalServiceController{DB: db}
}

// CreateService adds a billable medical service to the catalog.
func (mc *MedicalServiceController) CreateService(c *gin.Context) {
	type request struct {
		Name        string  `json:"name" binding:"required"`
		Description string  `json:"description"`
		Price       float64 `json:"price" binding:"required,gt=0"`
	}
	var req request
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	service := models.MedicalService{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
	}
	if err := mc.DB.Create(&service).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Service created", service)
}

// GetServices lists the service catalog.
func (mc *MedicalServiceController) GetServices(c *gin.Context) {
	var services []models.MedicalService
	if err := mc.DB.Find(&services).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Services retrieved", services)
}
