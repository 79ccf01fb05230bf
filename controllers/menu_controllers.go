package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-ordering/models"
	"github.com/yeremiapane/restaurant-ordering/utils"
	"gorm.io/gorm"
)

// MenuController serves the read-only dish catalog.
type MenuController struct {
	DB *gorm.DB
}

func NewMenuController(db *gorm.DB) *MenuController {
	return &MenuController{DB: db}
}

// GetAllDishes -> dishes with their category, filterable by category_id and
// available
func (mc *MenuController) GetAllDishes(c *gin.Context) {
	query := mc.DB.WithContext(c.Request.Context()).Preload("Category").Order("name ASC")

	if categoryID := c.Query("category_id"); categoryID != "" {
		query = query.Where("category_id = ?", categoryID)
	}
	if available := c.Query("available"); available != "" {
		flag, err := strconv.ParseBool(available)
		if err != nil {
			utils.RespondError(c, http.StatusBadRequest, utils.CodeValidation, errors.New("available must be true or false"))
			return
		}
		query = query.Where("is_available = ?", flag)
	}

	dishes := []models.Dish{}
	if err := query.Find(&dishes).Error; err != nil {
		respondServiceError(c, utils.NewInternalError("failed to list dishes", err))
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of dishes", gin.H{"dishes": dishes})
}

// GetDish -> a single dish
func (mc *MenuController) GetDish(c *gin.Context) {
	dishID, ok := uuidParam(c, "dishId")
	if !ok {
		return
	}

	var dish models.Dish
	if err := mc.DB.WithContext(c.Request.Context()).Preload("Category").First(&dish, "id = ?", dishID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondError(c, http.StatusNotFound, utils.CodeDishNotFound, errors.New("dish not found"))
			return
		}
		respondServiceError(c, utils.NewInternalError("failed to load dish", err))
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Dish details", gin.H{"dish": dish})
}

// GetAllCategories -> categories by name
func (mc *MenuController) GetAllCategories(c *gin.Context) {
	categories := []models.Category{}
	if err := mc.DB.WithContext(c.Request.Context()).Order("name ASC").Find(&categories).Error; err != nil {
		respondServiceError(c, utils.NewInternalError("failed to list categories", err))
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of categories", gin.H{"categories": categories})
}
