package controllers

import (
	"mediconnect/models"
	"mediconnect/repositories"
	"mediconnect/utils"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// ChannelController exposes the channel admin surface: listing with
// delivery statistics and status changes. Channels are deactivated,
// never deleted.
type ChannelController struct {
	channelRepo *repositories.ChannelRepository
	validator   *utils.ValidationService
}

func NewChannelController(channelRepo *repositories.ChannelRepository, validator *utils.ValidationService) *ChannelController {
	return &ChannelController{
		channelRepo: channelRepo,
		validator:   validator,
	}
}

type channelView struct {
	models.NotificationChannel
	DeliveryRate float64 `json:"deliveryRate"`
	Available    bool    `json:"available"`
}

// ListChannels returns every configured channel with computed delivery
// statistics.
func (cc *ChannelController) ListChannels(c *gin.Context) {
	channels, err := cc.channelRepo.List(c.Request.Context())
	if err != nil {
		logrus.Errorf("List channels failed: %v", err)
		utils.InternalErrorResponse(c, "Failed to list channels")
		return
	}

	views := make([]channelView, 0, len(channels))
	for _, channel := range channels {
		views = append(views, channelView{
			NotificationChannel: channel,
			DeliveryRate:        channel.DeliveryRate(),
			Available:           channel.IsAvailable(),
		})
	}

	utils.SuccessResponse(c, "Channels retrieved", views)
}

// GetChannel returns one channel with statistics.
func (cc *ChannelController) GetChannel(c *gin.Context) {
	channel, err := cc.channelRepo.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.NotFoundResponse(c, "Channel not found")
		return
	}

	utils.SuccessResponse(c, "Channel retrieved", channelView{
		NotificationChannel: *channel,
		DeliveryRate:        channel.DeliveryRate(),
		Available:           channel.IsAvailable(),
	})
}

// CreateChannel registers a new delivery channel. Admin only.
func (cc *ChannelController) CreateChannel(c *gin.Context) {
	var channel models.NotificationChannel
	if err := c.ShouldBindJSON(&channel); err != nil {
		utils.BadRequestResponse(c, "Invalid request body")
		return
	}

	if channel.Name == "" || channel.ChannelType == "" {
		utils.BadRequestResponse(c, "Channel name and type are required")
		return
	}
	if channel.Status == "" {
		channel.Status = models.ChannelStatusActive
	}
	if channel.ReliabilityScore == 0 {
		channel.ReliabilityScore = 1.0
	}

	if err := cc.channelRepo.Create(c.Request.Context(), &channel); err != nil {
		logrus.Errorf("Create channel failed: %v", err)
		utils.InternalErrorResponse(c, "Failed to create channel")
		return
	}

	utils.CreatedResponse(c, "Channel created", channel)
}

// UpdateChannelStatus activates, deactivates, or flags a channel.
// Admin only.
func (cc *ChannelController) UpdateChannelStatus(c *gin.Context) {
	var req models.UpdateChannelStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body")
		return
	}

	if validationErrors := cc.validator.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	if err := cc.channelRepo.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status); err != nil {
		logrus.Errorf("Update channel status failed: %v", err)
		utils.InternalErrorResponse(c, "Failed to update channel status")
		return
	}

	utils.SuccessResponse(c, "Channel status updated", nil)
}
