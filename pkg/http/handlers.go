package http

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"liyu1981.xyz/energy-monitor-service/pkg/common"
	"liyu1981.xyz/energy-monitor-service/pkg/iot"
	"liyu1981.xyz/energy-monitor-service/pkg/models"
	"liyu1981.xyz/energy-monitor-service/pkg/store"

	z "github.com/Oudwins/zog"
	"github.com/Oudwins/zog/zhttp"
)

// statusFor maps an error kind onto the response code: bad input is the
// caller's fault, vendor-side failures are a bad gateway, the rest is ours.
func statusFor(err error) int {
	switch common.Kind(err) {
	case common.ErrorKindInvalid:
		return http.StatusBadRequest
	case common.ErrorKindStore:
		if errors.Is(err, store.ErrNotFound) {
			return http.StatusNotFound
		}
		return http.StatusInternalServerError
	case common.ErrorKindAuth, common.ErrorKindTransport, common.ErrorKindVendor:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		common.GetLoggerWith(common.LoggerNameRestfulServer).Error("Request failed",
			zap.String("path", c.FullPath()), zap.Int("status", code), zap.Error(err))
	}
	c.JSON(code, gin.H{"success": false, "error": err.Error()})
}

func respondInvalid(c *gin.Context, issues any) {
	c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": issues})
}

// bindJSON decodes the body into req with gin and then runs the zog checks
// on the decoded struct. Optional (pointer) and nested fields go this way.
func bindJSON(c *gin.Context, req any, schema *z.StructSchema) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		respondInvalid(c, err.Error())
		return false
	}
	if issues := schema.Validate(req); issues != nil {
		respondInvalid(c, issues)
		return false
	}
	return true
}

func bindQuery(c *gin.Context, req any, schema *z.StructSchema) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		respondInvalid(c, err.Error())
		return false
	}
	if issues := schema.Validate(req); issues != nil {
		respondInvalid(c, issues)
		return false
	}
	return true
}

func (rs *RestfulServer) HealthCheck(c *gin.Context) {
	stats, err := rs.Iot.Store.Stats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "store": stats})
}

type LimiterRequest struct {
	Key   string  `json:"key"`
	Rate  float64 `json:"rate"`
	Burst int     `json:"burst"`
}

var limiterRequestSchema = z.Struct(z.Shape{
	"key":   z.String().Required(),
	"rate":  z.Float64().Required(),
	"burst": z.Int().Required(),
})

// PostLimiter overrides the inbound budget of one client key.
func (rs *RestfulServer) PostLimiter(c *gin.Context) {
	var req LimiterRequest
	if err := limiterRequestSchema.Parse(zhttp.Request(c.Request), &req); err != nil {
		respondInvalid(c, err)
		return
	}

	rs.SetLimiter(req.Key, req.Rate, req.Burst)

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (rs *RestfulServer) collectorAvailable(c *gin.Context) bool {
	if rs.Iot.Collector == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "error": "collector not available"})
		return false
	}
	return true
}

func (rs *RestfulServer) Collect(c *gin.Context) {
	if !rs.collectorAvailable(c) {
		return
	}

	summary := rs.Iot.Collector.Collect(c.Request.Context())
	code := http.StatusOK
	if !summary.Success {
		code = http.StatusInternalServerError
	}
	c.JSON(code, summary)
}

func (rs *RestfulServer) GetCollectorStats(c *gin.Context) {
	if !rs.collectorAvailable(c) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "stats": rs.Iot.Collector.Stats()})
}

func (rs *RestfulServer) GetDevices(c *gin.Context) {
	devices, err := rs.Iot.Device.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "devices": nonNil(devices)})
}

func (rs *RestfulServer) GetLiveDevices(c *gin.Context) {
	devices, err := rs.Iot.Device.Live(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "devices": nonNil(devices)})
}

func (rs *RestfulServer) DiscoverDevices(c *gin.Context) {
	result, err := rs.Iot.Device.Discover(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"discovered": result.Discovered,
		"totalFound": result.TotalFound,
		"newDevices": result.NewDevices,
		"message":    fmt.Sprintf("%d new devices discovered", result.NewDevices),
	})
}

type DeviceRequest struct {
	Name string `json:"name"`
}

var deviceRequestSchema = z.Struct(z.Shape{
	"Name": z.String().Trim().Required(),
})

func (rs *RestfulServer) UpdateDevice(c *gin.Context) {
	deviceID := c.Param("device_id")

	var req DeviceRequest
	if err := deviceRequestSchema.Parse(zhttp.Request(c.Request), &req); err != nil {
		respondInvalid(c, err)
		return
	}

	device, updated, err := rs.Iot.Device.Rename(c.Request.Context(), deviceID, req.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "device": device, "updated": updated})
}

func (rs *RestfulServer) DeleteDevice(c *gin.Context) {
	result, err := rs.Iot.Device.Delete(c.Request.Context(), c.Param("device_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"message":     "device removed",
		"readings":    result.Readings,
		"predictions": result.Predictions,
	})
}

func (rs *RestfulServer) GetReadings(c *gin.Context) {
	period, err := iot.ParsePeriod(c.Query("period"))
	if err != nil {
		respondError(c, err)
		return
	}

	readings, err := rs.Iot.Reading.Query(c.Request.Context(), c.Query("deviceId"), period)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "readings": nonNil(readings), "count": len(readings)})
}

type ReadingRequest struct {
	DeviceID    string    `json:"deviceId" zog:"deviceId"`
	Timestamp   time.Time `json:"timestamp,omitzero"`
	Power       float64   `json:"power"`
	Voltage     float64   `json:"voltage"`
	Current     float64   `json:"current"`
	TotalEnergy float64   `json:"totalEnergy"`
}

var readingRequestSchema = z.Struct(z.Shape{
	"DeviceID":    z.String().Trim().Required(),
	"Timestamp":   z.Time(),
	"Power":       z.Float64(),
	"Voltage":     z.Float64(),
	"Current":     z.Float64(),
	"TotalEnergy": z.Float64(),
})

func (rs *RestfulServer) PostReading(c *gin.Context) {
	var req ReadingRequest
	if err := readingRequestSchema.Parse(zhttp.Request(c.Request), &req); err != nil {
		respondInvalid(c, err)
		return
	}

	reading, err := rs.Iot.Reading.Add(c.Request.Context(), &models.EnergyReading{
		DeviceID:  req.DeviceID,
		Timestamp: req.Timestamp,
		Power:     req.Power,
		Voltage:   req.Voltage,
		Current:   req.Current,
		Energy:    req.TotalEnergy,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "readingId": reading.ID, "reading": reading})
}

// PredictionQuery leaves year and month nil when absent; the listing then
// defaults to the current month.
type PredictionQuery struct {
	DeviceID string `form:"deviceId"`
	Year     *int   `form:"year"`
	Month    *int   `form:"month"`
}

var predictionQuerySchema = z.Struct(z.Shape{
	"DeviceID": z.String(),
	"Year":     z.Ptr(z.Int().GTE(2000).LTE(9999)),
	"Month":    z.Ptr(z.Int().GTE(1).LTE(12)),
})

func (rs *RestfulServer) GetPredictions(c *gin.Context) {
	var query PredictionQuery
	if !bindQuery(c, &query, predictionQuerySchema) {
		return
	}

	filter := store.PredictionFilter{DeviceID: strings.TrimSpace(query.DeviceID)}
	if query.Year != nil {
		filter.Year = *query.Year
	}
	if query.Month != nil {
		filter.Month = *query.Month
	}
	predictions, err := rs.Iot.Prediction.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "predictions": nonNil(predictions)})
}

type PredictionRequest struct {
	DeviceID             string   `json:"deviceId" zog:"deviceId"`
	Year                 int      `json:"year"`
	Month                int      `json:"month"`
	PredictedConsumption float64  `json:"predictedConsumption"`
	KwhPrice             float64  `json:"kwhPrice"`
	ActualConsumption    *float64 `json:"actualConsumption,omitempty"`
}

var predictionRequestSchema = z.Struct(z.Shape{
	"DeviceID":             z.String().Required(),
	"Year":                 z.Int().Required(),
	"Month":                z.Int().Required(),
	"PredictedConsumption": z.Float64().GTE(0),
	"KwhPrice":             z.Float64().GTE(0),
	"ActualConsumption":    z.Ptr(z.Float64().GTE(0)),
})

func (rs *RestfulServer) PostPrediction(c *gin.Context) {
	var req PredictionRequest
	if !bindJSON(c, &req, predictionRequestSchema) {
		return
	}

	prediction, updated, err := rs.Iot.Prediction.Save(c.Request.Context(), &models.MonthlyPrediction{
		DeviceID:             strings.TrimSpace(req.DeviceID),
		Year:                 req.Year,
		Month:                req.Month,
		PredictedConsumption: req.PredictedConsumption,
		KwhPrice:             req.KwhPrice,
		ActualConsumption:    req.ActualConsumption,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "prediction": prediction, "updated": updated})
}

func (rs *RestfulServer) ProjectPredictions(c *gin.Context) {
	predictions, err := rs.Iot.Prediction.Project(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "predictions": nonNil(predictions)})
}

func (rs *RestfulServer) GetSettings(c *gin.Context) {
	settings, err := rs.Iot.Settings.Get(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "settings": settings})
}

type NotificationTogglesRequest struct {
	HighConsumption bool `json:"highConsumption"`
	GoalExceeded    bool `json:"goalExceeded"`
	DeviceOffline   bool `json:"deviceOffline"`
	DailyReport     bool `json:"dailyReport"`
}

type PeakHoursRequest struct {
	Start string  `json:"start"`
	End   string  `json:"end"`
	Price float64 `json:"price"`
}

// SettingsRequest is a partial update; absent fields stay as stored.
type SettingsRequest struct {
	KwhPrice                 *float64                    `json:"kwhPrice,omitempty"`
	Currency                 *string                     `json:"currency,omitempty"`
	Timezone                 *string                     `json:"timezone,omitempty"`
	MonthlyGoal              *float64                    `json:"monthlyGoal,omitempty"`
	HighConsumptionThreshold *float64                    `json:"highConsumptionThreshold,omitempty"`
	Notifications            *NotificationTogglesRequest `json:"notifications,omitempty"`
	TariffType               *string                     `json:"tariffType,omitempty"`
	PeakHours                *PeakHoursRequest           `json:"peakHours,omitempty"`
}

// Timezone and the peak-hour window are checked by the settings service.
var settingsRequestSchema = z.Struct(z.Shape{
	"KwhPrice":                 z.Ptr(z.Float64().GTE(0)),
	"Currency":                 z.Ptr(z.String().Len(3)),
	"MonthlyGoal":              z.Ptr(z.Float64().GTE(0)),
	"HighConsumptionThreshold": z.Ptr(z.Float64().GTE(0)),
	"TariffType": z.Ptr(z.String().OneOf([]string{
		string(models.TariffTypeConventional),
		string(models.TariffTypeWhite),
		string(models.TariffTypeGreen),
	})),
})

func (req *SettingsRequest) toUpdate() store.SettingsUpdate {
	update := store.SettingsUpdate{
		KwhPrice:                 req.KwhPrice,
		Currency:                 req.Currency,
		Timezone:                 req.Timezone,
		MonthlyGoal:              req.MonthlyGoal,
		HighConsumptionThreshold: req.HighConsumptionThreshold,
	}
	if req.Notifications != nil {
		update.Notifications = &models.NotificationToggles{
			HighConsumption: req.Notifications.HighConsumption,
			GoalExceeded:    req.Notifications.GoalExceeded,
			DeviceOffline:   req.Notifications.DeviceOffline,
			DailyReport:     req.Notifications.DailyReport,
		}
	}
	if req.TariffType != nil {
		update.TariffType = common.Ptr(models.TariffType(*req.TariffType))
	}
	if req.PeakHours != nil {
		update.PeakHours = &models.PeakHours{
			Start: req.PeakHours.Start,
			End:   req.PeakHours.End,
			Price: req.PeakHours.Price,
		}
	}
	return update
}

func (rs *RestfulServer) UpdateSettings(c *gin.Context) {
	var req SettingsRequest
	if !bindJSON(c, &req, settingsRequestSchema) {
		return
	}

	settings, err := rs.Iot.Settings.Update(c.Request.Context(), req.toUpdate())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "updated": true, "settings": settings})
}

func (rs *RestfulServer) GetNotifications(c *gin.Context) {
	notifications, err := rs.Iot.Notification.ListRecent(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "notifications": nonNil(notifications)})
}

type NotificationRequest struct {
	Type     string   `json:"type"`
	Title    string   `json:"title"`
	Message  string   `json:"message"`
	DeviceID *string  `json:"deviceId,omitempty" zog:"deviceId"`
	Value    *float64 `json:"value,omitempty"`
}

type NotificationsRequest struct {
	Notifications []NotificationRequest `json:"notifications"`
}

// notificationRequestSchema runs per entry; the type enum is checked by the
// notification service.
var notificationRequestSchema = z.Struct(z.Shape{
	"Type":     z.String().Required(),
	"Title":    z.String().Required(),
	"Message":  z.String(),
	"DeviceID": z.Ptr(z.String().Min(1)),
	"Value":    z.Ptr(z.Float64()),
})

func (rs *RestfulServer) PostNotifications(c *gin.Context) {
	var req NotificationsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalid(c, err.Error())
		return
	}
	if len(req.Notifications) == 0 {
		respondInvalid(c, "notifications must not be empty")
		return
	}
	for i := range req.Notifications {
		if issues := notificationRequestSchema.Validate(&req.Notifications[i]); issues != nil {
			respondInvalid(c, gin.H{"index": i, "issues": issues})
			return
		}
	}

	now := time.Now()
	batch := common.Mapper(req.Notifications, func(n NotificationRequest) models.Notification {
		return models.Notification{
			Type:      models.NotificationType(n.Type),
			Title:     n.Title,
			Message:   n.Message,
			DeviceID:  n.DeviceID,
			Value:     n.Value,
			Timestamp: now,
		}
	})

	created, err := rs.Iot.Notification.Create(c.Request.Context(), batch)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "insertedCount": len(created), "notifications": created})
}

func (rs *RestfulServer) CheckNotifications(c *gin.Context) {
	created, err := rs.Iot.Notification.Check(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "created": len(created), "notifications": nonNil(created)})
}

func (rs *RestfulServer) MarkNotificationRead(c *gin.Context) {
	if err := rs.Iot.Notification.MarkRead(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "notification marked as read"})
}

func (rs *RestfulServer) DeleteNotification(c *gin.Context) {
	if err := rs.Iot.Notification.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "notification deleted"})
}

// nonNil keeps empty lists as [] rather than null in responses.
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
