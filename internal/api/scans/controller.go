package scans

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/lyra-media/lyra/internal/api/tracks"
	"github.com/lyra-media/lyra/internal/api/util"
	"github.com/lyra-media/lyra/internal/scan"
)

type (
	ResolutionTypeWrapper struct{ Value scan.ResolutionType }
	ResolveTroubleRequest struct {
		Method  *ResolutionTypeWrapper `json:"method"`
		Context map[string]string      `json:"context"`
	}

	// ScanDto is the response used by endpoints that return
	// the items being scanned (e.g., list, get)
	ScanDto struct {
		Id      uuid.UUID        `json:"id"`
		Path    string           `json:"source_path"`
		State   ScanStateDto     `json:"state"`
		Trouble *TroubleDto      `json:"trouble"`
		Track   *tracks.TrackDto `json:"track"`
	}

	ScanStateDto   string
	TroubleTypeDto string

	TroubleDto struct {
		Type                   TroubleTypeDto          `json:"type"`
		Message                string                  `json:"message"`
		Context                map[string]any          `json:"context"`
		AllowedResolutionTypes []ResolutionTypeWrapper `json:"allowed_resolution_types"`
	}

	ScanService interface {
		GetAllScans() []*scan.ScanItem
		GetScan(uuid.UUID) *scan.ScanItem
		RemoveScan(uuid.UUID) error
		DiscoverNewFiles()
		ResolveTroubledScan(itemID uuid.UUID, method scan.ResolutionType, context map[string]string) error
	}

	// Controller is the struct which is responsible for defining the
	// routes for this controller. Additionally, it holds the reference to
	// the service used to retrieve information about scans from Lyra
	Controller struct {
		service ScanService
	}
)

const (
	IDLE        ScanStateDto = "IDLE"
	IMPORT_HOLD ScanStateDto = "IMPORT_HOLD"
	SCANNING    ScanStateDto = "SCANNING"
	TROUBLED    ScanStateDto = "TROUBLED"
	COMPLETE    ScanStateDto = "COMPLETE"

	METADATA_FAILURE TroubleTypeDto = "METADATA_FAILURE"
	DATABASE_FAILURE TroubleTypeDto = "DATABASE_FAILURE"
	UNKNOWN_FAILURE  TroubleTypeDto = "UNKNOWN_FAILURE"
)

func New(validate *validator.Validate, serv ScanService) *Controller {
	return &Controller{service: serv}
}

// SetRoutes accepts the Echo group for the scan endpoints
// and sets the routes on them.
func (controller *Controller) SetRoutes(eg *echo.Group) {
	eg.GET("/", controller.list)
	eg.POST("/poll/", controller.performPoll)
	eg.GET("/:id/", controller.get)
	eg.DELETE("/:id/", controller.delete)
	eg.POST("/:id/trouble-resolution/", controller.postTroubleResolution)
}

// list returns all the scans - represented as DTOs - from the underlying service.
func (controller *Controller) list(ec echo.Context) error {
	return ec.JSON(http.StatusOK, util.ApplyConversion(controller.service.GetAllScans(), NewDto))
}

// get uses the 'id' path param from the context and retrieves the scan from the
// underlying service. If found, a DTO representing the scan is returned
func (controller *Controller) get(ec echo.Context) error {
	id, err := uuid.Parse(ec.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Scan ID is not a valid UUID")
	}

	item := controller.service.GetScan(id)
	if item == nil {
		return echo.NewHTTPError(http.StatusNotFound)
	}

	return ec.JSON(http.StatusOK, NewDto(item))
}

// delete uses the 'id' path param from the context and retrieves the scan from the
// underlying service. If found, the scan is cancelled.
func (controller *Controller) delete(ec echo.Context) error {
	id, err := uuid.Parse(ec.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Scan ID is not a valid UUID")
	}

	if err := controller.service.RemoveScan(id); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	return ec.NoContent(http.StatusOK)
}

// postTroubleResolution uses the 'id' path param from the context and retrieves the scan
// from the underlying service. If found, then an attempt to resolve the trouble will be made.
func (controller *Controller) postTroubleResolution(ec echo.Context) error {
	id, err := uuid.Parse(ec.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Scan ID is not a valid UUID")
	}

	var request ResolveTroubleRequest
	if err := ec.Bind(&request); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("JSON body illegal: %v", err))
	} else if request.Method == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "JSON body missing mandatory 'method' field")
	}

	if err := controller.service.ResolveTroubledScan(id, request.Method.Value, request.Context); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	return ec.NoContent(http.StatusOK)
}

func (controller *Controller) performPoll(ec echo.Context) error {
	controller.service.DiscoverNewFiles()

	return ec.NoContent(http.StatusOK)
}

func (wrapper *ResolutionTypeWrapper) UnmarshalJSON(data []byte) error {
	var strValue string
	if err := json.Unmarshal(data, &strValue); err != nil {
		return err
	}

	switch strValue {
	case "abort":
		wrapper.Value = scan.Abort
	case "remap_path":
		wrapper.Value = scan.RemapPath
	case "retry":
		wrapper.Value = scan.Retry
	default:
		return fmt.Errorf("invalid enum value: %s for resolution method", strValue)
	}

	return nil
}

func (wrapper *ResolutionTypeWrapper) MarshalJSON() ([]byte, error) {
	switch wrapper.Value {
	case scan.Abort:
		return json.Marshal("abort")
	case scan.RemapPath:
		return json.Marshal("remap_path")
	case scan.Retry:
		return json.Marshal("retry")
	}

	return nil, fmt.Errorf("invalid enum value: %v for resolution method has no known marshalling", wrapper.Value)
}

// NewDto creates a ScanDto using the ScanItem model.
func NewDto(item *scan.ScanItem) *ScanDto {
	var trbl *TroubleDto = nil
	if item.Trouble != nil {
		trbl = &TroubleDto{
			Type:                   TroubleTypeModelToDto(item.Trouble.Type()),
			Message:                item.Trouble.Error(),
			Context:                ExtractTroubleContext(item.Trouble),
			AllowedResolutionTypes: ExtractTroubleResolutionTypes(item.Trouble),
		}
	}

	var track *tracks.TrackDto = nil
	if item.Track != nil {
		track = tracks.NewTrackDto(item.Track)
	}

	return &ScanDto{
		Id:      item.ID,
		Path:    item.Path,
		State:   ScanStateModelToDto(item.State),
		Trouble: trbl,
		Track:   track,
	}
}

func ExtractTroubleContext(trouble *scan.Trouble) map[string]any {
	// Scan troubles are (at the moment) context-free; the message and
	// allowed actions alone should suffice for a client to resolve them.
	return map[string]any{}
}

func ExtractTroubleResolutionTypes(trouble *scan.Trouble) []ResolutionTypeWrapper {
	return util.ApplyConversion(trouble.AllowedResolutionTypes(), func(v scan.ResolutionType) ResolutionTypeWrapper {
		return ResolutionTypeWrapper{Value: v}
	})
}

func TroubleTypeModelToDto(troubleType scan.TroubleType) TroubleTypeDto {
	switch troubleType {
	case scan.MetadataFailure:
		return METADATA_FAILURE
	case scan.DatabaseFailure:
		return DATABASE_FAILURE
	case scan.GenericFailure:
		return UNKNOWN_FAILURE
	}

	panic(fmt.Sprintf("scan trouble type %s is not recognized by API layer, DTO cannot be created. Please report this error.", troubleType))
}

func ScanStateModelToDto(modelType scan.ScanItemState) ScanStateDto {
	switch modelType {
	case scan.Idle:
		return IDLE
	case scan.ImportHold:
		return IMPORT_HOLD
	case scan.Scanning:
		return SCANNING
	case scan.Troubled:
		return TROUBLED
	case scan.Complete:
		return COMPLETE
	}

	panic(fmt.Sprintf("scan state %s is not recognized by API layer, DTO cannot be created. Please report this error.", modelType))
}
