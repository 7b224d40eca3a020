package api

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/lyra-media/lyra/internal/api/scans"
	"github.com/lyra-media/lyra/internal/api/tracks"
	"github.com/lyra-media/lyra/internal/api/util"
	"github.com/lyra-media/lyra/internal/http/websocket"
	"github.com/lyra-media/lyra/pkg/logger"
)

var log = logger.Get("API")

type (
	RestConfig struct {
		HostAddr string `yaml:"host_address" env:"API_HOST_ADDR" env-default:"0.0.0.0:8080"`
	}

	controller interface {
		SetRoutes(*echo.Group)
	}

	// dataStore represents a union of all the controller store requirements
	dataStore interface {
		tracks.Store
	}

	// The RestGateway is a thin-wrapper around the Echo HTTP router. It's sole responsbility
	// is to create the routes Lyra exposes, and to manage ongoing web socket
	// connections and events.
	RestGateway struct {
		*broadcaster
		config          *RestConfig
		ec              *echo.Echo
		socket          *websocket.SocketHub
		scanService     scans.ScanService
		scanController  controller
		trackController controller
	}
)

// NewRestGateway constructs the Echo router and populates it with all the
// routes defined by the various controllers. Each controller requires access
// to a data store, which are provided as arguments.
func NewRestGateway(
	config *RestConfig,
	scanService scans.ScanService,
	store dataStore,
) *RestGateway {
	ec := echo.New()
	ec.OnAddRouteHandler = func(host string, route echo.Route, handler echo.HandlerFunc, middleware []echo.MiddlewareFunc) {
		log.Emit(logger.DEBUG, "Registered new route %s %s\n", route.Method, route.Path)
	}
	ec.HidePort = true
	ec.HideBanner = true

	validate := validator.New()
	socket := websocket.New()
	gateway := &RestGateway{
		broadcaster:     newBroadcaster(socket, scanService, store),
		config:          config,
		ec:              ec,
		socket:          socket,
		scanService:     scanService,
		scanController:  scans.New(validate, scanService),
		trackController: tracks.New(validate, store),
	}

	// Connecting clients are welcomed with the current scan queue so they
	// can render activity without waiting for the next broadcast.
	socket.WithConnectionCallback(func() map[string]interface{} {
		return map[string]interface{}{"scans": util.ApplyConversion(scanService.GetAllScans(), scans.NewDto)}
	})
	socket.BindCommand("SCAN_STATUS", gateway.wsScanStatus).
		BindCommand("SCAN_DETAILS", gateway.wsScanDetails).
		BindCommand("SCAN_POLL", gateway.wsScanPoll)

	ec.Use(middleware.Logger())
	ec.Use(middleware.Recover())
	ec.Pre(middleware.AddTrailingSlash())

	ec.GET("/api/lyra/v1/activity/ws/", func(ec echo.Context) error {
		gateway.socket.UpgradeToSocket(ec.Response(), ec.Request())
		return nil
	})

	scanGroup := ec.Group("/api/lyra/v1/scans")
	gateway.scanController.SetRoutes(scanGroup)

	media := ec.Group("/api/lyra/v1/media")
	gateway.trackController.SetRoutes(media)

	return gateway
}

func (gateway *RestGateway) Run(parentCtx context.Context) error {
	ctx, ctxCancel := context.WithCancelCause(parentCtx)
	wg := &sync.WaitGroup{}

	// Start echo router
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := gateway.ec.Start(gateway.config.HostAddr); err != nil {
			ctxCancel(err)
		}
	}()

	// Start thread to listen for context cancellation
	go func(ec *echo.Echo) {
		<-ctx.Done()
		ec.Close()
	}(gateway.ec)

	// Start websocket
	wg.Add(1)
	go func() {
		defer wg.Done()
		gateway.socket.Start(ctx)
	}()

	wg.Wait()

	// Return cancellation cause if any, otherwise nil as parent context
	// cancellation is not an error case we should report.
	if cause := context.Cause(ctx); cause != ctx.Err() {
		return cause
	}

	return nil
}

// wsScanStatus replies to the requesting client with the entire scan queue.
func (gateway *RestGateway) wsScanStatus(hub *websocket.SocketHub, message *websocket.SocketMessage) error {
	dtos := util.ApplyConversion(gateway.scanService.GetAllScans(), scans.NewDto)
	hub.Send(message.FormReply("COMMAND_SUCCESS", map[string]interface{}{"payload": dtos}, websocket.Response))
	return nil
}

// wsScanDetails replies to the requesting client with the scan matching the
// 'id' argument of the message.
func (gateway *RestGateway) wsScanDetails(hub *websocket.SocketHub, message *websocket.SocketMessage) error {
	const errFmt = "failed to get scan details - %v"
	if err := message.ValidateArguments(map[string]string{"id": "string"}); err != nil {
		return err
	}

	id, err := uuid.Parse(message.Body["id"].(string))
	if err != nil {
		return fmt.Errorf(errFmt, "'id' is not a valid UUID")
	}

	item := gateway.scanService.GetScan(id)
	if item == nil {
		return fmt.Errorf(errFmt, "scan could not be found")
	}

	hub.Send(message.FormReply("COMMAND_SUCCESS", map[string]interface{}{"payload": scans.NewDto(item)}, websocket.Response))
	return nil
}

// wsScanPoll forces a poll of the library path for new files to scan.
func (gateway *RestGateway) wsScanPoll(hub *websocket.SocketHub, message *websocket.SocketMessage) error {
	gateway.scanService.DiscoverNewFiles()
	hub.Send(message.FormReply("COMMAND_SUCCESS", nil, websocket.Response))
	return nil
}
