// Package web is the HTTP boundary of the NAO bridge. It translates wire
// requests into typed commands for the dispatcher and renders results back
// into the documented response envelope.
package web

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/davesnowdon/go-nao-bridge/internal/log"
	"github.com/davesnowdon/go-nao-bridge/pkg/command"
	"github.com/davesnowdon/go-nao-bridge/pkg/hub"
	"github.com/davesnowdon/go-nao-bridge/pkg/operation"
	"github.com/davesnowdon/go-nao-bridge/pkg/session"
)

// APIVersion is reported by the status endpoint.
const APIVersion = "1.0"

// Server is the bridge's HTTP API server.
type Server struct {
	app        *fiber.App
	addr       string
	dispatcher *command.Dispatcher
	session    *session.Manager
	tracker    *operation.Tracker
	events     *hub.Hub
}

// NewServer wires the HTTP routes over the bridge core. The tracker must
// have been created but not started any operations yet: the server hooks
// its update stream for websocket broadcast.
func NewServer(addr string, dispatcher *command.Dispatcher, sess *session.Manager, tracker *operation.Tracker) *Server {
	s := &Server{
		addr:       addr,
		dispatcher: dispatcher,
		session:    sess,
		tracker:    tracker,
		events:     hub.New("operations"),
	}

	tracker.OnUpdate(func(op operation.Operation) {
		if err := s.events.BroadcastJSON(op); err != nil {
			log.Warn("failed to broadcast operation update", "id", op.ID, "err", err)
		}
	})

	app := fiber.New(fiber.Config{
		AppName:               "nao-bridge",
		DisableStartupMessage: true,
	})
	app.Use(cors.New())

	api := app.Group("/api/v1")
	api.Get("/status", s.handleStatus)

	api.Post("/robot/stiff", s.handleStiff)
	api.Post("/robot/relax", s.handleRelax)
	api.Post("/robot/wake", s.handleWake)
	api.Post("/robot/rest", s.handleRest)
	api.Post("/robot/autonomous_life/state", s.handleLifeState)
	api.Get("/robot/joints/:chain/angles", s.handleJointAngles)
	api.Get("/robot/joints/:chain/names", s.handleJointNames)

	api.Post("/posture/stand", s.handleStand)
	api.Post("/posture/sit", s.handleSit)
	api.Post("/posture/crouch", s.handleCrouch)
	api.Post("/posture/lie", s.handleLie)

	api.Post("/arms/preset", s.handleArmsPreset)
	api.Post("/hands/position", s.handleHandsPosition)
	api.Post("/head/position", s.handleHeadPosition)

	api.Post("/speech/say", s.handleSay)

	api.Post("/leds/set", s.handleLEDsSet)
	api.Post("/leds/off", s.handleLEDsOff)

	api.Post("/walk/start", s.handleWalkStart)
	api.Post("/walk/stop", s.handleWalkStop)
	api.Post("/walk/preset", s.handleWalkPreset)

	api.Get("/sensors/sonar", s.handleSonar)

	api.Post("/config/duration", s.handleConfigDuration)

	api.Get("/operations", s.handleOperations)
	api.Get("/operations/:id", s.handleOperation)

	api.Post("/behaviour/execute", s.handleBehaviourExecute)
	api.Post("/behaviour/default", s.handleBehaviourDefault)
	api.Get("/behaviour/:type", s.handleBehaviourList)

	api.Post("/animations/execute", s.handleAnimationExecute)
	api.Get("/animations/list", s.handleAnimationList)
	api.Post("/animations/sequence", s.handleSequence)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/operations", websocket.New(s.handleOperationsWS))

	app.Use(notFound)

	s.app = app
	return s
}

// Run starts the event hub and the listener, then blocks until the context
// is cancelled, shutting the listener down gracefully.
func (s *Server) Run(ctx context.Context) error {
	go s.events.Run(ctx)

	errc := make(chan error, 1)
	go func() {
		errc <- s.app.Listen(s.addr)
	}()

	log.Info("api listening", "addr", s.addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		return s.app.Shutdown()
	}
}

// App exposes the fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// handleOperationsWS streams operation status transitions to the client.
func (s *Server) handleOperationsWS(c *websocket.Conn) {
	client := hub.NewClient(s.events, c)
	client.Run()
}
